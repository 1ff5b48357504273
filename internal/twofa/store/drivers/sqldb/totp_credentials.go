package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/pkg/cryptox"
	"github.com/jmoiron/sqlx"
)

type totpRepo struct {
	db sqlx.ExtContext
}

type totpRow struct {
	UserID           string       `db:"user_id"`
	SecretEnc        []byte       `db:"secret_enc"`
	ActivatedAt      sql.NullTime `db:"activated_at"`
	PendingSecretEnc []byte       `db:"pending_secret_enc"`
	PendingCreatedAt sql.NullTime `db:"pending_created_at"`
	FailedAttempts   int          `db:"failed_attempts"`
	LastFailedAt     sql.NullTime `db:"last_failed_at"`
	LastUsedStep     int64        `db:"last_used_step"`
}

func (r *totpRepo) GetTOTPCredential(ctx context.Context, userID string) (domain.TOTPCredential, error) {
	var row totpRow
	err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(`
		SELECT user_id, secret_enc, activated_at, pending_secret_enc, pending_created_at,
			failed_attempts, last_failed_at, last_used_step
		FROM totp_credentials WHERE user_id = ?`), userID)
	if err != nil {
		return domain.TOTPCredential{}, mapNotFound(err)
	}

	secret, err := openOptional(row.SecretEnc)
	if err != nil {
		return domain.TOTPCredential{}, err
	}
	pending, err := openOptional(row.PendingSecretEnc)
	if err != nil {
		return domain.TOTPCredential{}, err
	}

	return domain.TOTPCredential{
		UserID:           row.UserID,
		Secret:           secret,
		ActivatedAt:      mapNullTimePtr(row.ActivatedAt),
		PendingSecret:    pending,
		PendingCreatedAt: mapNullTimePtr(row.PendingCreatedAt),
		FailedAttempts:   row.FailedAttempts,
		LastFailedAt:     mapNullTimePtr(row.LastFailedAt),
		LastUsedStep:     row.LastUsedStep,
	}, nil
}

func (r *totpRepo) SaveTOTPCredential(ctx context.Context, cred domain.TOTPCredential) error {
	secretEnc, err := sealOptional(cred.Secret)
	if err != nil {
		return err
	}
	pendingEnc, err := sealOptional(cred.PendingSecret)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO totp_credentials (user_id, secret_enc, activated_at, pending_secret_enc, pending_created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			secret_enc = excluded.secret_enc,
			activated_at = excluded.activated_at,
			pending_secret_enc = excluded.pending_secret_enc,
			pending_created_at = excluded.pending_created_at`),
		cred.UserID, secretEnc, mapOptionalTime(cred.ActivatedAt), pendingEnc, mapOptionalTime(cred.PendingCreatedAt),
	)
	return err
}

func (r *totpRepo) DeleteTOTPCredential(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM totp_credentials WHERE user_id = ?`), userID)
	return err
}

// RecordTOTPFailure is a single statement so failures counted by different
// instances are never lost.
func (r *totpRepo) RecordTOTPFailure(ctx context.Context, userID string, at time.Time, window time.Duration) (int, error) {
	var n int
	err := sqlx.GetContext(ctx, r.db, &n, r.db.Rebind(`
		UPDATE totp_credentials SET
			failed_attempts = CASE
				WHEN last_failed_at IS NULL OR last_failed_at < ? THEN 1
				ELSE failed_attempts + 1
			END,
			last_failed_at = ?
		WHERE user_id = ?
		RETURNING failed_attempts`),
		dbTime(at.Add(-window)), dbTime(at), userID,
	)
	if err != nil {
		return 0, mapNotFound(err)
	}
	return n, nil
}

func (r *totpRepo) AcceptTOTPStep(ctx context.Context, userID string, step int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE totp_credentials
		SET last_used_step = ?, failed_attempts = 0, last_failed_at = NULL
		WHERE user_id = ? AND last_used_step < ?`),
		step, userID, step,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *totpRepo) ClearStalePending(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE totp_credentials
		SET pending_secret_enc = NULL, pending_created_at = NULL
		WHERE pending_created_at IS NOT NULL AND pending_created_at < ?`), dbTime(before))
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	_, err = r.db.ExecContext(ctx, `DELETE FROM totp_credentials WHERE secret_enc IS NULL AND pending_secret_enc IS NULL`)
	return n, err
}

// sealOptional seals s, mapping the empty string to NULL. An untyped nil is
// returned so drivers bind NULL rather than an empty blob.
func sealOptional(s string) (any, error) {
	if s == "" {
		return nil, nil
	}
	return cryptox.SealString(s)
}

func openOptional(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	return cryptox.OpenString(b)
}

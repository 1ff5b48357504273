package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/pkg/cryptox"
	"github.com/jmoiron/sqlx"
)

type backupCodesRepo struct {
	db sqlx.ExtContext
}

type backupCodeRow struct {
	ID         string       `db:"id"`
	UserID     string       `db:"user_id"`
	CodeHash   string       `db:"code_hash"`
	CodeEnc    []byte       `db:"code_enc"`
	CreatedAt  time.Time    `db:"created_at"`
	ConsumedAt sql.NullTime `db:"consumed_at"`
}

func (r *backupCodesRepo) CreateBackupCode(ctx context.Context, code domain.BackupCode) error {
	enc, err := cryptox.SealString(code.Code)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO backup_codes (id, user_id, code_hash, code_enc, created_at, consumed_at)
		VALUES (?, ?, ?, ?, ?, ?)`),
		code.ID, code.UserID, code.CodeHash, enc, dbTime(code.CreatedAt), mapOptionalTime(code.ConsumedAt),
	)
	return err
}

func (r *backupCodesRepo) ListBackupCodes(ctx context.Context, userID string) ([]domain.BackupCode, error) {
	var rows []backupCodeRow
	err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(`
		SELECT id, user_id, code_hash, code_enc, created_at, consumed_at
		FROM backup_codes WHERE user_id = ? ORDER BY id ASC`), userID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.BackupCode, 0, len(rows))
	for _, row := range rows {
		code, err := cryptox.OpenString(row.CodeEnc)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.BackupCode{
			ID:         row.ID,
			UserID:     row.UserID,
			Code:       code,
			CodeHash:   row.CodeHash,
			CreatedAt:  row.CreatedAt.UTC(),
			ConsumedAt: mapNullTimePtr(row.ConsumedAt),
		})
	}
	return out, nil
}

func (r *backupCodesRepo) ConsumeBackupCode(ctx context.Context, userID, codeHash string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE backup_codes SET consumed_at = ?
		WHERE user_id = ? AND code_hash = ? AND consumed_at IS NULL`),
		dbTime(at), userID, codeHash,
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

func (r *backupCodesRepo) DeleteAllBackupCodes(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM backup_codes WHERE user_id = ?`), userID)
	return err
}

func (r *backupCodesRepo) CountUserBackupCodes(ctx context.Context, userID string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, r.db, &count, r.db.Rebind(
		`SELECT COUNT(*) FROM backup_codes WHERE user_id = ? AND consumed_at IS NULL`,
	), userID)
	if err != nil {
		return 0, err
	}
	return count, nil
}

package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/internal/twofa/store"
	"github.com/jmoiron/sqlx"
)

type deviceSessionsRepo struct {
	db sqlx.ExtContext
}

type deviceSessionRow struct {
	ID          string       `db:"id"`
	UserID      string       `db:"user_id"`
	Fingerprint string       `db:"fingerprint"`
	UserAgent   string       `db:"user_agent"`
	IPAddress   string       `db:"ip_address"`
	RiskScore   int          `db:"risk_score"`
	CreatedAt   time.Time    `db:"created_at"`
	ExpiresAt   time.Time    `db:"expires_at"`
	LastSeenAt  time.Time    `db:"last_seen_at"`
	RevokedAt   sql.NullTime `db:"revoked_at"`
}

const deviceSessionColumns = `id, user_id, fingerprint, user_agent, ip_address, risk_score,
	created_at, expires_at, last_seen_at, revoked_at`

func mapDeviceSession(row deviceSessionRow) domain.DeviceSession {
	return domain.DeviceSession{
		ID:          row.ID,
		UserID:      row.UserID,
		Fingerprint: row.Fingerprint,
		UserAgent:   row.UserAgent,
		IPAddress:   row.IPAddress,
		RiskScore:   row.RiskScore,
		CreatedAt:   row.CreatedAt.UTC(),
		ExpiresAt:   row.ExpiresAt.UTC(),
		LastSeenAt:  row.LastSeenAt.UTC(),
		RevokedAt:   mapNullTimePtr(row.RevokedAt),
	}
}

func mapDeviceSessions(rows []deviceSessionRow) []domain.DeviceSession {
	out := make([]domain.DeviceSession, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapDeviceSession(row))
	}
	return out
}

func (r *deviceSessionsRepo) CreateDeviceSession(ctx context.Context, s domain.DeviceSession) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO device_sessions (`+deviceSessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		s.ID, s.UserID, s.Fingerprint, s.UserAgent, s.IPAddress, s.RiskScore,
		dbTime(s.CreatedAt), dbTime(s.ExpiresAt), dbTime(s.LastSeenAt), mapOptionalTime(s.RevokedAt),
	)
	return err
}

func (r *deviceSessionsRepo) GetDeviceSession(ctx context.Context, id string) (domain.DeviceSession, error) {
	var row deviceSessionRow
	err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(
		`SELECT `+deviceSessionColumns+` FROM device_sessions WHERE id = ?`,
	), id)
	if err != nil {
		return domain.DeviceSession{}, mapNotFound(err)
	}
	return mapDeviceSession(row), nil
}

func (r *deviceSessionsRepo) ListDeviceSessions(ctx context.Context, userID, before string, limit int) ([]domain.DeviceSession, error) {
	var (
		rows []deviceSessionRow
		err  error
	)
	if before == "" {
		err = sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(
			`SELECT `+deviceSessionColumns+` FROM device_sessions
			WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		), userID, limit)
	} else {
		err = sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(
			`SELECT `+deviceSessionColumns+` FROM device_sessions
			WHERE user_id = ? AND id < ? ORDER BY id DESC LIMIT ?`,
		), userID, before, limit)
	}
	if err != nil {
		return nil, err
	}
	return mapDeviceSessions(rows), nil
}

func (r *deviceSessionsRepo) ListActiveDeviceSessions(ctx context.Context, userID string, now time.Time) ([]domain.DeviceSession, error) {
	var rows []deviceSessionRow
	err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(
		`SELECT `+deviceSessionColumns+` FROM device_sessions
		WHERE user_id = ? AND revoked_at IS NULL AND expires_at > ?
		ORDER BY id DESC`,
	), userID, dbTime(now))
	if err != nil {
		return nil, err
	}
	return mapDeviceSessions(rows), nil
}

func (r *deviceSessionsRepo) SeenBefore(ctx context.Context, userID, fingerprint, ipAddress string) (bool, bool, error) {
	var fpCount, ipCount int
	err := sqlx.GetContext(ctx, r.db, &fpCount, r.db.Rebind(
		`SELECT COUNT(*) FROM device_sessions WHERE user_id = ? AND fingerprint = ?`,
	), userID, fingerprint)
	if err != nil {
		return false, false, err
	}
	if ipAddress != "" {
		err = sqlx.GetContext(ctx, r.db, &ipCount, r.db.Rebind(
			`SELECT COUNT(*) FROM device_sessions WHERE user_id = ? AND ip_address = ?`,
		), userID, ipAddress)
		if err != nil {
			return false, false, err
		}
	}
	return fpCount > 0, ipCount > 0, nil
}

func (r *deviceSessionsRepo) RevokeDeviceSession(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(
		`UPDATE device_sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`,
	), dbTime(at), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Either already revoked (fine) or missing.
	var exists int
	err = sqlx.GetContext(ctx, r.db, &exists, r.db.Rebind(`SELECT COUNT(*) FROM device_sessions WHERE id = ?`), id)
	if err != nil {
		return err
	}
	if exists == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *deviceSessionsRepo) TouchDeviceSession(ctx context.Context, id, ipAddress string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE device_sessions
		SET last_seen_at = ?, ip_address = CASE WHEN ? = '' THEN ip_address ELSE ? END
		WHERE id = ?`),
		dbTime(at), ipAddress, ipAddress, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *deviceSessionsRepo) DeleteStaleDeviceSessions(ctx context.Context, before time.Time) (int64, error) {
	cutoff := dbTime(before)
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`
		DELETE FROM device_sessions
		WHERE expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)`),
		cutoff, cutoff,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

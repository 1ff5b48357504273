package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/jmoiron/sqlx"
)

type accountsRepo struct {
	db sqlx.ExtContext
}

type accountRow struct {
	UserID        string    `db:"user_id"`
	DefaultMethod string    `db:"default_method"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type methodRow struct {
	UserID    string       `db:"user_id"`
	Channel   string       `db:"channel"`
	Enabled   bool         `db:"enabled"`
	EnabledAt sql.NullTime `db:"enabled_at"`
	Target    string       `db:"target"`
}

func (r *accountsRepo) GetAccount(ctx context.Context, userID string) (domain.AccountState, error) {
	var row accountRow
	err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(
		`SELECT user_id, default_method, updated_at FROM twofa_accounts WHERE user_id = ?`,
	), userID)
	if err != nil {
		return domain.AccountState{}, mapNotFound(err)
	}

	var methods []methodRow
	err = sqlx.SelectContext(ctx, r.db, &methods, r.db.Rebind(
		`SELECT user_id, channel, enabled, enabled_at, target FROM twofa_methods WHERE user_id = ?`,
	), userID)
	if err != nil {
		return domain.AccountState{}, err
	}

	state := domain.NewAccountState(userID)
	state.UpdatedAt = row.UpdatedAt.UTC()
	if def, err := domain.ParseChannel(row.DefaultMethod); err == nil {
		state.DefaultMethod = def
	}
	for _, m := range methods {
		ch, err := domain.ParseChannel(m.Channel)
		if err != nil || ch == domain.ChannelNone {
			continue
		}
		state.Methods[ch] = domain.MethodState{
			Channel:   ch,
			Enabled:   m.Enabled,
			EnabledAt: mapNullTimePtr(m.EnabledAt),
			Target:    m.Target,
		}
	}
	return state, nil
}

func (r *accountsRepo) SaveAccount(ctx context.Context, state domain.AccountState) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO twofa_accounts (user_id, default_method, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			default_method = excluded.default_method,
			updated_at = excluded.updated_at`),
		state.UserID, string(state.DefaultMethod), dbTime(state.UpdatedAt),
	)
	if err != nil {
		return err
	}

	for _, ch := range domain.Channels {
		m, ok := state.Methods[ch]
		if !ok {
			continue
		}
		_, err := r.db.ExecContext(ctx, r.db.Rebind(`
			INSERT INTO twofa_methods (user_id, channel, enabled, enabled_at, target)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id, channel) DO UPDATE SET
				enabled = excluded.enabled,
				enabled_at = excluded.enabled_at,
				target = excluded.target`),
			state.UserID, string(ch), m.Enabled, mapOptionalTime(m.EnabledAt), m.Target,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *accountsRepo) DeleteAccount(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM twofa_methods WHERE user_id = ?`), userID); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM twofa_accounts WHERE user_id = ?`), userID)
	return err
}

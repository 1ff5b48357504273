package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/aussiebroadwan/sentinel/internal/twofa/metrics"
	"github.com/aussiebroadwan/sentinel/internal/twofa/store"
	"github.com/aussiebroadwan/sentinel/pkg/cryptox"
	"github.com/aussiebroadwan/sentinel/pkg/idx"
	"github.com/aussiebroadwan/sentinel/pkg/slogx"
	"github.com/aussiebroadwan/sentinel/pkg/syncx"
)

const (
	DefaultBackupCodeCount  = 10
	DefaultBackupCodeDigits = 8

	// maxCodeDraws bounds retries when a drawn code collides with the batch
	// or with the batch it replaces.
	maxCodeDraws = 1000
)

var errCodeSpaceExhausted = errors.New("could not draw enough distinct backup codes")

// RedeemResult reports a backup code redemption.
type RedeemResult struct {
	Redeemed  bool
	Remaining int
}

// BackupCodeService manages recovery code batches. Codes are single use and
// a new batch invalidates the previous one in the same transaction.
type BackupCodeService struct {
	Store   store.Store
	Metrics *metrics.Metrics
	Count   int
	Digits  int
	Clock   func() time.Time

	locks syncx.KeyedMutex
}

func (s *BackupCodeService) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *BackupCodeService) count() int {
	if s.Count > 0 {
		return s.Count
	}
	return DefaultBackupCodeCount
}

func (s *BackupCodeService) digits() int {
	if s.Digits > 0 {
		return s.Digits
	}
	return DefaultBackupCodeDigits
}

// Generate replaces the user's batch with a fresh one and returns the new
// codes in plaintext. Codes are unique within the batch and never repeat a
// code from the batch being replaced.
func (s *BackupCodeService) Generate(ctx context.Context, userID string) ([]domain.BackupCode, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var batch []domain.BackupCode
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		previous, err := tx.BackupCodes().ListBackupCodes(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load previous backup codes: %w", err)
		}
		taken := make(map[string]struct{}, len(previous)+s.count())
		for _, c := range previous {
			taken[c.CodeHash] = struct{}{}
		}

		now := s.now()
		batch = make([]domain.BackupCode, 0, s.count())
		for draws := 0; len(batch) < s.count(); draws++ {
			if draws >= maxCodeDraws {
				return errCodeSpaceExhausted
			}
			code, err := cryptox.GenerateNumericCode(s.digits())
			if err != nil {
				return fmt.Errorf("failed to generate backup code: %w", err)
			}
			hash, err := cryptox.Fingerprint(code)
			if err != nil {
				return err
			}
			if _, dup := taken[hash]; dup {
				continue
			}
			taken[hash] = struct{}{}
			batch = append(batch, domain.BackupCode{
				ID:        idx.NewAt(now).String(),
				UserID:    userID,
				Code:      code,
				CodeHash:  hash,
				CreatedAt: now,
			})
		}

		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete old backup codes: %w", err)
		}
		for _, c := range batch {
			if err := tx.BackupCodes().CreateBackupCode(ctx, c); err != nil {
				return fmt.Errorf("failed to store backup code: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.BackupCodes("generated")
	slogx.FromContext(ctx).Info("backup codes generated",
		slog.String("user_id", userID),
		slog.Int("count", len(batch)),
	)
	return batch, nil
}

// List returns the current batch. An empty list means no recovery method is
// configured.
func (s *BackupCodeService) List(ctx context.Context, userID string) ([]domain.BackupCode, error) {
	codes, err := s.Store.BackupCodes().ListBackupCodes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list backup codes: %w", err)
	}
	return codes, nil
}

// Redeem consumes a code. Unknown, malformed and already used codes are not
// errors; they report Redeemed=false.
func (s *BackupCodeService) Redeem(ctx context.Context, userID, code string) (RedeemResult, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	hash, err := cryptox.Fingerprint(code)
	if err != nil {
		return RedeemResult{}, err
	}

	redeemed := false
	if cryptox.IsNumericCode(code, s.digits()) {
		redeemed, err = s.Store.BackupCodes().ConsumeBackupCode(ctx, userID, hash, s.now())
		if err != nil {
			return RedeemResult{}, fmt.Errorf("failed to redeem backup code: %w", err)
		}
	}

	remaining, err := s.Store.BackupCodes().CountUserBackupCodes(ctx, userID)
	if err != nil {
		return RedeemResult{}, fmt.Errorf("failed to count backup codes: %w", err)
	}

	if redeemed {
		s.Metrics.BackupCodes("redeemed")
		slogx.FromContext(ctx).Info("backup code redeemed",
			slog.String("user_id", userID),
			slog.Int("remaining", remaining),
		)
	} else {
		s.Metrics.BackupCodes("rejected")
	}
	return RedeemResult{Redeemed: redeemed, Remaining: remaining}, nil
}

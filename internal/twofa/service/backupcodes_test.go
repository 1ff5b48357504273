package service_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/stretchr/testify/require"
)

func codeSet(codes []domain.BackupCode) map[string]struct{} {
	out := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		out[c.Code] = struct{}{}
	}
	return out
}

func TestBackupCodes_Generate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	batch, err := f.vault.Generate(ctx, userID)
	require.NoError(t, err)
	require.Len(t, batch, 10)
	require.Len(t, codeSet(batch), 10, "codes are unique within a batch")
	for _, c := range batch {
		require.Len(t, c.Code, 8)
		require.NotEmpty(t, c.CodeHash)
		require.NotEqual(t, c.Code, c.CodeHash)
	}

	listed, err := f.vault.List(ctx, userID)
	require.NoError(t, err)
	require.Len(t, listed, 10)
	require.Equal(t, codeSet(batch), codeSet(listed))

	state, err := f.twofa.GetState(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 10, state.BackupCodes)
	require.True(t, state.Enabled, "unused backup codes count as a recovery method")
}

func TestBackupCodes_RegenerateIsDisjoint(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.vault.Digits = 2 // a tiny code space makes collisions likely

	first, err := f.vault.Generate(ctx, userID)
	require.NoError(t, err)
	second, err := f.vault.Generate(ctx, userID)
	require.NoError(t, err)

	old := codeSet(first)
	for c := range codeSet(second) {
		_, reused := old[c]
		require.False(t, reused, "code %s survived regeneration", c)
	}

	for _, c := range first {
		res, err := f.vault.Redeem(ctx, userID, c.Code)
		require.NoError(t, err)
		require.False(t, res.Redeemed, "old batch is invalidated")
	}
	listed, err := f.vault.List(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, codeSet(second), codeSet(listed))
}

func TestBackupCodes_Redeem(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	batch, err := f.vault.Generate(ctx, userID)
	require.NoError(t, err)
	code := batch[0].Code

	res, err := f.vault.Redeem(ctx, userID, code)
	require.NoError(t, err)
	require.True(t, res.Redeemed)
	require.Equal(t, 9, res.Remaining)

	t.Run("single use", func(t *testing.T) {
		res, err := f.vault.Redeem(ctx, userID, code)
		require.NoError(t, err)
		require.False(t, res.Redeemed)
		require.Equal(t, 9, res.Remaining)
	})

	t.Run("malformed and unknown", func(t *testing.T) {
		for _, bad := range []string{"", "abc", "1234567", "123456789"} {
			res, err := f.vault.Redeem(ctx, userID, bad)
			require.NoError(t, err, bad)
			require.False(t, res.Redeemed, bad)
		}
	})

	t.Run("other users cannot redeem", func(t *testing.T) {
		res, err := f.vault.Redeem(ctx, "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZW", batch[1].Code)
		require.NoError(t, err)
		require.False(t, res.Redeemed)
	})

	t.Run("consumed codes are marked", func(t *testing.T) {
		listed, err := f.vault.List(ctx, userID)
		require.NoError(t, err)
		consumed := 0
		for _, c := range listed {
			if c.Consumed() {
				consumed++
				require.Equal(t, code, c.Code)
			}
		}
		require.Equal(t, 1, consumed)
	})
}

func TestBackupCodes_ConcurrentRedeemOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	batch, err := f.vault.Generate(ctx, userID)
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.vault.Redeem(ctx, userID, batch[0].Code)
			if err == nil && res.Redeemed {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestBackupCodes_StandaloneRecovery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	batch, err := f.vault.Generate(ctx, userID)
	require.NoError(t, err)

	for _, c := range batch {
		_, err := f.vault.Redeem(ctx, userID, c.Code)
		require.NoError(t, err)
	}

	state, err := f.twofa.GetState(ctx, userID)
	require.NoError(t, err)
	require.Zero(t, state.BackupCodes)
	require.False(t, state.Enabled, "exhausted codes no longer protect the account")
}

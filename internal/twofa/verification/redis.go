package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces session keys.
const DefaultRedisPrefix = "sentinel:verification:"

// RedisBackend stores sessions as JSON values with a native TTL, which
// makes them visible to every instance behind a load balancer.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisBackend(client redis.UniversalClient, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (r *RedisBackend) key(k Key) string { return r.prefix + k.String() }

func (r *RedisBackend) Load(ctx context.Context, key Key) (domain.VerificationSession, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.VerificationSession{}, ErrNotFound
	}
	if err != nil {
		return domain.VerificationSession{}, fmt.Errorf("failed to load verification session: %w", err)
	}
	return decodeSession(raw)
}

func (r *RedisBackend) Save(ctx context.Context, s domain.VerificationSession, ttl time.Duration) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode verification session: %w", err)
	}
	if err := r.client.Set(ctx, r.key(KeyOf(s)), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save verification session: %w", err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, key Key) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete verification session: %w", err)
	}
	return nil
}

// Replace and Consume use WATCH/MULTI: the transaction only commits if the
// key was not written between the read and the write, and the read itself
// checks the session is the one the caller loaded.
func (r *RedisBackend) Replace(ctx context.Context, loaded, next domain.VerificationSession, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("failed to encode verification session: %w", err)
	}

	replaced, err := r.compareAndSet(ctx, r.key(KeyOf(loaded)), func(cur domain.VerificationSession) bool {
		return sameVersion(cur, loaded)
	}, func(pipe redis.Pipeliner, k string) {
		pipe.Set(ctx, k, raw, ttl)
	})
	if err != nil {
		return false, fmt.Errorf("failed to update verification session: %w", err)
	}
	return replaced, nil
}

func (r *RedisBackend) Consume(ctx context.Context, loaded domain.VerificationSession) (bool, error) {
	consumed, err := r.compareAndSet(ctx, r.key(KeyOf(loaded)), func(cur domain.VerificationSession) bool {
		return sameCode(cur, loaded)
	}, func(pipe redis.Pipeliner, k string) {
		pipe.Del(ctx, k)
	})
	if err != nil {
		return false, fmt.Errorf("failed to consume verification session: %w", err)
	}
	return consumed, nil
}

// compareAndSet runs write in a MULTI block when match accepts the session
// currently stored under k. A concurrent write to k aborts the transaction
// and is reported as no match.
func (r *RedisBackend) compareAndSet(ctx context.Context, k string, match func(domain.VerificationSession) bool, write func(redis.Pipeliner, string)) (bool, error) {
	applied := false

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}

		cur, err := decodeSession(raw)
		if err != nil {
			return err
		}
		if !match(cur) {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			write(pipe, k)
			return nil
		})
		if err != nil {
			return err
		}
		applied = true
		return nil
	}, k)

	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return applied, nil
}

// Sweep is a no-op: Redis expires keys itself.
func (r *RedisBackend) Sweep(context.Context, time.Time) (int, error) { return 0, nil }

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func decodeSession(raw []byte) (domain.VerificationSession, error) {
	var s domain.VerificationSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return domain.VerificationSession{}, fmt.Errorf("failed to decode verification session: %w", err)
	}
	return s, nil
}

package verification

import (
	"context"
	"sync"
	"time"

	"github.com/aussiebroadwan/sentinel/internal/twofa/domain"
)

type memoryEntry struct {
	session  domain.VerificationSession
	deadline time.Time
}

// MemoryBackend keeps sessions in process memory. Suitable for a single
// instance and for tests.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[Key]memoryEntry
	clock   func() time.Time
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[Key]memoryEntry), clock: time.Now}
}

// WithClock replaces the clock used to evaluate ttl deadlines.
func (m *MemoryBackend) WithClock(clock func() time.Time) *MemoryBackend {
	m.clock = clock
	return m
}

func (m *MemoryBackend) Load(_ context.Context, key Key) (domain.VerificationSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !m.clock().Before(e.deadline) {
		return domain.VerificationSession{}, ErrNotFound
	}
	return e.session, nil
}

func (m *MemoryBackend) Save(_ context.Context, s domain.VerificationSession, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[KeyOf(s)] = memoryEntry{session: s, deadline: m.clock().Add(ttl)}
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

func (m *MemoryBackend) Replace(_ context.Context, loaded, next domain.VerificationSession, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := KeyOf(loaded)
	e, ok := m.entries[key]
	if !ok || !sameVersion(e.session, loaded) || !m.clock().Before(e.deadline) {
		return false, nil
	}
	m.entries[key] = memoryEntry{session: next, deadline: m.clock().Add(ttl)}
	return true, nil
}

func (m *MemoryBackend) Consume(_ context.Context, loaded domain.VerificationSession) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := KeyOf(loaded)
	e, ok := m.entries[key]
	if !ok || !sameCode(e.session, loaded) || !m.clock().Before(e.deadline) {
		return false, nil
	}
	delete(m.entries, key)
	return true, nil
}

func (m *MemoryBackend) Sweep(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, e := range m.entries {
		if !now.Before(e.deadline) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }

// Len returns the number of stored sessions, expired or not.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

package syncx_test

import (
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/sentinel/pkg/syncx"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	t.Parallel()
	var km syncx.KeyedMutex

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		running int
		peak    int
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.Lock("user-1:sms")
			defer unlock()

			mu.Lock()
			running++
			peak = max(peak, running)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Equal(t, 1, peak)
	require.Zero(t, km.Len(), "entries are released once unused")
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	t.Parallel()
	var km syncx.KeyedMutex

	unlockA := km.Lock("user-1:sms")
	done := make(chan struct{})
	go func() {
		unlock := km.Lock("user-1:email")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key should not block")
	}
	unlockA()
}

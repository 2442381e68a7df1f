package lock

import (
	"context"
	"sync"
	"time"
)

// KeyedMutex is an in-process Locker.  It only serializes callers inside
// one process; use RedisLocker when several replicas share a database.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
	wait  time.Duration
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex returns a KeyedMutex whose Lock gives up after wait.  A
// zero wait means callers are bounded only by their context.
func NewKeyedMutex(wait time.Duration) *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock), wait: wait}
}

// Lock blocks until key is free, the wait elapses or ctx is done.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	kl, ok := m.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = kl
	}
	kl.refs++
	m.mu.Unlock()

	if m.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.wait)
		defer cancel()
	}

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		m.unref(key, kl)
		return nil, ErrTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.ch
			m.unref(key, kl)
		})
	}, nil
}

// unref drops a reference and forgets the key once nobody holds or waits on it.
func (m *KeyedMutex) unref(key string, kl *keyLock) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kl.refs--
	if kl.refs == 0 {
		delete(m.locks, key)
	}
}

// size reports how many keys are tracked.
func (m *KeyedMutex) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

package lock

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrBusy is returned when the key is already held
var ErrBusy = errors.New("lock is held")

// ReleaseFunc releases a held lock. Calling it more than once is a no-op.
type ReleaseFunc func()

// Locker provides at-most-one-holder locks keyed by integration type
type Locker interface {
	TryAcquire(ctx context.Context, key string) (ReleaseFunc, error)
	Active() []string
}

// MemoryLocker is the in-process set of active keys
type MemoryLocker struct {
	mu     sync.Mutex
	active map[string]struct{}
}

// NewMemoryLocker creates an empty locker
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{active: make(map[string]struct{})}
}

// TryAcquire marks key active or returns ErrBusy without waiting
func (m *MemoryLocker) TryAcquire(ctx context.Context, key string) (ReleaseFunc, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.active[key]; held {
		return nil, ErrBusy
	}
	m.active[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.active, key)
			m.mu.Unlock()
		})
	}, nil
}

// IsActive reports whether key is held
func (m *MemoryLocker) IsActive(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, held := m.active[key]
	return held
}

// Active returns the held keys, sorted
func (m *MemoryLocker) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.active))
	for k := range m.active {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

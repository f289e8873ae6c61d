// Package locks serializes state transitions per user. KeyedMutex covers a
// single replica; RedisLocker extends the same guarantee across replicas.
package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"engagement-engine/engine"
)

// Locker grants exclusive access to key until the returned release func is called.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type keyEntry struct {
	sem      chan struct{}
	refs     int
	lastUsed time.Time
}

// KeyedMutex is an in-process mutex per key. Waiting honors ctx.
type KeyedMutex struct {
	mu   sync.Mutex
	keys map[string]*keyEntry
	now  func() time.Time
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{keys: make(map[string]*keyEntry), now: time.Now}
}

func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.keys[key]
	if !ok {
		e = &keyEntry{sem: make(chan struct{}, 1)}
		m.keys[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		m.mu.Lock()
		e.refs--
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s: %v", engine.ErrLockTimeout, key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			m.mu.Lock()
			e.refs--
			e.lastUsed = m.now()
			m.mu.Unlock()
		})
	}, nil
}

// Prune drops entries nobody holds or waits on that were last released
// before now-idle. It returns how many were dropped.
func (m *KeyedMutex) Prune(idle time.Duration) int {
	cutoff := m.now().Add(-idle)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.keys {
		if e.refs == 0 && e.lastUsed.Before(cutoff) {
			delete(m.keys, k)
			n++
		}
	}
	return n
}

// Len returns the number of tracked keys.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

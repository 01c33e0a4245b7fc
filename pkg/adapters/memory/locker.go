package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/arbor/pkg/ports"
)

// Locker implements ports.DistributedLocker in memory.
// It only coordinates runners sharing one process. Safe for concurrent use.
type Locker struct {
	mu     sync.Mutex
	held   map[string]*lease
	tokens uint64
}

type lease struct {
	token    uint64
	expires  time.Time
	released chan struct{}
}

// NewLocker creates a new in-memory locker.
func NewLocker() *Locker {
	return &Locker{
		held: make(map[string]*lease),
	}
}

// Lock blocks until key is free (released or expired) or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	for {
		l.mu.Lock()
		cur, ok := l.held[key]
		if !ok || time.Now().After(cur.expires) {
			l.tokens++
			token := l.tokens
			l.held[key] = &lease{
				token:    token,
				expires:  time.Now().Add(ttl),
				released: make(chan struct{}),
			}
			l.mu.Unlock()
			return func(context.Context) error {
				l.release(key, token)
				return nil
			}, nil
		}
		wait := cur.released
		remaining := time.Until(cur.expires)
		l.mu.Unlock()

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-wait:
		case <-timer.C:
		}
		timer.Stop()
	}
}

// release drops the lease only if it is still the one identified by token,
// so an expired holder cannot release a newer lease.
func (l *Locker) release(key string, token uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.held[key]; ok && cur.token == token {
		delete(l.held, key)
		close(cur.released)
	}
}

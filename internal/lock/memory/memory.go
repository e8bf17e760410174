package memory

import (
	"context"
	"sync"
)

// Locker serializes callers per key within one process.
type Locker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func New() *Locker {
	//nolint:exhaustruct
	return &Locker{slots: make(map[string]chan struct{})}
}

func (l *Locker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = make(chan struct{}, 1)
		l.slots[key] = s
	}

	return s
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	s := l.slot(key)

	select {
	case s <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err() //nolint:wrapcheck
	}

	var once sync.Once

	return func() {
		once.Do(func() { <-s })
	}, nil
}

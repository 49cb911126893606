package core

import (
	"context"
	"fmt"
	"sync"
)

// Lock keys used by the catalogs. Student mutations share one key, theme and
// dictation mutations share another.
const (
	LockKeyStudents = "students"
	LockKeyThemes   = "themes"
)

// Locker serialises catalog mutations that share a key. The returned unlock
// function must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// LocalLocker is an in-process keyed mutex that honours context cancellation
// while waiting.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocalLocker constructs an empty LocalLocker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]chan struct{})}
}

func (l *LocalLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

// Lock implements Locker.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("acquire lock %q: %w", key, ctx.Err())
	}
	var once sync.Once
	return func() { once.Do(func() { <-ch }) }, nil
}

package session

import (
	"context"
	"sync"
)

// keyLock hands out one lock per key. Waiters are served in the order they
// called Lock, and a key is forgotten once nobody holds or waits on it.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*keyQueue
}

type keyQueue struct {
	waiters []chan struct{}
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*keyQueue)}
}

// Lock blocks until key is free or ctx is done, and returns the matching unlock func.
func (k *keyLock) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	q, held := k.locks[key]
	if !held {
		k.locks[key] = &keyQueue{}
		k.mu.Unlock()
		return k.unlocker(key), nil
	}
	turn := make(chan struct{})
	q.waiters = append(q.waiters, turn)
	k.mu.Unlock()

	select {
	case <-turn:
		return k.unlocker(key), nil
	case <-ctx.Done():
	}

	k.mu.Lock()
	for i, w := range q.waiters {
		if w == turn {
			q.waiters = append(q.waiters[:i], q.waiters[i+1:]...)
			k.mu.Unlock()
			return nil, ctx.Err()
		}
	}
	k.mu.Unlock()
	// handed the lock while giving up; pass it on
	k.release(key)
	return nil, ctx.Err()
}

func (k *keyLock) unlocker(key string) func() {
	var once sync.Once
	return func() { once.Do(func() { k.release(key) }) }
}

func (k *keyLock) release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	q := k.locks[key]
	if q == nil {
		return
	}
	if len(q.waiters) == 0 {
		delete(k.locks, key)
		return
	}
	next := q.waiters[0]
	q.waiters = q.waiters[1:]
	close(next)
}

func (k *keyLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

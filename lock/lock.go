package lock

import (
	"context"
	"sync"
)

// UserLocker serializes cart mutations for a single user. Two requests for
// the same user never run a cart mutation at the same time; requests for
// different users do not block each other.
type UserLocker interface {
	// Lock blocks until the user's lock is held and returns the release func.
	Lock(ctx context.Context, userID string) (func(), error)
}

// KeyedMutex is the in-process locker used by single-instance deployments
// and by tests. Entries are dropped once the last holder releases, so the
// map does not grow with the user population.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*userLock)}
}

func (k *KeyedMutex) Lock(_ context.Context, userID string) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[userID]
	if !ok {
		l = &userLock{}
		k.locks[userID] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	release := func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, userID)
		}
		k.mu.Unlock()
	}
	return release, nil
}

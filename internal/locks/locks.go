// Package locks serializes mutations of a single work order.
package locks

import (
	"context"
	"fmt"
	"sync"

	"maintline/internal/domain"
)

// Locker grants exclusive access to a key until release is called.
// Acquire gives up when ctx is done and returns an ErrUnavailable error.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// WorkOrderKey builds the lock key for a work order id.
func WorkOrderKey(id string) string {
	return fmt.Sprintf("maintline:work-order:%s:lock", id)
}

// KeyedMutex is an in-process Locker. Entries are reference counted and
// dropped once no caller holds or waits for them.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: map[string]*entry{}}
}

func (k *KeyedMutex) Acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		k.drop(key, e)
		return nil, fmt.Errorf("acquire lock %s: %w: %w", key, domain.ErrUnavailable, ctx.Err())
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			k.drop(key, e)
		})
	}, nil
}

func (k *KeyedMutex) drop(key string, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (k *KeyedMutex) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

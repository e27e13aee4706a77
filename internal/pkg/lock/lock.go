// Package lock provides per-address locking so that the end-game and
// re-validation pipelines for a single wallet address run one at a time
// within this process.
package lock

import (
	"context"
	"sync"
	"time"
)

// addressMutex wraps a mutex with reference counting for cleanup.
type addressMutex struct {
	mu       sync.Mutex
	refCount int
}

// AddressLock provides per-address locking. Correctness does not depend on
// it (the store closes all races with conditional writes); it exists to
// avoid burning validator work on concurrent duplicate requests.
type AddressLock struct {
	locks sync.Map // map[string]*addressMutex
	pool  sync.Pool
}

// NewAddressLock creates a new AddressLock instance.
func NewAddressLock() *AddressLock {
	return &AddressLock{
		pool: sync.Pool{
			New: func() any {
				return &addressMutex{}
			},
		},
	}
}

// getLock retrieves or creates a mutex for the given address.
func (al *AddressLock) getLock(address string) *addressMutex {
	if v, ok := al.locks.Load(address); ok {
		return v.(*addressMutex)
	}

	newLock := al.pool.Get().(*addressMutex)
	newLock.refCount = 0

	// LoadOrStore handles the race with another goroutine creating the lock
	actual, loaded := al.locks.LoadOrStore(address, newLock)
	if loaded {
		al.pool.Put(newLock)
	}
	return actual.(*addressMutex)
}

// Lock acquires the lock for an address.
func (al *AddressLock) Lock(address string) {
	lock := al.getLock(address)
	lock.mu.Lock()
	lock.refCount++
}

// Unlock releases the lock for an address.
func (al *AddressLock) Unlock(address string) {
	if v, ok := al.locks.Load(address); ok {
		lock := v.(*addressMutex)
		lock.refCount--
		lock.mu.Unlock()
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false otherwise.
func (al *AddressLock) TryLock(address string) bool {
	lock := al.getLock(address)
	if lock.mu.TryLock() {
		lock.refCount++
		return true
	}
	return false
}

// LockWithTimeout attempts to acquire the lock with a timeout.
// Returns true if the lock was acquired, false if the timeout elapsed first.
func (al *AddressLock) LockWithTimeout(ctx context.Context, address string, timeout time.Duration) bool {
	lock := al.getLock(address)

	done := make(chan struct{})
	go func() {
		lock.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		lock.refCount++
		return true
	case <-timeoutCtx.Done():
		// The waiting goroutine will still acquire the lock eventually;
		// release it as soon as it does.
		go func() {
			<-done
			lock.mu.Unlock()
		}()
		return false
	}
}

// WithLock executes fn while holding the address lock.
func (al *AddressLock) WithLock(address string, fn func() error) error {
	al.Lock(address)
	defer al.Unlock(address)
	return fn()
}

// WithLockContext executes fn while holding the address lock, honoring
// context cancellation while waiting.
func (al *AddressLock) WithLockContext(ctx context.Context, address string, timeout time.Duration, fn func() error) error {
	if !al.LockWithTimeout(ctx, address, timeout) {
		return ErrLockTimeout
	}
	defer al.Unlock(address)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}

// IsLocked checks if an address currently has an active lock.
// Note: this is a point-in-time check and may change immediately after.
func (al *AddressLock) IsLocked(address string) bool {
	if v, ok := al.locks.Load(address); ok {
		lock := v.(*addressMutex)
		if lock.mu.TryLock() {
			lock.mu.Unlock()
			return false
		}
		return true
	}
	return false
}

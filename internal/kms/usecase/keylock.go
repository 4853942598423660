package usecase

import (
	"sync"

	"github.com/google/uuid"
)

// keyLocks hands out per-key mutexes so concurrent rotations of the same key
// resolve to exactly one winner. Locks are never removed; the map grows with
// the number of distinct keys rotated by this process, which is bounded by
// the tenant population.
type keyLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// tryLock attempts to acquire the lock for the key without blocking. Returns
// an unlock function on success, nil when another goroutine holds the lock.
func (k *keyLocks) tryLock(id uuid.UUID) func() {
	k.mu.Lock()
	lock, ok := k.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[id] = lock
	}
	k.mu.Unlock()

	if !lock.TryLock() {
		return nil
	}
	return lock.Unlock
}

// slotLocks serializes key creation per (tenant, purpose) slot so concurrent
// creations cannot both observe the slot as free and insert two active keys.
// Unlike keyLocks, acquisition blocks: creation has no in-progress state to
// report, the loser simply re-checks the slot once the winner committed.
type slotLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSlotLocks() *slotLocks {
	return &slotLocks{locks: make(map[string]*sync.Mutex)}
}

// lock blocks until the slot lock is held and returns the unlock function.
func (s *slotLocks) lock(slot string) func() {
	s.mu.Lock()
	lock, ok := s.locks[slot]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[slot] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

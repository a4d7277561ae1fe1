/*
locks.go - Per-item write serialization

PURPOSE:
  Every mutation of an item's quantity/cost and history must be serialized:
  concurrent batch commits, purchases, and spot checks touching the SAME
  item must not interleave their read-modify-write. Operations on disjoint
  item sets proceed fully in parallel.

DEADLOCK AVOIDANCE:
  Multi-item operations (a batch debits several ingredients and credits one
  output) acquire every affected lock before mutating anything, always in
  ascending ItemID order. Locks are released only after every transaction
  in the operation is appended, so partial visibility of a batch commit is
  impossible.

CONTENTION:
  Acquisition uses bounded try-lock retries with backoff. Exhausting the
  budget returns ErrLockContention - the only error in the system that is
  safe to retry.
*/
package ledger

import (
	"sort"
	"sync"
	"time"
)

const (
	lockRetries    = 50
	lockBackoffMin = time.Millisecond
	lockBackoffMax = 16 * time.Millisecond
)

// ItemLocks hands out one exclusive lock per item id.
type ItemLocks struct {
	mu    sync.Mutex
	locks map[ItemID]*sync.Mutex
}

func NewItemLocks() *ItemLocks {
	return &ItemLocks{locks: make(map[ItemID]*sync.Mutex)}
}

func (il *ItemLocks) lockFor(id ItemID) *sync.Mutex {
	il.mu.Lock()
	defer il.mu.Unlock()
	m, ok := il.locks[id]
	if !ok {
		m = &sync.Mutex{}
		il.locks[id] = m
	}
	return m
}

// Acquire takes the locks for all given items in ascending id order and
// returns a release function. Duplicate ids are collapsed. On contention
// beyond the retry budget it releases everything taken so far and returns
// ErrLockContention.
func (il *ItemLocks) Acquire(ids ...ItemID) (release func(), err error) {
	ordered := dedupeSorted(ids)

	held := make([]*sync.Mutex, 0, len(ordered))
	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}

	for _, id := range ordered {
		m := il.lockFor(id)
		if !lockWithBackoff(m) {
			releaseHeld()
			return nil, ErrLockContention
		}
		held = append(held, m)
	}
	return releaseHeld, nil
}

func lockWithBackoff(m *sync.Mutex) bool {
	backoff := lockBackoffMin
	for attempt := 0; attempt < lockRetries; attempt++ {
		if m.TryLock() {
			return true
		}
		time.Sleep(backoff)
		if backoff < lockBackoffMax {
			backoff *= 2
		}
	}
	return false
}

func dedupeSorted(ids []ItemID) []ItemID {
	ordered := make([]ItemID, 0, len(ids))
	seen := make(map[ItemID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	return ordered
}

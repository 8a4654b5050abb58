package ingress

import (
	"container/list"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// userOpDedup is a small TTL-bounded local cache of recently-seen
// UserOp hashes, adapted from the teacher's preconf/timed_tx_set.go
// time-ordered eviction idiom (mutex + map + time-ordered list instead
// of a full transaction set, since only hash membership is needed here).
type userOpDedup struct {
	mu       sync.Mutex
	maxSize  int
	ttl      time.Duration
	entries  map[common.Hash]*list.Element
	order    *list.List // front = oldest
}

type dedupEntry struct {
	hash common.Hash
	at   time.Time
}

func newUserOpDedup(maxSize int, ttl time.Duration) *userOpDedup {
	return &userOpDedup{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[common.Hash]*list.Element),
		order:   list.New(),
	}
}

func (d *userOpDedup) seenRecently(hash common.Hash) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evictExpiredLocked()
	_, ok := d.entries[hash]
	return ok
}

func (d *userOpDedup) remember(hash common.Hash) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[hash]; ok {
		return
	}
	elem := d.order.PushBack(dedupEntry{hash: hash, at: time.Now()})
	d.entries[hash] = elem
	for d.maxSize > 0 && d.order.Len() > d.maxSize {
		d.evictOldestLocked()
	}
}

func (d *userOpDedup) evictExpiredLocked() {
	cutoff := time.Now().Add(-d.ttl)
	for {
		front := d.order.Front()
		if front == nil {
			return
		}
		if front.Value.(dedupEntry).at.After(cutoff) {
			return
		}
		d.evictOldestLocked()
	}
}

func (d *userOpDedup) evictOldestLocked() {
	front := d.order.Front()
	if front == nil {
		return
	}
	d.order.Remove(front)
	delete(d.entries, front.Value.(dedupEntry).hash)
}

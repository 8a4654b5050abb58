package orderpool

import (
	"sync"
	"time"

	"github.com/tips-network/tips/internal/tipstypes"
)

// UserOpPool is the builder's in-process mirror of accepted UserOps,
// keyed by (sender, nonce, entry_point), with replacement on second add
// (spec.md §4.G). Adapted from the teacher's preconf/timed_tx_set.go
// time-bounded eviction idiom (CleanTimeout), generalized to
// key-replacement semantics.
type UserOpPool struct {
	mu      sync.RWMutex
	byKey   map[tipstypes.UserOpKey]*entry
}

type entry struct {
	op      *tipstypes.WrappedUserOp
	addedAt time.Time
}

// NewUserOpPool constructs an empty UserOpPool.
func NewUserOpPool() *UserOpPool {
	return &UserOpPool{byKey: make(map[tipstypes.UserOpKey]*entry)}
}

// Add inserts or replaces the op at op.Key().
func (p *UserOpPool) Add(op *tipstypes.WrappedUserOp) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byKey[op.Key()] = &entry{op: op, addedAt: time.Now()}
	userOpPoolSizeGauge.Update(int64(len(p.byKey)))
}

// Remove deletes the op at key, if present.
func (p *UserOpPool) Remove(key tipstypes.UserOpKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byKey, key)
	userOpPoolSizeGauge.Update(int64(len(p.byKey)))
}

// Snapshot returns every tracked op by value.
func (p *UserOpPool) Snapshot() []*tipstypes.WrappedUserOp {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*tipstypes.WrappedUserOp, 0, len(p.byKey))
	for _, e := range p.byKey {
		out = append(out, e.op)
	}
	return out
}

// Drain returns and removes every tracked op, used by the midpoint
// insertion step to pull all pending UserOpBundles at once
// (spec.md §4.H step b: "drain all pending UserOpBundles from the pool").
func (p *UserOpPool) Drain() []*tipstypes.WrappedUserOp {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*tipstypes.WrappedUserOp, 0, len(p.byKey))
	for _, e := range p.byKey {
		out = append(out, e.op)
	}
	p.byKey = make(map[tipstypes.UserOpKey]*entry)
	userOpPoolSizeGauge.Update(0)
	return out
}

// CleanOlderThan evicts ops added before cutoff, the
// preconf/timed_tx_set.go CleanTimeout idiom applied to UserOps awaiting
// builder pickup.
func (p *UserOpPool) CleanOlderThan(cutoff time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	removed := 0
	for k, e := range p.byKey {
		if e.addedAt.Before(cutoff) {
			delete(p.byKey, k)
			removed++
		}
	}
	userOpPoolSizeGauge.Update(int64(len(p.byKey)))
	return removed
}

// Len returns the number of tracked ops.
func (p *UserOpPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byKey)
}

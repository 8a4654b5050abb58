package orderpool

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tips-network/tips/internal/tipstypes"
)

// BundlePool is the in-memory, uuid-keyed container the block builder
// consumes, grounded on spec.md §4.G and adapted from the teacher's
// preconf/fifo_tx_set.go map+slice shape (generalized from
// common.Hash-keyed transactions to uuid-keyed bundles).
type BundlePool struct {
	mu      sync.RWMutex
	byUUID  map[uuid.UUID]*tipstypes.Bundle
	order   []uuid.UUID // insertion order, for deterministic snapshots
}

// NewBundlePool constructs an empty BundlePool.
func NewBundlePool() *BundlePool {
	return &BundlePool{byUUID: make(map[uuid.UUID]*tipstypes.Bundle)}
}

// Add inserts or replaces a bundle keyed by its replacement uuid
// (spec.md §3: "second arrival with same uuid replaces the first").
func (p *BundlePool) Add(b *tipstypes.Bundle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := uuid.UUID(b.ID)
	if _, exists := p.byUUID[id]; !exists {
		p.order = append(p.order, id)
	}
	p.byUUID[id] = b
	bundlePoolSizeGauge.Update(int64(len(p.byUUID)))
}

// Remove deletes a bundle by uuid.
func (p *BundlePool) Remove(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byUUID[id]; !exists {
		return
	}
	delete(p.byUUID, id)
	for i, o := range p.order {
		if o == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	bundlePoolSizeGauge.Update(int64(len(p.byUUID)))
}

// ReplaceSameUUID is an explicit alias for Add used at call sites that
// want to document intent (spec.md §4.G: "replace_same_uuid").
func (p *BundlePool) ReplaceSameUUID(b *tipstypes.Bundle) { p.Add(b) }

// Snapshot returns, by value, every bundle valid for blockNumber at now
// (spec.md §4.G), in insertion order, without holding the lock across
// the caller's subsequent simulation work.
func (p *BundlePool) Snapshot(blockNumber uint64, now uint64) []*tipstypes.Bundle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*tipstypes.Bundle, 0, len(p.order))
	for _, id := range p.order {
		b := p.byUUID[id]
		if b.ValidForBlock(blockNumber, now) {
			out = append(out, b)
		}
	}
	return out
}

// Len returns the number of bundles currently tracked.
func (p *BundlePool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUUID)
}

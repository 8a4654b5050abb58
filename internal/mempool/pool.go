package mempool

import (
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tips-network/tips/internal/tipstypes"
)

// nonceKey names the by_nonce ordering tuple:
// (sender, nonce, submission_id, hash). Pool keeps no index keyed by it.
type nonceKey struct {
	sender       common.Address
	nonce        uint64
	submissionID uint64
	hash         common.Hash
}

// Pool maintains the event-sourced UserOp mempool, grounded on spec.md
// §4.F and adapted from the teacher's preconf/fifo_tx_set.go mutex+map
// shape. It holds two maps: the primary hash index and a
// (sender, nonce, entry_point) map used for replacement. It keeps no
// standing fee-priority or by_nonce index; Top derives both orderings by
// sorting on every call.
type Pool struct {
	mu sync.RWMutex

	cfg Config

	byHash     map[common.Hash]*tipstypes.WrappedUserOp
	byKey      map[tipstypes.UserOpKey]common.Hash // (sender,nonce,entryPoint) -> hash, for replacement
	nextSubmissionID uint64
}

// NewPool constructs an empty Pool.
func NewPool(cfg Config) *Pool {
	return &Pool{
		cfg:    cfg,
		byHash: make(map[common.Hash]*tipstypes.WrappedUserOp),
		byKey:  make(map[tipstypes.UserOpKey]common.Hash),
	}
}

// Add assigns the next submission_id and inserts op, applying the
// replacement law of spec.md §4.F/§8: a new op at the same
// (sender, nonce) replaces the old one only if its max_priority_fee
// exceeds the old by at least the configured increase percentage.
func (p *Pool) Add(op *tipstypes.WrappedUserOp) (inserted bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.byHash[op.Hash]; exists {
		rejectedMeter.Mark(1)
		return false, tipstypes.ErrDuplicateUserOp
	}

	key := op.Key()
	if existingHash, ok := p.byKey[key]; ok {
		existing := p.byHash[existingHash]
		if !exceedsReplacementThreshold(existing.Operation.MaxPriorityFeePerGas, op.Operation.MaxPriorityFeePerGas, p.cfg.ReplacementIncreasePercent) {
			rejectedMeter.Mark(1)
			return false, nil
		}
		delete(p.byHash, existingHash)
		replacedMeter.Mark(1)
	}

	p.nextSubmissionID++
	op.SubmissionID = p.nextSubmissionID

	p.byHash[op.Hash] = op
	p.byKey[key] = op.Hash
	poolSizeGauge.Update(int64(len(p.byHash)))
	addedMeter.Mark(1)
	return true, nil
}

// exceedsReplacementThreshold reports whether newFee >= oldFee*(1+r/100).
func exceedsReplacementThreshold(oldFee, newFee *big.Int, percent uint64) bool {
	if oldFee == nil || newFee == nil {
		return true
	}
	threshold := new(big.Int).Mul(oldFee, big.NewInt(int64(100+percent)))
	scaledNew := new(big.Int).Mul(newFee, big.NewInt(100))
	return scaledNew.Cmp(threshold) >= 0
}

// Remove deletes hash from all indexes.
func (p *Pool) Remove(hash common.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	op, ok := p.byHash[hash]
	if !ok {
		return
	}
	delete(p.byHash, hash)
	delete(p.byKey, op.Key())
	poolSizeGauge.Update(int64(len(p.byHash)))
	removedMeter.Mark(1)
}

// Top returns up to n operations ordered by (-max_priority_fee, +submission_id),
// respecting per-sender nonce contiguity (spec.md §4.F: never return the op
// at nonce k+1 without also returning the op at nonce k).
func (p *Pool) Top(n int) []*tipstypes.WrappedUserOp {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bySender := make(map[common.Address][]*tipstypes.WrappedUserOp)
	for _, op := range p.byHash {
		bySender[op.Operation.Sender] = append(bySender[op.Operation.Sender], op)
	}
	for sender := range bySender {
		ops := bySender[sender]
		sort.Slice(ops, func(i, j int) bool { return ops[i].Operation.Nonce < ops[j].Operation.Nonce })
		bySender[sender] = ops
	}

	// candidates: the lowest-nonce op per sender becomes eligible first;
	// once chosen, that sender's next nonce becomes eligible.
	cursor := make(map[common.Address]int)
	var eligible []*tipstypes.WrappedUserOp
	for sender, ops := range bySender {
		if len(ops) > 0 {
			eligible = append(eligible, ops[0])
			cursor[sender] = 1
		}
	}

	var result []*tipstypes.WrappedUserOp
	for len(result) < n && len(eligible) > 0 {
		sort.Slice(eligible, func(i, j int) bool {
			fi, fj := eligible[i].Operation.MaxPriorityFeePerGas, eligible[j].Operation.MaxPriorityFeePerGas
			c := fi.Cmp(fj)
			if c != 0 {
				return c > 0
			}
			return eligible[i].SubmissionID < eligible[j].SubmissionID
		})

		chosen := eligible[0]
		eligible = eligible[1:]
		result = append(result, chosen)

		ops := bySender[chosen.Operation.Sender]
		idx := cursor[chosen.Operation.Sender]
		if idx < len(ops) {
			eligible = append(eligible, ops[idx])
			cursor[chosen.Operation.Sender] = idx + 1
		}
	}
	return result
}

// pruneBelow removes every op for sender with nonce < nonce, adapted
// from preconf/fifo_tx_set.go's Forward(addr, nonce).
func (p *Pool) pruneBelow(sender common.Address, nonce uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for hash, op := range p.byHash {
		if op.Operation.Sender == sender && op.Operation.Nonce < nonce {
			delete(p.byHash, hash)
			delete(p.byKey, op.Key())
		}
	}
	poolSizeGauge.Update(int64(len(p.byHash)))
}

// Len returns the number of ops currently in the pool.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byHash)
}

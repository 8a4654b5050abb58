package tipstypes

import "github.com/ethereum/go-ethereum/common"

// MempoolLifecycleWire is the Kafka wire envelope for a
// MempoolLifecycleEvent: the ingress service publishes UserOpAdded
// records here when a UserOp passes validation (internal/ingress), and
// the builder publishes UserOpIncluded records here for the ops it drained
// into a bundler tx (internal/builder). internal/mempool's engine handles
// every kind on this topic; internal/builder's UserOpIngest also tails it
// and acts only on UserOpAdded. This mirrors BundleWire's "one shared
// shape" rationale.
type MempoolLifecycleWire struct {
	Kind        MempoolLifecycleKind `json:"kind"`
	Op          *UserOpWire          `json:"op,omitempty"`
	Hash        string               `json:"hash,omitempty"`
	BlockNumber uint64               `json:"blockNumber,omitempty"`
	TxHash      string               `json:"txHash,omitempty"`
	Reason      string               `json:"reason,omitempty"`
}

// ToWire renders ev as its wire form.
func (ev MempoolLifecycleEvent) ToWire() MempoolLifecycleWire {
	wire := MempoolLifecycleWire{
		Kind:        ev.Kind,
		BlockNumber: ev.BlockNumber,
		Reason:      ev.Reason,
	}
	if ev.Op != nil {
		opWire := ev.Op.ToWire()
		wire.Op = &opWire
	}
	if ev.Hash != (common.Hash{}) {
		wire.Hash = ev.Hash.Hex()
	}
	if ev.TxHash != (common.Hash{}) {
		wire.TxHash = ev.TxHash.Hex()
	}
	return wire
}

// ToEvent reconstructs a MempoolLifecycleEvent from its wire form.
func (w MempoolLifecycleWire) ToEvent() (MempoolLifecycleEvent, error) {
	ev := MempoolLifecycleEvent{
		Kind:        w.Kind,
		BlockNumber: w.BlockNumber,
		Reason:      w.Reason,
	}
	if w.Op != nil {
		op, err := w.Op.ToWrappedUserOp()
		if err != nil {
			return MempoolLifecycleEvent{}, err
		}
		ev.Op = op
	}
	if w.Hash != "" {
		ev.Hash = common.HexToHash(w.Hash)
	}
	if w.TxHash != "" {
		ev.TxHash = common.HexToHash(w.TxHash)
	}
	return ev, nil
}

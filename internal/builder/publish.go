package builder

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tips-network/tips/internal/tipstypes"
)

// PublishIncluded emits a UserOpIncluded lifecycle record for every op in
// ops to the UserOp topic, so internal/mempool's engine removes them from
// its pool and raises the corresponding audit event (spec.md §4.F
// "UserOpIncluded -> remove, then emit the audit event"). cmd/builder
// calls it as soon as Step.Process returns a signed bundler tx, with
// blockNumber 0; it does not wait for that tx to be included in a block.
func PublishIncluded(ctx context.Context, pub tipstypes.EventPublisher, topic string, ops []*tipstypes.WrappedUserOp, blockNumber uint64, txHash common.Hash) {
	for _, op := range ops {
		ev := tipstypes.MempoolLifecycleEvent{
			Kind:        tipstypes.LifecycleUserOpIncluded,
			Hash:        op.Hash,
			BlockNumber: blockNumber,
			TxHash:      txHash,
		}
		payload, err := json.Marshal(ev.ToWire())
		if err != nil {
			log.Error("builder failed to marshal UserOpIncluded event", "hash", op.Hash, "err", err)
			continue
		}
		if err := pub.Publish(ctx, topic, op.Hash.Hex(), payload); err != nil {
			log.Error("builder failed to publish UserOpIncluded event", "hash", op.Hash, "err", err)
		}
	}
}

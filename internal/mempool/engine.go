package mempool

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/tips-network/tips/internal/tipstypes"
)

// Source is the shared event log consumed by the engine. Grounded on
// original_source/crates/account-abstraction-core/src/services/mempool_engine.rs's
// event source abstraction.
type Source interface {
	Next(ctx context.Context) (tipstypes.MempoolLifecycleEvent, error)
}

// Sink is where the engine emits its own lifecycle events
// (AddedToMempool/Dropped/Included) for downstream audit consumption.
type Sink interface {
	Emit(ctx context.Context, ev tipstypes.UserOpEvent)
}

// Engine consumes MempoolLifecycleEvents and maintains the Pool
// invariant described in spec.md §4.F, grounded on
// mempool_engine.rs's run/process_next/handle_event loop and the
// never-terminate-on-one-bad-event idiom of
// core/txpool/legacypool/legacypool_preconf.go.
type Engine struct {
	pool   *Pool
	source Source
	sink   Sink
}

// NewEngine constructs an Engine over pool, consuming from source and
// emitting to sink.
func NewEngine(pool *Pool, source Source, sink Sink) *Engine {
	return &Engine{pool: pool, source: source, sink: sink}
}

// Run consumes events until ctx is cancelled. A source error is logged
// and the read is retried after one second; per-event errors are logged
// and do not terminate the loop either, matching
// the teacher's select-loop idiom in miner/miner_preconf.go.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ev, err := e.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("mempool engine failed to read next event, retrying", "err", err)
			time.Sleep(time.Second)
			continue
		}

		e.handleEvent(ctx, ev)
	}
}

func (e *Engine) handleEvent(ctx context.Context, ev tipstypes.MempoolLifecycleEvent) {
	defer metricsEventHandleCost(time.Now())

	switch ev.Kind {
	case tipstypes.LifecycleUserOpAdded:
		if ev.Op == nil {
			log.Error("mempool engine received UserOpAdded with nil op")
			return
		}
		inserted, err := e.pool.Add(ev.Op)
		if err != nil {
			log.Debug("mempool engine rejected op", "hash", ev.Op.Hash, "err", err)
			return
		}
		if inserted {
			e.sink.Emit(ctx, tipstypes.UserOpEvent{Kind: tipstypes.UserOpAddedToMempool, Hash: ev.Op.Hash})
		}

	case tipstypes.LifecycleUserOpIncluded:
		e.pool.Remove(ev.Hash)
		e.sink.Emit(ctx, tipstypes.UserOpEvent{
			Kind:        tipstypes.UserOpIncludedKind,
			Hash:        ev.Hash,
			BlockNumber: ev.BlockNumber,
			TxHash:      ev.TxHash,
		})

	case tipstypes.LifecycleUserOpDropped:
		e.pool.Remove(ev.Hash)
		e.sink.Emit(ctx, tipstypes.UserOpEvent{
			Kind:   tipstypes.UserOpDroppedKind,
			Hash:   ev.Hash,
			Reason: ev.Reason,
		})

	default:
		log.Error("mempool engine received unknown event kind", "kind", ev.Kind)
	}
}

package simulator

import (
	"context"
	"crypto/rand"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/tips-network/tips/internal/tipstypes"
)

// ResultSink is where a worker hands a finished SimulationResult.
type ResultSink interface {
	Publish(ctx context.Context, result *tipstypes.SimulationResult)
}

// Pool is the bounded MPMC simulation worker pool of spec.md §4.I,
// grounded on original_source/crates/simulator/src/engine.rs's worker
// loop. latest_block's compare-and-refresh idiom mirrors
// core/types/rollup_cost.go's cached-block-number guard, generalized
// from a single-reader cache to a multi-worker staleness gate.
type Pool struct {
	cfg      Config
	queue    chan tipstypes.SimulationRequest
	provider tipstypes.StateProvider
	engine   tipstypes.EvmEngine
	sink     ResultSink

	latestBlock atomic.Uint64
}

// NewPool constructs a Pool with a queue of capacity cfg.QueueCapacity.
func NewPool(cfg Config, provider tipstypes.StateProvider, engine tipstypes.EvmEngine, sink ResultSink) *Pool {
	return &Pool{
		cfg:      cfg,
		queue:    make(chan tipstypes.SimulationRequest, cfg.QueueCapacity),
		provider: provider,
		engine:   engine,
		sink:     sink,
	}
}

// Enqueue performs a blocking send onto the bounded queue, providing
// backpressure on the producer side per spec.md §4.I's concurrency
// invariant ("producers use a blocking send, not try_send").
func (p *Pool) Enqueue(ctx context.Context, req tipstypes.SimulationRequest) error {
	select {
	case p.queue <- req:
		queueDepthGauge.Update(int64(len(p.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new work; in-flight and already-queued tasks
// still drain before workers exit.
func (p *Pool) Close() { close(p.queue) }

// UpdateLatestBlock bumps latest_block monotonically, per spec.md §4.I:
// "latest_block is bumped by the ExEx listener on every chain commit or
// reorg tip... monotonic by releases only."
func (p *Pool) UpdateLatestBlock(blockNumber uint64) {
	for {
		cur := p.latestBlock.Load()
		if blockNumber <= cur {
			return
		}
		if p.latestBlock.CompareAndSwap(cur, blockNumber) {
			return
		}
	}
}

// Run starts cfg.MaxConcurrentSims worker goroutines and blocks until
// they all exit (queue closed and drained, or ctx cancelled).
func (p *Pool) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.cfg.MaxConcurrentSims; i++ {
		g.Go(func() error { return p.worker(ctx) })
	}
	return g.Wait()
}

func (p *Pool) worker(ctx context.Context) error {
	for {
		select {
		case req, ok := <-p.queue:
			if !ok {
				return nil
			}
			queueDepthGauge.Update(int64(len(p.queue)))
			p.process(ctx, req)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Pool) process(ctx context.Context, req tipstypes.SimulationRequest) {
	defer metricsSimulationCost(time.Now())

	if req.BlockNumber < p.latestBlock.Load() {
		staleDroppedMeter.Mark(1)
		log.Debug("simulator: dropping stale task", "blockNumber", req.BlockNumber, "latest", p.latestBlock.Load())
		return
	}

	view, err := p.provider.StateByBlockHash(ctx, req.ParentBlockHash)
	if err != nil {
		failedMeter.Mark(1)
		p.sink.Publish(ctx, &tipstypes.SimulationResult{
			BundleID:        req.BundleID,
			BlockNumber:     req.BlockNumber,
			ParentBlockHash: req.ParentBlockHash,
			FailureKind:     tipstypes.FailureStateAccessError,
			ErrorReason:     err.Error(),
		})
		return
	}

	parent, err := p.provider.ParentInfo(ctx, req.ParentBlockHash)
	if err != nil {
		failedMeter.Mark(1)
		p.sink.Publish(ctx, &tipstypes.SimulationResult{
			BundleID:        req.BundleID,
			BlockNumber:     req.BlockNumber,
			ParentBlockHash: req.ParentBlockHash,
			FailureKind:     tipstypes.FailureStateAccessError,
			ErrorReason:     err.Error(),
		})
		return
	}

	env := tipstypes.BlockEnv{
		Timestamp:   parent.Timestamp + p.cfg.BlockTimeMillis/1000,
		PrevRandao:  randomHash(),
		GasLimit:    parent.GasLimit,
		Beneficiary: parent.Beneficiary,
	}

	result := SimulateBundle(ctx, p.engine, view, env, req)
	if result.Success {
		simulatedMeter.Mark(1)
	} else {
		failedMeter.Mark(1)
	}
	p.sink.Publish(ctx, result)
}

func randomHash() common.Hash {
	var h common.Hash
	_, _ = rand.Read(h[:])
	return h
}

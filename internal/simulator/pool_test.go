package simulator

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/tips-network/tips/internal/tipstypes"
)

type fakeStateProvider struct{}

func (fakeStateProvider) StateByBlockHash(ctx context.Context, hash common.Hash) (tipstypes.StateView, error) {
	return fakeStateView{}, nil
}

func (fakeStateProvider) ParentInfo(ctx context.Context, hash common.Hash) (tipstypes.ParentBlockInfo, error) {
	return tipstypes.ParentBlockInfo{Timestamp: 1000, GasLimit: 30_000_000, Beneficiary: common.HexToAddress("0xB0")}, nil
}

type fakeStateView struct{}

func (fakeStateView) Balance(common.Address) *big.Int     { return big.NewInt(0) }
func (fakeStateView) Nonce(common.Address) uint64         { return 0 }
func (fakeStateView) CodeHash(common.Address) common.Hash { return common.Hash{} }
func (fakeStateView) Storage(common.Address, common.Hash) common.Hash {
	return common.Hash{}
}

type recordingSink struct {
	mu      sync.Mutex
	results []*tipstypes.SimulationResult
}

func (s *recordingSink) Publish(ctx context.Context, result *tipstypes.SimulationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
}

func (s *recordingSink) snapshot() []*tipstypes.SimulationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*tipstypes.SimulationResult, len(s.results))
	copy(out, s.results)
	return out
}

func TestPool_StaleTasksDroppedAfterLatestBlockAdvances(t *testing.T) {
	cfg := DefaultConfig
	cfg.MaxConcurrentSims = 1
	cfg.QueueCapacity = 10

	sink := &recordingSink{}
	engine := &fakeEngine{diff: tipstypes.StateDiff{}, executed: []tipstypes.ExecutedTx{{GasUsed: 21000}}}
	pool := NewPool(cfg, fakeStateProvider{}, engine, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = pool.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Enqueue(ctx, tipstypes.SimulationRequest{
			BundleID:    tipstypes.BundleId{byte(i)},
			Bundle:      &tipstypes.Bundle{},
			BlockNumber: 10,
		}))
	}

	pool.UpdateLatestBlock(11)

	// Workers start only after latest_block has advanced, so every block-10
	// task is still queued then and is dropped at dequeue.
	done := make(chan struct{})
	go func() {
		_ = pool.Run(ctx)
		close(done)
	}()

	require.NoError(t, pool.Enqueue(ctx, tipstypes.SimulationRequest{
		BundleID:    tipstypes.BundleId{99},
		Bundle:      &tipstypes.Bundle{},
		BlockNumber: 11,
	}))

	require.Eventually(t, func() bool {
		return len(sink.snapshot()) == 1
	}, time.Second, 10*time.Millisecond, "exactly one SimulationResult should be published for the non-stale task")

	results := sink.snapshot()
	require.Equal(t, uint64(11), results[0].BlockNumber)

	pool.Close()
	cancel()
	<-done
}

func TestPool_UpdateLatestBlockIsMonotonic(t *testing.T) {
	pool := NewPool(DefaultConfig, fakeStateProvider{}, &fakeEngine{}, &recordingSink{})
	pool.UpdateLatestBlock(10)
	pool.UpdateLatestBlock(5)
	require.Equal(t, uint64(10), pool.latestBlock.Load())
	pool.UpdateLatestBlock(20)
	require.Equal(t, uint64(20), pool.latestBlock.Load())
}

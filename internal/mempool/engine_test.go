package mempool

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/tips-network/tips/internal/tipstypes"
)

// mockEventSource replays a fixed slice of events, then blocks until ctx
// is cancelled — grounded on mempool_engine.rs's MockEventSource test
// double.
type mockEventSource struct {
	events []tipstypes.MempoolLifecycleEvent
	idx    int
}

func (m *mockEventSource) Next(ctx context.Context) (tipstypes.MempoolLifecycleEvent, error) {
	if m.idx < len(m.events) {
		ev := m.events[m.idx]
		m.idx++
		return ev, nil
	}
	<-ctx.Done()
	return tipstypes.MempoolLifecycleEvent{}, ctx.Err()
}

type recordingSink struct {
	events []tipstypes.UserOpEvent
}

func (s *recordingSink) Emit(ctx context.Context, ev tipstypes.UserOpEvent) {
	s.events = append(s.events, ev)
}

func wrappedOp(hash byte, sender common.Address, nonce uint64, prio int64) *tipstypes.WrappedUserOp {
	return &tipstypes.WrappedUserOp{
		Operation: tipstypes.UserOperation{
			Sender:               sender,
			Nonce:                nonce,
			MaxPriorityFeePerGas: big.NewInt(prio),
		},
		Hash: common.Hash{hash},
	}
}

func TestEngine_AddedIncludedDropped(t *testing.T) {
	pool := NewPool(DefaultConfig)
	sender := common.HexToAddress("0xaaaa")
	op := wrappedOp(1, sender, 0, 100)

	source := &mockEventSource{events: []tipstypes.MempoolLifecycleEvent{
		{Kind: tipstypes.LifecycleUserOpAdded, Op: op},
		{Kind: tipstypes.LifecycleUserOpIncluded, Hash: op.Hash, BlockNumber: 42},
	}}
	sink := &recordingSink{}
	engine := NewEngine(pool, source, sink)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = engine.Run(ctx)
	}()

	require.Eventually(t, func() bool { return len(sink.events) == 2 }, timeoutForCI(), pollInterval())
	cancel()

	require.Equal(t, tipstypes.UserOpAddedToMempool, sink.events[0].Kind)
	require.Equal(t, tipstypes.UserOpIncludedKind, sink.events[1].Kind)
	require.Equal(t, uint64(42), sink.events[1].BlockNumber)
	require.Equal(t, 0, pool.Len())
}

func TestEngine_DroppedRemovesFromPool(t *testing.T) {
	pool := NewPool(DefaultConfig)
	sender := common.HexToAddress("0xbbbb")
	op := wrappedOp(2, sender, 0, 50)

	source := &mockEventSource{events: []tipstypes.MempoolLifecycleEvent{
		{Kind: tipstypes.LifecycleUserOpAdded, Op: op},
		{Kind: tipstypes.LifecycleUserOpDropped, Hash: op.Hash, Reason: "expired"},
	}}
	sink := &recordingSink{}
	engine := NewEngine(pool, source, sink)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = engine.Run(ctx)
	}()

	require.Eventually(t, func() bool { return len(sink.events) == 2 }, timeoutForCI(), pollInterval())
	cancel()

	require.Equal(t, tipstypes.UserOpDroppedKind, sink.events[1].Kind)
	require.Equal(t, "expired", sink.events[1].Reason)
	require.Equal(t, 0, pool.Len())
}

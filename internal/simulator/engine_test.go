package simulator

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/tips-network/tips/internal/tipstypes"
)

type fakeEngine struct {
	diff     tipstypes.StateDiff
	executed []tipstypes.ExecutedTx
	err      error
}

func (f *fakeEngine) ExecuteNextBlock(ctx context.Context, view tipstypes.StateView, env tipstypes.BlockEnv, txs []*types.Transaction) (tipstypes.StateDiff, []tipstypes.ExecutedTx, error) {
	return f.diff, f.executed, f.err
}

func TestSimulateBundle_SuccessHarvestsStateDiff(t *testing.T) {
	diff := tipstypes.StateDiff{
		common.HexToAddress("0x1"): {common.HexToHash("0xa"): common.HexToHash("0xb")},
	}
	engine := &fakeEngine{diff: diff, executed: []tipstypes.ExecutedTx{{GasUsed: 21000}}}

	req := tipstypes.SimulationRequest{
		BundleID:    tipstypes.BundleId{},
		Bundle:      &tipstypes.Bundle{},
		BlockNumber: 10,
	}

	result := SimulateBundle(context.Background(), engine, nil, tipstypes.BlockEnv{}, req)
	require.True(t, result.Success)
	require.Equal(t, uint64(21000), result.GasUsed)
	require.Equal(t, diff, result.StateDiff)
}

func TestSimulateBundle_RevertStopsAtFirstFailure(t *testing.T) {
	engine := &fakeEngine{executed: []tipstypes.ExecutedTx{
		{GasUsed: 21000},
		{GasUsed: 5000, Reverted: true, ErrReason: "execution reverted"},
	}}

	req := tipstypes.SimulationRequest{Bundle: &tipstypes.Bundle{}, BlockNumber: 10}
	result := SimulateBundle(context.Background(), engine, nil, tipstypes.BlockEnv{}, req)

	require.False(t, result.Success)
	require.Equal(t, tipstypes.FailureRevert, result.FailureKind)
	require.Equal(t, "execution reverted", result.ErrorReason)
	require.Equal(t, uint64(26000), result.GasUsed)
}

func TestSimulateBundle_EngineErrorMarksUnknownFailure(t *testing.T) {
	engine := &fakeEngine{err: errors.New("evm panic")}
	req := tipstypes.SimulationRequest{Bundle: &tipstypes.Bundle{}, BlockNumber: 10}

	result := SimulateBundle(context.Background(), engine, nil, tipstypes.BlockEnv{}, req)
	require.False(t, result.Success)
	require.Equal(t, tipstypes.FailureUnknown, result.FailureKind)
	require.Equal(t, "evm panic", result.ErrorReason)
}

package builder

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/tips-network/tips/internal/orderpool"
	"github.com/tips-network/tips/internal/tipstypes"
)

// testConfig duplicates the real cfg shape with a fresh bundler key per
// call so tests don't share mutable signing state.

func testConfig(t *testing.T) (Config, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return Config{
		BundlerPrivateKey: key,
		ChainID:           big.NewInt(8453),
		BatchSize:         32,
		BatchTimeoutMs:    250,
	}, key
}

func pendingOp(sender common.Address, nonce uint64, entryPoint common.Address) *tipstypes.WrappedUserOp {
	return &tipstypes.WrappedUserOp{
		Operation: tipstypes.UserOperation{
			Version:              tipstypes.UserOpV07,
			Sender:               sender,
			Nonce:                nonce,
			CallData:             []byte{0xde, 0xad},
			CallGasLimit:         100_000,
			VerificationGasLimit: 100_000,
			PreVerificationGas:   21_000,
			MaxFeePerGas:         big.NewInt(2_000_000_000),
			MaxPriorityFeePerGas: big.NewInt(1_000_000),
		},
		EntryPoint: entryPoint,
	}
}

func TestStep_DoesNothingBeforeMidpoint(t *testing.T) {
	cfg, _ := testConfig(t)
	pool := orderpool.NewUserOpPool()
	pool.Add(pendingOp(common.HexToAddress("0x1"), 0, common.HexToAddress("0xEE")))

	step := NewStep(cfg, pool, 0)
	tx, err := step.Process(context.Background(), Env{History: 2, TotalHint: 10, BaseFee: big.NewInt(1_000_000_000)})
	require.NoError(t, err)
	require.Nil(t, tx)
	require.Equal(t, 1, pool.Len(), "pool must not be drained before the midpoint is reached")
}

func TestStep_InsertsOnceAtMidpoint(t *testing.T) {
	cfg, _ := testConfig(t)
	pool := orderpool.NewUserOpPool()
	entryPoint := common.HexToAddress("0xEE")
	pool.Add(pendingOp(common.HexToAddress("0x1"), 0, entryPoint))
	pool.Add(pendingOp(common.HexToAddress("0x2"), 0, entryPoint))

	step := NewStep(cfg, pool, 7)
	env := Env{History: 5, TotalHint: 10, BaseFee: big.NewInt(1_000_000_000), Beneficiary: common.HexToAddress("0xB0")}

	tx, err := step.Process(context.Background(), env)
	require.NoError(t, err)
	require.NotNil(t, tx)
	require.Equal(t, uint64(7), tx.Nonce())
	require.Equal(t, entryPoint, *tx.To())
	require.Equal(t, uint64(5_000_000), tx.Gas())
	require.Equal(t, big.NewInt(2_000_000_000), tx.GasFeeCap())
	require.Equal(t, big.NewInt(1_000_000), tx.GasTipCap())
	require.Equal(t, 0, pool.Len())

	// At-most-once-per-block: a second invocation in the same block must
	// not produce another transaction, even though more history arrives.
	tx2, err := step.Process(context.Background(), Env{History: 9, TotalHint: 10, BaseFee: big.NewInt(1_000_000_000)})
	require.NoError(t, err)
	require.Nil(t, tx2)
}

func TestStep_MidpointReachedWithEmptyPoolDoesNothing(t *testing.T) {
	cfg, _ := testConfig(t)
	pool := orderpool.NewUserOpPool()

	step := NewStep(cfg, pool, 0)
	tx, err := step.Process(context.Background(), Env{History: 5, TotalHint: 10, BaseFee: big.NewInt(1_000_000_000)})
	require.NoError(t, err)
	require.Nil(t, tx)
	require.True(t, step.midpointReached)
	require.False(t, step.userOpsInserted)

	// Midpoint already reached; a later drain attempt must not fire again
	// even if the pool now has pending ops (they arrived after midpoint).
	pool.Add(pendingOp(common.HexToAddress("0x1"), 0, common.HexToAddress("0xEE")))
	tx2, err := step.Process(context.Background(), Env{History: 8, TotalHint: 10, BaseFee: big.NewInt(1_000_000_000)})
	require.NoError(t, err)
	require.Nil(t, tx2)
}

func TestStep_DeterministicForFixedInputs(t *testing.T) {
	cfg, _ := testConfig(t)
	entryPoint := common.HexToAddress("0xEE")
	beneficiary := common.HexToAddress("0xB0")
	baseFee := big.NewInt(1_500_000_000)

	build := func() common.Hash {
		pool := orderpool.NewUserOpPool()
		pool.Add(pendingOp(common.HexToAddress("0x1"), 3, entryPoint))
		step := NewStep(cfg, pool, 42)
		tx, err := step.Process(context.Background(), Env{History: 5, TotalHint: 10, BaseFee: baseFee, Beneficiary: beneficiary})
		require.NoError(t, err)
		require.NotNil(t, tx)
		return tx.Hash()
	}

	require.Equal(t, build(), build(), "identical (pool_snapshot, base_fee, bundler_nonce, T_total, |H|) must produce a byte-identical transaction")
}

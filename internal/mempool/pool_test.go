package mempool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/tips-network/tips/internal/tipstypes"
)

func TestPool_ReplacementLaw(t *testing.T) {
	pool := NewPool(DefaultConfig) // 10% increase required
	sender := common.HexToAddress("0xcccc")

	a := wrappedOp(1, sender, 0, 100)
	inserted, err := pool.Add(a)
	require.NoError(t, err)
	require.True(t, inserted)

	// 120 >= 100 * 1.1 -> replaces
	b := wrappedOp(2, sender, 0, 120)
	inserted, err = pool.Add(b)
	require.NoError(t, err)
	require.True(t, inserted)
	require.Equal(t, 1, pool.Len())

	top := pool.Top(1)
	require.Len(t, top, 1)
	require.Equal(t, b.Hash, top[0].Hash)
}

func TestPool_ReplacementLaw_RejectsInsufficientIncrease(t *testing.T) {
	pool := NewPool(DefaultConfig)
	sender := common.HexToAddress("0xdddd")

	a := wrappedOp(1, sender, 0, 100)
	_, err := pool.Add(a)
	require.NoError(t, err)

	// 105 < 100 * 1.1 -> does not replace
	b := wrappedOp(2, sender, 0, 105)
	inserted, err := pool.Add(b)
	require.NoError(t, err)
	require.False(t, inserted)

	top := pool.Top(1)
	require.Len(t, top, 1)
	require.Equal(t, a.Hash, top[0].Hash)
}

func TestPool_Top_RespectsNonceContiguity(t *testing.T) {
	pool := NewPool(DefaultConfig)
	sender := common.HexToAddress("0xeeee")

	op0 := wrappedOp(1, sender, 0, 10)
	op1 := wrappedOp(2, sender, 1, 1000) // much higher fee, but nonce 1 needs nonce 0 first

	_, err := pool.Add(op0)
	require.NoError(t, err)
	_, err = pool.Add(op1)
	require.NoError(t, err)

	top := pool.Top(1)
	require.Len(t, top, 1)
	require.Equal(t, op0.Hash, top[0].Hash, "op at nonce 1 must never appear without nonce 0")
}

func TestPool_RejectsDuplicateHash(t *testing.T) {
	pool := NewPool(DefaultConfig)
	sender := common.HexToAddress("0xffff")
	op := wrappedOp(1, sender, 0, 10)

	_, err := pool.Add(op)
	require.NoError(t, err)

	_, err = pool.Add(op)
	require.ErrorIs(t, err, tipstypes.ErrDuplicateUserOp)
}

func TestExceedsReplacementThreshold(t *testing.T) {
	require.True(t, exceedsReplacementThreshold(big.NewInt(100), big.NewInt(110), 10))
	require.False(t, exceedsReplacementThreshold(big.NewInt(100), big.NewInt(109), 10))
}

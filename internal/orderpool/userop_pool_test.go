package orderpool

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/tips-network/tips/internal/tipstypes"
)

func opAt(sender common.Address, nonce uint64, entryPoint common.Address, hashByte byte) *tipstypes.WrappedUserOp {
	return &tipstypes.WrappedUserOp{
		Operation:  tipstypes.UserOperation{Sender: sender, Nonce: nonce},
		EntryPoint: entryPoint,
		Hash:       common.Hash{hashByte},
	}
}

func TestUserOpPool_ReplaceOnSameKey(t *testing.T) {
	pool := NewUserOpPool()
	sender := common.HexToAddress("0x1")
	ep := common.HexToAddress("0x2")

	pool.Add(opAt(sender, 0, ep, 1))
	pool.Add(opAt(sender, 0, ep, 2))

	require.Equal(t, 1, pool.Len())
	snap := pool.Snapshot()
	require.Equal(t, common.Hash{2}, snap[0].Hash)
}

func TestUserOpPool_Drain(t *testing.T) {
	pool := NewUserOpPool()
	sender := common.HexToAddress("0x3")
	ep := common.HexToAddress("0x4")
	pool.Add(opAt(sender, 0, ep, 1))
	pool.Add(opAt(sender, 1, ep, 2))

	drained := pool.Drain()
	require.Len(t, drained, 2)
	require.Equal(t, 0, pool.Len())
}

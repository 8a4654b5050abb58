package ingress

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/stretchr/testify/require"

	"github.com/tips-network/tips/internal/tipstypes"
)

// fakeStateView is an in-memory tipstypes.StateView for tests, grounded
// on the account/state fixtures used throughout
// original_source/crates/ingress-rpc/src/validation.rs's test suite.
type fakeStateView struct {
	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64
	codes    map[common.Address]common.Hash
	storage  map[common.Address]map[common.Hash]common.Hash
}

func newFakeStateView() *fakeStateView {
	return &fakeStateView{
		balances: make(map[common.Address]*big.Int),
		nonces:   make(map[common.Address]uint64),
		codes:    make(map[common.Address]common.Hash),
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
	}
}

func (f *fakeStateView) Balance(a common.Address) *big.Int {
	if b, ok := f.balances[a]; ok {
		return b
	}
	return big.NewInt(0)
}
func (f *fakeStateView) Nonce(a common.Address) uint64 { return f.nonces[a] }
func (f *fakeStateView) CodeHash(a common.Address) common.Hash {
	if h, ok := f.codes[a]; ok {
		return h
	}
	return emptyCodeHash
}
func (f *fakeStateView) Storage(a common.Address, slot common.Hash) common.Hash {
	if m, ok := f.storage[a]; ok {
		return m[slot]
	}
	return common.Hash{}
}

func testChainConfig() *params.ChainConfig {
	cfg := *params.AllEthashProtocolChanges
	cfg.Optimism = nil // disable L1 cost path unless explicitly enabled
	return &cfg
}

func signedTx(t *testing.T, key *ecdsa.PrivateKey, nonce uint64, value, gasFeeCap *big.Int, gasLimit uint64) (*tipstypes.Tx, []byte) {
	t.Helper()
	chainID := big.NewInt(1)
	inner := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: big.NewInt(1),
		GasFeeCap: gasFeeCap,
		Gas:       gasLimit,
		To:        &common.Address{1},
		Value:     value,
	})
	signer := types.LatestSignerForChainID(chainID)
	signed, err := types.SignTx(inner, signer, key)
	require.NoError(t, err)
	raw, err := signed.MarshalBinary()
	require.NoError(t, err)
	tx, err := tipstypes.NewTx(raw, signer)
	require.NoError(t, err)
	return tx, raw
}

func TestValidateRawTx_HappyPath(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)

	view := newFakeStateView()
	view.balances[sender] = big.NewInt(1_000_000_000_000_000_000) // 1 ETH

	tx, _ := signedTx(t, key, 0, big.NewInt(1000), big.NewInt(2_000_000_000), 21000)

	v := NewValidator(testChainConfig(), nil, 1000)
	hash, err := v.ValidateRawTx(context.Background(), view, tx, 0)
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), hash)
}

func TestValidateRawTx_NonceTooLow(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)

	view := newFakeStateView()
	view.balances[sender] = big.NewInt(1_000_000_000_000_000_000)
	view.nonces[sender] = 1

	tx, _ := signedTx(t, key, 0, big.NewInt(0), big.NewInt(2_000_000_000), 21000)

	v := NewValidator(testChainConfig(), nil, 1000)
	_, err = v.ValidateRawTx(context.Background(), view, tx, 0)
	require.ErrorIs(t, err, tipstypes.ErrNonceTooLow)
}

func TestValidateRawTx_InsufficientFunds(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)

	view := newFakeStateView()
	view.balances[sender] = big.NewInt(1000) // far too little

	tx, _ := signedTx(t, key, 0, big.NewInt(1000), big.NewInt(2_000_000_000), 21000)

	v := NewValidator(testChainConfig(), nil, 1000)
	_, err = v.ValidateRawTx(context.Background(), view, tx, 0)
	require.ErrorIs(t, err, tipstypes.ErrInsufficientFunds)
}

func TestValidateRawTx_Interop(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	sender := crypto.PubkeyToAddress(key.PublicKey)

	view := newFakeStateView()
	view.balances[sender] = big.NewInt(1_000_000_000_000_000_000)

	chainID := big.NewInt(1)
	inner := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     0,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2_000_000_000),
		Gas:       21000,
		To:        &common.Address{1},
		Value:     big.NewInt(0),
		AccessList: types.AccessList{
			{Address: tipstypes.CrossL2InboxAddr},
		},
	})
	signer := types.LatestSignerForChainID(chainID)
	signed, err := types.SignTx(inner, signer, key)
	require.NoError(t, err)
	raw, err := signed.MarshalBinary()
	require.NoError(t, err)
	tx, err := tipstypes.NewTx(raw, signer)
	require.NoError(t, err)

	v := NewValidator(testChainConfig(), nil, 1000)
	_, err = v.ValidateRawTx(context.Background(), view, tx, 0)
	require.ErrorIs(t, err, tipstypes.ErrInteropUnsupported)
}

func TestValidateUserOp_RejectsDuplicates(t *testing.T) {
	v := NewValidator(testChainConfig(), nil, 1000)
	op := &tipstypes.UserOperation{
		Version:              tipstypes.UserOpV06,
		Sender:               common.HexToAddress("0x1"),
		MaxFeePerGas:         big.NewInt(1),
		MaxPriorityFeePerGas: big.NewInt(1),
	}
	entryPoint := common.HexToAddress("0x2")
	chainID := big.NewInt(1)

	_, err := v.ValidateUserOp(context.Background(), op, entryPoint, chainID)
	require.NoError(t, err)

	_, err = v.ValidateUserOp(context.Background(), op, entryPoint, chainID)
	require.ErrorIs(t, err, tipstypes.ErrDuplicateUserOp)
}

// Package chainrpc provides a StateProvider/StateView implementation
// backed by a remote JSON-RPC node, via go-ethereum's own ethclient and
// rpc packages. tipstypes.StateProvider/StateView are specified as
// external-collaborator interfaces (spec.md §1, §6: EVM execution and
// live chain state are out of this repository's scope); this package is
// the thin, optional adapter that lets the cmd/* binaries run against a
// real upstream node rather than leaving every StateProvider field nil.
package chainrpc

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/tips-network/tips/internal/tipstypes"
)

// Provider implements tipstypes.StateProvider against an upstream node.
type Provider struct {
	eth *ethclient.Client
	rpc *rpc.Client
}

// Dial connects to the node at url.
func Dial(ctx context.Context, url string) (*Provider, error) {
	rpcClient, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Provider{eth: ethclient.NewClient(rpcClient), rpc: rpcClient}, nil
}

// StateByBlockHash resolves a StateView at hash. A zero hash resolves to
// the chain head, matching the ingress service's "block_number == 0
// means next/latest" convention (spec.md §4.D).
func (p *Provider) StateByBlockHash(ctx context.Context, hash common.Hash) (tipstypes.StateView, error) {
	if hash == (common.Hash{}) {
		header, err := p.eth.HeaderByNumber(ctx, nil)
		if err != nil {
			return nil, err
		}
		hash = header.Hash()
	}
	return &stateView{rpc: p.rpc, blockHash: hash}, nil
}

// Head returns the current chain head's hash and number.
func (p *Provider) Head(ctx context.Context) (common.Hash, uint64, error) {
	header, err := p.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, 0, err
	}
	return header.Hash(), header.Number.Uint64(), nil
}

// ParentInfo fetches the header at hash and reports the subset of fields
// the simulator's BlockEnv construction needs (spec.md §4.I step 4).
func (p *Provider) ParentInfo(ctx context.Context, hash common.Hash) (tipstypes.ParentBlockInfo, error) {
	header, err := p.eth.HeaderByHash(ctx, hash)
	if err != nil {
		return tipstypes.ParentBlockInfo{}, err
	}
	return tipstypes.ParentBlockInfo{
		Timestamp:   header.Time,
		GasLimit:    header.GasLimit,
		Beneficiary: header.Coinbase,
	}, nil
}

// stateView implements tipstypes.StateView against a fixed block hash,
// using EIP-1898 block-hash-object parameters on the raw RPC client
// since ethclient's own accessors are number-keyed only.
type stateView struct {
	rpc       *rpc.Client
	blockHash common.Hash
}

func (v *stateView) blockRef() map[string]interface{} {
	return map[string]interface{}{"blockHash": v.blockHash}
}

func (v *stateView) Balance(addr common.Address) *big.Int {
	var result hexutil.Big
	if err := v.rpc.CallContext(context.Background(), &result, "eth_getBalance", addr, v.blockRef()); err != nil {
		return big.NewInt(0)
	}
	return (*big.Int)(&result)
}

func (v *stateView) Nonce(addr common.Address) uint64 {
	var result hexutil.Uint64
	if err := v.rpc.CallContext(context.Background(), &result, "eth_getTransactionCount", addr, v.blockRef()); err != nil {
		return 0
	}
	return uint64(result)
}

func (v *stateView) CodeHash(addr common.Address) common.Hash {
	var code hexutil.Bytes
	if err := v.rpc.CallContext(context.Background(), &code, "eth_getCode", addr, v.blockRef()); err != nil || len(code) == 0 {
		return common.Hash{}
	}
	return crypto.Keccak256Hash(code)
}

func (v *stateView) Storage(addr common.Address, slot common.Hash) common.Hash {
	var result common.Hash
	if err := v.rpc.CallContext(context.Background(), &result, "eth_getStorageAt", addr, slot, v.blockRef()); err != nil {
		return common.Hash{}
	}
	return result
}

package chainrpc

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/tips-network/tips/internal/tipstypes"
)

// Engine implements tipstypes.EvmEngine by delegating execution to the
// same upstream node Provider reads state from, via eth_call per
// transaction. It does not thread one transaction's state changes into
// the next eth_call within a bundle (eth_call reports no storage diff to
// carry forward); callers needing full sequential bundle semantics need
// a tracing-capable engine, which is out of scope here (spec.md §1's
// "black-box EVM engine" framing) — this is the thin RPC-only stand-in
// so the simulator has a runnable default.
type Engine struct {
	provider *Provider
}

// NewEngine constructs an Engine sharing provider's RPC connection.
func NewEngine(provider *Provider) *Engine {
	return &Engine{provider: provider}
}

// ExecuteNextBlock executes each tx in txs independently against view's
// block, in order, stopping at the first revert (spec.md §4.I step 5's
// "stop at first failure" rule).
func (e *Engine) ExecuteNextBlock(ctx context.Context, view tipstypes.StateView, env tipstypes.BlockEnv, txs []*types.Transaction) (tipstypes.StateDiff, []tipstypes.ExecutedTx, error) {
	sv, ok := view.(*stateView)
	if !ok {
		return nil, nil, tipstypes.ErrDecodeFailed
	}

	executed := make([]tipstypes.ExecutedTx, 0, len(txs))
	for _, tx := range txs {
		res, reverted, reason, err := e.callOne(ctx, sv, tx)
		if err != nil {
			return nil, executed, err
		}
		gasUsed, _ := e.estimateGas(ctx, sv, tx)
		executed = append(executed, tipstypes.ExecutedTx{GasUsed: gasUsed, Reverted: reverted, ErrReason: reason})
		_ = res
		if reverted {
			break
		}
	}
	return tipstypes.StateDiff{}, executed, nil
}

func (e *Engine) callOne(ctx context.Context, sv *stateView, tx *types.Transaction) (result []byte, reverted bool, reason string, err error) {
	signer := types.LatestSignerForChainID(tx.ChainId())
	from, sigErr := types.Sender(signer, tx)
	if sigErr != nil {
		from = common.Address{}
	}

	callArgs := map[string]interface{}{
		"from": from,
		"to":   tx.To(),
		"gas":  hexutil.Uint64(tx.Gas()),
		"data": hexutil.Bytes(tx.Data()),
	}
	if tx.Value() != nil {
		callArgs["value"] = (*hexutil.Big)(tx.Value())
	}

	var out hexutil.Bytes
	callErr := sv.rpc.CallContext(ctx, &out, "eth_call", callArgs, sv.blockRef())
	if callErr != nil {
		if strings.Contains(callErr.Error(), "revert") {
			return nil, true, callErr.Error(), nil
		}
		return nil, false, "", callErr
	}
	return out, false, "", nil
}

func (e *Engine) estimateGas(ctx context.Context, sv *stateView, tx *types.Transaction) (uint64, error) {
	var out hexutil.Uint64
	callArgs := map[string]interface{}{
		"to":   tx.To(),
		"gas":  hexutil.Uint64(tx.Gas()),
		"data": hexutil.Bytes(tx.Data()),
	}
	if err := sv.rpc.CallContext(ctx, &out, "eth_estimateGas", callArgs); err != nil {
		return tx.Gas(), nil
	}
	return uint64(out), nil
}

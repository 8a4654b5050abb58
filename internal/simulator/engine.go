package simulator

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/tips-network/tips/internal/tipstypes"
)

// SimulateBundle executes req.Bundle.Txs in order against view through
// engine, per spec.md §4.I steps 4-7. The EvmEngine is the out-of-scope
// black-box executor (spec.md §1); this function is the glue that turns
// its per-tx accounting into a SimulationResult.
func SimulateBundle(ctx context.Context, engine tipstypes.EvmEngine, view tipstypes.StateView, env tipstypes.BlockEnv, req tipstypes.SimulationRequest) *tipstypes.SimulationResult {
	base := &tipstypes.SimulationResult{
		BundleID:        req.BundleID,
		BlockNumber:     req.BlockNumber,
		ParentBlockHash: req.ParentBlockHash,
	}

	txs := make([]*types.Transaction, 0, len(req.Bundle.Txs))
	for _, tx := range req.Bundle.Txs {
		txs = append(txs, tx.Inner())
	}

	diff, executed, err := engine.ExecuteNextBlock(ctx, view, env, txs)
	if err != nil {
		base.FailureKind = tipstypes.FailureUnknown
		base.ErrorReason = err.Error()
		return base
	}

	var gasUsed uint64
	for i, ex := range executed {
		gasUsed += ex.GasUsed
		if ex.Reverted {
			base.GasUsed = gasUsed
			base.FailureKind = tipstypes.FailureRevert
			if ex.ErrReason != "" {
				base.ErrorReason = ex.ErrReason
			} else {
				base.ErrorReason = fmt.Sprintf("transaction %d reverted", i)
			}
			return base
		}
	}

	base.Success = true
	base.GasUsed = gasUsed
	base.StateDiff = diff
	return base
}

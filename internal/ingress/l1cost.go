package ingress

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"

	"github.com/tips-network/tips/internal/tipstypes"
)

// L1 system predeploys and storage slots, adapted from
// core/types/rollup_cost.go (mantlenetworkio-op-geth).
var (
	l1BaseFeeSlot  = common.BigToHash(big.NewInt(1))
	overheadSlot   = common.BigToHash(big.NewInt(5))
	scalarSlot     = common.BigToHash(big.NewInt(6))
	tokenRatioSlot = common.BigToHash(big.NewInt(0))

	l1BlockAddr   = common.HexToAddress("0x4200000000000000000000000000000000000015")
	gasOracleAddr = common.HexToAddress("0x420000000000000000000000000000000000000F")
	decimals      = big.NewInt(1_000_000)
)

// rollupCostData counts zero/non-zero bytes in a raw tx envelope, the
// quantity the L1 data-gas formula is computed over.
type rollupCostData struct {
	zeroes, ones uint64
}

func newRollupCostData(raw []byte) rollupCostData {
	var out rollupCostData
	for _, b := range raw {
		if b == 0 {
			out.zeroes++
		} else {
			out.ones++
		}
	}
	return out
}

// dataGas mirrors core/types/rollup_cost.go's RollupCostData.DataGas,
// generalized off params.ChainConfig's Regolith activation check.
func (r rollupCostData) dataGas(blockTime uint64, cfg *params.ChainConfig) uint64 {
	gas := r.zeroes * params.TxDataZeroGas
	if cfg.IsRegolith(blockTime) {
		gas += r.ones * params.TxDataNonZeroGasEIP2028
	} else {
		gas += (r.ones + 68) * params.TxDataNonZeroGasEIP2028
	}
	return gas
}

// ComputeL1DataCost implements spec.md §4.D step 6: the portion of a
// rollup transaction's cost attributable to posting its data to L1.
// Adapted from core/types/rollup_cost.go's L1CostFunc, generalized from
// a live state trie to the injected tipstypes.StateView.
func ComputeL1DataCost(raw []byte, cfg *params.ChainConfig, blockTime uint64, view tipstypes.StateView) *big.Int {
	rollupDataGas := newRollupCostData(raw).dataGas(blockTime, cfg)
	if cfg.Optimism == nil || rollupDataGas == 0 {
		return common.Big0
	}

	l1BaseFee := view.Storage(l1BlockAddr, l1BaseFeeSlot).Big()
	overhead := view.Storage(l1BlockAddr, overheadSlot).Big()
	scalar := view.Storage(l1BlockAddr, scalarSlot).Big()
	tokenRatio := view.Storage(gasOracleAddr, tokenRatioSlot).Big()

	return l1Cost(rollupDataGas, l1BaseFee, overhead, scalar, tokenRatio)
}

// l1Cost is the exact formula from core/types/rollup_cost.go's L1Cost.
func l1Cost(rollupDataGas uint64, l1BaseFee, overhead, scalar, tokenRatio *big.Int) *big.Int {
	l1GasUsed := new(big.Int).SetUint64(rollupDataGas)
	l1GasUsed.Add(l1GasUsed, overhead)
	cost := new(big.Int).Mul(l1GasUsed, l1BaseFee)
	cost.Mul(cost, scalar)
	cost.Mul(cost, tokenRatio)
	return cost.Div(cost, decimals)
}

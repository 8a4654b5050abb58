package builder

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/tips-network/tips/internal/tipstypes"
)

// entryPointABIJSON is the minimal fragment of the EntryPoint ABI this
// builder needs: the handleOps(PackedUserOperation[],address) method.
// Grounded on original_source/crates/builder/src/bundle.rs, which embeds
// the same fragment to avoid depending on a full contract-bindings crate.
const entryPointABIJSON = `[{
	"type": "function",
	"name": "handleOps",
	"inputs": [
		{
			"name": "ops",
			"type": "tuple[]",
			"components": [
				{"name": "sender", "type": "address"},
				{"name": "nonce", "type": "uint256"},
				{"name": "initCode", "type": "bytes"},
				{"name": "callData", "type": "bytes"},
				{"name": "accountGasLimits", "type": "bytes32"},
				{"name": "preVerificationGas", "type": "uint256"},
				{"name": "gasFees", "type": "bytes32"},
				{"name": "paymasterAndData", "type": "bytes"},
				{"name": "signature", "type": "bytes"}
			]
		},
		{"name": "beneficiary", "type": "address"}
	],
	"outputs": []
}]`

var entryPointABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(entryPointABIJSON))
	if err != nil {
		panic("builder: invalid embedded EntryPoint ABI fragment: " + err.Error())
	}
	entryPointABI = parsed
}

// packedUserOp mirrors the EntryPoint's PackedUserOperation tuple layout;
// abi.Pack binds to this shape by field order, not by name.
type packedUserOp struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	AccountGasLimits     [32]byte
	PreVerificationGas   *big.Int
	GasFees              [32]byte
	PaymasterAndData     []byte
	Signature            []byte
}

// packUserOp reduces a WrappedUserOp (V06 or V07) to the EntryPoint's
// PackedUserOperation tuple, per spec.md §4.H step d. Reuses
// tipstypes.PackUint128Pair/PackUint128PairBig so the 128-bit packing
// has exactly one implementation across hashing and call-data encoding.
func packUserOp(w *tipstypes.WrappedUserOp) packedUserOp {
	op := &w.Operation
	accountGasLimits := tipstypes.PackUint128Pair(op.VerificationGasLimit, op.CallGasLimit)
	gasFees := tipstypes.PackUint128PairBig(op.MaxPriorityFeePerGas, op.MaxFeePerGas)

	var initCode, paymasterAndData []byte
	if op.Version == tipstypes.UserOpV06 {
		initCode = op.InitCode
		paymasterAndData = op.PaymasterAndData
	} else {
		if op.Factory != nil {
			initCode = append(append([]byte{}, op.Factory.Bytes()...), op.FactoryData...)
		}
		if op.Paymaster != nil {
			pvgl := make([]byte, 16)
			new(big.Int).SetUint64(op.PaymasterVerificationGasLimit).FillBytes(pvgl)
			pogl := make([]byte, 16)
			new(big.Int).SetUint64(op.PaymasterPostOpGasLimit).FillBytes(pogl)
			paymasterAndData = append(append(append(append([]byte{}, op.Paymaster.Bytes()...), pvgl...), pogl...), op.PaymasterData...)
		}
	}

	return packedUserOp{
		Sender:             op.Sender,
		Nonce:              new(big.Int).SetUint64(op.Nonce),
		InitCode:           initCode,
		CallData:           op.CallData,
		AccountGasLimits:   accountGasLimits,
		PreVerificationGas: new(big.Int).SetUint64(op.PreVerificationGas),
		GasFees:            gasFees,
		PaymasterAndData:   paymasterAndData,
		Signature:          op.Signature,
	}
}

// encodeHandleOps packs the handleOps(ops, beneficiary) call data for an
// aggregate of UserOps sharing one entry point, per spec.md §4.H step d.
func encodeHandleOps(ops []*tipstypes.WrappedUserOp, beneficiary common.Address) ([]byte, error) {
	packed := make([]packedUserOp, len(ops))
	for i, op := range ops {
		packed[i] = packUserOp(op)
	}
	return entryPointABI.Pack("handleOps", packed, beneficiary)
}

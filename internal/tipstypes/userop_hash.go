package tipstypes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP-712 domain constants for the PackedUserOperation typed-data hash.
// One canonical routine computes this hash, regardless of UserOp version
// (see SPEC_FULL.md §3 / §11): the packing below is the only place that
// knows how V06 and V07 reduce to the same PackedUserOperation shape.
const (
	domainName    = "ERC4337"
	domainVersion = "1"
)

// HashUserOp computes the EIP-712 typed-data hash of a V06 or V07
// UserOperation for the given entry point and chain id, using
// go-ethereum's own EIP-712 implementation rather than a hand-rolled
// keccak256(0x19 0x01 || domainSeparator || structHash).
func HashUserOp(op *UserOperation, entryPoint common.Address, chainID *big.Int) (common.Hash, error) {
	accountGasLimits := packAccountGasLimits(op.VerificationGasLimit, op.CallGasLimit)
	gasFees := PackUint128PairBig(op.MaxPriorityFeePerGas, op.MaxFeePerGas)

	initCode, paymasterAndData := packedExtras(op)

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"PackedUserOperation": []apitypes.Type{
				{Name: "sender", Type: "address"},
				{Name: "nonce", Type: "uint256"},
				{Name: "initCode", Type: "bytes"},
				{Name: "callData", Type: "bytes"},
				{Name: "accountGasLimits", Type: "bytes32"},
				{Name: "preVerificationGas", Type: "uint256"},
				{Name: "gasFees", Type: "bytes32"},
				{Name: "paymasterAndData", Type: "bytes"},
			},
		},
		PrimaryType: "PackedUserOperation",
		Domain: apitypes.TypedDataDomain{
			Name:              domainName,
			Version:           domainVersion,
			ChainId:           (*math.HexOrDecimal256)(chainID),
			VerifyingContract: entryPoint.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"sender":             op.Sender.Hex(),
			"nonce":              math.NewHexOrDecimal256(int64(op.Nonce)),
			"initCode":           hexutil.Encode(initCode),
			"callData":           hexutil.Encode(op.CallData),
			"accountGasLimits":   hexutil.Encode(accountGasLimits[:]),
			"preVerificationGas": math.NewHexOrDecimal256(int64(op.PreVerificationGas)),
			"gasFees":            hexutil.Encode(gasFees[:]),
			"paymasterAndData":   hexutil.Encode(paymasterAndData),
		},
	}

	hashBytes, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(hashBytes), nil
}

// packAccountGasLimits packs two 128-bit values into one 32-byte word:
// high 128 bits = hi, low 128 bits = lo, per EIP-4337's
// PackedUserOperation accountGasLimits layout. gasFees is packed with
// PackUint128PairBig instead.
func packAccountGasLimits(hi, lo uint64) [32]byte { return PackUint128Pair(hi, lo) }

// PackUint128Pair packs two uint64 values into one 32-byte word as
// (hi << 128 | lo), the EIP-4337 PackedUserOperation convention for
// accountGasLimits and gasFees. Exported so internal/builder's handleOps
// encoder can reuse the identical packing without duplicating it
// (spec.md §9: "repeated EIP-4337 hashing code... spec prescribes one
// canonical routine").
func PackUint128Pair(hi, lo uint64) [32]byte {
	return PackUint128PairBig(new(big.Int).SetUint64(hi), new(big.Int).SetUint64(lo))
}

// PackUint128PairBig packs two big.Int magnitudes (each assumed to fit
// in 128 bits, the EIP-4337 PackedUserOperation field width) into one
// 32-byte word as (hi << 128 | lo), without first narrowing either value
// to 64 bits. Used for gasFees, whose max_fee_per_gas/
// max_priority_fee_per_gas components are full 128-bit fields and must
// not be silently truncated for values at or above 2^64.
func PackUint128PairBig(hi, lo *big.Int) [32]byte {
	var out [32]byte
	if hi == nil {
		hi = new(big.Int)
	}
	if lo == nil {
		lo = new(big.Int)
	}
	packed := new(big.Int).Lsh(hi, 128)
	packed.Or(packed, lo)
	packed.FillBytes(out[:])
	return out
}

// packedExtras returns the V06-style initCode/paymasterAndData blobs,
// constructing them from V07's split factory/paymaster fields when
// needed so both versions reduce to the same PackedUserOperation shape.
func packedExtras(op *UserOperation) (initCode, paymasterAndData []byte) {
	if op.Version == UserOpV06 {
		return op.InitCode, op.PaymasterAndData
	}
	if op.Factory != nil {
		initCode = append(append([]byte{}, op.Factory.Bytes()...), op.FactoryData...)
	}
	if op.Paymaster != nil {
		pvgl := make([]byte, 16)
		new(big.Int).SetUint64(op.PaymasterVerificationGasLimit).FillBytes(pvgl)
		pogl := make([]byte, 16)
		new(big.Int).SetUint64(op.PaymasterPostOpGasLimit).FillBytes(pogl)
		paymasterAndData = append(append(append(op.Paymaster.Bytes(), pvgl...), pogl...), op.PaymasterData...)
	}
	return initCode, paymasterAndData
}

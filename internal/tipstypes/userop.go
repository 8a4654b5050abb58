package tipstypes

import (
	"encoding/hex"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// UserOpVersion identifies the EIP-4337 UserOperation wire shape.
type UserOpVersion string

const (
	UserOpV06 UserOpVersion = "v0.6"
	UserOpV07 UserOpVersion = "v0.7"
)

// UserOperation is the union of the fields present across V06 and V07.
// V07-only fields are nil/zero for a V06 operation.
type UserOperation struct {
	Version UserOpVersion

	Sender               common.Address
	Nonce                uint64
	CallData             []byte
	CallGasLimit         uint64
	VerificationGasLimit uint64
	PreVerificationGas   uint64
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	Signature            []byte

	// V06 packs these into initCode/paymasterAndData directly; V07 carries
	// them as distinct fields and the builder repacks them (internal/builder).
	InitCode          []byte // V06 only
	PaymasterAndData  []byte // V06 only

	Factory                       *common.Address // V07 only
	FactoryData                   []byte          // V07 only
	Paymaster                     *common.Address // V07 only
	PaymasterVerificationGasLimit uint64          // V07 only
	PaymasterPostOpGasLimit       uint64          // V07 only
	PaymasterData                 []byte          // V07 only
}

// WrappedUserOp is a UserOperation plus the metadata the mempool engine
// assigns on entry.
type WrappedUserOp struct {
	Operation    UserOperation
	Hash         common.Hash
	EntryPoint   common.Address
	SubmissionID uint64
}

// Key returns the (sender, nonce, entry_point) identity used by
// internal/orderpool for replacement semantics.
func (w *WrappedUserOp) Key() UserOpKey {
	return UserOpKey{Sender: w.Operation.Sender, Nonce: w.Operation.Nonce, EntryPoint: w.EntryPoint}
}

// UserOpKey is the replacement-identity tuple for a UserOperation.
type UserOpKey struct {
	Sender     common.Address
	Nonce      uint64
	EntryPoint common.Address
}

// UserOpWire is the event-log wire shape for a validated UserOperation:
// it carries every field the mempool engine and builder need to
// reconstruct a WrappedUserOp, mirroring BundleWire's "one shared shape"
// rationale so the ingress publisher and mempool engine don't grow
// independent ad-hoc JSON schemas for the same event.
type UserOpWire struct {
	Version              string  `json:"version"`
	Sender               string  `json:"sender"`
	Nonce                uint64  `json:"nonce"`
	CallData             string  `json:"callData"`
	CallGasLimit         uint64  `json:"callGasLimit"`
	VerificationGasLimit uint64  `json:"verificationGasLimit"`
	PreVerificationGas   uint64  `json:"preVerificationGas"`
	MaxFeePerGas         string  `json:"maxFeePerGas"`
	MaxPriorityFeePerGas string  `json:"maxPriorityFeePerGas"`
	Signature            string  `json:"signature"`
	InitCode             string  `json:"initCode,omitempty"`
	PaymasterAndData     string  `json:"paymasterAndData,omitempty"`
	Factory              *string `json:"factory,omitempty"`
	FactoryData          string  `json:"factoryData,omitempty"`
	Paymaster            *string `json:"paymaster,omitempty"`
	PaymasterVerificationGasLimit uint64 `json:"paymasterVerificationGasLimit,omitempty"`
	PaymasterPostOpGasLimit       uint64 `json:"paymasterPostOpGasLimit,omitempty"`
	PaymasterData                 string `json:"paymasterData,omitempty"`

	EntryPoint   string `json:"entryPoint"`
	Hash         string `json:"hash"`
	SubmissionID uint64 `json:"submissionId"`
}

// ToWire renders w as its event-log wire form.
func (w *WrappedUserOp) ToWire() UserOpWire {
	op := w.Operation
	wire := UserOpWire{
		Version:              string(op.Version),
		Sender:               op.Sender.Hex(),
		Nonce:                op.Nonce,
		CallData:             hex.EncodeToString(op.CallData),
		CallGasLimit:         op.CallGasLimit,
		VerificationGasLimit: op.VerificationGasLimit,
		PreVerificationGas:   op.PreVerificationGas,
		MaxFeePerGas:         bigStringOrZero(op.MaxFeePerGas),
		MaxPriorityFeePerGas: bigStringOrZero(op.MaxPriorityFeePerGas),
		Signature:            hex.EncodeToString(op.Signature),
		InitCode:             hex.EncodeToString(op.InitCode),
		PaymasterAndData:     hex.EncodeToString(op.PaymasterAndData),
		FactoryData:          hex.EncodeToString(op.FactoryData),
		PaymasterVerificationGasLimit: op.PaymasterVerificationGasLimit,
		PaymasterPostOpGasLimit:       op.PaymasterPostOpGasLimit,
		PaymasterData:                 hex.EncodeToString(op.PaymasterData),
		EntryPoint:   w.EntryPoint.Hex(),
		Hash:         w.Hash.Hex(),
		SubmissionID: w.SubmissionID,
	}
	if op.Factory != nil {
		s := op.Factory.Hex()
		wire.Factory = &s
	}
	if op.Paymaster != nil {
		s := op.Paymaster.Hex()
		wire.Paymaster = &s
	}
	return wire
}

// ToWrappedUserOp reconstructs a WrappedUserOp from its wire form.
func (w UserOpWire) ToWrappedUserOp() (*WrappedUserOp, error) {
	callData, err := hex.DecodeString(w.CallData)
	if err != nil {
		return nil, ErrDecodeFailed
	}
	initCode, err := hex.DecodeString(w.InitCode)
	if err != nil {
		return nil, ErrDecodeFailed
	}
	paymasterAndData, err := hex.DecodeString(w.PaymasterAndData)
	if err != nil {
		return nil, ErrDecodeFailed
	}
	factoryData, err := hex.DecodeString(w.FactoryData)
	if err != nil {
		return nil, ErrDecodeFailed
	}
	paymasterData, err := hex.DecodeString(w.PaymasterData)
	if err != nil {
		return nil, ErrDecodeFailed
	}
	signature, err := hex.DecodeString(w.Signature)
	if err != nil {
		return nil, ErrDecodeFailed
	}
	maxFee, ok := new(big.Int).SetString(w.MaxFeePerGas, 10)
	if !ok {
		maxFee = big.NewInt(0)
	}
	maxPriority, ok := new(big.Int).SetString(w.MaxPriorityFeePerGas, 10)
	if !ok {
		maxPriority = big.NewInt(0)
	}

	op := UserOperation{
		Version:              UserOpVersion(w.Version),
		Sender:               common.HexToAddress(w.Sender),
		Nonce:                w.Nonce,
		CallData:             callData,
		CallGasLimit:         w.CallGasLimit,
		VerificationGasLimit: w.VerificationGasLimit,
		PreVerificationGas:   w.PreVerificationGas,
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: maxPriority,
		Signature:            signature,
		InitCode:             initCode,
		PaymasterAndData:     paymasterAndData,
		FactoryData:          factoryData,
		PaymasterVerificationGasLimit: w.PaymasterVerificationGasLimit,
		PaymasterPostOpGasLimit:       w.PaymasterPostOpGasLimit,
		PaymasterData:                 paymasterData,
	}
	if w.Factory != nil {
		addr := common.HexToAddress(*w.Factory)
		op.Factory = &addr
	}
	if w.Paymaster != nil {
		addr := common.HexToAddress(*w.Paymaster)
		op.Paymaster = &addr
	}

	return &WrappedUserOp{
		Operation:    op,
		Hash:         common.HexToHash(w.Hash),
		EntryPoint:   common.HexToAddress(w.EntryPoint),
		SubmissionID: w.SubmissionID,
	}, nil
}

func bigStringOrZero(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

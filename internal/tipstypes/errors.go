package tipstypes

import "errors"

// Ingress validation errors. Each maps to a JSON-RPC error code in
// internal/ingress/rpcerrors.go.
var (
	ErrUnsupportedTxType           = errors.New("unsupported transaction type")
	ErrDecodeFailed                = errors.New("failed to decode transaction envelope")
	ErrInteropUnsupported          = errors.New("interop transactions are not supported")
	ErrAuthorizationListInvalid    = errors.New("sender has code but transaction carries no authorization list")
	ErrNonceTooLow                 = errors.New("nonce too low")
	ErrInsufficientFunds           = errors.New("insufficient funds for transfer and gas")
	ErrInsufficientFundsForL1Gas   = errors.New("insufficient funds to cover L1 data cost")
	ErrInvalidBundle               = errors.New("invalid bundle")
	ErrDuplicateUserOp              = errors.New("duplicate user operation")
	ErrQueuePublishFailed           = errors.New("exhausted retries publishing to event log")
)

// Simulation failure sub-kinds.
var (
	ErrSimulationRevert           = errors.New("simulation reverted")
	ErrSimulationOutOfGas         = errors.New("simulation ran out of gas")
	ErrSimulationInvalidNonce     = errors.New("simulation invalid nonce")
	ErrSimulationInsufficientBal  = errors.New("simulation insufficient balance")
	ErrSimulationStateAccess      = errors.New("simulation state access error")
	ErrSimulationTimeout          = errors.New("simulation timed out")
)

// ErrArchiveWriteFailed indicates an object-store error after retries.
var ErrArchiveWriteFailed = errors.New("object store write failed")

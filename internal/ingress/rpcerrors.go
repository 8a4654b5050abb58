package ingress

import (
	"errors"

	"github.com/tips-network/tips/internal/tipstypes"
)

// invalidTxError implements go-ethereum/rpc's Error interface
// (ErrorCode() int) so the JSON-RPC layer reports the standard
// invalid-transaction code spec.md's end-to-end scenario 2 expects.
type invalidTxError struct {
	code int
	msg  string
}

func (e *invalidTxError) Error() string  { return e.msg }
func (e *invalidTxError) ErrorCode() int { return e.code }

const invalidTransactionCode = 11

// toRPCError maps a sentinel validation error to a JSON-RPC error.
func toRPCError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, tipstypes.ErrNonceTooLow):
		return &invalidTxError{code: invalidTransactionCode, msg: "nonce too low"}
	case errors.Is(err, tipstypes.ErrInsufficientFunds):
		return &invalidTxError{code: invalidTransactionCode, msg: "insufficient funds for transfer and gas"}
	case errors.Is(err, tipstypes.ErrInsufficientFundsForL1Gas):
		return &invalidTxError{code: invalidTransactionCode, msg: "insufficient funds to cover L1 data cost"}
	case errors.Is(err, tipstypes.ErrUnsupportedTxType):
		return &invalidTxError{code: invalidTransactionCode, msg: "unsupported transaction type"}
	case errors.Is(err, tipstypes.ErrInteropUnsupported):
		return &invalidTxError{code: invalidTransactionCode, msg: "interop transactions are not supported"}
	case errors.Is(err, tipstypes.ErrAuthorizationListInvalid):
		return &invalidTxError{code: invalidTransactionCode, msg: "authorization list invalid for smart account sender"}
	case errors.Is(err, tipstypes.ErrInvalidBundle):
		return &invalidTxError{code: invalidTransactionCode, msg: "invalid bundle"}
	case errors.Is(err, tipstypes.ErrDuplicateUserOp):
		return &invalidTxError{code: invalidTransactionCode, msg: "duplicate user operation"}
	case errors.Is(err, tipstypes.ErrQueuePublishFailed):
		return &invalidTxError{code: invalidTransactionCode, msg: "failed to accept transaction into the pipeline"}
	default:
		return &invalidTxError{code: invalidTransactionCode, msg: err.Error()}
	}
}

package tipstypes

import "github.com/ethereum/go-ethereum/common"

// SimulationRequest is the unit of work the simulation worker pool
// consumes (spec.md §4.I).
type SimulationRequest struct {
	BundleID        BundleId
	Bundle          *Bundle
	ParentBlockHash common.Hash
	BlockNumber     uint64
}

// FailureKind enumerates the SimulationFailed sub-kinds (spec.md §8
// error taxonomy).
type FailureKind string

const (
	FailureRevert              FailureKind = "Revert"
	FailureOutOfGas            FailureKind = "OutOfGas"
	FailureInvalidNonce        FailureKind = "InvalidNonce"
	FailureInsufficientBalance FailureKind = "InsufficientBalance"
	FailureStateAccessError    FailureKind = "StateAccessError"
	FailureTimeout             FailureKind = "Timeout"
	FailureUnknown             FailureKind = "Unknown"
)

// SimulationResult is produced by a worker, consumed once by the
// publisher, and then owned by the datastore (spec.md §3).
type SimulationResult struct {
	ID              string
	BundleID        BundleId
	BlockNumber     uint64
	ParentBlockHash common.Hash
	Success         bool
	GasUsed         uint64
	ExecutionTimeUs int64
	StateDiff       StateDiff
	FailureKind     FailureKind
	ErrorReason     string
	CreatedAt       int64
}

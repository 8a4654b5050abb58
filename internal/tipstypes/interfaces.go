package tipstypes

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// StateView is a read-only snapshot of chain state at a particular block,
// as consumed by the ingress validator's L1-cost step and the
// simulator's EVM execution step.
type StateView interface {
	Balance(addr common.Address) *big.Int
	Nonce(addr common.Address) uint64
	CodeHash(addr common.Address) common.Hash
	Storage(addr common.Address, slot common.Hash) common.Hash
}

// StateProvider resolves a StateView for a given parent block hash.
type StateProvider interface {
	StateByBlockHash(ctx context.Context, hash common.Hash) (StateView, error)
	ParentInfo(ctx context.Context, hash common.Hash) (ParentBlockInfo, error)
}

// ParentBlockInfo is the subset of a parent block's header the simulator
// needs to construct the next block's BlockEnv (spec.md §4.I step 4).
type ParentBlockInfo struct {
	Timestamp   uint64
	GasLimit    uint64
	Beneficiary common.Address
}

// BlockEnv is the "next block" environment the simulator constructs
// before executing a bundle against a StateView (spec.md §4.I step 4).
type BlockEnv struct {
	Timestamp    uint64
	PrevRandao   common.Hash
	GasLimit     uint64
	Beneficiary  common.Address
	BaseFee      *big.Int
}

// ExecutedTx is the per-transaction accounting the EVM engine returns
// for one executed transaction within a bundle.
type ExecutedTx struct {
	GasUsed   uint64
	Reverted  bool
	ErrReason string
}

// StateDiff is the account/slot delta the EVM engine reports after
// executing a set of transactions (spec.md §3 SimulationResult.state_diff).
type StateDiff map[common.Address]map[common.Hash]common.Hash

// EvmEngine is the black-box execution engine the simulator drives; it
// is out of scope for this repository (spec.md §1) and is specified
// only by this interface.
type EvmEngine interface {
	ExecuteNextBlock(ctx context.Context, view StateView, env BlockEnv, txs []*types.Transaction) (StateDiff, []ExecutedTx, error)
}

// BundleRecord is the abstract record BundleDatastore accepts; its SQL
// schema is out of scope (spec.md §1).
type BundleRecord struct {
	ID          BundleId
	Bundle      *Bundle
	BlockNumber uint64
}

// BundleDatastore is the out-of-process collaborator that durably stores
// bundle submissions; no concrete implementation ships in this
// repository (see DESIGN.md).
type BundleDatastore interface {
	InsertBundle(ctx context.Context, rec BundleRecord) error
	GetBundle(ctx context.Context, id BundleId) (*BundleRecord, error)
	CancelBundle(ctx context.Context, id BundleId) error
	SelectBundles(ctx context.Context, filter func(*BundleRecord) bool) ([]*BundleRecord, error)
}

// ResultDatastore durably stores a finished SimulationResult before it is
// fanned out over Kafka (spec.md §4.I step 7, §4's "DB-then-Kafka"
// publish order); internal/simulator's ObjectResultStore implements it
// over an ObjectStore.
type ResultDatastore interface {
	InsertSimulationResult(ctx context.Context, result *SimulationResult) error
}

// ObjectStore is the key/value blob store with conditional PUT and
// strong read-after-write the archiver writes through (spec.md §1
// component B).
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	ETag(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key string, body []byte) error
}

// EventPublisher is the shared fan-out abstraction audit events and
// ingress-accepted entities are published through.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

package tipstypes

import "github.com/ethereum/go-ethereum/common"

// MempoolEvent is the tagged union of audit events. Every variant carries
// the originating bundle id; transaction-level variants also carry the
// full set of affected TransactionIds so downstream indexing needs no
// joins (spec.md §3).
type MempoolEvent interface {
	BundleID() BundleId
	TransactionIDs() []TransactionId
	Kind() string
}

type ReceivedBundle struct {
	Bundle BundleId
	Txs    []TransactionId
}

func (e ReceivedBundle) BundleID() BundleId            { return e.Bundle }
func (e ReceivedBundle) TransactionIDs() []TransactionId { return e.Txs }
func (e ReceivedBundle) Kind() string                  { return "ReceivedBundle" }

type CancelledBundle struct {
	Bundle BundleId
	Txs    []TransactionId
}

func (e CancelledBundle) BundleID() BundleId            { return e.Bundle }
func (e CancelledBundle) TransactionIDs() []TransactionId { return e.Txs }
func (e CancelledBundle) Kind() string                  { return "CancelledBundle" }

type BuilderMined struct {
	Bundle         BundleId
	Txs            []TransactionId
	BlockNumber    uint64
	FlashblockIndex uint64
}

func (e BuilderMined) BundleID() BundleId            { return e.Bundle }
func (e BuilderMined) TransactionIDs() []TransactionId { return e.Txs }
func (e BuilderMined) Kind() string                  { return "BuilderMined" }

type FlashblockInclusion struct {
	Bundle          BundleId
	Txs             []TransactionId
	BlockNumber     uint64
	FlashblockIndex uint64
}

func (e FlashblockInclusion) BundleID() BundleId            { return e.Bundle }
func (e FlashblockInclusion) TransactionIDs() []TransactionId { return e.Txs }
func (e FlashblockInclusion) Kind() string                  { return "FlashblockInclusion" }

type BlockInclusion struct {
	Bundle          BundleId
	Txs             []TransactionId
	BlockHash       common.Hash
	BlockNumber     uint64
	FlashblockIndex uint64
}

func (e BlockInclusion) BundleID() BundleId            { return e.Bundle }
func (e BlockInclusion) TransactionIDs() []TransactionId { return e.Txs }
func (e BlockInclusion) Kind() string                  { return "BlockInclusion" }

// UserOpEventKind distinguishes mempool-engine lifecycle events.
type UserOpEventKind string

const (
	UserOpAddedToMempool UserOpEventKind = "AddedToMempool"
	UserOpDroppedKind    UserOpEventKind = "Dropped"
	UserOpIncludedKind   UserOpEventKind = "Included"
)

// UserOpEvent is the tagged union consumed/produced by the mempool
// engine (spec.md §3).
type UserOpEvent struct {
	Kind        UserOpEventKind
	Hash        common.Hash
	Reason      string // set when Kind == Dropped
	BlockNumber uint64 // set when Kind == Included
	TxHash      common.Hash
}

// MempoolLifecycleEvent is the input tagged union the mempool engine
// consumes off the shared event log (UserOpAdded / UserOpIncluded /
// UserOpDropped), distinct from UserOpEvent (the engine's output).
type MempoolLifecycleKind string

const (
	LifecycleUserOpAdded    MempoolLifecycleKind = "UserOpAdded"
	LifecycleUserOpIncluded MempoolLifecycleKind = "UserOpIncluded"
	LifecycleUserOpDropped  MempoolLifecycleKind = "UserOpDropped"
)

type MempoolLifecycleEvent struct {
	Kind        MempoolLifecycleKind
	Op          *WrappedUserOp // set when Kind == UserOpAdded
	Hash        common.Hash    // set when Kind == UserOpIncluded/UserOpDropped
	BlockNumber uint64         // set when Kind == UserOpIncluded
	TxHash      common.Hash    // set when Kind == UserOpIncluded
	Reason      string         // set when Kind == UserOpDropped
}

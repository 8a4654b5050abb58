package audit

import "github.com/tips-network/tips/internal/tipstypes"

// bundleIndex is the value stored at bundles/{bundle_id}: the hex hash of
// every transaction ever associated with the bundle (spec.md §4.J).
type bundleIndex struct {
	TxHashes []string `json:"txHashes"`
}

// byHashIndex is the value stored at transactions/by_hash/{hex(hash)}
// (spec.md §4.J).
type byHashIndex struct {
	BundleIDs []string `json:"bundleIds"`
	Sender    string   `json:"sender"`
	Nonce     uint64   `json:"nonce"`
}

// canonicalLog is the value stored at
// transactions/canonical/{hex(sender)}/{nonce}: an append-only event log
// (spec.md §4.J).
type canonicalLog struct {
	EventLog []wireEvent `json:"eventLog"`
}

// wireEvent is the JSON rendering of a tipstypes.MempoolEvent tagged
// union, grounded on original_source/crates/audit/src/types.rs's
// serde-tagged enum.
type wireEvent struct {
	Kind            string                   `json:"kind"`
	BundleID        string                   `json:"bundleId"`
	Txs             []tipstypes.TransactionId `json:"txs,omitempty"`
	BlockNumber     uint64                   `json:"blockNumber,omitempty"`
	FlashblockIndex uint64                   `json:"flashblockIndex,omitempty"`
	BlockHash       string                   `json:"blockHash,omitempty"`
}

func toWireEvent(ev tipstypes.MempoolEvent) wireEvent {
	w := wireEvent{Kind: ev.Kind(), BundleID: ev.BundleID().String(), Txs: ev.TransactionIDs()}
	switch e := ev.(type) {
	case tipstypes.BuilderMined:
		w.BlockNumber = e.BlockNumber
		w.FlashblockIndex = e.FlashblockIndex
	case tipstypes.FlashblockInclusion:
		w.BlockNumber = e.BlockNumber
		w.FlashblockIndex = e.FlashblockIndex
	case tipstypes.BlockInclusion:
		w.BlockNumber = e.BlockNumber
		w.FlashblockIndex = e.FlashblockIndex
		w.BlockHash = e.BlockHash.Hex()
	}
	return w
}

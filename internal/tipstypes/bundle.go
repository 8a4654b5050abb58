package tipstypes

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

// BundleId is the replacement uuid assigned on first ingestion; also the
// audit event correlation id.
type BundleId uuid.UUID

func (b BundleId) String() string { return uuid.UUID(b).String() }

// ParseBundleId parses a bundle id's string form.
func ParseBundleId(s string) (BundleId, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return BundleId{}, ErrDecodeFailed
	}
	return BundleId(id), nil
}

// TransactionId identifies a transaction within a bundle for audit
// indexing purposes.
type TransactionId struct {
	Sender common.Address
	Nonce  uint64
	Hash   common.Hash
}

// Bundle is an ordered sequence of transactions submitted as an atomic
// inclusion request.
type Bundle struct {
	ID                 BundleId
	Txs                []*Tx
	BlockNumber        uint64 // 0 means "next"
	MinTimestamp       *uint64
	MaxTimestamp       *uint64
	FlashblockNumberMin *uint64
	FlashblockNumberMax *uint64
	RevertingTxHashes  map[common.Hash]struct{}
	DroppingTxHashes   map[common.Hash]struct{}
}

// Hash computes the order-sensitive bundle fingerprint:
// keccak(concat(tx_bytes_i)).
func (b *Bundle) Hash() common.Hash {
	data := make([]byte, 0)
	for _, tx := range b.Txs {
		data = append(data, tx.Raw()...)
	}
	return crypto.Keccak256Hash(data)
}

// ValidForBlock reports whether the bundle is eligible for inclusion in
// block B at time now, per spec.md §4.G.
func (b *Bundle) ValidForBlock(blockNumber uint64, now uint64) bool {
	if b.BlockNumber != 0 && b.BlockNumber != blockNumber {
		return false
	}
	if b.MinTimestamp != nil && now < *b.MinTimestamp {
		return false
	}
	if b.MaxTimestamp != nil && now > *b.MaxTimestamp {
		return false
	}
	return true
}

// TransactionIds returns the TransactionId for every tx in the bundle.
func (b *Bundle) TransactionIds() []TransactionId {
	ids := make([]TransactionId, 0, len(b.Txs))
	for _, tx := range b.Txs {
		ids = append(ids, TransactionId{Sender: tx.Sender(), Nonce: tx.Nonce(), Hash: tx.Hash()})
	}
	return ids
}

// BundleWire is the event-log wire shape for an accepted bundle: it
// carries the raw signed tx envelopes (not just their hashes) so any
// downstream consumer of the bundle topic (internal/simulator,
// internal/builder) can reconstruct the full Bundle without a round
// trip to the datastore. One shared shape avoids each consumer growing
// its own ad-hoc JSON schema for the same event.
type BundleWire struct {
	ID                string   `json:"id"`
	RawTxs            []string `json:"rawTxs"`
	BlockNumber       uint64   `json:"blockNumber"`
	MinTimestamp      *uint64  `json:"minTimestamp,omitempty"`
	MaxTimestamp      *uint64  `json:"maxTimestamp,omitempty"`
	RevertingTxHashes []string `json:"revertingTxHashes"`
	DroppingTxHashes  []string `json:"droppingTxHashes"`
}

// ToWire renders b as its event-log wire form.
func (b *Bundle) ToWire() BundleWire {
	rawTxs := make([]string, len(b.Txs))
	for i, tx := range b.Txs {
		rawTxs[i] = hex.EncodeToString(tx.Raw())
	}
	return BundleWire{
		ID:                b.ID.String(),
		RawTxs:            rawTxs,
		BlockNumber:       b.BlockNumber,
		MinTimestamp:      b.MinTimestamp,
		MaxTimestamp:      b.MaxTimestamp,
		RevertingTxHashes: hashSetToHex(b.RevertingTxHashes),
		DroppingTxHashes:  hashSetToHex(b.DroppingTxHashes),
	}
}

// ToBundle reconstructs a Bundle from its wire form, decoding each raw
// tx envelope with signer.
func (w BundleWire) ToBundle(signer types.Signer) (*Bundle, error) {
	id, err := uuid.Parse(w.ID)
	if err != nil {
		return nil, ErrDecodeFailed
	}
	txs := make([]*Tx, 0, len(w.RawTxs))
	for _, rawHex := range w.RawTxs {
		raw, err := hex.DecodeString(rawHex)
		if err != nil {
			return nil, ErrDecodeFailed
		}
		tx, err := NewTx(raw, signer)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return &Bundle{
		ID:                BundleId(id),
		Txs:               txs,
		BlockNumber:       w.BlockNumber,
		MinTimestamp:      w.MinTimestamp,
		MaxTimestamp:      w.MaxTimestamp,
		RevertingTxHashes: hexToHashSet(w.RevertingTxHashes),
		DroppingTxHashes:  hexToHashSet(w.DroppingTxHashes),
	}, nil
}

func hashSetToHex(set map[common.Hash]struct{}) []string {
	out := make([]string, 0, len(set))
	for h := range set {
		out = append(out, h.Hex())
	}
	return out
}

func hexToHashSet(hexes []string) map[common.Hash]struct{} {
	if len(hexes) == 0 {
		return nil
	}
	set := make(map[common.Hash]struct{}, len(hexes))
	for _, h := range hexes {
		set[common.HexToHash(h)] = struct{}{}
	}
	return set
}

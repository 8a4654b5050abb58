package tipstypes

import (
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// CrossL2InboxAddr is the predeploy address used for cross-chain message
// delivery. Transactions touching it are rejected as interop traffic.
var CrossL2InboxAddr = common.HexToAddress("0x4200000000000000000000000000000000000022")

// derivedTx caches the attributes of a Tx that are expensive to
// recompute (signer recovery, hashing). It is populated once and never
// mutated afterwards, matching the decode-once-and-cache pattern the
// teacher uses for meta-transaction parameters.
type derivedTx struct {
	sender    common.Address
	hash      common.Hash
	isEIP4844 bool
	isEIP7702 bool
}

// Tx wraps a signed transaction as received at ingress. It is immutable
// once constructed.
type Tx struct {
	raw     []byte
	inner   *types.Transaction
	derived atomic.Pointer[derivedTx]
}

// NewTx decodes a raw EIP-2718 envelope into a Tx. The signer used for
// recovery must match the chain's configured signer.
func NewTx(raw []byte, signer types.Signer) (*Tx, error) {
	inner := new(types.Transaction)
	if err := inner.UnmarshalBinary(raw); err != nil {
		return nil, ErrDecodeFailed
	}
	sender, err := types.Sender(signer, inner)
	if err != nil {
		return nil, ErrDecodeFailed
	}
	tx := &Tx{raw: raw, inner: inner}
	tx.derived.Store(&derivedTx{
		sender:    sender,
		hash:      inner.Hash(),
		isEIP4844: inner.Type() == types.BlobTxType,
		isEIP7702: inner.Type() == types.SetCodeTxType,
	})
	return tx, nil
}

// Raw returns the original signed byte envelope.
func (t *Tx) Raw() []byte { return t.raw }

// Inner returns the decoded go-ethereum transaction.
func (t *Tx) Inner() *types.Transaction { return t.inner }

func (t *Tx) Sender() common.Address { return t.derived.Load().sender }
func (t *Tx) Hash() common.Hash      { return t.derived.Load().hash }
func (t *Tx) Nonce() uint64          { return t.inner.Nonce() }
func (t *Tx) GasLimit() uint64       { return t.inner.Gas() }
func (t *Tx) IsEIP4844() bool        { return t.derived.Load().isEIP4844 }
func (t *Tx) IsEIP7702() bool        { return t.derived.Load().isEIP7702 }
func (t *Tx) AccessList() types.AccessList {
	return t.inner.AccessList()
}

// TouchesAddress reports whether the tx's access list names addr,
// used to reject interop traffic touching the cross-L2 inbox.
func (t *Tx) TouchesAddress(addr common.Address) bool {
	for _, entry := range t.inner.AccessList() {
		if entry.Address == addr {
			return true
		}
	}
	return false
}

// MaxCost returns value + max_fee_per_gas * gas_limit, the balance
// threshold checked at ingress before accounting for L1 data cost.
func (t *Tx) MaxCost() *big.Int {
	cost := new(big.Int).Mul(t.inner.GasFeeCap(), new(big.Int).SetUint64(t.inner.Gas()))
	return cost.Add(cost, t.inner.Value())
}

// keccak is a package-local shorthand for crypto.Keccak256Hash.
func keccak(data ...[]byte) common.Hash {
	return crypto.Keccak256Hash(data...)
}

package ingress

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"

	"github.com/tips-network/tips/internal/tipstypes"
)

// emptyCodeHash is the code hash of an account with no deployed code.
var emptyCodeHash = crypto.Keccak256Hash(nil)

// Validator gates every entity entering the pipeline (spec.md §4.D),
// grounded on original_source/crates/ingress-rpc/src/validation.rs.
type Validator struct {
	chainConfig *params.ChainConfig
	provider    tipstypes.StateProvider
	seenUserOps *userOpDedup
}

// NewValidator constructs a Validator. ttlEntries bounds the optional
// local UserOp dedup cache (spec.md §4.D: "belt-and-braces since
// downstream dedups").
func NewValidator(cfg *params.ChainConfig, provider tipstypes.StateProvider, ttlEntries int) *Validator {
	return &Validator{
		chainConfig: cfg,
		provider:    provider,
		seenUserOps: newUserOpDedup(ttlEntries, 10*time.Minute),
	}
}

// ValidateRawTx runs the six-step rejection algorithm from
// spec.md §4.D against a decoded Tx and returns its hash on success.
func (v *Validator) ValidateRawTx(ctx context.Context, view tipstypes.StateView, tx *tipstypes.Tx, currentTime uint64) (common.Hash, error) {
	defer metricsValidateTxCost(time.Now())

	if tx.IsEIP4844() {
		rejectedTxMeter.Mark(1)
		return common.Hash{}, tipstypes.ErrUnsupportedTxType
	}

	if tx.TouchesAddress(tipstypes.CrossL2InboxAddr) {
		rejectedTxMeter.Mark(1)
		return common.Hash{}, tipstypes.ErrInteropUnsupported
	}

	sender := tx.Sender()
	codeHash := view.CodeHash(sender)
	if codeHash != emptyCodeHash && codeHash != (common.Hash{}) && !tx.IsEIP7702() {
		rejectedTxMeter.Mark(1)
		return common.Hash{}, tipstypes.ErrAuthorizationListInvalid
	}

	stateNonce := view.Nonce(sender)
	if tx.Nonce() < stateNonce {
		rejectedTxMeter.Mark(1)
		return common.Hash{}, tipstypes.ErrNonceTooLow
	}

	maxCost := tx.MaxCost()
	balance := view.Balance(sender)
	if maxCost.Cmp(balance) > 0 {
		rejectedTxMeter.Mark(1)
		return common.Hash{}, tipstypes.ErrInsufficientFunds
	}

	l1Cost := ComputeL1DataCost(tx.Raw(), v.chainConfig, currentTime, view)
	totalCost := new(big.Int).Add(maxCost, l1Cost)
	if totalCost.Cmp(balance) > 0 {
		rejectedTxMeter.Mark(1)
		return common.Hash{}, tipstypes.ErrInsufficientFundsForL1Gas
	}

	return tx.Hash(), nil
}

// ValidateBundle runs ValidateRawTx over every tx and enforces bundle
// invariants (spec.md §4.D bundle algorithm).
func (v *Validator) ValidateBundle(ctx context.Context, view tipstypes.StateView, b *tipstypes.Bundle, currentTime uint64) error {
	defer metricsValidateBundleCost(time.Now())

	txHashes := make(map[common.Hash]struct{}, len(b.Txs))
	for _, tx := range b.Txs {
		if _, err := v.ValidateRawTx(ctx, view, tx, currentTime); err != nil {
			rejectedBundleMeter.Mark(1)
			return err
		}
		txHashes[tx.Hash()] = struct{}{}
	}

	for h := range b.RevertingTxHashes {
		if _, dropping := b.DroppingTxHashes[h]; dropping {
			rejectedBundleMeter.Mark(1)
			return tipstypes.ErrInvalidBundle
		}
		if _, inBundle := txHashes[h]; !inBundle {
			rejectedBundleMeter.Mark(1)
			return tipstypes.ErrInvalidBundle
		}
	}
	for h := range b.DroppingTxHashes {
		if _, inBundle := txHashes[h]; !inBundle {
			rejectedBundleMeter.Mark(1)
			return tipstypes.ErrInvalidBundle
		}
	}

	if b.MinTimestamp != nil && b.MaxTimestamp != nil && *b.MinTimestamp > *b.MaxTimestamp {
		rejectedBundleMeter.Mark(1)
		return tipstypes.ErrInvalidBundle
	}

	return nil
}

// ValidateUserOp computes the canonical hash and rejects recently-seen
// duplicates (spec.md §4.D UserOp algorithm).
func (v *Validator) ValidateUserOp(ctx context.Context, op *tipstypes.UserOperation, entryPoint common.Address, chainID *big.Int) (common.Hash, error) {
	defer metricsValidateUserOpCost(time.Now())

	hash, err := tipstypes.HashUserOp(op, entryPoint, chainID)
	if err != nil {
		rejectedUserOpMeter.Mark(1)
		return common.Hash{}, err
	}

	if v.seenUserOps.seenRecently(hash) {
		rejectedUserOpMeter.Mark(1)
		return common.Hash{}, tipstypes.ErrDuplicateUserOp
	}
	v.seenUserOps.remember(hash)

	log.Trace("validated user operation", "hash", hash, "sender", op.Sender, "nonce", op.Nonce)
	return hash, nil
}

// SignerForChainID returns the appropriate go-ethereum signer used to
// recover a Tx's sender at construction time.
func SignerForChainID(chainID *big.Int) gethtypes.Signer {
	return gethtypes.LatestSignerForChainID(chainID)
}

package builder

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tips-network/tips/internal/orderpool"
	"github.com/tips-network/tips/internal/tipstypes"
)

// Step is the builder pipeline's midpoint UserOp-insertion stage, grounded
// on original_source/crates/builder/src/userops_pipeline.rs's
// maybe_insert_userops_bundle. It is confined to the single builder
// goroutine per spec.md §9's "Builder pool locking inside async" note, so
// the mutex below guards only against accidental concurrent reuse of one
// Step across blocks, not against genuine contention.
type Step struct {
	mu sync.Mutex

	cfg  Config
	pool *orderpool.UserOpPool

	midpointReached bool
	userOpsInserted bool

	bundlerNonce uint64
	lastDrained  []*tipstypes.WrappedUserOp
}

// DrainedOps returns the ops pulled from the pool by the insertion that
// just ran, so the caller can publish UserOpIncluded lifecycle events
// once the bundler tx is confirmed. Empty until Process has fired.
func (s *Step) DrainedOps() []*tipstypes.WrappedUserOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastDrained
}

// NewStep constructs a Step bound to one UserOpPool and one block's
// pipeline run. A fresh Step must be created per block build: the
// midpoint_reached/userops_inserted flags are per-block state.
func NewStep(cfg Config, pool *orderpool.UserOpPool, bundlerNonce uint64) *Step {
	return &Step{cfg: cfg, pool: pool, bundlerNonce: bundlerNonce}
}

// Env is the subset of the in-progress block the midpoint step needs to
// decide whether to fire and how to build its transaction.
type Env struct {
	History     int // |H|, the count of transactions already included
	TotalHint   int // T_total, the expected total transaction count
	BaseFee     *big.Int
	Beneficiary common.Address
}

// Process runs one invocation of the midpoint insertion algorithm
// (spec.md §4.H steps 4.a-4.g) against the pipeline's current history.
// It returns nil, nil when the step has nothing to do this invocation.
func (s *Step) Process(ctx context.Context, env Env) (*types.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.userOpsInserted {
		return nil, nil
	}

	if s.midpointReached {
		return nil, nil
	}

	if env.History < env.TotalHint/2 {
		return nil, nil
	}
	s.midpointReached = true

	pending := s.pool.Drain()
	// Drain returns ops in map order; sort them by (sender, nonce,
	// entry point) so the same pool contents give the same call data.
	sort.Slice(pending, func(i, j int) bool {
		a, b := pending[i].Key(), pending[j].Key()
		if c := bytes.Compare(a.Sender[:], b.Sender[:]); c != 0 {
			return c < 0
		}
		if a.Nonce != b.Nonce {
			return a.Nonce < b.Nonce
		}
		return bytes.Compare(a.EntryPoint[:], b.EntryPoint[:]) < 0
	})
	s.lastDrained = pending
	if len(pending) == 0 {
		log.Debug("builder: midpoint reached, no pending UserOps", "history", env.History, "totalHint", env.TotalHint)
		return nil, nil
	}

	entryPoint, beneficiary := pending[0].EntryPoint, env.Beneficiary
	callData, err := encodeHandleOps(pending, beneficiary)
	if err != nil {
		return nil, fmt.Errorf("builder: encode handleOps: %w", err)
	}

	tx, err := s.signBundlerTx(entryPoint, callData, env.BaseFee)
	if err != nil {
		return nil, fmt.Errorf("builder: sign bundler tx: %w", err)
	}

	s.userOpsInserted = true
	midpointInsertionsMeter.Mark(1)
	log.Info("builder: inserted UserOps bundle at midpoint", "numOps", len(pending), "entryPoint", entryPoint, "txHash", tx.Hash())
	return tx, nil
}

// signBundlerTx builds and signs the EIP-1559 transaction carrying the
// handleOps call, per spec.md §4.H step e/f: fixed 5M gas limit, fee cap
// at 2x base fee, 1_000_000 wei priority tip, next bundler nonce.
func (s *Step) signBundlerTx(entryPoint common.Address, callData []byte, baseFee *big.Int) (*types.Transaction, error) {
	nonce := s.bundlerNonce
	s.bundlerNonce++

	maxFeePerGas := new(big.Int).Mul(baseFee, big.NewInt(2))
	maxPriorityFeePerGas := big.NewInt(1_000_000)

	txData := &types.DynamicFeeTx{
		ChainID:   s.cfg.ChainID,
		Nonce:     nonce,
		GasTipCap: maxPriorityFeePerGas,
		GasFeeCap: maxFeePerGas,
		Gas:       5_000_000,
		To:        &entryPoint,
		Value:     big.NewInt(0),
		Data:      callData,
	}

	signer := types.LatestSignerForChainID(s.cfg.ChainID)
	return types.SignNewTx(s.cfg.BundlerPrivateKey, signer, txData)
}

// BundlerAddress returns the address corresponding to the configured
// bundler key, used by callers to set the block's coinbase/beneficiary
// bookkeeping consistently with the signing key.
func BundlerAddress(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

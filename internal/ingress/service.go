package ingress

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	"github.com/google/uuid"

	"github.com/tips-network/tips/internal/tipstypes"
)

// Service implements the JSON-RPC 2.0 surface of spec.md §6, served
// under the "eth" namespace via github.com/ethereum/go-ethereum/rpc.
type Service struct {
	cfg         Config
	chainConfig *params.ChainConfig
	chainID     *big.Int
	validator   *Validator
	bundlePub   *Publisher
	userOpPub   *Publisher
	auditPub    tipstypes.EventPublisher
	provider    tipstypes.StateProvider

	mu      sync.Mutex
	bundles map[uuid.UUID]*tipstypes.Bundle // replacement_uuid -> last accepted bundle, for cancel
}

// NewService wires a Service from its collaborators. auditPub may be nil
// in deployments that do not need eth_cancelBundle to emit an audit
// event (e.g. tests).
func NewService(cfg Config, chainConfig *params.ChainConfig, chainID *big.Int, provider tipstypes.StateProvider, bundlePub, userOpPub *Publisher, auditPub tipstypes.EventPublisher) *Service {
	return &Service{
		cfg:         cfg,
		chainConfig: chainConfig,
		chainID:     chainID,
		validator:   NewValidator(chainConfig, provider, cfg.UserOpDedupTTLEntries),
		bundlePub:   bundlePub,
		userOpPub:   userOpPub,
		auditPub:    auditPub,
		provider:    provider,
		bundles:     make(map[uuid.UUID]*tipstypes.Bundle),
	}
}

// SendRawTransaction implements eth_sendRawTransaction: decode, recover,
// validate, wrap as a singleton bundle, publish. Grounded on
// original_source/crates/ingress-rpc/src/service.rs's fully-implemented
// send_raw_transaction (spec.md §4.D/§4.E, SPEC_FULL.md §8).
func (s *Service) SendRawTransaction(ctx context.Context, raw hexutil.Bytes) (common.Hash, error) {
	tx, err := tipstypes.NewTx(raw, SignerForChainID(s.chainID))
	if err != nil {
		return common.Hash{}, toRPCError(err)
	}

	view, err := s.provider.StateByBlockHash(ctx, common.Hash{})
	if err != nil {
		return common.Hash{}, toRPCError(err)
	}

	hash, err := s.validator.ValidateRawTx(ctx, view, tx, currentUnixTime())
	if err != nil {
		return common.Hash{}, toRPCError(err)
	}

	bundle := &tipstypes.Bundle{
		ID:                tipstypes.BundleId(uuid.New()),
		Txs:               []*tipstypes.Tx{tx},
		BlockNumber:       0,
		RevertingTxHashes: map[common.Hash]struct{}{hash: {}},
		DroppingTxHashes:  map[common.Hash]struct{}{},
	}

	s.bundlePub.DualWrite(ctx, raw)

	if err := s.publishBundle(ctx, bundle); err != nil {
		return common.Hash{}, toRPCError(err)
	}

	log.Info("accepted raw transaction", "hash", hash, "sender", tx.Sender())
	return hash, nil
}

// SendBundle implements eth_sendBundle: validate every tx, assign or
// reuse the replacement uuid, publish. The Rust original stubs this
// with todo!(); SPEC_FULL.md §8 requires the full implementation.
func (s *Service) SendBundle(ctx context.Context, req BundleRequest) (common.Hash, error) {
	bundle, err := req.toBundle(SignerForChainID(s.chainID))
	if err != nil {
		return common.Hash{}, toRPCError(err)
	}

	view, err := s.provider.StateByBlockHash(ctx, common.Hash{})
	if err != nil {
		return common.Hash{}, toRPCError(err)
	}

	if err := s.validator.ValidateBundle(ctx, view, bundle, currentUnixTime()); err != nil {
		return common.Hash{}, toRPCError(err)
	}

	if err := s.publishBundle(ctx, bundle); err != nil {
		return common.Hash{}, toRPCError(err)
	}

	return bundle.Hash(), nil
}

// CancelBundle implements eth_cancelBundle: publishes a CancelledBundle
// audit event for the given replacement uuid and drops it from the
// locally tracked replacement map. Full implementation, supplementing
// the Rust original's todo!() stub (SPEC_FULL.md §8).
func (s *Service) CancelBundle(ctx context.Context, req CancelBundleRequest) error {
	id, err := uuid.Parse(req.ReplacementUUID)
	if err != nil {
		return toRPCError(tipstypes.ErrInvalidBundle)
	}

	s.mu.Lock()
	bundle, ok := s.bundles[id]
	delete(s.bundles, id)
	s.mu.Unlock()

	if !ok {
		return nil
	}

	if s.auditPub == nil {
		return nil
	}
	payload, err := json.Marshal(cancelledBundleWire{
		Kind:     "CancelledBundle",
		BundleID: bundle.ID.String(),
		Txs:      bundle.TransactionIds(),
	})
	if err != nil {
		return toRPCError(err)
	}
	if err := s.auditPub.Publish(ctx, s.cfg.AuditTopic, bundle.ID.String(), payload); err != nil {
		log.Warn("failed to publish CancelledBundle audit event", "bundle", bundle.ID, "err", err)
	}
	return nil
}

// cancelledBundleWire matches internal/audit's wireEvent JSON shape so
// the archiver can decode it without a package-private import.
type cancelledBundleWire struct {
	Kind     string                    `json:"kind"`
	BundleID string                    `json:"bundleId"`
	Txs      []tipstypes.TransactionId `json:"txs"`
}

// SendUserOperation implements eth_sendUserOperation.
func (s *Service) SendUserOperation(ctx context.Context, op UserOpRequest, entryPoint common.Address) (common.Hash, error) {
	uo := op.toUserOperation()
	hash, err := s.validator.ValidateUserOp(ctx, uo, entryPoint, s.chainID)
	if err != nil {
		return common.Hash{}, toRPCError(err)
	}
	if err := s.userOpPub.PublishUserOp(ctx, uo, entryPoint, hash); err != nil {
		return common.Hash{}, toRPCError(err)
	}
	return hash, nil
}

// SendBackrunBundle implements eth_sendBackrunBundle; it shares the
// same validate-then-publish path as SendBundle (the ordering relative
// to the target bundle is a builder-side concern, out of scope here).
func (s *Service) SendBackrunBundle(ctx context.Context, req BundleRequest) (common.Hash, error) {
	return s.SendBundle(ctx, req)
}

func (s *Service) publishBundle(ctx context.Context, bundle *tipstypes.Bundle) error {
	if err := s.bundlePub.PublishBundle(ctx, bundle); err != nil {
		return err
	}
	s.mu.Lock()
	s.bundles[uuid.UUID(bundle.ID)] = bundle
	s.mu.Unlock()
	return nil
}

// BundleRequest is the wire shape of eth_sendBundle's parameter.
type BundleRequest struct {
	Txs                 []hexutil.Bytes `json:"txs"`
	BlockNumber         uint64          `json:"blockNumber"`
	MinTimestamp        *uint64         `json:"minTimestamp"`
	MaxTimestamp        *uint64         `json:"maxTimestamp"`
	RevertingTxHashes   []common.Hash   `json:"revertingTxHashes"`
	DroppingTxHashes    []common.Hash   `json:"droppingTxHashes"`
	ReplacementUUID     string          `json:"replacementUuid"`
}

func (r BundleRequest) toBundle(signer gethtypes.Signer) (*tipstypes.Bundle, error) {
	txs := make([]*tipstypes.Tx, 0, len(r.Txs))
	for _, raw := range r.Txs {
		tx, err := tipstypes.NewTx(raw, signer)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	id := tipstypes.BundleId(uuid.New())
	if r.ReplacementUUID != "" {
		if parsed, err := uuid.Parse(r.ReplacementUUID); err == nil {
			id = tipstypes.BundleId(parsed)
		}
	}

	reverting := make(map[common.Hash]struct{}, len(r.RevertingTxHashes))
	for _, h := range r.RevertingTxHashes {
		reverting[h] = struct{}{}
	}
	dropping := make(map[common.Hash]struct{}, len(r.DroppingTxHashes))
	for _, h := range r.DroppingTxHashes {
		dropping[h] = struct{}{}
	}

	return &tipstypes.Bundle{
		ID:                id,
		Txs:               txs,
		BlockNumber:       r.BlockNumber,
		MinTimestamp:      r.MinTimestamp,
		MaxTimestamp:      r.MaxTimestamp,
		RevertingTxHashes: reverting,
		DroppingTxHashes:  dropping,
	}, nil
}

// CancelBundleRequest is the wire shape of eth_cancelBundle's parameter.
type CancelBundleRequest struct {
	ReplacementUUID string `json:"replacementUuid"`
}

// UserOpRequest is the wire shape of a V06/V07 UserOperation parameter.
type UserOpRequest struct {
	Version              string         `json:"version"`
	Sender               common.Address `json:"sender"`
	Nonce                hexutil.Uint64 `json:"nonce"`
	CallData             hexutil.Bytes  `json:"callData"`
	CallGasLimit         hexutil.Uint64 `json:"callGasLimit"`
	VerificationGasLimit hexutil.Uint64 `json:"verificationGasLimit"`
	PreVerificationGas   hexutil.Uint64 `json:"preVerificationGas"`
	MaxFeePerGas         *hexutil.Big   `json:"maxFeePerGas"`
	MaxPriorityFeePerGas *hexutil.Big   `json:"maxPriorityFeePerGas"`
	Signature            hexutil.Bytes  `json:"signature"`

	InitCode         hexutil.Bytes `json:"initCode"`
	PaymasterAndData hexutil.Bytes `json:"paymasterAndData"`

	Factory                       *common.Address `json:"factory"`
	FactoryData                   hexutil.Bytes   `json:"factoryData"`
	Paymaster                     *common.Address `json:"paymaster"`
	PaymasterVerificationGasLimit hexutil.Uint64  `json:"paymasterVerificationGasLimit"`
	PaymasterPostOpGasLimit       hexutil.Uint64  `json:"paymasterPostOpGasLimit"`
	PaymasterData                 hexutil.Bytes   `json:"paymasterData"`
}

func (r UserOpRequest) toUserOperation() *tipstypes.UserOperation {
	version := tipstypes.UserOpV06
	if r.Version == string(tipstypes.UserOpV07) {
		version = tipstypes.UserOpV07
	}
	return &tipstypes.UserOperation{
		Version:                       version,
		Sender:                        r.Sender,
		Nonce:                         uint64(r.Nonce),
		CallData:                      r.CallData,
		CallGasLimit:                  uint64(r.CallGasLimit),
		VerificationGasLimit:          uint64(r.VerificationGasLimit),
		PreVerificationGas:            uint64(r.PreVerificationGas),
		MaxFeePerGas:                  (*big.Int)(r.MaxFeePerGas),
		MaxPriorityFeePerGas:          (*big.Int)(r.MaxPriorityFeePerGas),
		Signature:                     r.Signature,
		InitCode:                      r.InitCode,
		PaymasterAndData:              r.PaymasterAndData,
		Factory:                       r.Factory,
		FactoryData:                   r.FactoryData,
		Paymaster:                     r.Paymaster,
		PaymasterVerificationGasLimit: uint64(r.PaymasterVerificationGasLimit),
		PaymasterPostOpGasLimit:       uint64(r.PaymasterPostOpGasLimit),
		PaymasterData:                 r.PaymasterData,
	}
}

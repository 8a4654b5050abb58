package builder

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/tips-network/tips/internal/orderpool"
	"github.com/tips-network/tips/internal/tipstypes"
)

// BundleIngest tails the ingress bundle topic and the audit topic,
// keeping a BundlePool in sync with ReceivedBundle/CancelledBundle
// events, grounded on internal/audit/archiver.go's fetch-decode-dispatch
// loop shape.
type BundleIngest struct {
	bundleReader *kafka.Reader
	auditReader  *kafka.Reader
	pool         *orderpool.BundlePool
	signer       types.Signer
}

// NewBundleIngest constructs a BundleIngest feeding pool.
func NewBundleIngest(cfg Config, pool *orderpool.BundlePool) *BundleIngest {
	return &BundleIngest{
		bundleReader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.BundleTopic,
			GroupID: cfg.GroupID,
		}),
		auditReader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.AuditTopic,
			GroupID: cfg.GroupID,
		}),
		pool:   pool,
		signer: types.LatestSignerForChainID(cfg.ChainID),
	}
}

// RunBundles consumes the bundle topic until ctx is cancelled, adding
// each decoded bundle to the pool. A malformed record is logged and
// skipped, never terminating the loop (spec.md §4.F's failure-semantics
// idiom applied uniformly across this package's consumer loops).
func (b *BundleIngest) RunBundles(ctx context.Context) error {
	for {
		msg, err := b.bundleReader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("builder bundle ingest failed to fetch message", "err", err)
			continue
		}

		var wire tipstypes.BundleWire
		if err := json.Unmarshal(msg.Value, &wire); err != nil {
			log.Error("builder bundle ingest dropping undecodable bundle", "err", err)
			_ = b.bundleReader.CommitMessages(ctx, msg)
			continue
		}
		bundle, err := wire.ToBundle(b.signer)
		if err != nil {
			log.Error("builder bundle ingest failed to reconstruct bundle", "err", err)
			_ = b.bundleReader.CommitMessages(ctx, msg)
			continue
		}

		b.pool.Add(bundle)
		if err := b.bundleReader.CommitMessages(ctx, msg); err != nil {
			log.Error("builder bundle ingest failed to commit offset", "err", err)
		}
	}
}

// RunAuditEvents consumes the audit topic, removing cancelled bundles
// from the pool (spec.md §3: CancelledBundle ends a bundle's lifecycle).
func (b *BundleIngest) RunAuditEvents(ctx context.Context) error {
	for {
		msg, err := b.auditReader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("builder audit ingest failed to fetch message", "err", err)
			continue
		}

		var wire struct {
			Kind     string `json:"kind"`
			BundleID string `json:"bundleId"`
		}
		if err := json.Unmarshal(msg.Value, &wire); err == nil && wire.Kind == "CancelledBundle" {
			if id, err := uuid.Parse(wire.BundleID); err == nil {
				b.pool.Remove(id)
			}
		}
		if err := b.auditReader.CommitMessages(ctx, msg); err != nil {
			log.Error("builder audit ingest failed to commit offset", "err", err)
		}
	}
}

// UserOpIngest tails the UserOp lifecycle topic, keeping a UserOpPool in
// sync with UserOpAdded events (UserOpIncluded/Dropped are the builder's
// own downstream signal once a drained op's fate is known, not something
// it needs to consume).
type UserOpIngest struct {
	reader *kafka.Reader
	pool   *orderpool.UserOpPool
}

// NewUserOpIngest constructs a UserOpIngest feeding pool.
func NewUserOpIngest(cfg Config, pool *orderpool.UserOpPool) *UserOpIngest {
	return &UserOpIngest{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.UserOpTopic,
			GroupID: cfg.GroupID,
		}),
		pool: pool,
	}
}

// Run consumes the UserOp lifecycle topic until ctx is cancelled.
func (u *UserOpIngest) Run(ctx context.Context) error {
	for {
		msg, err := u.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("builder userop ingest failed to fetch message", "err", err)
			continue
		}

		var wire tipstypes.MempoolLifecycleWire
		if err := json.Unmarshal(msg.Value, &wire); err != nil {
			log.Error("builder userop ingest dropping undecodable record", "err", err)
			_ = u.reader.CommitMessages(ctx, msg)
			continue
		}

		if wire.Kind == tipstypes.LifecycleUserOpAdded && wire.Op != nil {
			op, err := wire.Op.ToWrappedUserOp()
			if err != nil {
				log.Error("builder userop ingest failed to reconstruct op", "err", err)
			} else {
				u.pool.Add(op)
			}
		}

		if err := u.reader.CommitMessages(ctx, msg); err != nil {
			log.Error("builder userop ingest failed to commit offset", "err", err)
		}
	}
}

package ingress

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/segmentio/kafka-go"

	"github.com/tips-network/tips/internal/tipstypes"
)

// Publisher wraps an accepted entity in a keyed record and publishes it
// to the event log with bounded-retry backoff, grounded on
// original_source/crates/ingress-rpc/src/queue.rs's KafkaPublisher.
type Publisher struct {
	writer        *kafka.Writer
	mempoolRPCURL string
	dualWrite     bool
}

// NewPublisher constructs a Publisher bound to brokers/topic.
func NewPublisher(brokers []string, topic string, dualWrite bool, mempoolRPCURL string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		},
		mempoolRPCURL: mempoolRPCURL,
		dualWrite:     dualWrite,
	}
}

// retryBackoff builds the 100ms->5s, 3-attempt policy from spec.md §4.E,
// the Go analogue of the original's backon::ExponentialBuilder.
func retryBackoff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 100 * time.Millisecond
	eb.MaxInterval = 5 * time.Second
	eb.Multiplier = 2
	return backoff.WithMaxRetries(eb, 2) // 3 total attempts
}

// PublishBundle publishes an accepted bundle keyed by its content hash.
func (p *Publisher) PublishBundle(ctx context.Context, b *tipstypes.Bundle) error {
	payload, err := json.Marshal(b.ToWire())
	if err != nil {
		return err
	}
	key := hex.EncodeToString(b.Hash().Bytes())
	return p.publish(ctx, key, payload)
}

// PublishUserOp publishes a validated UserOp as a UserOpAdded lifecycle
// record, keyed by its hash, in the full tipstypes.UserOpWire form so
// the mempool engine can reconstruct the WrappedUserOp without a round
// trip to the datastore (mirrors Bundle.ToWire's rationale; spec.md
// §4.F "UserOpAdded -> add").
func (p *Publisher) PublishUserOp(ctx context.Context, op *tipstypes.UserOperation, entryPoint common.Address, hash common.Hash) error {
	wrapped := &tipstypes.WrappedUserOp{Operation: *op, Hash: hash, EntryPoint: entryPoint}
	ev := tipstypes.MempoolLifecycleEvent{Kind: tipstypes.LifecycleUserOpAdded, Op: wrapped}
	payload, err := json.Marshal(ev.ToWire())
	if err != nil {
		return err
	}
	return p.publish(ctx, hex.EncodeToString(hash.Bytes()), payload)
}

func (p *Publisher) publish(ctx context.Context, key string, payload []byte) error {
	attempt := 0
	op := func() error {
		attempt++
		err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload})
		if err != nil && attempt > 1 {
			publishRetryMeter.Mark(1)
		}
		return err
	}
	if err := backoff.Retry(op, retryBackoff()); err != nil {
		publishFailureMeter.Mark(1)
		log.Error("exhausted publish retries", "key", key, "attempts", attempt, "err", err)
		return tipstypes.ErrQueuePublishFailed
	}
	return nil
}

// DualWrite forwards a raw transaction to an external mempool RPC
// concurrently with the log publish; failure is logged but never fails
// the client call (spec.md §4.E).
func (p *Publisher) DualWrite(ctx context.Context, raw []byte) {
	if !p.dualWrite || p.mempoolRPCURL == "" {
		return
	}
	go func() {
		if err := forwardRawTx(ctx, p.mempoolRPCURL, raw); err != nil {
			dualWriteFailureMeter.Mark(1)
			log.Warn("dual-write to mempool RPC failed", "url", p.mempoolRPCURL, "err", err)
		}
	}()
}

package mempool

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/log"
	"github.com/segmentio/kafka-go"

	"github.com/tips-network/tips/internal/tipstypes"
)

// KafkaSource implements Source by tailing the shared UserOp lifecycle
// topic, manually committing each offset only after handleEvent has run
// (Next commits the message it returned last time when Engine.Run asks
// for the following one), grounded on internal/audit's archiver.Run
// fetch/commit idiom.
type KafkaSource struct {
	reader *kafka.Reader
	last   kafka.Message
}

// NewKafkaSource constructs a KafkaSource consuming cfg.Topic as the
// shared event log.
func NewKafkaSource(cfg Config) *KafkaSource {
	return &KafkaSource{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.Topic,
			GroupID: cfg.GroupID,
		}),
	}
}

// Next blocks until the next lifecycle event is available, decodes it,
// and commits the previously returned message's offset (at-least-once:
// a crash between decode and the next call redelivers the event).
func (s *KafkaSource) Next(ctx context.Context) (tipstypes.MempoolLifecycleEvent, error) {
	if s.last.Topic != "" {
		if err := s.reader.CommitMessages(ctx, s.last); err != nil {
			log.Error("mempool source failed to commit offset", "err", err)
		}
		s.last = kafka.Message{}
	}

	msg, err := s.reader.FetchMessage(ctx)
	if err != nil {
		return tipstypes.MempoolLifecycleEvent{}, err
	}

	var wire tipstypes.MempoolLifecycleWire
	if err := json.Unmarshal(msg.Value, &wire); err != nil {
		if commitErr := s.reader.CommitMessages(ctx, msg); commitErr != nil {
			log.Error("mempool source failed to commit undecodable message", "err", commitErr)
		}
		return tipstypes.MempoolLifecycleEvent{}, err
	}

	ev, err := wire.ToEvent()
	if err != nil {
		if commitErr := s.reader.CommitMessages(ctx, msg); commitErr != nil {
			log.Error("mempool source failed to commit undecodable message", "err", commitErr)
		}
		return tipstypes.MempoolLifecycleEvent{}, err
	}

	s.last = msg
	return ev, nil
}

// KafkaSink implements Sink by forwarding each UserOpEvent to the audit
// topic, keyed by the op hash, through the shared EventPublisher
// abstraction (spec.md §4.F "emit the audit event").
type KafkaSink struct {
	pub   tipstypes.EventPublisher
	topic string
}

// NewKafkaSink constructs a KafkaSink publishing to topic via pub.
func NewKafkaSink(pub tipstypes.EventPublisher, topic string) *KafkaSink {
	return &KafkaSink{pub: pub, topic: topic}
}

// Emit publishes ev, logging (not failing) on error: per spec.md §4.F
// the engine's event loop must never terminate on a downstream publish
// failure.
func (k *KafkaSink) Emit(ctx context.Context, ev tipstypes.UserOpEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error("mempool sink failed to marshal event", "kind", ev.Kind, "err", err)
		return
	}
	if err := k.pub.Publish(ctx, k.topic, ev.Hash.Hex(), payload); err != nil {
		log.Error("mempool sink failed to publish audit event", "kind", ev.Kind, "hash", ev.Hash, "err", err)
	}
}

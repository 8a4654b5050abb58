package simulator

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/log"
	"github.com/segmentio/kafka-go"

	"github.com/tips-network/tips/internal/tipstypes"
)

// ResultPublisher implements ResultSink: it durably stores a
// SimulationResult in the datastore first, then fans it out over Kafka,
// grounded on original_source/crates/simulator/src/publisher.rs's
// publish_result (DB write is the durability boundary; the Kafka publish
// is best-effort notification and its failure must not roll back the
// DB write).
type ResultPublisher struct {
	store  tipstypes.ResultDatastore
	writer *kafka.Writer
}

// NewResultPublisher constructs a ResultPublisher writing results to
// store and fanning them out to cfg.ResultTopic.
func NewResultPublisher(cfg Config, store tipstypes.ResultDatastore) *ResultPublisher {
	return &ResultPublisher{
		store: store,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.KafkaBrokers...),
			Topic:        cfg.ResultTopic,
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}
}

// Publish inserts result into the datastore, then attempts to publish it
// to Kafka. A Kafka failure is logged and swallowed: the datastore write
// already succeeded and is the system of record (spec.md §4.I step 7 /
// §4.K's fan-out contract).
func (p *ResultPublisher) Publish(ctx context.Context, result *tipstypes.SimulationResult) {
	if err := p.store.InsertSimulationResult(ctx, result); err != nil {
		log.Error("simulator publisher failed to persist result", "bundleID", result.BundleID, "err", err)
		return
	}

	payload, err := json.Marshal(result)
	if err != nil {
		log.Error("simulator publisher failed to marshal result", "bundleID", result.BundleID, "err", err)
		return
	}

	key := result.BundleID.String()
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload}); err != nil {
		log.Warn("simulator publisher failed to publish result to kafka", "bundleID", result.BundleID, "err", err)
	}
}

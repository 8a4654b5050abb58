package simulator

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/segmentio/kafka-go"

	"github.com/tips-network/tips/internal/tipstypes"
)

// ChainTip supplies the current chain head the listener needs to turn a
// received bundle into a SimulationRequest and to drive the pool's
// stale-block gate, grounded on
// original_source/crates/simulator/src/listeners/mempool.rs's ExEx
// notification handling.
type ChainTip interface {
	HeadHashAndNumber() (hash common.Hash, number uint64)
}

// Listener consumes the bundle topic and turns each accepted bundle into
// a SimulationRequest enqueued on pool, grounded on
// original_source/crates/simulator/src/listeners/mempool.rs.
type Listener struct {
	reader *kafka.Reader
	signer types.Signer
	pool   *Pool
	tip    ChainTip
}

// NewListener constructs a Listener consuming cfg.RequestTopic.
func NewListener(cfg Config, signer types.Signer, pool *Pool, tip ChainTip) *Listener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.RequestTopic,
		GroupID: cfg.GroupID,
	})
	return &Listener{reader: reader, signer: signer, pool: pool, tip: tip}
}

// Run consumes messages until ctx is cancelled, decoding each into a
// SimulationRequest and handing it to the pool with a blocking Enqueue.
func (l *Listener) Run(ctx context.Context) error {
	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("simulator listener failed to fetch message", "err", err)
			continue
		}

		req, err := l.decode(msg.Value)
		if err != nil {
			log.Warn("simulator listener dropping undecodable message", "err", err)
			if commitErr := l.reader.CommitMessages(ctx, msg); commitErr != nil {
				log.Error("simulator listener failed to commit undecodable message", "err", commitErr)
			}
			continue
		}

		if err := l.pool.Enqueue(ctx, req); err != nil {
			return err
		}
		if err := l.reader.CommitMessages(ctx, msg); err != nil {
			log.Error("simulator listener failed to commit message", "err", err)
		}
	}
}

func (l *Listener) decode(value []byte) (tipstypes.SimulationRequest, error) {
	var wire tipstypes.BundleWire
	if err := json.Unmarshal(value, &wire); err != nil {
		return tipstypes.SimulationRequest{}, err
	}
	bundle, err := wire.ToBundle(l.signer)
	if err != nil {
		return tipstypes.SimulationRequest{}, err
	}
	headHash, headNumber := l.tip.HeadHashAndNumber()
	return tipstypes.SimulationRequest{
		BundleID:        bundle.ID,
		Bundle:          bundle,
		ParentBlockHash: headHash,
		BlockNumber:     headNumber + 1,
	}, nil
}

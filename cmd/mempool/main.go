// Command mempool runs the UserOp mempool engine of spec.md §4.F: it
// tails the shared UserOp lifecycle topic and maintains the
// fee-priority/nonce dual-indexed pool, forwarding lifecycle
// transitions to the audit topic.
package main

import (
	"context"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/tips-network/tips/internal/audit"
	"github.com/tips-network/tips/internal/mempool"
)

var (
	kafkaBrokersFlag = &cli.StringSliceFlag{
		Name:     "kafka-brokers",
		Required: true,
	}
	topicFlag = &cli.StringFlag{
		Name:  "topic",
		Value: mempool.DefaultConfig.Topic,
	}
	auditTopicFlag = &cli.StringFlag{
		Name:  "audit-topic",
		Value: mempool.DefaultConfig.AuditTopic,
	}
	groupIDFlag = &cli.StringFlag{
		Name:  "group-id",
		Value: mempool.DefaultConfig.GroupID,
	}
	minMaxFeeFlag = &cli.Int64Flag{
		Name:  "min-max-fee-per-gas",
		Value: 0,
	}
	replacementIncreaseFlag = &cli.Uint64Flag{
		Name:  "replacement-increase-percent",
		Value: mempool.DefaultConfig.ReplacementIncreasePercent,
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
	}
)

func main() {
	app := &cli.App{
		Name:   "mempool",
		Usage:  "tips UserOp mempool engine",
		Flags:  []cli.Flag{kafkaBrokersFlag, topicFlag, auditTopicFlag, groupIDFlag, minMaxFeeFlag, replacementIncreaseFlag, verbosityFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Crit("mempool exited with error", "err", err)
	}
}

func run(c *cli.Context) error {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(c.Int(verbosityFlag.Name)), true)))

	cfg := mempool.DefaultConfig
	cfg.KafkaBrokers = c.StringSlice(kafkaBrokersFlag.Name)
	cfg.Topic = c.String(topicFlag.Name)
	cfg.AuditTopic = c.String(auditTopicFlag.Name)
	cfg.GroupID = c.String(groupIDFlag.Name)
	cfg.MinMaxFeePerGas = big.NewInt(c.Int64(minMaxFeeFlag.Name))
	cfg.ReplacementIncreasePercent = c.Uint64(replacementIncreaseFlag.Name)
	log.Info("starting mempool engine", "config", cfg.String())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool := mempool.NewPool(cfg)
	source := mempool.NewKafkaSource(cfg)
	auditPub := audit.NewKafkaEventPublisher(cfg.KafkaBrokers)
	sink := mempool.NewKafkaSink(auditPub, cfg.AuditTopic)
	engine := mempool.NewEngine(pool, source, sink)

	return engine.Run(ctx)
}

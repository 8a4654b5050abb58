// Command archiver runs the at-least-once audit archiver of spec.md
// §4.J: it consumes the audit event topic and maintains the three
// idempotent S3 indexes (bundle, by-hash, canonical-per-sender-nonce).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/tips-network/tips/internal/audit"
)

var (
	kafkaBrokersFlag = &cli.StringSliceFlag{Name: "kafka-brokers", Required: true}
	topicFlag        = &cli.StringFlag{Name: "topic", Value: audit.DefaultConfig.Topic}
	groupIDFlag      = &cli.StringFlag{Name: "group-id", Value: audit.DefaultConfig.GroupID}
	s3BucketFlag     = &cli.StringFlag{Name: "s3-bucket", Required: true}
	s3PrefixFlag     = &cli.StringFlag{Name: "s3-prefix", Value: ""}
	verbosityFlag    = &cli.IntFlag{Name: "verbosity", Value: 3}
)

func main() {
	app := &cli.App{
		Name:   "archiver",
		Usage:  "tips at-least-once audit archiver",
		Flags:  []cli.Flag{kafkaBrokersFlag, topicFlag, groupIDFlag, s3BucketFlag, s3PrefixFlag, verbosityFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Crit("archiver exited with error", "err", err)
	}
}

func run(c *cli.Context) error {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(c.Int(verbosityFlag.Name)), true)))

	cfg := audit.DefaultConfig
	cfg.KafkaBrokers = c.StringSlice(kafkaBrokersFlag.Name)
	cfg.Topic = c.String(topicFlag.Name)
	cfg.GroupID = c.String(groupIDFlag.Name)
	cfg.S3Bucket = c.String(s3BucketFlag.Name)
	cfg.S3Prefix = c.String(s3PrefixFlag.Name)
	log.Info("starting archiver", "config", cfg.String())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := audit.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Prefix)
	if err != nil {
		return err
	}

	archiver := audit.NewArchiver(cfg, store)
	return archiver.Run(ctx)
}

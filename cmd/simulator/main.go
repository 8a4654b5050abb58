// Command simulator runs the bounded MPMC bundle-simulation worker pool
// of spec.md §4.I: it tails the bundle topic, executes each bundle
// against a black-box EVM engine, and publishes DB-then-Kafka results.
package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/tips-network/tips/internal/audit"
	"github.com/tips-network/tips/internal/chainrpc"
	"github.com/tips-network/tips/internal/simulator"
)

var (
	kafkaBrokersFlag  = &cli.StringSliceFlag{Name: "kafka-brokers", Required: true}
	requestTopicFlag  = &cli.StringFlag{Name: "request-topic", Value: simulator.DefaultConfig.RequestTopic}
	resultTopicFlag   = &cli.StringFlag{Name: "result-topic", Value: simulator.DefaultConfig.ResultTopic}
	groupIDFlag       = &cli.StringFlag{Name: "group-id", Value: simulator.DefaultConfig.GroupID}
	queueCapacityFlag = &cli.IntFlag{Name: "queue-capacity", Value: simulator.DefaultConfig.QueueCapacity}
	workersFlag       = &cli.IntFlag{Name: "workers", Value: simulator.DefaultConfig.MaxConcurrentSims}
	chainIDFlag       = &cli.Int64Flag{Name: "chain-id", Required: true}
	nodeURLFlag       = &cli.StringFlag{Name: "node-rpc-url", Required: true}
	s3BucketFlag      = &cli.StringFlag{Name: "s3-bucket", Required: true}
	s3PrefixFlag      = &cli.StringFlag{Name: "s3-prefix", Value: ""}
	verbosityFlag     = &cli.IntFlag{Name: "verbosity", Value: 3}
)

func main() {
	app := &cli.App{
		Name:   "simulator",
		Usage:  "tips bundle simulation worker pool",
		Flags:  []cli.Flag{kafkaBrokersFlag, requestTopicFlag, resultTopicFlag, groupIDFlag, queueCapacityFlag, workersFlag, chainIDFlag, nodeURLFlag, s3BucketFlag, s3PrefixFlag, verbosityFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Crit("simulator exited with error", "err", err)
	}
}

func run(c *cli.Context) error {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(c.Int(verbosityFlag.Name)), true)))

	cfg := simulator.DefaultConfig
	cfg.KafkaBrokers = c.StringSlice(kafkaBrokersFlag.Name)
	cfg.RequestTopic = c.String(requestTopicFlag.Name)
	cfg.ResultTopic = c.String(resultTopicFlag.Name)
	cfg.GroupID = c.String(groupIDFlag.Name)
	cfg.QueueCapacity = c.Int(queueCapacityFlag.Name)
	cfg.MaxConcurrentSims = c.Int(workersFlag.Name)
	log.Info("starting simulator", "config", cfg.String())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := chainrpc.Dial(ctx, c.String(nodeURLFlag.Name))
	if err != nil {
		return fmt.Errorf("dial upstream node: %w", err)
	}

	objectStore, err := audit.NewS3Store(ctx, c.String(s3BucketFlag.Name), c.String(s3PrefixFlag.Name))
	if err != nil {
		return fmt.Errorf("construct s3 result store: %w", err)
	}
	resultStore := simulator.NewObjectResultStore(objectStore, "")
	resultPub := simulator.NewResultPublisher(cfg, resultStore)

	engine := chainrpc.NewEngine(provider)
	pool := simulator.NewPool(cfg, provider, engine, resultPub)

	tip := newPollingChainTip()
	chainID := big.NewInt(c.Int64(chainIDFlag.Name))
	listener := simulator.NewListener(cfg, gethtypes.LatestSignerForChainID(chainID), pool, tip)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pool.Run(gctx) })
	g.Go(func() error { return listener.Run(gctx) })
	g.Go(func() error { return pollHead(gctx, provider, pool, tip) })

	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	return nil
}

// pollingChainTip caches the chain head hash and number that pollHead
// reads from Provider.Head once a second (both are zero until the first
// successful poll); EvmEngine/chain-head-notification wiring belongs to
// the black-box execution engine (spec.md §1), so this is a minimal
// stand-in good enough to drive Pool.UpdateLatestBlock.
type pollingChainTip struct {
	hash   atomic.Pointer[common.Hash]
	number atomic.Uint64
}

func newPollingChainTip() *pollingChainTip {
	return &pollingChainTip{}
}

func (t *pollingChainTip) HeadHashAndNumber() (hash common.Hash, number uint64) {
	if h := t.hash.Load(); h != nil {
		hash = *h
	}
	return hash, t.number.Load()
}

// pollHead periodically refreshes tip's head hash and number and bumps the pool's
// stale-block gate, in lieu of the ExEx chain-commit notification
// spec.md §4.I describes (out of scope: the notification source is the
// execution client itself).
func pollHead(ctx context.Context, provider *chainrpc.Provider, pool *simulator.Pool, tip *pollingChainTip) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			hash, number, err := provider.Head(ctx)
			if err != nil {
				log.Warn("simulator failed to poll chain head", "err", err)
				continue
			}
			tip.hash.Store(&hash)
			tip.number.Store(number)
			pool.UpdateLatestBlock(number)
		}
	}
}

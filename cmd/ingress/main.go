// Command ingress runs the JSON-RPC ingress surface of spec.md §6:
// eth_sendRawTransaction, eth_sendBundle, eth_sendUserOperation,
// eth_cancelBundle, eth_sendBackrunBundle.
package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/urfave/cli/v2"

	"github.com/tips-network/tips/internal/audit"
	"github.com/tips-network/tips/internal/chainrpc"
	"github.com/tips-network/tips/internal/ingress"
)

var (
	bindFlag = &cli.StringFlag{
		Name:  "bind",
		Usage: "address to serve JSON-RPC on",
		Value: ingress.DefaultConfig.BindAddr,
	}
	kafkaBrokersFlag = &cli.StringSliceFlag{
		Name:     "kafka-brokers",
		Usage:    "Kafka bootstrap brokers",
		Required: true,
	}
	ingressTopicFlag = &cli.StringFlag{
		Name:  "ingress-topic",
		Value: ingress.DefaultConfig.IngressTopic,
	}
	auditTopicFlag = &cli.StringFlag{
		Name:  "audit-topic",
		Value: ingress.DefaultConfig.AuditTopic,
	}
	userOpsTopicFlag = &cli.StringFlag{
		Name:  "userops-topic",
		Value: ingress.DefaultConfig.UserOpsTopic,
	}
	chainIDFlag = &cli.Int64Flag{
		Name:     "chain-id",
		Usage:    "L2 chain id",
		Required: true,
	}
	nodeURLFlag = &cli.StringFlag{
		Name:     "node-rpc-url",
		Usage:    "upstream JSON-RPC node used for state reads",
		Required: true,
	}
	dualWriteFlag = &cli.BoolFlag{
		Name:  "dual-write",
		Usage: "forward raw transactions to an external mempool RPC",
	}
	mempoolRPCURLFlag = &cli.StringFlag{
		Name:  "dual-write-rpc-url",
		Usage: "external mempool RPC URL for dual-write mode",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0=crit, 5=trace)",
	}
)

func main() {
	app := &cli.App{
		Name:   "ingress",
		Usage:  "tips ingress JSON-RPC service",
		Flags:  []cli.Flag{bindFlag, kafkaBrokersFlag, ingressTopicFlag, auditTopicFlag, userOpsTopicFlag, chainIDFlag, nodeURLFlag, dualWriteFlag, mempoolRPCURLFlag, verbosityFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Crit("ingress exited with error", "err", err)
	}
}

func run(c *cli.Context) error {
	log.SetDefault(log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, log.FromLegacyLevel(c.Int(verbosityFlag.Name)), true)))

	cfg := ingress.DefaultConfig
	cfg.BindAddr = c.String(bindFlag.Name)
	cfg.KafkaBrokers = c.StringSlice(kafkaBrokersFlag.Name)
	cfg.IngressTopic = c.String(ingressTopicFlag.Name)
	cfg.AuditTopic = c.String(auditTopicFlag.Name)
	cfg.UserOpsTopic = c.String(userOpsTopicFlag.Name)
	cfg.DualWriteMempool = c.Bool(dualWriteFlag.Name)
	cfg.MempoolRPCURL = c.String(mempoolRPCURLFlag.Name)
	log.Info("starting ingress", "config", cfg.String())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := chainrpc.Dial(ctx, c.String(nodeURLFlag.Name))
	if err != nil {
		return fmt.Errorf("dial upstream node: %w", err)
	}

	chainID := big.NewInt(c.Int64(chainIDFlag.Name))
	chainConfig := &params.ChainConfig{ChainID: chainID}

	bundlePub := ingress.NewPublisher(cfg.KafkaBrokers, cfg.IngressTopic, cfg.DualWriteMempool, cfg.MempoolRPCURL)
	userOpPub := ingress.NewPublisher(cfg.KafkaBrokers, cfg.UserOpsTopic, false, "")
	auditPub := audit.NewKafkaEventPublisher(cfg.KafkaBrokers)

	service := ingress.NewService(cfg, chainConfig, chainID, provider, bundlePub, userOpPub, auditPub)

	srv := rpc.NewServer()
	if err := srv.RegisterName("eth", service); err != nil {
		return fmt.Errorf("register eth namespace: %w", err)
	}

	httpServer := &http.Server{Addr: cfg.BindAddr, Handler: srv}
	errCh := make(chan error, 1)
	go func() {
		log.Info("ingress listening", "addr", cfg.BindAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("ingress shutting down")
		return httpServer.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

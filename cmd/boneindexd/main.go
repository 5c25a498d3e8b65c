// Command boneindexd runs the Relics/Bones and Inscription indexer
// daemon: it fetches blocks from a node, applies them to the bbolt-
// backed index, watches for reorgs, and serves the derived state over
// HTTP. CLI parsing itself follows the pack's cobra dependency
// (orbas1-Synnergy's cmd/synnergy/main.go pattern: one root command,
// subcommands for independent concerns) rather than the teacher
// client's stdlib flag package, since cobra is the CLI library this
// indexer's go.mod carries.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"boneindex.dev/indexer/api"
	"boneindex.dev/indexer/consensus"
	"boneindex.dev/indexer/indexer"
	"boneindex.dev/indexer/logging"
	"boneindex.dev/indexer/metrics"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var configPath string

	root := &cobra.Command{
		Use:   "boneindexd",
		Short: "Relics/Bones and Inscription indexer daemon",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(configCmd(&configPath))

	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "fetch blocks, index them, and serve the read API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), *configPath)
		},
	}
}

func configCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := indexer.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", cfg)
			return nil
		},
	}
}

// unconfiguredNodeClient reports that no concrete node RPC client has
// been wired in: this daemon depends on indexer.NodeClient as an
// interface seam (a node RPC client implementation is, per its own
// scope, a separate external concern from the indexing logic here).
type unconfiguredNodeClient struct{}

func (unconfiguredNodeClient) BestHeight(ctx context.Context) (uint64, error) {
	return 0, fmt.Errorf("boneindexd: no node RPC client configured")
}

func (unconfiguredNodeClient) BlockHashAtHeight(ctx context.Context, height uint64) ([32]byte, error) {
	return [32]byte{}, fmt.Errorf("boneindexd: no node RPC client configured")
}

func (unconfiguredNodeClient) BlockByHash(ctx context.Context, hash [32]byte) (consensus.Block, error) {
	return consensus.Block{}, fmt.Errorf("boneindexd: no node RPC client configured")
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := indexer.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	store, err := indexer.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("boneindexd: open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	reg := metrics.New()
	reader := indexer.NewReader(store)
	server := api.New(reader, log)

	client := unconfiguredNodeClient{}
	fetcher := indexer.NewFetcher(client, cfg.FetchWorkers)
	reorg := indexer.NewReorgDetector(store, client)
	updater := indexer.NewBlockUpdater(store)

	runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 3)
	go func() {
		log.Info("serving read api", zap.String("addr", cfg.ListenAddr))
		errCh <- http.ListenAndServe(cfg.ListenAddr, server)
	}()
	go func() {
		log.Info("serving metrics", zap.String("addr", cfg.MetricsAddr))
		errCh <- http.ListenAndServe(cfg.MetricsAddr, reg.Handler())
	}()
	go func() {
		errCh <- indexLoop(runCtx, log, reg, fetcher, reorg, updater, cfg.StartHeight)
	}()

	log.Info("boneindexd started",
		zap.String("dataDir", cfg.DataDir),
		zap.String("nodeRpcAddr", cfg.NodeRPCAddr),
		zap.Uint64("startHeight", cfg.StartHeight),
	)

	select {
	case <-runCtx.Done():
		log.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}

// indexLoop fetches blocks from height onward and applies them in
// order, recording each height's hash for the reorg detector. It
// halts as soon as the node client reports an error (e.g. the
// unconfigured placeholder client always does) rather than busy-
// looping against a node that isn't there.
func indexLoop(ctx context.Context, log *zap.Logger, reg *metrics.Registry, fetcher *indexer.Fetcher, reorg *indexer.ReorgDetector, updater *indexer.BlockUpdater, startHeight uint64) error {
	best, err := fetcher.BestHeight(ctx)
	if err != nil {
		return fmt.Errorf("boneindexd: resolve node tip: %w", err)
	}
	if best < startHeight {
		return nil
	}

	blocks := fetcher.Run(ctx, startHeight, best)
	for fb := range blocks {
		if fb.Err != nil {
			return fmt.Errorf("boneindexd: fetch block %d: %w", fb.Height, fb.Err)
		}
		ok, err := reorg.CheckBlock(fb.Height, fb.Block.Header.PrevBlockHash)
		if err != nil {
			return err
		}
		if !ok {
			forkHeight, err := reorg.FindForkPoint(ctx, fb.Height-1)
			if err != nil {
				return err
			}
			log.Warn("reorg detected", zap.Uint64("forkHeight", forkHeight))
			reg.ReorgsHandled.Inc()
			return fmt.Errorf("boneindexd: reorg to height %d, restart from fork point", forkHeight)
		}
		events, err := updater.ApplyBlock(fb.Height, fb.Block)
		if err != nil {
			return fmt.Errorf("boneindexd: apply block %d: %w", fb.Height, err)
		}
		reg.BlocksIndexed.Inc()
		reg.EventsEmitted.Add(float64(len(events)))
		reg.IndexHeight.Set(float64(fb.Height))
	}
	return nil
}

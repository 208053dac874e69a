package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammcore/internal/chain"
	"ammcore/internal/config"
	"ammcore/internal/journal"
	"ammcore/internal/pairsource"
)

func runSeed(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSeed(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.Pair) {
		return fmt.Errorf("invalid pair address: %q", cfg.Pair)
	}
	if !common.IsHexAddress(cfg.Owner) {
		return fmt.Errorf("invalid owner address: %q", cfg.Owner)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.Dial(ctx, cfg.RPCURL, cfg.ChainID, logger)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	block, err := chainClient.ResolveBlock(ctx, cfg.Block)
	if err != nil {
		return err
	}

	caller := &pairsource.RetryCaller{
		Caller:     chainClient,
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBackoff,
		Logger:     logger,
	}
	pair, err := pairsource.FetchPair(ctx, caller, common.HexToAddress(cfg.Pair), block, logger)
	if err != nil {
		return err
	}

	lastSeq, err := journal.LastSeq(ctx, cfg.Out)
	if err != nil {
		return err
	}

	ops, err := pairsource.SeedOperations(pair, pairsource.SeedOptions{
		PoolID:         cfg.PoolID,
		Kind:           cfg.Kind,
		FeeBps:         cfg.FeeBps,
		ProtocolFeeBps: cfg.ProtocolFeeBps,
		CreatorFeeBps:  cfg.CreatorFeeBps,
		Amp:            cfg.Amp,
		Owner:          common.HexToAddress(cfg.Owner),
		ScaleDecimals:  cfg.ScaleDecimals,
		DeadlineMs:     uint64(cfg.Deadline.Milliseconds()),
	}, lastSeq+1)
	if err != nil {
		return err
	}

	if err := journal.NewWriter(cfg.Out).AppendOperations(ops); err != nil {
		return err
	}

	logger.Info("seed complete",
		zap.Uint64("chain_id", chainClient.ChainID()),
		zap.String("pair", pair.Address.Hex()),
		zap.Uint64("block", block),
		zap.String("token0", pair.Token0.Label()),
		zap.String("token1", pair.Token1.Label()),
		zap.String("reserve0", pair.Reserve0.String()),
		zap.String("reserve1", pair.Reserve1.String()),
		zap.Uint64("first_seq", lastSeq+1),
		zap.String("out", cfg.Out),
	)
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammcore/internal/config"
	"ammcore/internal/journal"
	"ammcore/internal/metrics"
	"ammcore/internal/replay"
	"ammcore/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store *postgres.Store
		sink  replay.SnapshotSink
	)
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if cfg.Migrate {
			if err := store.Migrate(ctx); err != nil {
				return err
			}
		}
		sink = store
	}

	var stateStore replay.StateStore
	switch {
	case cfg.StateFile != "":
		stateStore = &replay.FileStateStore{Path: cfg.StateFile}
	case store != nil:
		stateStore = &replay.DBStateStore{Store: store, Name: cfg.StateName}
	}

	m := metrics.NewReplay()
	server := metrics.NewServer(cfg.MetricsAddr, m.Registry())
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(shutdownCtx)
	}()

	engine, err := replay.NewEngine(logger)
	if err != nil {
		return err
	}

	runner := replay.NewRunner(replay.Config{
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: cfg.RecomputeFrom,
		StateStore:    stateStore,
	}, engine, journal.NewWriter(cfg.ResultsOut), sink, m, logger)

	logger.Info("replay start",
		zap.String("input", cfg.Input),
		zap.String("results", cfg.ResultsOut),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("recompute_from", cfg.RecomputeFrom),
		zap.String("metrics_addr", cfg.MetricsAddr),
	)

	_, err = runner.Run(ctx, cfg.Input)
	return err
}

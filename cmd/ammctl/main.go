package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ammctl",
		Short:        "AMM pool engine tooling",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay an operation journal through the pool engine",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input operations JSONL")
	replayCmd.Flags().String("results", "./data/results.jsonl", "output results JSONL")
	replayCmd.Flags().String("pg-dsn", "", "Postgres DSN for snapshots (optional)")
	replayCmd.Flags().Bool("migrate", false, "create snapshot tables before replaying")
	replayCmd.Flags().Int("batch-size", 1000, "operations per persisted batch")
	replayCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	replayCmd.Flags().String("state-name", "replay", "state row name when progress is kept in Postgres")
	replayCmd.Flags().Uint64("recompute-from", 0, "rewrite output from this sequence number")
	replayCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9102)")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Append create_pool and add_liquidity operations from an on-chain V2 pair",
		RunE:  runSeed,
	}

	seedCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	seedCmd.Flags().Uint64("chain-id", 0, "expected chain id, 0 skips the check")
	seedCmd.Flags().String("pair", "", "V2 pair address")
	seedCmd.Flags().Uint64("block", 0, "block to read reserves at, 0 means latest")
	seedCmd.Flags().String("out", "./data/operations.jsonl", "operations JSONL to append to")
	seedCmd.Flags().String("pool-id", "", "pool id, defaults to the pair address")
	seedCmd.Flags().String("kind", "constant_product", "pool kind (constant_product, stable)")
	seedCmd.Flags().Uint64("fee-bps", 30, "trading fee in basis points")
	seedCmd.Flags().Uint64("protocol-fee-bps", 0, "protocol share of the fee in basis points")
	seedCmd.Flags().Uint64("creator-fee-bps", 0, "creator share of the fee in basis points")
	seedCmd.Flags().Uint64("amp", 0, "amplification for stable pools")
	seedCmd.Flags().String("owner", "", "address that owns the seeded position")
	seedCmd.Flags().Uint("scale-decimals", 0, "divide reserves by 10^n to fit 64-bit amounts")
	seedCmd.Flags().Duration("deadline", time.Minute, "deposit deadline after the block time")
	seedCmd.Flags().Int("max-retries", 5, "maximum retry attempts per RPC read")
	seedCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	seedCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(seedCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote a swap against hypothetical reserves",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("kind", "constant_product", "pool kind (constant_product, stable)")
	quoteCmd.Flags().Uint64("reserve-a", 0, "reserve of asset A")
	quoteCmd.Flags().Uint64("reserve-b", 0, "reserve of asset B")
	quoteCmd.Flags().Uint64("fee-bps", 30, "trading fee in basis points")
	quoteCmd.Flags().Uint64("amp", 0, "amplification for stable pools")
	quoteCmd.Flags().String("direction", "a_to_b", "swap direction (a_to_b, b_to_a)")
	quoteCmd.Flags().Uint64("amount-in", 0, "input amount")
	quoteCmd.Flags().String("max-price", "", "maximum input paid per unit of output (decimal)")
	quoteCmd.Flags().String("now", "", "quote time (unix ms or RFC3339)")
	quoteCmd.Flags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}

package main

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammcore/internal/auth"
	"ammcore/internal/config"
	"ammcore/internal/fees"
	"ammcore/internal/pool"
	"ammcore/internal/replay"
	"ammcore/internal/risk"
)

var quoteOwner = common.HexToAddress("0x000000000000000000000000000000000000dEaD")

type quoteOutput struct {
	Kind           string     `json:"kind"`
	Direction      string     `json:"direction"`
	Amp            uint64     `json:"amp,omitempty"`
	AmountIn       uint64     `json:"amount_in"`
	AmountOut      uint64     `json:"amount_out"`
	Fee            fees.Split `json:"fee"`
	PriceImpactBps uint64     `json:"price_impact_bps"`
	SpotPrice      string     `json:"spot_price"`
	EffectivePrice string     `json:"effective_price,omitempty"`
	MaxPriceOK     *bool      `json:"max_price_ok,omitempty"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	out, err := quote(cfg, logger)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// quote seeds a throwaway pool with the configured reserves and prices a
// swap against it without applying it.
func quote(cfg config.QuoteConfig, logger *zap.Logger) (quoteOutput, error) {
	if cfg.AmountIn == 0 {
		return quoteOutput{}, fmt.Errorf("amount-in is required")
	}
	dir := pool.Direction(cfg.Direction)
	if !dir.Valid() {
		return quoteOutput{}, fmt.Errorf("invalid direction %q", cfg.Direction)
	}
	now, err := config.ParseTimestampMs(cfg.Now)
	if err != nil {
		return quoteOutput{}, fmt.Errorf("parse now: %w", err)
	}
	maxPrice, err := replay.ParseMaxPrice(cfg.MaxPrice)
	if err != nil {
		return quoteOutput{}, err
	}

	manager := pool.NewManager(auth.NewCapability(), logger)
	p, _, err := manager.CreatePool(pool.Config{
		ID:     "quote",
		Kind:   pool.Kind(cfg.Kind),
		AssetA: "A",
		AssetB: "B",
		Fees:   fees.Schedule{FeeBps: cfg.FeeBps},
		Amp:    cfg.Amp,
	})
	if err != nil {
		return quoteOutput{}, err
	}
	if _, err := p.AddLiquidity(pool.AddLiquidityRequest{
		Owner:    quoteOwner,
		AmountA:  cfg.ReserveA,
		AmountB:  cfg.ReserveB,
		Deadline: now,
		Now:      now,
	}); err != nil {
		return quoteOutput{}, fmt.Errorf("seed reserves: %w", err)
	}

	res, err := p.Quote(dir, cfg.AmountIn, now)
	if err != nil {
		return quoteOutput{}, err
	}
	spot, err := p.SpotPrice(now)
	if err != nil {
		return quoteOutput{}, err
	}

	out := quoteOutput{
		Kind:           cfg.Kind,
		Direction:      string(dir),
		Amp:            p.Amp(now),
		AmountIn:       res.AmountIn,
		AmountOut:      res.AmountOut,
		Fee:            res.Fee,
		PriceImpactBps: res.PriceImpactBps,
		SpotPrice:      spot.String(),
	}
	if res.AmountOut > 0 {
		out.EffectivePrice = decimalFromUint(res.AmountIn).DivRound(decimalFromUint(res.AmountOut), 18).String()
	}
	if maxPrice != nil {
		ok := risk.CheckMaxPrice(res.AmountIn, res.AmountOut, maxPrice) == nil
		out.MaxPriceOK = &ok
	}
	return out, nil
}

func decimalFromUint(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

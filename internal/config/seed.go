package config

import (
	"time"

	"github.com/spf13/pflag"
)

// SeedConfig holds configuration for the seed command.
type SeedConfig struct {
	RPCURL         string
	ChainID        uint64
	Pair           string
	Block          uint64
	Out            string
	PoolID         string
	Kind           string
	FeeBps         uint64
	ProtocolFeeBps uint64
	CreatorFeeBps  uint64
	Amp            uint64
	Owner          string
	ScaleDecimals  uint
	Deadline       time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	LogLevel       string
}

// LoadSeed merges config file, environment variables, and flags into SeedConfig.
func LoadSeed(cfgFile string, flags *pflag.FlagSet) (SeedConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":           "./data/operations.jsonl",
		"kind":          "constant_product",
		"fee-bps":       30,
		"deadline":      time.Minute,
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
		"log-level":     "info",
	})
	if err != nil {
		return SeedConfig{}, err
	}

	return SeedConfig{
		RPCURL:         v.GetString("rpc"),
		ChainID:        v.GetUint64("chain-id"),
		Pair:           v.GetString("pair"),
		Block:          v.GetUint64("block"),
		Out:            v.GetString("out"),
		PoolID:         v.GetString("pool-id"),
		Kind:           v.GetString("kind"),
		FeeBps:         v.GetUint64("fee-bps"),
		ProtocolFeeBps: v.GetUint64("protocol-fee-bps"),
		CreatorFeeBps:  v.GetUint64("creator-fee-bps"),
		Amp:            v.GetUint64("amp"),
		Owner:          v.GetString("owner"),
		ScaleDecimals:  v.GetUint("scale-decimals"),
		Deadline:       v.GetDuration("deadline"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		LogLevel:       v.GetString("log-level"),
	}, nil
}

package config

import (
	"github.com/spf13/pflag"
)

// QuoteConfig holds configuration for the quote command.
type QuoteConfig struct {
	Kind      string
	ReserveA  uint64
	ReserveB  uint64
	FeeBps    uint64
	Amp       uint64
	Direction string
	AmountIn  uint64
	MaxPrice  string
	Now       string
	LogLevel  string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"kind":      "constant_product",
		"fee-bps":   30,
		"direction": "a_to_b",
		"log-level": "warn",
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	return QuoteConfig{
		Kind:      v.GetString("kind"),
		ReserveA:  v.GetUint64("reserve-a"),
		ReserveB:  v.GetUint64("reserve-b"),
		FeeBps:    v.GetUint64("fee-bps"),
		Amp:       v.GetUint64("amp"),
		Direction: v.GetString("direction"),
		AmountIn:  v.GetUint64("amount-in"),
		MaxPrice:  v.GetString("max-price"),
		Now:       v.GetString("now"),
		LogLevel:  v.GetString("log-level"),
	}, nil
}

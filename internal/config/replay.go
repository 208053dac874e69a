package config

import (
	"github.com/spf13/pflag"
)

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	Input         string
	ResultsOut    string
	PGDSN         string
	Migrate       bool
	BatchSize     int
	StateFile     string
	StateName     string
	RecomputeFrom uint64
	MetricsAddr   string
	LogLevel      string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"results":    "./data/results.jsonl",
		"batch-size": 1000,
		"state-name": "replay",
		"log-level":  "info",
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{
		Input:         v.GetString("in"),
		ResultsOut:    v.GetString("results"),
		PGDSN:         v.GetString("pg-dsn"),
		Migrate:       v.GetBool("migrate"),
		BatchSize:     v.GetInt("batch-size"),
		StateFile:     v.GetString("state-file"),
		StateName:     v.GetString("state-name"),
		RecomputeFrom: v.GetUint64("recompute-from"),
		MetricsAddr:   v.GetString("metrics-addr"),
		LogLevel:      v.GetString("log-level"),
	}, nil
}

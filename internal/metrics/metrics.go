package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "amm"

// Replay holds the collectors updated while a journal is replayed.
type Replay struct {
	registry *prometheus.Registry

	OperationsTotal *prometheus.CounterVec
	DecodeFailures  prometheus.Counter
	SwapVolume      *prometheus.CounterVec
	FeesCollected   *prometheus.CounterVec
	PriceImpact     prometheus.Histogram

	PoolReserves  *prometheus.GaugeVec
	PoolShares    *prometheus.GaugeVec
	PoolPositions *prometheus.GaugeVec
	PoolPaused    *prometheus.GaugeVec
	LastSeq       prometheus.Gauge
}

// NewReplay registers the replay collectors on a fresh registry.
func NewReplay() *Replay {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Replay{
		registry: reg,
		OperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "replay",
				Name:      "operations_total",
				Help:      "Operations applied, by kind and outcome code",
			},
			[]string{"op", "status"},
		),
		DecodeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "decode_failures_total",
			Help:      "Journal lines that could not be decoded",
		}),
		SwapVolume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "swap_volume_total",
				Help:      "Swap input volume in base units",
			},
			[]string{"pool", "direction"},
		),
		FeesCollected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "fees_collected_total",
				Help:      "Trading fees collected in base units, by recipient",
			},
			[]string{"pool", "recipient"},
		),
		PriceImpact: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "swap_price_impact_bps",
			Help:      "Price impact of executed swaps in basis points",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		PoolReserves: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "reserve",
				Help:      "Pool reserve in base units",
			},
			[]string{"pool", "asset"},
		),
		PoolShares: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "total_shares",
				Help:      "Issued liquidity shares including the burned minimum",
			},
			[]string{"pool"},
		),
		PoolPositions: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "positions",
				Help:      "Open positions",
			},
			[]string{"pool"},
		),
		PoolPaused: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "pool",
				Name:      "paused",
				Help:      "1 when the pool is paused",
			},
			[]string{"pool"},
		),
		LastSeq: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "replay",
			Name:      "last_seq",
			Help:      "Sequence number of the last applied operation",
		}),
	}
}

func (r *Replay) Registry() *prometheus.Registry {
	return r.registry
}

// Package metrics exposes Prometheus instruments for the detector hot path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BooksIngested counts accepted order book updates.
	BooksIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_orderbooks_ingested_total",
		Help: "Order book updates accepted into the detector.",
	})

	// UpdatesRejected counts inbound updates dropped at the boundary.
	UpdatesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "crossarb_updates_rejected_total",
		Help: "Inbound order book updates rejected, by reason.",
	}, []string{"reason"})

	// CyclesTotal counts completed detection cycles.
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_cycles_total",
		Help: "Completed detection cycles.",
	})

	// CycleDuration observes wall time of a full detection cycle.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_cycle_duration_seconds",
		Help:    "Duration of one detection cycle.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	// ActiveArbitrages tracks the currently tracked opportunity count.
	ActiveArbitrages = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_active_arbitrages",
		Help: "Opportunities currently in the active state.",
	})

	// SynthBooks tracks the cross-rate book count after the last cycle.
	SynthBooks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_synth_orderbooks",
		Help: "Synthetic order books built in the last cycle.",
	})

	// ArbitragesEnded counts opportunities moved to history.
	ArbitragesEnded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_arbitrages_ended_total",
		Help: "Opportunities that expired into history.",
	})
)

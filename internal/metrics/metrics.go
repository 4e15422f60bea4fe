// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns the process metrics. A nil *Collector is valid and
// records nothing, so callers never need a guard.
type Collector struct {
	observations        *prometheus.CounterVec
	observationsDropped *prometheus.CounterVec
	priceUpdates        prometheus.Counter
	priceUpdatesDropped prometheus.Counter
	canonicalPriceUsd   prometheus.Gauge
	solUsdRate          prometheus.Gauge
	trades              *prometheus.CounterVec
	realizedPnlSol      prometheus.Gauge
	openPositions       prometheus.Gauge
}

// NewCollector creates and registers the metric set. Pass nil to register
// on the default registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		observations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paperterm",
				Name:      "observations_total",
				Help:      "Total number of price observations emitted by adapters",
			},
			[]string{"source"},
		),
		observationsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paperterm",
				Name:      "observations_dropped_total",
				Help:      "Observations rejected before becoming canonical",
			},
			[]string{"reason"},
		),
		priceUpdates: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "paperterm",
				Name:      "price_updates_total",
				Help:      "Canonical price emissions",
			},
		),
		priceUpdatesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "paperterm",
				Name:      "price_updates_dropped_total",
				Help:      "Observations absorbed by the emission-gap throttle",
			},
		),
		canonicalPriceUsd: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "paperterm",
				Name:      "canonical_price_usd",
				Help:      "Latest canonical price for the active instrument",
			},
		),
		solUsdRate: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "paperterm",
				Name:      "sol_usd_rate",
				Help:      "Cached SOL/USD conversion rate",
			},
		),
		trades: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "paperterm",
				Name:      "trades_total",
				Help:      "Simulated fills committed to the ledger",
			},
			[]string{"side"},
		),
		realizedPnlSol: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "paperterm",
				Name:      "realized_pnl_sol",
				Help:      "Cumulative realized PnL in SOL",
			},
		),
		openPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "paperterm",
				Name:      "open_positions",
				Help:      "Number of open positions",
			},
		),
	}

	reg.MustRegister(
		c.observations,
		c.observationsDropped,
		c.priceUpdates,
		c.priceUpdatesDropped,
		c.canonicalPriceUsd,
		c.solUsdRate,
		c.trades,
		c.realizedPnlSol,
		c.openPositions,
	)

	return c
}

// RecordObservation counts one adapter emission.
func (c *Collector) RecordObservation(source string) {
	if c == nil {
		return
	}
	c.observations.WithLabelValues(source).Inc()
}

// RecordObservationDropped counts one rejected observation.
func (c *Collector) RecordObservationDropped(reason string) {
	if c == nil {
		return
	}
	c.observationsDropped.WithLabelValues(reason).Inc()
}

// RecordPriceUpdate records a canonical emission and the new price.
func (c *Collector) RecordPriceUpdate(priceUsd float64) {
	if c == nil {
		return
	}
	c.priceUpdates.Inc()
	c.canonicalPriceUsd.Set(priceUsd)
}

// RecordPriceDropped counts a throttled observation.
func (c *Collector) RecordPriceDropped() {
	if c == nil {
		return
	}
	c.priceUpdatesDropped.Inc()
}

// SetSolUsdRate publishes the cached conversion rate.
func (c *Collector) SetSolUsdRate(rate float64) {
	if c == nil {
		return
	}
	c.solUsdRate.Set(rate)
}

// RecordTrade counts one committed fill.
func (c *Collector) RecordTrade(side string) {
	if c == nil {
		return
	}
	c.trades.WithLabelValues(side).Inc()
}

// SetLedgerState publishes ledger-level gauges.
func (c *Collector) SetLedgerState(realizedPnlSol float64, openPositions int) {
	if c == nil {
		return
	}
	c.realizedPnlSol.Set(realizedPnlSol)
	c.openPositions.Set(float64(openPositions))
}

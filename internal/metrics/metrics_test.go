// internal/metrics/metrics_test.go
package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordObservation("network")
	c.RecordObservation("network")
	c.RecordObservation("dom")
	c.RecordObservationDropped("unrelated")
	c.RecordPriceUpdate(0.0042)
	c.RecordPriceDropped()
	c.SetSolUsdRate(187.42)
	c.RecordTrade("BUY")
	c.SetLedgerState(1.5, 2)

	assert.InDelta(t, 2, testutil.ToFloat64(c.observations.WithLabelValues("network")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.observations.WithLabelValues("dom")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.observationsDropped.WithLabelValues("unrelated")), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.priceUpdates), 1e-9)
	assert.InDelta(t, 0.0042, testutil.ToFloat64(c.canonicalPriceUsd), 1e-12)
	assert.InDelta(t, 187.42, testutil.ToFloat64(c.solUsdRate), 1e-9)
	assert.InDelta(t, 1, testutil.ToFloat64(c.trades.WithLabelValues("BUY")), 1e-9)
	assert.InDelta(t, 1.5, testutil.ToFloat64(c.realizedPnlSol), 1e-9)
	assert.InDelta(t, 2, testutil.ToFloat64(c.openPositions), 1e-9)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.RecordObservation("network")
	c.RecordObservationDropped("stale")
	c.RecordPriceUpdate(1)
	c.RecordPriceDropped()
	c.SetSolUsdRate(1)
	c.RecordTrade("SELL")
	c.SetLedgerState(0, 0)
}

package resolver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/needsmorergb/paperterm/internal/feed"
	"github.com/needsmorergb/paperterm/internal/market"
)

const testMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

func newTestResolver(t *testing.T, gap, staleness time.Duration) (*Resolver, *[]CanonicalPrice) {
	t.Helper()
	r := New(Config{EmissionGap: gap, Staleness: staleness}, nil, zaptest.NewLogger(t))
	r.SetContext(market.Context{Mint: testMint, Symbol: "BONK"})

	var got []CanonicalPrice
	r.OnPrice(func(p CanonicalPrice, _ market.Context) {
		got = append(got, p)
	})
	return r, &got
}

func netObs(price float64) feed.Observation {
	return feed.Observation{
		Price:      price,
		Source:     feed.SourceNetwork,
		Confidence: feed.ConfidenceUSD,
		Timestamp:  time.Now(),
	}
}

func chartObs(mc float64) feed.Observation {
	return feed.Observation{
		Price:      mc,
		Source:     feed.SourceChart,
		Confidence: feed.ConfidenceDisplay,
		Timestamp:  time.Now(),
	}
}

func TestMarketCapInversion(t *testing.T) {
	r, got := newTestResolver(t, time.Millisecond, 3*time.Second)
	r.SetAnchor(0.001, 1_000_000)

	r.Offer(chartObs(2_000_000))

	require.Len(t, *got, 1)
	assert.Equal(t, 0.002, (*got)[0].PriceUsd)
	assert.Equal(t, feed.SourceChart, (*got)[0].Source)
	assert.Equal(t, feed.ConfidenceUSD, (*got)[0].Confidence)
}

func TestInversionDisabledWithoutAnchor(t *testing.T) {
	r, got := newTestResolver(t, time.Millisecond, 3*time.Second)

	r.Offer(chartObs(2_000_000))
	assert.Empty(t, *got)

	// Zero components keep it disabled.
	r.SetAnchor(0, 1_000_000)
	r.Offer(chartObs(3_000_000))
	assert.Empty(t, *got)

	r.SetAnchor(0.001, 0)
	r.Offer(chartObs(4_000_000))
	assert.Empty(t, *got)
}

func TestUnchangedChartReadIsNoOp(t *testing.T) {
	r, got := newTestResolver(t, time.Millisecond, 3*time.Second)
	r.SetAnchor(0.001, 1_000_000)

	r.Offer(chartObs(2_000_000))
	time.Sleep(5 * time.Millisecond)
	r.Offer(chartObs(2_000_000))

	assert.Len(t, *got, 1)
}

func TestChartPlausibilityBounds(t *testing.T) {
	r, got := newTestResolver(t, time.Millisecond, 3*time.Second)
	r.SetAnchor(0.001, 1_000_000)

	r.Offer(chartObs(5))    // absurdly small
	r.Offer(chartObs(1e15)) // absurdly large
	assert.Empty(t, *got)
}

func TestThrottleKeepsLatestPending(t *testing.T) {
	gap := 80 * time.Millisecond
	r, got := newTestResolver(t, gap, 3*time.Second)

	// Establish an emission, then burst inside the gap.
	r.Offer(netObs(0.0010))
	require.Len(t, *got, 1)

	r.Offer(netObs(0.0011))
	r.Offer(netObs(0.0012))
	assert.Len(t, *got, 1, "burst inside the gap must not emit")

	time.Sleep(gap + 20*time.Millisecond)
	r.FlushPending()

	// Exactly one more update, carrying the later observation's value.
	require.Len(t, *got, 2)
	assert.Equal(t, 0.0012, (*got)[1].PriceUsd)
}

func TestConfidenceBlocksCoarserSources(t *testing.T) {
	r, got := newTestResolver(t, time.Millisecond, 200*time.Millisecond)

	r.Offer(netObs(0.0042))
	require.Len(t, *got, 1)

	time.Sleep(5 * time.Millisecond)
	r.Offer(feed.Observation{
		Price:      0.0030,
		Source:     feed.SourceDOM,
		Confidence: feed.ConfidenceDisplay,
		Timestamp:  time.Now(),
	})
	assert.Len(t, *got, 1, "coarser source must wait out the staleness window")

	time.Sleep(220 * time.Millisecond)
	r.Offer(feed.Observation{
		Price:      0.0030,
		Source:     feed.SourceDOM,
		Confidence: feed.ConfidenceDisplay,
		Timestamp:  time.Now(),
	})
	require.Len(t, *got, 2)
	assert.Equal(t, 0.0030, (*got)[1].PriceUsd)
}

func TestContextReplacementResetsAnchor(t *testing.T) {
	r, got := newTestResolver(t, time.Millisecond, 3*time.Second)
	r.SetAnchor(0.001, 1_000_000)

	r.Offer(chartObs(2_000_000))
	require.Len(t, *got, 1)

	r.SetContext(market.Context{Symbol: "WIF"})
	assert.False(t, r.Anchor().Valid(), "anchor must reset on navigation")

	_, ok := r.Canonical()
	assert.False(t, ok, "canonical price is per instrument")

	// Inversion stays disabled until a fresh anchor arrives.
	r.Offer(chartObs(2_500_000))
	assert.Len(t, *got, 1)
}

func TestNoEmissionWithoutContext(t *testing.T) {
	r := New(Config{EmissionGap: time.Millisecond, Staleness: time.Second}, nil, zaptest.NewLogger(t))

	var got []CanonicalPrice
	r.OnPrice(func(p CanonicalPrice, _ market.Context) { got = append(got, p) })

	r.Offer(netObs(0.0042))
	assert.Empty(t, got)
}

func TestCurrentMarketCapTracksFreshestRead(t *testing.T) {
	r, _ := newTestResolver(t, time.Millisecond, 3*time.Second)

	r.Offer(chartObs(2_000_000))
	mc, ts := r.CurrentMarketCap()
	assert.Equal(t, 2_000_000.0, mc)
	assert.False(t, ts.IsZero())

	// Unchanged read still refreshes the timestamp.
	time.Sleep(5 * time.Millisecond)
	r.Offer(chartObs(2_000_000))
	_, ts2 := r.CurrentMarketCap()
	assert.True(t, ts2.After(ts) || ts2.Equal(ts))
}

// internal/app/app_test.go
package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/needsmorergb/paperterm/internal/config"
	"github.com/needsmorergb/paperterm/internal/market"
)

func testRunnerConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		SessionName:    "test",
		StartSol:       10,
		DustThreshold:  1e-6,
		MaxTrades:      100,
		EmissionGapMs:  10,
		DomPollMs:      50,
		ChartPollMs:    50,
		ScanCap:        config.DefaultScanCap,
		WalkNodeCap:    config.DefaultWalkNodeCap,
		McStalenessMs:  3000,
		SolUsdTTLMs:    10_000,
		SolUsdFallback: 100,
		LogDir:         t.TempDir(),
	}
}

func TestRunnerTradeFlow(t *testing.T) {
	r, err := NewRunner(testRunnerConfig(t), Options{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	mctx := market.Context{Symbol: "WIF"}
	r.SetInstrument(mctx)
	assert.True(t, r.Resolver().Context().Equal(mctx))

	// An intercepted quote response becomes the canonical price.
	r.HandleNetworkPayload(
		"https://api.example.com/quote?symbol=WIF",
		[]byte(`{"symbol":"WIF","priceUsd":"0.001"}`),
	)

	price, ok := r.Resolver().Canonical()
	require.True(t, ok)
	assert.InDelta(t, 0.001, price.PriceUsd, 1e-12)

	_, err = r.Ledger().ExecuteBuy(mctx, 1)
	require.NoError(t, err)

	_, err = r.Ledger().ExecuteSell(mctx, 100)
	require.NoError(t, err)
	assert.InDelta(t, 10, r.Ledger().CashSol(), 1e-9)
}

func TestRunnerSessionRestore(t *testing.T) {
	cfg := testRunnerConfig(t)
	logger := zaptest.NewLogger(t)

	r, err := NewRunner(cfg, Options{}, logger)
	require.NoError(t, err)

	mctx := market.Context{Symbol: "WIF"}
	r.SetInstrument(mctx)
	r.HandleNetworkPayload(
		"https://api.example.com/quote?symbol=WIF",
		[]byte(`{"symbol":"WIF","priceUsd":"0.001"}`),
	)
	_, err = r.Ledger().ExecuteBuy(mctx, 2)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, r.saver.SaveState(ctx, r.Ledger().Snapshot()))

	// A fresh runner sharing the saver picks the session back up.
	restored, err := NewRunner(cfg, Options{}, logger)
	require.NoError(t, err)
	restored.saver = r.saver
	restored.led.SetSaver(r.saver)
	require.NoError(t, restored.RestoreSession(ctx))

	assert.InDelta(t, 8, restored.Ledger().CashSol(), 1e-9)
	pos, ok := restored.Ledger().GetPosition(mctx.Key())
	require.True(t, ok)
	assert.Greater(t, pos.TokenQty, 0.0)
}

func TestRunnerStopsOnCancel(t *testing.T) {
	r, err := NewRunner(testRunnerConfig(t), Options{}, zaptest.NewLogger(t))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop on cancel")
	}
}

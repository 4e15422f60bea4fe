// internal/ledger/history_test.go
package ledger

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func sampleTrade(side Side, pnl float64, realized bool) Trade {
	return Trade{
		Ts:             time.Now(),
		Key:            "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		Mint:           "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU",
		Symbol:         "WIF",
		Side:           side,
		Qty:            100_000,
		SolSize:        1,
		PriceUsd:       0.001,
		MarketCapUsd:   1_000_000,
		RealizedPnlSol: pnl,
		HasRealized:    realized,
	}
}

func TestTradeHistoryWritesCSV(t *testing.T) {
	dir := t.TempDir()
	th, err := NewTradeHistory(dir, 100, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, th.Log(sampleTrade(SideBuy, 0, false)))
	require.NoError(t, th.Log(sampleTrade(SideSell, 0.5, true)))
	require.NoError(t, th.Close())

	entries, err := filepath.Glob(filepath.Join(dir, "trades", "trades_*.csv"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	f, err := os.Open(entries[0])
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, CSVHeaders(), rows[0])
	assert.Equal(t, "BUY", rows[1][4])
	assert.Equal(t, "SELL", rows[2][4])
}

func TestTradeHistoryStatistics(t *testing.T) {
	th, err := NewTradeHistory(t.TempDir(), 100, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer th.Close()

	require.NoError(t, th.Log(sampleTrade(SideBuy, 0, false)))
	require.NoError(t, th.Log(sampleTrade(SideSell, 1.0, true)))
	require.NoError(t, th.Log(sampleTrade(SideSell, -0.5, true)))

	stats := th.Statistics()
	assert.Equal(t, 3, stats.TotalTrades)
	assert.Equal(t, 1, stats.BuyCount)
	assert.Equal(t, 2, stats.SellCount)
	assert.InDelta(t, 0.5, stats.TotalPnlSol, 1e-12)
	assert.InDelta(t, 50, stats.WinRate, 1e-9)
	assert.InDelta(t, 1.0, stats.AvgWinPnl, 1e-12)
	assert.InDelta(t, -0.5, stats.AvgLossPnl, 1e-12)
}

func TestTradeHistoryWindow(t *testing.T) {
	th, err := NewTradeHistory(t.TempDir(), 2, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer th.Close()

	for i := 0; i < 4; i++ {
		require.NoError(t, th.Log(sampleTrade(SideBuy, 0, false)))
	}

	assert.Len(t, th.Recent(0), 2)
	assert.Equal(t, 4, th.Statistics().TotalTrades)
}

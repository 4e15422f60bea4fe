// internal/storage/storage_test.go
package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/needsmorergb/paperterm/internal/ledger"
	"github.com/needsmorergb/paperterm/internal/storage/models"
)

func TestMemoryStorageSessionRoundTrip(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	_, err := store.GetSession(ctx, "missing")
	assert.Error(t, err)

	state := &models.SessionState{
		SessionName: "default",
		StartSol:    10,
		CashSol:     8,
		Payload:     []byte(`{}`),
		SavedAt:     time.Now(),
	}
	require.NoError(t, store.SaveSession(ctx, state))

	// Upsert keeps one row per session.
	state.CashSol = 7
	require.NoError(t, store.SaveSession(ctx, state))

	got, err := store.GetSession(ctx, "default")
	require.NoError(t, err)
	assert.InDelta(t, 7, got.CashSol, 1e-12)
}

func TestMemoryStorageListTrades(t *testing.T) {
	store := NewMemoryStorage()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveTrade(ctx, &models.TradeRecord{
			TradeID:       string(rune('a' + i)),
			InstrumentKey: "WIF",
			Side:          "BUY",
			ExecutedAt:    time.Now(),
		}))
	}
	require.NoError(t, store.SaveTrade(ctx, &models.TradeRecord{
		TradeID:       "z",
		InstrumentKey: "BONK",
		Side:          "BUY",
		ExecutedAt:    time.Now(),
	}))

	trades, err := store.ListTrades(ctx, "WIF", 2, 0)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	// Newest first.
	assert.Equal(t, "c", trades[0].TradeID)

	all, err := store.ListTrades(ctx, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSessionSaverRoundTrip(t *testing.T) {
	store := NewMemoryStorage()
	saver := NewSessionSaver(store, "default", zaptest.NewLogger(t))
	ctx := context.Background()

	_, found, err := saver.LoadState(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	st := ledger.State{
		SavedAt:     time.Now(),
		StartSol:    10,
		CashSol:     8,
		RealizedSol: 0.5,
		Positions: []ledger.Position{{
			Key:      "WIF",
			Symbol:   "WIF",
			TokenQty: 100_000,
		}},
		Trades: []ledger.Trade{{
			ID:   "t1",
			Ts:   time.Now(),
			Key:  "WIF",
			Side: ledger.SideBuy,
		}},
	}
	require.NoError(t, saver.SaveState(ctx, st))

	loaded, found, err := saver.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 8, loaded.CashSol, 1e-12)
	assert.InDelta(t, 0.5, loaded.RealizedSol, 1e-12)
	require.Len(t, loaded.Positions, 1)
	assert.Equal(t, "WIF", loaded.Positions[0].Key)
	require.Len(t, loaded.Trades, 1)

	// Trade rows are mirrored once.
	require.NoError(t, saver.SaveState(ctx, st))
	trades, err := store.ListTrades(ctx, "WIF", 0, 0)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

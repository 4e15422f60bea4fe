// internal/ledger/ledger.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/needsmorergb/paperterm/internal/events"
	"github.com/needsmorergb/paperterm/internal/market"
)

var (
	// ErrInvalidInput rejects non-positive amounts/percents and
	// over-withdrawals. No state is mutated.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoPosition rejects a sell with nothing held.
	ErrNoPosition = errors.New("no position")

	// ErrNoPrice is returned when no canonical price (or SOL/USD rate) has
	// ever been observed, so a fill cannot be sized at all.
	ErrNoPrice = errors.New("no price available")
)

// SolUsdSource supplies the externally sourced SOL/USD rate.
type SolUsdSource interface {
	SolUsd() float64
}

// PriceSnapshot is the resolver-side view the ledger values against.
type PriceSnapshot struct {
	PriceUsd     float64
	PriceTs      time.Time
	MarketCapUsd float64
	MarketCapTs  time.Time
}

// PriceSource supplies the latest canonical price and globally observed
// market cap on demand.
type PriceSource interface {
	Snapshot() PriceSnapshot
}

// Saver persists ledger state. Saves are fire-and-forget; callers must not
// assume durability before the next load.
type Saver interface {
	SaveState(ctx context.Context, st State) error
}

// Config holds ledger tuning.
type Config struct {
	StartSol      float64
	DustThreshold float64
	McStaleness   time.Duration
	MaxTrades     int
}

// BuyResult reports a committed buy.
type BuyResult struct {
	TokenQty      float64
	EntryPriceUsd float64
	PriceUsd      float64
}

// SellResult reports a committed sell.
type SellResult struct {
	SolReceived    float64
	RealizedPnlSol float64
}

// Ledger owns all position and trade-history state. It is the single
// writer: every mutation flows through ExecuteBuy, ExecuteSell, MarkPrice
// or Restore, serialized under one mutex so a price tick can never land in
// the middle of cost-basis math.
type Ledger struct {
	mu      sync.Mutex
	cfg     Config
	logger  *zap.Logger
	bus     *events.Bus
	rates   SolUsdSource
	prices  PriceSource
	saver   Saver
	history *TradeHistory

	cashSol     float64
	realizedSol float64
	positions   map[string]*Position
	trades      []Trade

	winStreak               int
	lossStreak              int
	lastPortfolioMultiplier int
}

// New creates a ledger with the full starting balance in cash. bus, saver
// and history may be nil.
func New(cfg Config, rates SolUsdSource, prices PriceSource, bus *events.Bus, logger *zap.Logger) *Ledger {
	if cfg.MaxTrades <= 0 {
		cfg.MaxTrades = 500
	}
	return &Ledger{
		cfg:       cfg,
		logger:    logger.Named("ledger"),
		bus:       bus,
		rates:     rates,
		prices:    prices,
		cashSol:   cfg.StartSol,
		positions: make(map[string]*Position),
	}
}

// SetSaver installs the persistence sink.
func (l *Ledger) SetSaver(s Saver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.saver = s
}

// SetHistory installs the trade history manager.
func (l *Ledger) SetHistory(h *TradeHistory) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = h
}

// ExecuteBuy converts solAmount of cash into the instrument at the current
// canonical price.
func (l *Ledger) ExecuteBuy(mctx market.Context, solAmount float64) (BuyResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if solAmount <= 0 || mctx.Empty() {
		return BuyResult{}, ErrInvalidInput
	}
	if solAmount > l.cashSol {
		return BuyResult{}, fmt.Errorf("%w: %.4f SOL exceeds cash %.4f", ErrInvalidInput, solAmount, l.cashSol)
	}

	snap := l.prices.Snapshot()
	solUsd := l.rates.SolUsd()
	if snap.PriceUsd <= 0 || solUsd <= 0 {
		return BuyResult{}, ErrNoPrice
	}

	priceUsd := snap.PriceUsd
	marketCap := snap.MarketCapUsd

	tokenQty := (solAmount * solUsd) / priceUsd
	l.cashSol -= solAmount

	key := mctx.Key()
	pos, ok := l.positions[key]
	if !ok {
		impliedSupply := 0.0
		if marketCap > 0 && priceUsd > 0 {
			impliedSupply = marketCap / priceUsd
		}
		pos = &Position{
			Key:           key,
			Mint:          mctx.Mint,
			Symbol:        mctx.Symbol,
			ImpliedSupply: impliedSupply,
			EntryTs:       time.Now(),
		}
		l.positions[key] = pos
	}

	oldQty := pos.TokenQty
	oldSpent := pos.TotalSolSpent

	// Share-weighted entry price, SOL-spend-weighted entry market cap:
	// cost basis follows dollar-weighted entries.
	pos.EntryPriceUsd = (oldQty*pos.EntryPriceUsd + tokenQty*priceUsd) / (oldQty + tokenQty)
	if oldSpent+solAmount > 0 {
		pos.EntryMarketCapUsd = (oldSpent*pos.EntryMarketCapUsd + solAmount*marketCap) / (oldSpent + solAmount)
	}
	pos.TokenQty = oldQty + tokenQty
	pos.TotalSolSpent = oldSpent + solAmount
	pos.LastPriceUsd = priceUsd
	pos.LastPriceTs = time.Now()

	trade := Trade{
		ID:           uuid.New().String(),
		Ts:           time.Now(),
		Key:          key,
		Mint:         mctx.Mint,
		Symbol:       mctx.Symbol,
		Side:         SideBuy,
		Qty:          tokenQty,
		SolSize:      solAmount,
		PriceUsd:     priceUsd,
		MarketCapUsd: marketCap,
	}
	l.recordTradeLocked(trade)

	l.logger.Info("Buy executed",
		zap.String("key", key),
		zap.Float64("sol", solAmount),
		zap.Float64("qty", tokenQty),
		zap.Float64("price_usd", priceUsd))

	l.saveAsyncLocked()

	return BuyResult{TokenQty: tokenQty, EntryPriceUsd: pos.EntryPriceUsd, PriceUsd: priceUsd}, nil
}

// ExecuteSell sells sellPct percent of the held quantity. Cost-basis
// reduction is proportional in quantity, not in dollars, which keeps
// realized PnL consistent with the cash balance delta regardless of
// SOL/USD drift between entry and exit.
func (l *Ledger) ExecuteSell(mctx market.Context, sellPct float64) (SellResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if sellPct <= 0 || sellPct > 100 {
		return SellResult{}, ErrInvalidInput
	}

	key := mctx.Key()
	pos, ok := l.positions[key]
	if !ok || pos.TokenQty <= 0 {
		return SellResult{}, ErrNoPosition
	}

	solUsd := l.rates.SolUsd()
	if solUsd <= 0 {
		return SellResult{}, ErrNoPrice
	}

	// Degraded-signal policy: prefer the live canonical price, fall back
	// to the position's last sample rather than failing.
	snap := l.prices.Snapshot()
	priceUsd := snap.PriceUsd
	if priceUsd <= 0 {
		priceUsd = pos.LastPriceUsd
	}

	sellQty := pos.TokenQty * sellPct / 100
	proceedsUsd := sellQty * priceUsd
	solReceived := proceedsUsd / solUsd

	solSpentPortion := pos.TotalSolSpent * (sellQty / pos.TokenQty)
	realizedPnl := solReceived - solSpentPortion

	l.cashSol += solReceived
	l.realizedSol += realizedPnl
	pos.TotalSolSpent -= solSpentPortion
	pos.TokenQty -= sellQty
	if priceUsd > 0 {
		pos.LastPriceUsd = priceUsd
		pos.LastPriceTs = time.Now()
	}

	if pos.TokenQty < l.cfg.DustThreshold {
		delete(l.positions, key)
	}

	trade := Trade{
		ID:             uuid.New().String(),
		Ts:             time.Now(),
		Key:            key,
		Mint:           mctx.Mint,
		Symbol:         mctx.Symbol,
		Side:           SideSell,
		Qty:            sellQty,
		SolSize:        solReceived,
		PriceUsd:       priceUsd,
		MarketCapUsd:   snap.MarketCapUsd,
		RealizedPnlSol: realizedPnl,
		HasRealized:    true,
	}
	l.recordTradeLocked(trade)

	l.updateStreaksLocked(realizedPnl)
	l.updatePortfolioMultiplierLocked()

	l.logger.Info("Sell executed",
		zap.String("key", key),
		zap.Float64("pct", sellPct),
		zap.Float64("sol_received", solReceived),
		zap.Float64("realized_pnl_sol", realizedPnl))

	l.saveAsyncLocked()

	return SellResult{SolReceived: solReceived, RealizedPnlSol: realizedPnl}, nil
}

// MarkPrice records a fresh canonical price sample against the position
// for key, so valuation and derived-market-cap staleness see it.
func (l *Ledger) MarkPrice(key string, priceUsd float64, ts time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if priceUsd <= 0 {
		return
	}
	if pos, ok := l.positions[key]; ok {
		pos.LastPriceUsd = priceUsd
		pos.LastPriceTs = ts
	}
}

// UnrealizedPnlSol sums unrealized PnL across all open positions.
func (l *Ledger) UnrealizedPnlSol() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unrealizedLocked()
}

// SessionPnlSol is unrealized plus realized PnL.
func (l *Ledger) SessionPnlSol() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unrealizedLocked() + l.realizedSol
}

// GetPosition returns a snapshot copy of the position for key.
func (l *Ledger) GetPosition(key string) (Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[key]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// GetTradeHistory returns the most recent limit trades (all when limit<=0).
func (l *Ledger) GetTradeHistory(limit int) []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.trades) {
		limit = len(l.trades)
	}
	start := len(l.trades) - limit
	out := make([]Trade, limit)
	copy(out, l.trades[start:])
	return out
}

// CashSol returns the free cash balance.
func (l *Ledger) CashSol() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cashSol
}

// RealizedSol returns cumulative realized PnL.
func (l *Ledger) RealizedSol() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.realizedSol
}

// Streaks returns the current win and loss streaks.
func (l *Ledger) Streaks() (win, loss int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.winStreak, l.lossStreak
}

// unrealizedLocked applies the two valuation methods with their explicit
// fallback order.
func (l *Ledger) unrealizedLocked() float64 {
	snap := l.prices.Snapshot()
	solUsd := l.rates.SolUsd()

	total := 0.0
	for _, pos := range l.positions {
		total += l.unrealizedForLocked(pos, snap, solUsd)
	}
	return total
}

func (l *Ledger) unrealizedForLocked(pos *Position, snap PriceSnapshot, solUsd float64) float64 {
	// Method A: market-cap ratio against the cost-basis market cap.
	if pos.EntryMarketCapUsd > 0 && pos.TotalSolSpent > 0 {
		liveMC := snap.MarketCapUsd
		if derived := pos.DerivedMarketCap(); derived > 0 &&
			time.Since(pos.LastPriceTs) <= l.cfg.McStaleness {
			liveMC = derived
		}
		if liveMC > 0 {
			return pos.TotalSolSpent*(liveMC/pos.EntryMarketCapUsd) - pos.TotalSolSpent
		}
	}

	// Method B: price ratio.
	if pos.LastPriceUsd > 0 && solUsd > 0 {
		currentValueSol := (pos.TokenQty * pos.LastPriceUsd) / solUsd
		return currentValueSol - pos.TotalSolSpent
	}
	return 0
}

func (l *Ledger) recordTradeLocked(trade Trade) {
	if len(l.trades) >= l.cfg.MaxTrades {
		l.trades = l.trades[1:]
	}
	l.trades = append(l.trades, trade)

	if l.history != nil {
		if err := l.history.Log(trade); err != nil {
			l.logger.Error("Failed to log trade", zap.Error(err))
		}
	}

	if l.bus != nil {
		_ = l.bus.Publish(events.TradeExecutedEvent{
			BaseEvent:       events.BaseEvent{EventType: events.TradeExecuted, EventTime: trade.Ts},
			TradeID:         trade.ID,
			Mint:            trade.Mint,
			Side:            string(trade.Side),
			Qty:             trade.Qty,
			SolSize:         trade.SolSize,
			PriceUsd:        trade.PriceUsd,
			RealizedPnlSol:  trade.RealizedPnlSol,
			RealizedApplies: trade.HasRealized,
		})
	}
}

func (l *Ledger) updateStreaksLocked(realizedPnl float64) {
	if realizedPnl > 0 {
		l.winStreak++
		l.lossStreak = 0
		if l.winStreak%5 == 0 {
			l.publishStreakLocked(events.StreakWin, l.winStreak)
		}
		return
	}

	l.lossStreak++
	l.winStreak = 0
	if lossCheckpoint(l.lossStreak) {
		l.publishStreakLocked(events.StreakLoss, l.lossStreak)
	}
}

// lossCheckpoint reports losses at 3, 5, then every 5th.
func lossCheckpoint(count int) bool {
	return count == 3 || count == 5 || (count > 5 && count%5 == 0)
}

func (l *Ledger) publishStreakLocked(kind events.StreakKind, count int) {
	l.logger.Info("Streak checkpoint",
		zap.String("kind", string(kind)),
		zap.Int("count", count))

	if l.bus != nil {
		_ = l.bus.Publish(events.StreakReachedEvent{
			BaseEvent: events.BaseEvent{EventType: events.StreakReached, EventTime: time.Now()},
			Kind:      kind,
			Count:     count,
		})
	}
}

func (l *Ledger) updatePortfolioMultiplierLocked() {
	if l.cfg.StartSol <= 0 {
		return
	}

	equity := l.cashSol + l.unrealizedLocked() + l.realizedSol
	multiplier := int(math.Floor(equity / l.cfg.StartSol))
	if multiplier < 2 || multiplier <= l.lastPortfolioMultiplier {
		return
	}

	l.lastPortfolioMultiplier = multiplier
	l.logger.Info("Portfolio milestone",
		zap.Int("multiplier", multiplier),
		zap.Float64("equity_sol", equity))

	if l.bus != nil {
		_ = l.bus.Publish(events.PortfolioMilestoneEvent{
			BaseEvent:  events.BaseEvent{EventType: events.PortfolioMilestone, EventTime: time.Now()},
			Multiplier: multiplier,
			EquitySol:  equity,
		})
	}
}

// saveAsyncLocked persists a snapshot without blocking the trade path.
func (l *Ledger) saveAsyncLocked() {
	if l.saver == nil {
		return
	}

	st := l.stateLocked()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.saver.SaveState(ctx, st); err != nil {
			l.logger.Warn("State save failed", zap.Error(err))
		}
	}()
}

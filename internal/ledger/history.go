// internal/ledger/history.go
package ledger

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/needsmorergb/paperterm/internal/logger"
)

// TradeHistory mirrors committed trades to a session CSV file and keeps a
// bounded in-memory window for statistics.
type TradeHistory struct {
	mu        sync.RWMutex
	csvWriter *logger.SafeCSVWriter
	trades    []Trade
	maxTrades int
	logger    *zap.Logger

	// Statistics
	totalTrades int
	buyCount    int
	sellCount   int
	totalVolume float64
	totalPnlSol float64
}

// NewTradeHistory creates a new trade history manager writing under
// logDir/trades.
func NewTradeHistory(logDir string, maxTrades int, zapLogger *zap.Logger) (*TradeHistory, error) {
	tradesDir := filepath.Join(logDir, "trades")

	filename := fmt.Sprintf("trades_%s.csv", time.Now().Format("20060102_150405"))
	csvPath := filepath.Join(tradesDir, filename)

	csvWriter, err := logger.NewSafeCSVWriter(csvPath, 30*time.Second, zapLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}

	if err := csvWriter.WriteRecord(CSVHeaders()); err != nil {
		csvWriter.Close()
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	th := &TradeHistory{
		csvWriter: csvWriter,
		trades:    make([]Trade, 0, maxTrades),
		maxTrades: maxTrades,
		logger:    zapLogger,
	}

	zapLogger.Info("Trade history initialized",
		zap.String("csv_file", csvPath),
		zap.Int("max_memory_trades", maxTrades))

	return th, nil
}

// Log appends a trade to the CSV file and the in-memory window.
func (th *TradeHistory) Log(trade Trade) error {
	th.mu.Lock()
	defer th.mu.Unlock()

	if trade.ID == "" {
		trade.ID = fmt.Sprintf("%s_%d", trade.Key, time.Now().UnixNano())
	}
	if trade.Ts.IsZero() {
		trade.Ts = time.Now()
	}

	if err := th.csvWriter.WriteRecord(trade.ToCSV()); err != nil {
		th.logger.Error("Failed to write trade to CSV",
			zap.String("trade_id", trade.ID),
			zap.Error(err))
		return fmt.Errorf("failed to write trade: %w", err)
	}

	if len(th.trades) >= th.maxTrades {
		th.trades = th.trades[1:]
	}
	th.trades = append(th.trades, trade)

	th.totalTrades++
	th.totalVolume += trade.SolSize
	switch trade.Side {
	case SideBuy:
		th.buyCount++
	case SideSell:
		th.sellCount++
	}
	if trade.HasRealized {
		th.totalPnlSol += trade.RealizedPnlSol
	}

	return nil
}

// Recent returns up to limit most recent trades.
func (th *TradeHistory) Recent(limit int) []Trade {
	th.mu.RLock()
	defer th.mu.RUnlock()

	if limit <= 0 || limit > len(th.trades) {
		limit = len(th.trades)
	}

	start := len(th.trades) - limit
	result := make([]Trade, limit)
	copy(result, th.trades[start:])

	return result
}

// ByKey returns all in-memory trades for one instrument key.
func (th *TradeHistory) ByKey(key string) []Trade {
	th.mu.RLock()
	defer th.mu.RUnlock()

	var result []Trade
	for _, trade := range th.trades {
		if trade.Key == key {
			result = append(result, trade)
		}
	}

	return result
}

// Statistics returns aggregate trade statistics.
func (th *TradeHistory) Statistics() TradeStatistics {
	th.mu.RLock()
	defer th.mu.RUnlock()
	return th.statisticsLocked()
}

func (th *TradeHistory) statisticsLocked() TradeStatistics {
	stats := TradeStatistics{
		TotalTrades: th.totalTrades,
		BuyCount:    th.buyCount,
		SellCount:   th.sellCount,
		TotalVolume: th.totalVolume,
		TotalPnlSol: th.totalPnlSol,
	}

	var (
		winCount    int
		totalWinPnl float64
		lossCount   int
		totalLoss   float64
	)

	for _, trade := range th.trades {
		if !trade.HasRealized {
			continue
		}
		if trade.RealizedPnlSol > 0 {
			winCount++
			totalWinPnl += trade.RealizedPnlSol
		} else {
			lossCount++
			totalLoss += trade.RealizedPnlSol
		}
	}

	if winCount+lossCount > 0 {
		stats.WinRate = float64(winCount) / float64(winCount+lossCount) * 100
	}
	if winCount > 0 {
		stats.AvgWinPnl = totalWinPnl / float64(winCount)
	}
	if lossCount > 0 {
		stats.AvgLossPnl = totalLoss / float64(lossCount)
	}

	return stats
}

// Flush forces a write of any buffered trades.
func (th *TradeHistory) Flush() error {
	return th.csvWriter.Flush()
}

// Close closes the trade history and ensures all data is written.
func (th *TradeHistory) Close() error {
	th.mu.Lock()
	defer th.mu.Unlock()

	stats := th.statisticsLocked()
	th.logger.Info("Closing trade history",
		zap.Int("total_trades", stats.TotalTrades),
		zap.Float64("total_volume", stats.TotalVolume),
		zap.Float64("total_pnl_sol", stats.TotalPnlSol),
		zap.Float64("win_rate", stats.WinRate))

	return th.csvWriter.Close()
}

// TradeStatistics holds aggregate trade statistics.
type TradeStatistics struct {
	TotalTrades int     `json:"total_trades"`
	BuyCount    int     `json:"buy_count"`
	SellCount   int     `json:"sell_count"`
	TotalVolume float64 `json:"total_volume"`
	TotalPnlSol float64 `json:"total_pnl_sol"`
	WinRate     float64 `json:"win_rate"`
	AvgWinPnl   float64 `json:"avg_win_pnl"`
	AvgLossPnl  float64 `json:"avg_loss_pnl"`
}

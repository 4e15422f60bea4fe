// internal/ledger/trade.go
package ledger

import (
	"fmt"
	"time"
)

// Side discriminates buy and sell fills.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Trade is an immutable record of one simulated fill. Created at execution
// time, never mutated, retained for history and streak computation.
type Trade struct {
	ID     string    `json:"id"`
	Ts     time.Time `json:"ts"`
	Key    string    `json:"key"`
	Mint   string    `json:"mint,omitempty"`
	Symbol string    `json:"symbol,omitempty"`
	Side   Side      `json:"side"`

	Qty          float64 `json:"qty"`
	SolSize      float64 `json:"sol_size"`
	PriceUsd     float64 `json:"price_usd"`
	MarketCapUsd float64 `json:"market_cap_usd"`

	// Sells only
	RealizedPnlSol float64 `json:"realized_pnl_sol,omitempty"`
	HasRealized    bool    `json:"has_realized,omitempty"`
}

// ToCSV converts the trade to a CSV record.
func (t *Trade) ToCSV() []string {
	realized := ""
	if t.HasRealized {
		realized = formatFloat(t.RealizedPnlSol)
	}
	return []string{
		t.ID,
		t.Ts.Format(time.RFC3339),
		t.Key,
		t.Symbol,
		string(t.Side),
		formatFloat(t.Qty),
		formatFloat(t.SolSize),
		formatFloat(t.PriceUsd),
		formatFloat(t.MarketCapUsd),
		realized,
	}
}

// CSVHeaders returns the header row for trade CSV files.
func CSVHeaders() []string {
	return []string{
		"id",
		"ts",
		"key",
		"symbol",
		"side",
		"qty",
		"sol_size",
		"price_usd",
		"market_cap_usd",
		"realized_pnl_sol",
	}
}

func formatFloat(f float64) string {
	if f == 0 {
		return "0"
	}
	return fmt.Sprintf("%.10g", f)
}

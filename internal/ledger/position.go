// internal/ledger/position.go
package ledger

import "time"

// Position is the open holding for one instrument key. TotalSolSpent is
// the SOL-denominated cost basis of TokenQty and follows the
// weighted-average update rule on buys and proportional reduction on
// sells. ImpliedSupply is fixed at first entry and used to re-derive a
// market cap from later price samples.
type Position struct {
	Key    string `json:"key"`
	Mint   string `json:"mint,omitempty"`
	Symbol string `json:"symbol,omitempty"`

	TokenQty          float64   `json:"token_qty"`
	EntryPriceUsd     float64   `json:"entry_price_usd"`
	LastPriceUsd      float64   `json:"last_price_usd"`
	LastPriceTs       time.Time `json:"last_price_ts"`
	EntryMarketCapUsd float64   `json:"entry_market_cap_usd"`
	ImpliedSupply     float64   `json:"implied_supply"`
	TotalSolSpent     float64   `json:"total_sol_spent"`
	EntryTs           time.Time `json:"entry_ts"`
}

// DerivedMarketCap re-derives the position's market cap from its freshest
// price sample.
func (p *Position) DerivedMarketCap() float64 {
	return p.ImpliedSupply * p.LastPriceUsd
}

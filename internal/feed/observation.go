// internal/feed/observation.go
package feed

import "time"

// Source tags which adapter produced an observation. The resolver consumes
// the closed set exhaustively; anything else is dropped.
type Source string

const (
	SourceNetwork  Source = "network"
	SourceDOM      Source = "dom"
	SourceChart    Source = "chart"
	SourceChartAPI Source = "chart-api"
)

// Confidence tiers for an observation's denomination.
const (
	ConfidenceGeneric = 1 // generic numeric field of unknown denomination
	ConfidenceDisplay = 2 // scraped or derived display value
	ConfidenceUSD     = 3 // explicit USD-denominated field or formula-derived
)

// Plausibility bounds for a per-token unit price in USD. Values outside are
// treated as noise (or as a market cap that leaked into a price field).
const (
	MinPriceUsd = 1e-12
	MaxPriceUsd = 1e5
)

// Observation is a single raw price (or, for chart sources on cap-plotting
// venues, market-cap) sample. Ephemeral; never persisted.
type Observation struct {
	Price      float64
	Source     Source
	Confidence int
	RawKey     string
	Timestamp  time.Time
}

// PlausiblePrice reports whether v is in the plausible unit-price range.
func PlausiblePrice(v float64) bool {
	return v >= MinPriceUsd && v <= MaxPriceUsd
}

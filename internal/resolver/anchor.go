// internal/resolver/anchor.go
package resolver

// Plausibility bounds for a chart-plotted market capitalization.
const (
	MinChartMarketCap = 1_000
	MaxChartMarketCap = 1e13
)

// ReferenceAnchor is a known-good (price, market cap) pair for the current
// instrument, supplied externally once per context. Invalid until both
// components are positive; market-cap inversion is disabled while invalid.
type ReferenceAnchor struct {
	RefPriceUsd     float64
	RefMarketCapUsd float64
}

// Valid reports whether the anchor can back inversion.
func (a ReferenceAnchor) Valid() bool {
	return a.RefPriceUsd > 0 && a.RefMarketCapUsd > 0
}

// InferPrice derives a unit price from a chart market cap:
//
//	inferredPrice = refPriceUsd * (chartMarketCap / refMarketCapUsd)
//
// Callers must check Valid first.
func (a ReferenceAnchor) InferPrice(chartMarketCap float64) float64 {
	return a.RefPriceUsd * (chartMarketCap / a.RefMarketCapUsd)
}

// PlausibleMarketCap reports whether a chart reading is in the accepted
// capitalization range.
func PlausibleMarketCap(mc float64) bool {
	return mc >= MinChartMarketCap && mc <= MaxChartMarketCap
}

// internal/market/gate.go
package market

import (
	"regexp"
	"strings"
)

// shortPayloadLimit is the size under which the sub-cent heuristic applies.
// Very short payloads (single quote objects, ticker frames) often carry no
// mint or symbol literal at all.
const shortPayloadLimit = 256

// subCentPattern matches a plausible sub-cent price fragment such as
// "0.0003918". Requires at least two leading zeros after the point so that
// ordinary quantities do not pass.
var subCentPattern = regexp.MustCompile(`0\.0{2,}\d+`)

// Gate decides whether raw scanned text is plausibly about the current
// instrument, rejecting cross-instrument noise before it reaches the
// resolver.
type Gate struct {
	scanCap int
}

// NewGate creates a gate that scans at most scanCap characters per payload.
func NewGate(scanCap int) *Gate {
	return &Gate{scanCap: scanCap}
}

// LooksRelated reports whether text plausibly refers to the instrument in
// ctx. Accepts on the mint address literal, the symbol (case-insensitive),
// or, for very short payloads, a sub-cent price fragment. An empty context
// accepts nothing.
func (g *Gate) LooksRelated(text string, ctx Context) bool {
	if ctx.Empty() || text == "" {
		return false
	}

	if g.scanCap > 0 && len(text) > g.scanCap {
		text = text[:g.scanCap]
	}

	if ctx.Mint != "" && strings.Contains(text, ctx.Mint) {
		return true
	}

	if ctx.Symbol != "" {
		if strings.Contains(strings.ToLower(text), strings.ToLower(ctx.Symbol)) {
			return true
		}
	}

	// Tie-break for tiny payloads that identify nothing explicitly.
	if len(text) <= shortPayloadLimit && subCentPattern.MatchString(text) {
		return true
	}

	return false
}

// internal/market/context.go
package market

import (
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Context identifies the instrument currently being watched. It is replaced
// wholesale when the user navigates to a different instrument; callers react
// to a replacement by resetting any per-instrument derived state.
type Context struct {
	Mint   string
	Symbol string
}

// Empty reports whether no instrument is set.
func (c Context) Empty() bool {
	return c.Mint == "" && c.Symbol == ""
}

// Key returns the position key for this instrument: the mint address when
// known, falling back to the upper-cased symbol.
func (c Context) Key() string {
	if c.Mint != "" {
		return c.Mint
	}
	return strings.ToUpper(c.Symbol)
}

// HasValidMint reports whether Mint parses as a Solana public key. A mint
// that fails to parse is still usable as an opaque key; it just cannot be
// trusted for address-literal matching.
func (c Context) HasValidMint() bool {
	if c.Mint == "" {
		return false
	}
	_, err := solana.PublicKeyFromBase58(c.Mint)
	return err == nil
}

// Equal reports whether two contexts identify the same instrument.
func (c Context) Equal(other Context) bool {
	return c.Mint == other.Mint && strings.EqualFold(c.Symbol, other.Symbol)
}

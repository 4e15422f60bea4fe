// internal/feed/subscript.go
package feed

import (
	"regexp"
	"strconv"
	"strings"
)

// Some venues compress long zero runs in sub-cent prices using a Unicode
// subscript digit: "$0.0₃918" means 0.0000918 ("0." followed by 3+1 zeros
// and the trailing digits).
var subscriptPattern = regexp.MustCompile(`\$0\.0([₀₁₂₃₄₅₆₇₈₉])(\d+)`)

// plainDollarPattern matches an ordinary dollar price, capturing any
// magnitude suffix so K/M/B values (market caps) can be rejected.
var plainDollarPattern = regexp.MustCompile(`\$([0-9]+(?:\.[0-9]+)?)\s*([KMBkmb]?)`)

var subscriptDigits = map[rune]int{
	'₀': 0, '₁': 1, '₂': 2, '₃': 3, '₄': 4,
	'₅': 5, '₆': 6, '₇': 7, '₈': 8, '₉': 9,
}

// DecodeSubscript decodes the subscript zero-run notation from text.
// "$0.0₃918" yields 0.0000918. Returns false when the notation is absent.
func DecodeSubscript(text string) (float64, bool) {
	m := subscriptPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}

	zeroRun, ok := subscriptDigits[[]rune(m[1])[0]]
	if !ok {
		return 0, false
	}

	literal := "0." + strings.Repeat("0", zeroRun+1) + m[2]
	v, err := strconv.ParseFloat(literal, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// DecodePriceText extracts a unit price from on-page text. The subscript
// notation takes precedence; otherwise a plain "$X.Y" is accepted only
// within the plausible instrument-price range, and suffixed values
// ("$42.5M") are rejected as market caps.
func DecodePriceText(text string) (float64, bool) {
	if v, ok := DecodeSubscript(text); ok {
		return v, true
	}

	m := plainDollarPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	if m[2] != "" {
		// Magnitude suffix: this is a capitalization, not a unit price.
		return 0, false
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || !PlausiblePrice(v) {
		return 0, false
	}
	return v, true
}

package feed

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSubscript(t *testing.T) {
	cases := []struct {
		text string
		want float64
	}{
		{"$0.0₃918", 0.0000918},
		{"$0.0₀5", 0.05},
		{"$0.0₁25", 0.0025},
		{"$0.0₅1234", 0.0000001234},
		{"price now $0.0₂77 (+4%)", 0.00077},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := DecodeSubscript(tc.text)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

// Decoding must agree exactly with float parsing of the expanded literal
// for every subscript digit.
func TestDecodeSubscriptMatchesExpandedLiteral(t *testing.T) {
	subs := []rune("₀₁₂₃₄₅₆₇₈₉")
	for n, sub := range subs {
		text := fmt.Sprintf("$0.0%c918", sub)
		want, err := strconv.ParseFloat("0."+strings.Repeat("0", n+1)+"918", 64)
		require.NoError(t, err)

		got, ok := DecodeSubscript(text)
		require.True(t, ok, "failed for subscript %d", n)
		assert.Equal(t, want, got)
	}
}

func TestDecodeSubscriptAbsent(t *testing.T) {
	for _, text := range []string{"", "$1.23", "$0.05", "no price here", "$0.0"} {
		_, ok := DecodeSubscript(text)
		assert.False(t, ok, "unexpected decode of %q", text)
	}
}

func TestDecodePriceTextPlain(t *testing.T) {
	v, ok := DecodePriceText("$1.23")
	require.True(t, ok)
	assert.Equal(t, 1.23, v)

	v, ok = DecodePriceText("price: $0.05 today")
	require.True(t, ok)
	assert.Equal(t, 0.05, v)
}

func TestDecodePriceTextRejectsMarketCapSuffix(t *testing.T) {
	for _, text := range []string{"$42.5M", "$1.2B", "$950K", "$3k"} {
		_, ok := DecodePriceText(text)
		assert.False(t, ok, "suffixed value %q must be rejected", text)
	}
}

func TestDecodePriceTextPrefersSubscript(t *testing.T) {
	v, ok := DecodePriceText("$0.0₃918")
	require.True(t, ok)
	assert.Equal(t, 0.0000918, v)
}

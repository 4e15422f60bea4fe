package feed

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestExtractPrefersUsdKeys(t *testing.T) {
	doc := decode(t, `{"price":0.002,"priceUsd":0.0042}`)

	got, ok := ExtractPrice(doc, 600)
	require.True(t, ok)
	assert.Equal(t, 0.0042, got.Value)
	assert.Equal(t, ConfidenceUSD, got.Confidence)
	assert.Equal(t, "priceUsd", got.Key)
}

func TestExtractGenericFallback(t *testing.T) {
	doc := decode(t, `{"pair":"X/SOL","lastPrice":0.0031,"volume":120000}`)

	got, ok := ExtractPrice(doc, 600)
	require.True(t, ok)
	assert.Equal(t, 0.0031, got.Value)
	assert.Equal(t, ConfidenceGeneric, got.Confidence)
}

func TestExtractNestedAndStringified(t *testing.T) {
	doc := decode(t, `{"data":{"attributes":{"price_usd":"0.0000918"}}}`)

	got, ok := ExtractPrice(doc, 600)
	require.True(t, ok)
	assert.Equal(t, 0.0000918, got.Value)
	assert.Equal(t, ConfidenceUSD, got.Confidence)
}

func TestExtractIgnoresImplausibleValues(t *testing.T) {
	// A market cap in a "price" slot is out of the plausible unit range.
	doc := decode(t, `{"price":45000000.0}`)
	_, ok := ExtractPrice(doc, 600)
	assert.False(t, ok)

	doc = decode(t, `{"price":-2}`)
	_, ok = ExtractPrice(doc, 600)
	assert.False(t, ok)
}

func TestExtractNodeCap(t *testing.T) {
	// Build a document whose price lies beyond the visit budget.
	inner := map[string]interface{}{"priceUsd": 0.5}
	var root interface{} = inner
	for i := 0; i < 50; i++ {
		root = map[string]interface{}{"a": root}
	}

	_, ok := ExtractPrice(root, 10)
	assert.False(t, ok)

	got, ok := ExtractPrice(root, 600)
	require.True(t, ok)
	assert.Equal(t, 0.5, got.Value)
}

func TestExtractArrayWalk(t *testing.T) {
	doc := decode(t, `{"candles":[{"close":0.0009},{"close":0.0011}]}`)

	got, ok := ExtractPrice(doc, 600)
	require.True(t, ok)
	assert.Equal(t, 0.0009, got.Value)
}

// internal/feed/extract.go
package feed

import (
	"sort"
	"strconv"
	"strings"
)

// Extraction is the tagged result of walking a decoded JSON document for a
// price-shaped field.
type Extraction struct {
	Value      float64
	Confidence int
	Key        string
}

// priceKeyHints are generic field names that tend to carry a quote value.
var priceKeyHints = []string{"priceusd", "price", "close", "last", "rate", "value", "quote"}

type walker struct {
	nodeCap int
	visited int

	usd     *Extraction
	generic *Extraction
}

// ExtractPrice walks a decoded JSON document (map/slice tree) looking for a
// price-shaped numeric field. Explicit USD-suffixed keys win over generic
// numeric keys; the walk visits at most nodeCap nodes. Map keys are visited
// in sorted order so the "first qualifying value" is deterministic.
func ExtractPrice(root interface{}, nodeCap int) (Extraction, bool) {
	w := &walker{nodeCap: nodeCap}
	w.walk("", root)

	if w.usd != nil {
		return *w.usd, true
	}
	if w.generic != nil {
		return *w.generic, true
	}
	return Extraction{}, false
}

func (w *walker) walk(key string, node interface{}) {
	if w.usd != nil || w.visited >= w.nodeCap {
		return
	}
	w.visited++

	switch v := node.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			w.walk(k, v[k])
			if w.usd != nil {
				return
			}
		}
	case []interface{}:
		for _, item := range v {
			w.walk(key, item)
			if w.usd != nil {
				return
			}
		}
	case float64:
		w.inspect(key, v)
	case string:
		// Quotes frequently arrive as stringified numbers.
		if f, ok := parseNumeric(v); ok {
			w.inspect(key, f)
		}
	}
}

func (w *walker) inspect(key string, v float64) {
	if key == "" || !PlausiblePrice(v) {
		return
	}
	lower := strings.ToLower(key)

	if strings.Contains(lower, "usd") {
		w.usd = &Extraction{Value: v, Confidence: ConfidenceUSD, Key: key}
		return
	}

	if w.generic != nil {
		return
	}
	for _, hint := range priceKeyHints {
		if strings.Contains(lower, hint) {
			w.generic = &Extraction{Value: v, Confidence: ConfidenceGeneric, Key: key}
			return
		}
	}
}

func parseNumeric(s string) (float64, bool) {
	if len(s) == 0 || len(s) > 32 {
		return 0, false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != 'e' && r != 'E' && r != '+' {
			return 0, false
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

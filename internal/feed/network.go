// internal/feed/network.go
package feed

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/needsmorergb/paperterm/internal/market"
)

// marketURLKeywords is the heuristic for traffic worth inspecting.
var marketURLKeywords = []string{
	"quote", "price", "ticker", "market", "candles",
	"kline", "chart", "pair", "swap", "route",
}

// MatchesMarketURL reports whether a URL plausibly carries market data.
func MatchesMarketURL(url string) bool {
	lower := strings.ToLower(url)
	for _, kw := range marketURLKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// EmitFunc receives observations from an adapter.
type EmitFunc func(Observation)

// NetworkAdapter inspects intercepted response bodies for price-shaped
// fields. It never resolves or reconciles; it only emits tagged
// observations. All parse failures are swallowed as "no observation".
type NetworkAdapter struct {
	gate    *market.Gate
	nodeCap int
	logger  *zap.Logger
	emit    EmitFunc
}

// NewNetworkAdapter creates a network signal adapter.
func NewNetworkAdapter(gate *market.Gate, nodeCap int, logger *zap.Logger, emit EmitFunc) *NetworkAdapter {
	return &NetworkAdapter{
		gate:    gate,
		nodeCap: nodeCap,
		logger:  logger.Named("feed_network"),
		emit:    emit,
	}
}

// HandleResponse inspects one intercepted HTTP/WebSocket body. The current
// instrument context is passed explicitly on each call.
func (na *NetworkAdapter) HandleResponse(mctx market.Context, url string, body []byte) {
	if len(body) == 0 || !MatchesMarketURL(url) {
		return
	}
	if !na.gate.LooksRelated(string(body), mctx) {
		return
	}

	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		na.logger.Debug("Unparseable response body", zap.String("url", url))
		return
	}

	ext, ok := ExtractPrice(doc, na.nodeCap)
	if !ok {
		return
	}

	na.logger.Debug("Network observation",
		zap.Float64("price", ext.Value),
		zap.String("key", ext.Key),
		zap.Int("confidence", ext.Confidence))

	na.emit(Observation{
		Price:      ext.Value,
		Source:     SourceNetwork,
		Confidence: ext.Confidence,
		RawKey:     ext.Key,
		Timestamp:  time.Now(),
	})
}

// ContextFunc supplies the instrument context at delivery time.
type ContextFunc func() market.Context

// StreamTap attaches the network adapter to a live WebSocket market-data
// stream. Frames are delivered out of band to HandleResponse.
type StreamTap struct {
	url     string
	adapter *NetworkAdapter
	current ContextFunc
	logger  *zap.Logger
}

// NewStreamTap creates a tap on the given WebSocket URL.
func NewStreamTap(url string, adapter *NetworkAdapter, current ContextFunc, logger *zap.Logger) *StreamTap {
	return &StreamTap{
		url:     url,
		adapter: adapter,
		current: current,
		logger:  logger.Named("stream_tap"),
	}
}

// Run dials the stream and reads frames until the context is cancelled.
func (st *StreamTap) Run(ctx context.Context) error {
	conn, _, _, err := ws.Dial(ctx, st.url)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	st.logger.Info("Stream tap connected", zap.String("url", st.url))

	for {
		msg, _, err := wsutil.ReadServerData(conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			st.logger.Warn("Stream read failed", zap.Error(err))
			return err
		}
		st.adapter.HandleResponse(st.current(), st.url, msg)
	}
}

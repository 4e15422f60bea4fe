// internal/resolver/resolver.go
package resolver

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/needsmorergb/paperterm/internal/events"
	"github.com/needsmorergb/paperterm/internal/feed"
	"github.com/needsmorergb/paperterm/internal/market"
)

// CanonicalPrice is the single latest accepted price for the current
// instrument. Overwritten monotonically in time; never rolled back.
type CanonicalPrice struct {
	PriceUsd   float64
	Source     feed.Source
	Confidence int
	Timestamp  time.Time
}

// PriceCallback receives each accepted canonical price.
type PriceCallback func(price CanonicalPrice, mctx market.Context)

// Config holds resolver tuning.
type Config struct {
	// EmissionGap is the minimum interval between canonical price updates.
	// Observations arriving faster overwrite a single pending slot; they
	// are never queued.
	EmissionGap time.Duration

	// Staleness is how long a higher-confidence canonical price blocks
	// acceptance of lower-confidence observations.
	Staleness time.Duration
}

// Resolver fuses tagged observations into one canonical price per
// instrument, applying confidence ranking, the emission-gap throttle and,
// for capitalization-plotting venues, market-cap inversion against the
// reference anchor. Single writer; all mutation goes through Offer,
// FlushPending, SetContext and SetAnchor.
type Resolver struct {
	mu     sync.Mutex
	cfg    Config
	logger *zap.Logger
	bus    *events.Bus

	mctx   market.Context
	anchor ReferenceAnchor

	// Chart state
	lastChartMC float64
	currentMC   float64
	currentMCTs time.Time

	canonical *CanonicalPrice
	lastEmit  time.Time
	pending   *CanonicalPrice

	callbacks []PriceCallback

	sentUpdates    uint64
	droppedUpdates uint64
}

// New creates a resolver. The bus may be nil when no event consumers exist.
func New(cfg Config, bus *events.Bus, logger *zap.Logger) *Resolver {
	return &Resolver{
		cfg:    cfg,
		bus:    bus,
		logger: logger.Named("resolver"),
	}
}

// OnPrice registers a callback fired on every accepted canonical price.
func (r *Resolver) OnPrice(fn PriceCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks = append(r.callbacks, fn)
}

// SetContext replaces the watched instrument wholesale. The reference
// anchor, chart state and canonical price are all per-instrument and are
// reset, forcing re-derivation.
func (r *Resolver) SetContext(mctx market.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mctx.Equal(mctx) {
		return
	}

	r.mctx = mctx
	r.anchor = ReferenceAnchor{}
	r.lastChartMC = 0
	r.currentMC = 0
	r.currentMCTs = time.Time{}
	r.canonical = nil
	r.pending = nil

	r.logger.Info("Instrument context replaced",
		zap.String("mint", mctx.Mint),
		zap.String("symbol", mctx.Symbol))
}

// Context returns the current instrument context.
func (r *Resolver) Context() market.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mctx
}

// SetAnchor installs the externally supplied reference pair for the
// current instrument. Zero components leave inversion disabled.
func (r *Resolver) SetAnchor(priceUsd, marketCapUsd float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.anchor = ReferenceAnchor{RefPriceUsd: priceUsd, RefMarketCapUsd: marketCapUsd}
	if r.anchor.Valid() {
		r.logger.Debug("Reference anchor set",
			zap.Float64("ref_price_usd", priceUsd),
			zap.Float64("ref_market_cap_usd", marketCapUsd))
	} else {
		r.logger.Debug("Reference anchor invalid, inversion disabled")
	}
}

// Anchor returns the current reference anchor.
func (r *Resolver) Anchor() ReferenceAnchor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.anchor
}

// Offer feeds one observation into the resolver. Observations are
// processed in arrival order; the canonical price is last-write-wins by
// arrival, confidence affects acceptance only.
func (r *Resolver) Offer(obs feed.Observation) {
	r.mu.Lock()

	var emitted *CanonicalPrice
	if !r.mctx.Empty() {
		switch obs.Source {
		case feed.SourceChart:
			emitted = r.offerChartLocked(obs)
		case feed.SourceNetwork, feed.SourceDOM, feed.SourceChartAPI:
			emitted = r.offerDirectLocked(obs.Price, obs.Source, obs.Confidence, obs.Timestamp)
		default:
			r.logger.Debug("Unknown observation source dropped",
				zap.String("source", string(obs.Source)))
		}
	}

	mctx := r.mctx
	r.mu.Unlock()

	if emitted != nil {
		r.notify(*emitted, mctx)
	}
}

// FlushPending emits the held pending observation once the emission gap
// has elapsed. Call periodically so a throttled burst's last value is not
// lost.
func (r *Resolver) FlushPending() {
	r.mu.Lock()

	var emitted *CanonicalPrice
	if r.pending != nil && time.Since(r.lastEmit) >= r.cfg.EmissionGap {
		emitted = r.emitLocked(*r.pending)
	}

	mctx := r.mctx
	r.mu.Unlock()

	if emitted != nil {
		r.notify(*emitted, mctx)
	}
}

// Canonical returns the latest accepted price, if any.
func (r *Resolver) Canonical() (CanonicalPrice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.canonical == nil {
		return CanonicalPrice{}, false
	}
	return *r.canonical, true
}

// CurrentMarketCap returns the globally observed current market cap and
// when it was seen.
func (r *Resolver) CurrentMarketCap() (float64, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentMC, r.currentMCTs
}

// Stats returns accepted and throttled update counts.
func (r *Resolver) Stats() (sent, dropped uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sentUpdates, r.droppedUpdates
}

func (r *Resolver) offerChartLocked(obs feed.Observation) *CanonicalPrice {
	mc := obs.Price

	if !PlausibleMarketCap(mc) {
		return nil
	}

	// Freshest global market cap, even when unchanged.
	r.currentMC = mc
	r.currentMCTs = obs.Timestamp

	// Unchanged reads are a no-op.
	if mc == r.lastChartMC {
		return nil
	}
	r.lastChartMC = mc

	if !r.anchor.Valid() {
		return nil
	}

	inferred := r.anchor.InferPrice(mc)
	if !feed.PlausiblePrice(inferred) {
		return nil
	}

	// Formula-derived from a trusted anchor, so ranked with explicit USD
	// fields.
	return r.offerDirectLocked(inferred, feed.SourceChart, feed.ConfidenceUSD, obs.Timestamp)
}

func (r *Resolver) offerDirectLocked(price float64, src feed.Source, confidence int, ts time.Time) *CanonicalPrice {
	if !feed.PlausiblePrice(price) {
		return nil
	}

	// A fresher, higher-confidence canonical price blocks coarser sources
	// until it goes stale.
	if r.canonical != nil && confidence < r.canonical.Confidence &&
		time.Since(r.canonical.Timestamp) < r.cfg.Staleness {
		r.droppedUpdates++
		return nil
	}

	cand := CanonicalPrice{PriceUsd: price, Source: src, Confidence: confidence, Timestamp: ts}

	if time.Since(r.lastEmit) < r.cfg.EmissionGap {
		r.pending = &cand
		r.droppedUpdates++
		return nil
	}
	return r.emitLocked(cand)
}

func (r *Resolver) emitLocked(cand CanonicalPrice) *CanonicalPrice {
	r.canonical = &cand
	r.lastEmit = time.Now()
	r.pending = nil
	r.sentUpdates++

	r.logger.Debug("Canonical price accepted",
		zap.Float64("price_usd", cand.PriceUsd),
		zap.String("source", string(cand.Source)),
		zap.Int("confidence", cand.Confidence))

	return &cand
}

func (r *Resolver) notify(price CanonicalPrice, mctx market.Context) {
	if r.bus != nil {
		_ = r.bus.Publish(events.PriceResolvedEvent{
			BaseEvent:  events.BaseEvent{EventType: events.PriceResolved, EventTime: price.Timestamp},
			Mint:       mctx.Mint,
			Symbol:     mctx.Symbol,
			PriceUsd:   price.PriceUsd,
			Source:     string(price.Source),
			Confidence: price.Confidence,
		})
	}

	r.mu.Lock()
	callbacks := make([]PriceCallback, len(r.callbacks))
	copy(callbacks, r.callbacks)
	r.mu.Unlock()

	for _, fn := range callbacks {
		fn(price, mctx)
	}
}

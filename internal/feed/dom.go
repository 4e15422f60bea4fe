// internal/feed/dom.go
package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/needsmorergb/paperterm/internal/market"
)

// PageReader supplies the raw text of designated on-page price regions.
// How a region is located (the per-site selectors) belongs to the host
// integration, not to this adapter.
type PageReader interface {
	ReadPriceRegions(ctx context.Context) ([]string, error)
}

// DOMAdapter periodically scrapes page regions for a dollar-formatted
// number, decoding the subscript zero-run notation where present.
type DOMAdapter struct {
	reader   PageReader
	interval time.Duration
	logger   *zap.Logger
	emit     EmitFunc
}

// NewDOMAdapter creates a DOM scraping adapter.
func NewDOMAdapter(reader PageReader, interval time.Duration, logger *zap.Logger, emit EmitFunc) *DOMAdapter {
	return &DOMAdapter{
		reader:   reader,
		interval: interval,
		logger:   logger.Named("feed_dom"),
		emit:     emit,
	}
}

// Run polls the page until the context is cancelled.
func (da *DOMAdapter) Run(ctx context.Context, current ContextFunc) error {
	ticker := time.NewTicker(da.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			da.logger.Debug("DOM adapter stopped")
			return nil
		case <-ticker.C:
			da.poll(ctx, current())
		}
	}
}

// Poll performs a single scrape pass. Exported for the host integration to
// drive scraping on its own schedule.
func (da *DOMAdapter) Poll(ctx context.Context, mctx market.Context) {
	da.poll(ctx, mctx)
}

func (da *DOMAdapter) poll(ctx context.Context, mctx market.Context) {
	if mctx.Empty() {
		return
	}

	regions, err := da.reader.ReadPriceRegions(ctx)
	if err != nil {
		// A malformed or mid-render page is "no observation", never an error.
		da.logger.Debug("Page read failed", zap.Error(err))
		return
	}

	for _, region := range regions {
		v, ok := DecodePriceText(region)
		if !ok {
			continue
		}
		da.emit(Observation{
			Price:      v,
			Source:     SourceDOM,
			Confidence: ConfidenceDisplay,
			Timestamp:  time.Now(),
		})
		return
	}
}

// internal/feed/chart.go
package feed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/needsmorergb/paperterm/internal/market"
)

// SeriesReader exposes the trading chart's latest close value. On venues
// whose charts plot capitalization the value is a market cap, not a unit
// price; the resolver is responsible for inversion.
type SeriesReader interface {
	LatestClose(ctx context.Context) (float64, error)
}

// ChartAdapter reads the chart series on a fixed interval and emits the
// latest close as a chart observation.
type ChartAdapter struct {
	reader   SeriesReader
	interval time.Duration
	logger   *zap.Logger
	emit     EmitFunc
}

// NewChartAdapter creates a chart series adapter.
func NewChartAdapter(reader SeriesReader, interval time.Duration, logger *zap.Logger, emit EmitFunc) *ChartAdapter {
	return &ChartAdapter{
		reader:   reader,
		interval: interval,
		logger:   logger.Named("feed_chart"),
		emit:     emit,
	}
}

// Run polls the series until the context is cancelled.
func (ca *ChartAdapter) Run(ctx context.Context, current ContextFunc) error {
	ticker := time.NewTicker(ca.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ca.logger.Debug("Chart adapter stopped")
			return nil
		case <-ticker.C:
			ca.poll(ctx, current())
		}
	}
}

// Poll performs a single series read.
func (ca *ChartAdapter) Poll(ctx context.Context, mctx market.Context) {
	ca.poll(ctx, mctx)
}

func (ca *ChartAdapter) poll(ctx context.Context, mctx market.Context) {
	if mctx.Empty() {
		return
	}

	v, err := ca.reader.LatestClose(ctx)
	if err != nil {
		ca.logger.Debug("Series read failed", zap.Error(err))
		return
	}
	if v <= 0 {
		return
	}

	ca.emit(Observation{
		Price:      v,
		Source:     SourceChart,
		Confidence: ConfidenceDisplay,
		Timestamp:  time.Now(),
	})
}

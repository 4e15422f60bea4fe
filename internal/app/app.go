// internal/app/app.go
package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/needsmorergb/paperterm/internal/config"
	"github.com/needsmorergb/paperterm/internal/events"
	"github.com/needsmorergb/paperterm/internal/feed"
	"github.com/needsmorergb/paperterm/internal/ledger"
	"github.com/needsmorergb/paperterm/internal/market"
	"github.com/needsmorergb/paperterm/internal/metrics"
	"github.com/needsmorergb/paperterm/internal/rates"
	"github.com/needsmorergb/paperterm/internal/resolver"
	"github.com/needsmorergb/paperterm/internal/storage"
	"github.com/needsmorergb/paperterm/internal/storage/postgres"
)

// Options supplies the environment-specific signal readers. Nil readers
// disable the corresponding adapter.
type Options struct {
	Page    feed.PageReader
	Series  feed.SeriesReader
	Metrics *metrics.Collector
}

// Runner assembles the feed adapters, resolver, rate fetcher and ledger
// into one session and drives their loops.
type Runner struct {
	cfg     *config.Config
	logger  *zap.Logger
	bus     *events.Bus
	gate    *market.Gate
	res     *resolver.Resolver
	led     *ledger.Ledger
	rate    *rates.Fetcher
	netAd   *feed.NetworkAdapter
	domAd   *feed.DOMAdapter
	chartAd *feed.ChartAdapter
	tap     *feed.StreamTap
	saver   *storage.SessionSaver
	history *ledger.TradeHistory
	col     *metrics.Collector

	shutdownCh chan os.Signal
}

// priceView adapts the resolver to the ledger's valuation interface.
type priceView struct {
	res *resolver.Resolver
}

func (pv priceView) Snapshot() ledger.PriceSnapshot {
	var snap ledger.PriceSnapshot
	if price, ok := pv.res.Canonical(); ok {
		snap.PriceUsd = price.PriceUsd
		snap.PriceTs = price.Timestamp
	}
	snap.MarketCapUsd, snap.MarketCapTs = pv.res.CurrentMarketCap()
	return snap
}

// NewRunner wires a session from config.
func NewRunner(cfg *config.Config, opts Options, logger *zap.Logger) (*Runner, error) {
	bus := events.NewBus(logger, 256)
	col := opts.Metrics

	res := resolver.New(resolver.Config{
		EmissionGap: time.Duration(cfg.EmissionGapMs) * time.Millisecond,
		Staleness:   time.Duration(cfg.McStalenessMs) * time.Millisecond,
	}, bus, logger)

	rate := rates.New(rates.Config{
		Endpoint: cfg.SolUsdURL,
		TTL:      time.Duration(cfg.SolUsdTTLMs) * time.Millisecond,
		Fallback: cfg.SolUsdFallback,
	}, logger)

	led := ledger.New(ledger.Config{
		StartSol:      cfg.StartSol,
		DustThreshold: cfg.DustThreshold,
		McStaleness:   time.Duration(cfg.McStalenessMs) * time.Millisecond,
		MaxTrades:     cfg.MaxTrades,
	}, rate, priceView{res: res}, bus, logger)

	history, err := ledger.NewTradeHistory(cfg.LogDir, cfg.MaxTrades, logger)
	if err != nil {
		return nil, err
	}
	led.SetHistory(history)

	var store storage.Storage
	if cfg.PostgresURL != "" {
		store, err = postgres.NewStorage(cfg.PostgresURL, logger)
		if err != nil {
			return nil, err
		}
		if err := store.RunMigrations(); err != nil {
			return nil, err
		}
	} else {
		store = storage.NewMemoryStorage()
	}
	saver := storage.NewSessionSaver(store, cfg.SessionName, logger)
	led.SetSaver(saver)

	gate := market.NewGate(cfg.ScanCap)

	r := &Runner{
		cfg:        cfg,
		logger:     logger.Named("app"),
		bus:        bus,
		gate:       gate,
		res:        res,
		led:        led,
		rate:       rate,
		saver:      saver,
		history:    history,
		col:        col,
		shutdownCh: make(chan os.Signal, 1),
	}

	emit := func(obs feed.Observation) {
		col.RecordObservation(string(obs.Source))
		res.Offer(obs)
	}

	r.netAd = feed.NewNetworkAdapter(gate, cfg.WalkNodeCap, logger, emit)
	if opts.Page != nil {
		r.domAd = feed.NewDOMAdapter(opts.Page, time.Duration(cfg.DomPollMs)*time.Millisecond, logger, emit)
	}
	if opts.Series != nil {
		r.chartAd = feed.NewChartAdapter(opts.Series, time.Duration(cfg.ChartPollMs)*time.Millisecond, logger, emit)
	}
	if cfg.WebSocketURL != "" {
		r.tap = feed.NewStreamTap(cfg.WebSocketURL, r.netAd, res.Context, logger)
	}

	res.OnPrice(func(price resolver.CanonicalPrice, mctx market.Context) {
		col.RecordPriceUpdate(price.PriceUsd)
		led.MarkPrice(mctx.Key(), price.PriceUsd, price.Timestamp)
	})

	bus.SubscribeFunc(events.TradeExecuted, func(_ context.Context, ev events.Event) error {
		if trade, ok := ev.(events.TradeExecutedEvent); ok {
			col.RecordTrade(trade.Side)
			col.SetLedgerState(led.RealizedSol(), len(led.Snapshot().Positions))
		}
		return nil
	})

	return r, nil
}

// Ledger exposes the session ledger for command surfaces.
func (r *Runner) Ledger() *ledger.Ledger { return r.led }

// Resolver exposes the price resolver for command surfaces.
func (r *Runner) Resolver() *resolver.Resolver { return r.res }

// Bus exposes the session event bus.
func (r *Runner) Bus() *events.Bus { return r.bus }

// SetInstrument switches the watched instrument. The resolver resets its
// per-instrument state; open positions in the ledger are untouched.
func (r *Runner) SetInstrument(mctx market.Context) {
	r.res.SetContext(mctx)
	_ = r.bus.Publish(events.ContextChangedEvent{
		BaseEvent: events.BaseEvent{EventType: events.ContextChanged, EventTime: time.Now()},
		Mint:      mctx.Mint,
		Symbol:    mctx.Symbol,
	})
}

// RestoreSession loads any previously saved state for this session name.
func (r *Runner) RestoreSession(ctx context.Context) error {
	st, found, err := r.saver.LoadState(ctx)
	if err != nil {
		return err
	}
	if found {
		r.led.Restore(st)
		r.logger.Info("Session restored",
			zap.String("session", r.cfg.SessionName),
			zap.Float64("cash_sol", st.CashSol),
			zap.Int("positions", len(st.Positions)))
	}
	return nil
}

// Run drives all loops until ctx is cancelled or a signal arrives.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("Signal received", zap.String("signal", sig.String()))
			cancel()
		case <-runCtx.Done():
		}
	}()

	g, gCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		err := r.rate.Run(gCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if r.domAd != nil {
		g.Go(func() error { return ignoreCancel(r.domAd.Run(gCtx, r.res.Context)) })
	}
	if r.chartAd != nil {
		g.Go(func() error { return ignoreCancel(r.chartAd.Run(gCtx, r.res.Context)) })
	}
	if r.tap != nil {
		g.Go(func() error {
			if err := r.tap.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
				// A dead tap degrades the feed but the session continues on
				// the polling adapters.
				r.logger.Warn("Stream tap stopped", zap.Error(err))
			}
			return nil
		})
	}

	// Drain the throttle's pending slot so a burst's last value lands.
	g.Go(func() error {
		gap := time.Duration(r.cfg.EmissionGapMs) * time.Millisecond
		ticker := time.NewTicker(gap)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				r.res.FlushPending()
				r.col.SetSolUsdRate(r.rate.SolUsd())
			}
		}
	})

	if r.cfg.MetricsAddr != "" {
		g.Go(func() error { return r.serveMetrics(gCtx) })
	}

	err := g.Wait()
	r.shutdown()
	return err
}

func (r *Runner) serveMetrics(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: r.cfg.MetricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	r.logger.Info("Metrics endpoint listening", zap.String("addr", r.cfg.MetricsAddr))
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (r *Runner) shutdown() {
	r.logger.Info("Shutting down session")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.saver.SaveState(ctx, r.led.Snapshot()); err != nil {
		r.logger.Warn("Final state save failed", zap.Error(err))
	}
	if err := r.history.Close(); err != nil {
		r.logger.Warn("Trade history close failed", zap.Error(err))
	}
	if err := r.bus.Shutdown(ctx); err != nil {
		r.logger.Warn("Event bus shutdown timed out", zap.Error(err))
	}

	sent, dropped := r.res.Stats()
	r.logger.Info("Session closed",
		zap.Uint64("price_updates_sent", sent),
		zap.Uint64("price_updates_dropped", dropped),
		zap.Float64("cash_sol", r.led.CashSol()),
		zap.Float64("realized_sol", r.led.RealizedSol()))
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// HandleNetworkPayload feeds an intercepted response into the network
// adapter under the current instrument context.
func (r *Runner) HandleNetworkPayload(url string, body []byte) {
	r.netAd.HandleResponse(r.res.Context(), url, body)
}

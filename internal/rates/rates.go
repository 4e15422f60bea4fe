// internal/rates/rates.go
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// Fetcher polls an external API for the SOL/USD rate and serves it from a
// TTL cache. Reads never block on the network: a stale value is returned
// while the background refresh catches up.
type Fetcher struct {
	mu        sync.RWMutex
	endpoint  string
	ttl       time.Duration
	client    *http.Client
	logger    *zap.Logger
	solUsd    float64
	fetchedAt time.Time
}

// Config holds rate fetcher settings.
type Config struct {
	Endpoint string
	TTL      time.Duration
	Fallback float64
}

// New creates a rate fetcher. Fallback seeds the cache so the ledger can
// size fills before the first successful fetch.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		endpoint: cfg.Endpoint,
		ttl:      cfg.TTL,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger.Named("rates"),
		solUsd:   cfg.Fallback,
	}
}

// SolUsd returns the cached SOL/USD rate.
func (f *Fetcher) SolUsd() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.solUsd
}

// Run refreshes the cache until ctx is cancelled.
func (f *Fetcher) Run(ctx context.Context) error {
	if f.endpoint == "" {
		f.logger.Info("No rate endpoint configured, using fallback rate",
			zap.Float64("sol_usd", f.SolUsd()))
		<-ctx.Done()
		return ctx.Err()
	}

	f.refresh(ctx)

	ticker := time.NewTicker(f.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.refresh(ctx)
		}
	}
}

func (f *Fetcher) refresh(ctx context.Context) {
	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = 500 * time.Millisecond
	backoffPolicy.MaxInterval = 5 * time.Second

	notify := func(err error, duration time.Duration) {
		f.logger.Debug("Retrying rate fetch", zap.Error(err), zap.Duration("backoff", duration))
	}

	operation := func() (float64, error) {
		return f.fetchOnce(ctx)
	}

	rate, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoffPolicy),
		backoff.WithMaxTries(3),
		backoff.WithNotify(notify))
	if err != nil {
		f.logger.Warn("Rate fetch failed, keeping cached value",
			zap.Float64("sol_usd", f.SolUsd()),
			zap.Error(err))
		return
	}

	f.mu.Lock()
	f.solUsd = rate
	f.fetchedAt = time.Now()
	f.mu.Unlock()

	f.logger.Debug("SOL/USD rate refreshed", zap.Float64("sol_usd", rate))
}

type ratePayload struct {
	Solana struct {
		Usd float64 `json:"usd"`
	} `json:"solana"`
}

func (f *Fetcher) fetchOnce(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build rate request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate endpoint returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, fmt.Errorf("failed to read rate response: %w", err)
	}

	var payload ratePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, fmt.Errorf("failed to decode rate response: %w", err)
	}
	if payload.Solana.Usd <= 0 {
		return 0, fmt.Errorf("rate endpoint returned non-positive rate %f", payload.Solana.Usd)
	}

	return payload.Solana.Usd, nil
}

// FetchedAt reports when the cache was last refreshed from the network.
func (f *Fetcher) FetchedAt() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.fetchedAt
}

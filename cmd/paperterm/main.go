// cmd/paperterm/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/needsmorergb/paperterm/internal/app"
	"github.com/needsmorergb/paperterm/internal/config"
	"github.com/needsmorergb/paperterm/internal/logger"
	"github.com/needsmorergb/paperterm/internal/market"
	"github.com/needsmorergb/paperterm/internal/metrics"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	mint := flag.String("mint", "", "instrument mint address to watch")
	symbol := flag.String("symbol", "", "instrument symbol to watch")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(logger.DefaultConfig(cfg.LogDir, cfg.DebugLogging))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("Starting paper trading session",
		zap.String("session", cfg.SessionName),
		zap.Float64("start_sol", cfg.StartSol))

	runner, err := app.NewRunner(cfg, app.Options{
		Metrics: metrics.NewCollector(nil),
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize session", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := runner.RestoreSession(ctx); err != nil {
		zapLogger.Warn("Session restore failed, starting fresh", zap.Error(err))
	}

	if *mint != "" || *symbol != "" {
		runner.SetInstrument(market.Context{Mint: *mint, Symbol: *symbol})
	}

	if err := runner.Run(ctx); err != nil {
		zapLogger.Fatal("Session error", zap.Error(err))
	}
}

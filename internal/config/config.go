// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// Session
	SessionName   string  `mapstructure:"session_name"`
	StartSol      float64 `mapstructure:"start_sol"`
	DustThreshold float64 `mapstructure:"dust_threshold"`
	MaxTrades     int     `mapstructure:"max_trades"`

	// Price resolution
	EmissionGapMs int `mapstructure:"emission_gap_ms"`
	DomPollMs     int `mapstructure:"dom_poll_ms"`
	ChartPollMs   int `mapstructure:"chart_poll_ms"`
	ScanCap       int `mapstructure:"scan_cap"`
	WalkNodeCap   int `mapstructure:"walk_node_cap"`
	McStalenessMs int `mapstructure:"mc_staleness_ms"`

	// External sources
	WebSocketURL   string  `mapstructure:"websocket_url"`
	SolUsdURL      string  `mapstructure:"sol_usd_url"`
	SolUsdTTLMs    int     `mapstructure:"sol_usd_ttl_ms"`
	SolUsdFallback float64 `mapstructure:"sol_usd_fallback"`
	PostgresURL    string  `mapstructure:"postgres_url"`

	// Logging
	LogDir       string `mapstructure:"log_dir"`
	DebugLogging bool   `mapstructure:"debug_logging"`

	// Metrics
	MetricsAddr string `mapstructure:"metrics_addr"`
}

const (
	DefaultStartSol      = 10.0
	DefaultDustThreshold = 1e-6
	DefaultMaxTrades     = 500
	DefaultEmissionGap   = 150
	DefaultDomPoll       = 200
	DefaultChartPoll     = 500
	DefaultScanCap       = 200_000
	DefaultWalkNodeCap   = 600
	DefaultMcStaleness   = 3000
	DefaultSolUsdTTL     = 10_000
	DefaultLogDir        = "logs"
	DefaultSessionName   = "default"
	DefaultSolUsdRate    = 150.0
)

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"start_sol":       DefaultStartSol,
		"dust_threshold":  DefaultDustThreshold,
		"max_trades":      DefaultMaxTrades,
		"emission_gap_ms": DefaultEmissionGap,
		"dom_poll_ms":     DefaultDomPoll,
		"chart_poll_ms":   DefaultChartPoll,
		"scan_cap":        DefaultScanCap,
		"walk_node_cap":   DefaultWalkNodeCap,
		"mc_staleness_ms": DefaultMcStaleness,
		"sol_usd_ttl_ms":   DefaultSolUsdTTL,
		"log_dir":          DefaultLogDir,
		"session_name":     DefaultSessionName,
		"sol_usd_fallback": DefaultSolUsdRate,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("PAPERTERM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, validate(&cfg)
}

func validate(cfg *Config) error {
	if cfg.StartSol <= 0 {
		return errors.New("invalid start_sol")
	}
	if cfg.DustThreshold < 0 {
		return errors.New("invalid dust_threshold")
	}
	if cfg.MaxTrades <= 0 {
		return errors.New("invalid max_trades")
	}
	if cfg.SolUsdFallback < 0 {
		return errors.New("invalid sol_usd_fallback")
	}
	if err := validateIntervals(cfg); err != nil {
		return err
	}
	if cfg.WebSocketURL != "" {
		if err := validateURL(cfg.WebSocketURL, "ws"); err != nil {
			return errors.New("invalid WebSocket URL protocol")
		}
	}
	if cfg.SolUsdURL != "" {
		if err := validateURL(cfg.SolUsdURL, "http"); err != nil {
			return errors.New("invalid sol_usd_url protocol")
		}
	}
	return nil
}

func validateIntervals(cfg *Config) error {
	if cfg.EmissionGapMs <= 0 {
		return errors.New("invalid emission_gap_ms")
	}
	if cfg.DomPollMs <= 0 {
		return errors.New("invalid dom_poll_ms")
	}
	if cfg.ChartPollMs <= 0 {
		return errors.New("invalid chart_poll_ms")
	}
	if cfg.ScanCap <= 0 {
		return errors.New("invalid scan_cap")
	}
	if cfg.WalkNodeCap <= 0 {
		return errors.New("invalid walk_node_cap")
	}
	if cfg.McStalenessMs <= 0 {
		return errors.New("invalid mc_staleness_ms")
	}
	if cfg.SolUsdTTLMs <= 0 {
		return errors.New("invalid sol_usd_ttl_ms")
	}
	return nil
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("unexpected URL scheme")
	}
	return nil
}

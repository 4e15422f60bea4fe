package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "debug_logging: true\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultStartSol, cfg.StartSol)
	assert.Equal(t, DefaultEmissionGap, cfg.EmissionGapMs)
	assert.Equal(t, DefaultDomPoll, cfg.DomPollMs)
	assert.Equal(t, DefaultScanCap, cfg.ScanCap)
	assert.Equal(t, DefaultWalkNodeCap, cfg.WalkNodeCap)
	assert.Equal(t, DefaultMcStaleness, cfg.McStalenessMs)
	assert.True(t, cfg.DebugLogging)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
start_sol: 25.5
emission_gap_ms: 100
dust_threshold: 0.001
websocket_url: wss://stream.example.com/market
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25.5, cfg.StartSol)
	assert.Equal(t, 100, cfg.EmissionGapMs)
	assert.Equal(t, 0.001, cfg.DustThreshold)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"negative start_sol", "start_sol: -1\n"},
		{"zero emission gap", "emission_gap_ms: 0\n"},
		{"bad websocket scheme", "websocket_url: http://example.com\n"},
		{"negative dust", "dust_threshold: -0.5\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleTOML = `
[general]
log_level = "debug"
generated_dir = "generated"
shm_seqs = "scanner-seqs"
shm_data = "scanner-data"
shm_bitmap = "scanner-bitmap"
shm_events = "scanner-events"
shm_health = "scanner-health"
shm_control = "scanner-control"

[spread]
min_spread_threshold_pct = 0.3
staleness_max_ms = 5000
converge_threshold_pct = 0.05

[tracker]
snapshot_interval_ms = 200
heartbeat_write_sec = 60

[monitoring]
stats_log_interval_sec = 10
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.General.LogLevel)
	require.Equal(t, "scanner-seqs", cfg.General.ShmSeqs)
	require.Equal(t, "scanner-control", cfg.General.ShmControl)
	require.Equal(t, 0.3, cfg.Spread.MinSpreadThresholdPct)
	require.Equal(t, uint64(5000), cfg.Spread.StalenessMaxMS)
	require.Equal(t, uint64(200), cfg.Tracker.SnapshotIntervalMS)
	require.Equal(t, uint64(10), cfg.Monitoring.StatsLogIntervalSec)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[general]\nlog_level = \"warn\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.General.LogLevel)
	require.Equal(t, Default().General.ShmSeqs, cfg.General.ShmSeqs)
	require.Equal(t, Default().Spread.MinSpreadThresholdPct, cfg.Spread.MinSpreadThresholdPct)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)

	// A present but broken file is still fatal.
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not toml ["), 0o644))
	_, err = LoadOrDefault(path)
	require.Error(t, err)
}

func TestDefaultSegmentNamesDistinct(t *testing.T) {
	g := Default().General
	names := []string{g.ShmSeqs, g.ShmData, g.ShmBitmap, g.ShmEvents, g.ShmHealth, g.ShmControl}
	seen := map[string]bool{}
	for _, n := range names {
		require.NotEmpty(t, n)
		require.False(t, seen[n], "duplicate segment name %q", n)
		seen[n] = true
	}
}

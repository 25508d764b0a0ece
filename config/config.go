// Package config loads the TOML application config shared by every process
// in the pipeline. The [general] section names the shared memory segments;
// a name mismatch between processes means they silently talk past each
// other, so every binary loads the same file.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	General    GeneralConfig    `toml:"general"`
	Spread     SpreadConfig     `toml:"spread"`
	Tracker    TrackerConfig    `toml:"tracker"`
	Monitoring MonitoringConfig `toml:"monitoring"`
}

// GeneralConfig carries the segment names and common paths.
type GeneralConfig struct {
	LogLevel     string `toml:"log_level"`
	GeneratedDir string `toml:"generated_dir"`
	ShmSeqs      string `toml:"shm_seqs"`
	ShmData      string `toml:"shm_data"`
	ShmBitmap    string `toml:"shm_bitmap"`
	ShmEvents    string `toml:"shm_events"`
	ShmHealth    string `toml:"shm_health"`
	ShmControl   string `toml:"shm_control"`
}

// SpreadConfig tunes the engine's signal thresholds.
type SpreadConfig struct {
	MinSpreadThresholdPct float64 `toml:"min_spread_threshold_pct"`
	StalenessMaxMS        uint64  `toml:"staleness_max_ms"`
	ConvergeThresholdPct  float64 `toml:"converge_threshold_pct"`
}

// TrackerConfig tunes the tracker's drain cadence.
type TrackerConfig struct {
	SnapshotIntervalMS uint64 `toml:"snapshot_interval_ms"`
	HeartbeatWriteSec  uint64 `toml:"heartbeat_write_sec"`
}

// MonitoringConfig tunes the monitor tools.
type MonitoringConfig struct {
	StatsLogIntervalSec uint64 `toml:"stats_log_interval_sec"`
}

// Default returns the config used when no file is given: the standard
// segment names every deployment of the pipeline shares.
func Default() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:     "info",
			GeneratedDir: "generated",
			ShmSeqs:      "spread-scanner-seqs",
			ShmData:      "spread-scanner-data",
			ShmBitmap:    "spread-scanner-bitmap",
			ShmEvents:    "spread-scanner-events",
			ShmHealth:    "spread-scanner-health",
			ShmControl:   "spread-scanner-control",
		},
		Spread: SpreadConfig{
			MinSpreadThresholdPct: 0.3,
			StalenessMaxMS:        5000,
			ConvergeThresholdPct:  0.05,
		},
		Tracker: TrackerConfig{
			SnapshotIntervalMS: 200,
			HeartbeatWriteSec:  60,
		},
		Monitoring: MonitoringConfig{
			StatsLogIntervalSec: 10,
		},
	}
}

// Load reads and parses a TOML config file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	c := Default()
	if err := toml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return c, nil
}

// LoadOrDefault loads path if it exists, otherwise falls back to Default.
// Parse errors are still fatal: a present-but-broken config must not be
// silently replaced by defaults.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

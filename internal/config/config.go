// Package config loads meander's YAML configuration, merging the file
// over built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runnerr0/meander/internal/analytics"
)

// Default config file path.
const DefaultConfigPath = "~/.config/meander/config.yaml"

// Config holds all meander configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	Sync      SyncConfig      `yaml:"sync"`
	Offload   OffloadConfig   `yaml:"offload"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type StorageConfig struct {
	Path       string `yaml:"path"`
	SQLiteFile string `yaml:"sqlite_file"`
}

type DaemonConfig struct {
	BaseURL string `yaml:"base_url"`
	PushURL string `yaml:"push_url"`
}

type SyncConfig struct {
	Batching            bool `yaml:"batching"`
	BatchWindowMs       int  `yaml:"batch_window_ms"`
	ReconcileDelayMs    int  `yaml:"reconcile_delay_ms"`
	PollIntervalSeconds int  `yaml:"poll_interval_seconds"`
}

type OffloadConfig struct {
	TimeoutMs  int `yaml:"timeout_ms"`
	MaxPending int `yaml:"max_pending"`
}

type AnalyticsConfig struct {
	BingeCap              float64 `yaml:"binge_cap"`
	LateNightBonus        float64 `yaml:"late_night_bonus"`
	LateNightStartHour    int     `yaml:"late_night_start_hour"`
	LateNightEndHour      int     `yaml:"late_night_end_hour"`
	TrapDoorMinDepth      int     `yaml:"trap_door_min_depth"`
	TrapDoorMinMinutes    int     `yaml:"trap_door_min_minutes"`
	LoopMinVisits         int     `yaml:"loop_min_visits"`
	LoopMinNodes          int     `yaml:"loop_min_nodes"`
	DominantCategoryShare float64 `yaml:"dominant_category_share"`
	WanderNavsPerMinute   float64 `yaml:"wander_navs_per_minute"`
	Timezone              string  `yaml:"timezone"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations that cannot work.
func (c *Config) Validate() error {
	if c.Sync.BatchWindowMs < 0 {
		return fmt.Errorf("sync.batch_window_ms must not be negative")
	}
	// 0 means the engine default; anything else must stay in the window
	// the reconciler batches over.
	if c.Sync.BatchWindowMs != 0 && (c.Sync.BatchWindowMs < 250 || c.Sync.BatchWindowMs > 500) {
		return fmt.Errorf("sync.batch_window_ms must be between 250 and 500")
	}
	if c.Offload.MaxPending < 0 {
		return fmt.Errorf("offload.max_pending must not be negative")
	}
	if c.Analytics.DominantCategoryShare < 0 || c.Analytics.DominantCategoryShare > 1 {
		return fmt.Errorf("analytics.dominant_category_share must be between 0 and 1")
	}
	if c.Analytics.Timezone != "" {
		if _, err := time.LoadLocation(c.Analytics.Timezone); err != nil {
			return fmt.Errorf("analytics.timezone: %w", err)
		}
	}
	return nil
}

// DatabasePath returns the expanded path of the SQLite database file.
func (c *Config) DatabasePath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// Settings maps the analytics section onto the engine's thresholds,
// keeping engine defaults for anything left unset.
func (a AnalyticsConfig) Settings() analytics.Settings {
	set := analytics.DefaultSettings()
	if a.BingeCap > 0 {
		set.BingeCap = a.BingeCap
	}
	if a.LateNightBonus > 0 {
		set.LateNightBonus = a.LateNightBonus
	}
	if a.LateNightStartHour > 0 {
		set.LateNightStartHour = a.LateNightStartHour
	}
	if a.LateNightEndHour > 0 {
		set.LateNightEndHour = a.LateNightEndHour
	}
	if a.TrapDoorMinDepth > 0 {
		set.TrapDoorMinDepth = a.TrapDoorMinDepth
	}
	if a.TrapDoorMinMinutes > 0 {
		set.TrapDoorMinDurationMs = int64(a.TrapDoorMinMinutes) * 60_000
	}
	if a.LoopMinVisits > 0 {
		set.LoopMinVisits = a.LoopMinVisits
	}
	if a.LoopMinNodes > 0 {
		set.LoopMinNodes = a.LoopMinNodes
	}
	if a.DominantCategoryShare > 0 {
		set.DominantCategoryShare = a.DominantCategoryShare
	}
	if a.WanderNavsPerMinute > 0 {
		set.WanderNavsPerMinute = a.WanderNavsPerMinute
	}
	if a.Timezone != "" {
		if loc, err := time.LoadLocation(a.Timezone); err == nil {
			set.Location = loc
		}
	}
	return set
}

// BatchWindow returns the sync batching window as a duration, 0 meaning
// the engine default.
func (s SyncConfig) BatchWindow() time.Duration {
	return time.Duration(s.BatchWindowMs) * time.Millisecond
}

// ReconcileDelay returns the reconciliation debounce as a duration.
func (s SyncConfig) ReconcileDelay() time.Duration {
	return time.Duration(s.ReconcileDelayMs) * time.Millisecond
}

// PollInterval returns the snapshot polling interval as a duration.
func (s SyncConfig) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSeconds) * time.Second
}

// Timeout returns the offload timeout as a duration.
func (o OffloadConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutMs) * time.Millisecond
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}

// Package config handles StreakForge configuration.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds all configuration
type Config struct {
	// Paths
	DataDir      string `json:"data_dir"`
	LedgerPath   string `json:"ledger_path"`
	CatalogPath  string `json:"catalog_path"`
	SnapshotPath string `json:"snapshot_path"`

	// Server
	Server ServerConfig `json:"server"`

	// Periodic evaluation
	Check CheckConfig `json:"check"`

	// Features
	Features FeatureConfig `json:"features"`
}

// ServerConfig for HTTP server
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// CheckConfig for the periodic evaluation cycle
type CheckConfig struct {
	IntervalMinutes int `json:"interval_minutes"`
}

// FeatureConfig for feature flags
type FeatureConfig struct {
	EnableAPI       bool `json:"enable_api"`
	EnableScheduler bool `json:"enable_scheduler"`
	EnableCelebrate bool `json:"enable_celebrate"`
	DebugMode       bool `json:"debug_mode"`
}

// Default returns default configuration
func Default() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".streakforge")

	return &Config{
		DataDir:      dataDir,
		LedgerPath:   filepath.Join(dataDir, "ledger.json"),
		CatalogPath:  "", // empty means built-in catalog
		SnapshotPath: filepath.Join(dataDir, "streaks.json"),
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Check: CheckConfig{
			IntervalMinutes: 60,
		},
		Features: FeatureConfig{
			EnableAPI:       true,
			EnableScheduler: true,
			EnableCelebrate: true,
			DebugMode:       false,
		},
	}
}

// Load loads config from file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = filepath.Join(cfg.DataDir, "config.json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves config to file
func (c *Config) Save(path string) error {
	if path == "" {
		path = filepath.Join(c.DataDir, "config.json")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// DatabasePath returns the sqlite path for celebration state.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "streakforge.db")
}

// Package config loads codegraph's configuration: store backend
// selection, the incremental-scan threshold, the frontend language
// allow-list, and logging verbosity.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings.
type Config struct {
	Store  StoreConfig  `yaml:"store"`
	Scan   ScanConfig   `yaml:"scan"`
	Log    LogConfig    `yaml:"log"`
}

// StoreConfig selects and configures the graph store backend.
type StoreConfig struct {
	Backend     string `yaml:"backend"` // "sqlite" or "postgres"
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// ScanConfig tunes the incremental scan orchestrator.
type ScanConfig struct {
	// FullScanThreshold is the change-set size above which the
	// orchestrator abandons incremental planning and walks the full tree.
	FullScanThreshold int      `yaml:"full_scan_threshold"`
	Languages         []string `yaml:"languages"` // empty means all recognized
}

// LogConfig controls logrus verbosity.
type LogConfig struct {
	Verbose bool `yaml:"verbose"`
}

// Default returns the built-in configuration: SQLite at .reviewbot/graph.db,
// threshold 100 per spec §4.5.1.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend:    "sqlite",
			SQLitePath: filepath.Join(".reviewbot", "graph.db"),
		},
		Scan: ScanConfig{
			FullScanThreshold: 100,
		},
		Log: LogConfig{
			Verbose: false,
		},
	}
}

// Load reads configuration from a YAML file (optional), environment
// variables (prefix CODEGRAPH_), and a .env file, layered over Default().
func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("store", cfg.Store)
	v.SetDefault("scan", cfg.Scan)
	v.SetDefault("log", cfg.Log)

	v.SetEnvPrefix("CODEGRAPH")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".reviewbot")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadEnvFile() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

func applyEnvOverrides(cfg *Config) {
	if backend := os.Getenv("CODEGRAPH_STORE_BACKEND"); backend != "" {
		cfg.Store.Backend = backend
	}
	if dsn := os.Getenv("CODEGRAPH_POSTGRES_DSN"); dsn != "" {
		cfg.Store.PostgresDSN = dsn
	}
	if path := os.Getenv("CODEGRAPH_SQLITE_PATH"); path != "" {
		cfg.Store.SQLitePath = expandPath(path)
	}
	if threshold := os.Getenv("CODEGRAPH_FULL_SCAN_THRESHOLD"); threshold != "" {
		if n, err := strconv.Atoi(threshold); err == nil {
			cfg.Scan.FullScanThreshold = n
		}
	}
}

func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, path[1:])
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("store", c.Store)
	v.Set("scan", c.Scan)
	v.Set("log", c.Log)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

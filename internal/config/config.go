package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"skudash/internal/catalog"
	"skudash/internal/images"
	"skudash/internal/report"
)

// Config holds all skudash configuration.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Images    ImagesConfig    `yaml:"images"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Server    ServerConfig    `yaml:"server"`
	Snapshot  SnapshotConfig  `yaml:"snapshot"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DataConfig locates the input files. Relative paths resolve against BaseDir.
type DataConfig struct {
	BaseDir    string          `yaml:"base_dir"`
	PrimaryCSV string          `yaml:"primary_csv"`
	MappingCSV string          `yaml:"mapping_csv"` // optional
	ImageDir   string          `yaml:"image_dir"`   // optional
	Columns    catalog.Columns `yaml:"columns"`
}

type ImagesConfig struct {
	CloudBaseURL string `yaml:"cloud_base_url"`
	Route        string `yaml:"route"`
	CacheSize    int    `yaml:"cache_size"`
	Watch        bool   `yaml:"watch"`
}

type DashboardConfig struct {
	Title         string `yaml:"title"` // empty uses the locale's title
	Locale        string `yaml:"locale"` // en, zh
	TopN          int    `yaml:"top_n"`
	DefaultMetric string `yaml:"default_metric"`
	PageSize      int    `yaml:"page_size"`
}

type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type SnapshotConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres
	DSN    string `yaml:"dsn"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			BaseDir:    ".",
			PrimaryCSV: "merged_sku_image_sales.csv",
			MappingCSV: "drive_map.csv",
			ImageDir:   "images",
			Columns:    catalog.DefaultColumns(),
		},
		Images: ImagesConfig{
			CloudBaseURL: images.DefaultCloudBaseURL,
			Route:        images.DefaultRoute,
			CacheSize:    images.DefaultCacheSize,
			Watch:        true,
		},
		Dashboard: DashboardConfig{
			Locale:        "en",
			TopN:          report.DefaultTopN,
			DefaultMetric: string(report.MetricRevenue),
			PageSize:      report.DefaultPageSize,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8051",
			ShutdownTimeout: "10s",
		},
		Snapshot: SnapshotConfig{
			Driver: "sqlite",
			DSN:    "sku_sales.sqlite",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SKUDASH_BASE_DIR"); v != "" {
		c.Data.BaseDir = v
	}
	if v := os.Getenv("SKUDASH_PRIMARY_CSV"); v != "" {
		c.Data.PrimaryCSV = v
	}
	if v, ok := os.LookupEnv("SKUDASH_MAPPING_CSV"); ok {
		c.Data.MappingCSV = v
	}
	if v, ok := os.LookupEnv("SKUDASH_IMAGE_DIR"); ok {
		c.Data.ImageDir = v
	}
	// PORT keeps the configured host; SKUDASH_ADDR replaces both.
	if v := os.Getenv("PORT"); v != "" {
		host := "0.0.0.0"
		if h, _, err := net.SplitHostPort(c.Server.Addr); err == nil && h != "" {
			host = h
		}
		c.Server.Addr = host + ":" + v
	}
	if v := os.Getenv("SKUDASH_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SKUDASH_SNAPSHOT_DSN"); v != "" {
		c.Snapshot.DSN = v
	}
	if v := os.Getenv("SKUDASH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// ValidLocales lists the dashboard label sets.
var ValidLocales = []string{"en", "zh"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Data.PrimaryCSV == "" {
		return fmt.Errorf("data.primary_csv is required")
	}
	if _, err := report.ParseMetric(c.Dashboard.DefaultMetric); err != nil {
		return fmt.Errorf("dashboard.default_metric: %w", err)
	}
	if c.Dashboard.TopN < 1 {
		return fmt.Errorf("dashboard.top_n must be positive, got %d", c.Dashboard.TopN)
	}
	valid := false
	for _, l := range ValidLocales {
		if c.Dashboard.Locale == l {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid dashboard.locale: %s (valid: %v)", c.Dashboard.Locale, ValidLocales)
	}
	if _, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil {
		return fmt.Errorf("server.shutdown_timeout: %w", err)
	}
	return nil
}

// PrimaryPath returns the primary CSV path resolved against the base dir.
func (c *Config) PrimaryPath() string { return c.resolve(c.Data.PrimaryCSV) }

// MappingPath returns "" when no mapping file is configured.
func (c *Config) MappingPath() string { return c.resolve(c.Data.MappingCSV) }

// ImageDir returns "" when no image directory is configured.
func (c *Config) ImageDir() string { return c.resolve(c.Data.ImageDir) }

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Data.BaseDir, p)
}

// GetShutdownTimeout returns the graceful shutdown timeout as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.ShutdownTimeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

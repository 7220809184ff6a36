// Package config handles TOML configuration for inventa.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Report formats.
const (
	FormatCSV   = "csv"
	FormatTable = "table"
	FormatYAML  = "yaml"
)

// DefaultRegion is used when neither a region nor discovery is requested.
const DefaultRegion = "us-east-1"

// Config is the root configuration structure.
type Config struct {
	AWS     AWSConfig     `toml:"aws"`
	Report  ReportConfig  `toml:"report"`
	Archive ArchiveConfig `toml:"archive"`
	Journal JournalConfig `toml:"journal"`
	SSO     SSOConfig     `toml:"sso"`
	OTEL    OTELConfig    `toml:"otel"`
	Log     LogConfig     `toml:"log"`
}

// AWSConfig selects the accounts and regions a run visits.
type AWSConfig struct {
	Regions         []string `toml:"regions"`
	Profiles        []string `toml:"profiles"`
	AllProfiles     bool     `toml:"all_profiles"`
	DiscoverRegions bool     `toml:"discover_regions"`
}

// ReportConfig holds output settings.
type ReportConfig struct {
	Header     bool   `toml:"header"`
	Format     string `toml:"format"`
	BrokenOnly bool   `toml:"broken_only"`
}

// ArchiveConfig holds settings for the snapshot archive flow.
type ArchiveConfig struct {
	WaitStr   string        `toml:"wait"`
	Wait      time.Duration `toml:"-"`
	Available bool          `toml:"available_only"`
}

// JournalConfig holds the mutation journal location.
type JournalConfig struct {
	Dir string `toml:"dir"`
}

// SSOConfig holds credential bootstrap settings.
type SSOConfig struct {
	Region       string `toml:"region"`
	DefaultRole  string `toml:"default_role"`
	Overwrite    bool   `toml:"overwrite"`
	ConfigRegion string `toml:"config_region"`
	CacheDir     string `toml:"cache_dir"`
}

// ProfileRegion is the region written into generated profiles. It falls
// back to the portal region when config_region is unset.
func (c SSOConfig) ProfileRegion() string {
	if c.ConfigRegion != "" {
		return c.ConfigRegion
	}
	return c.Region
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint        string        `toml:"endpoint"`
	Insecure        bool          `toml:"insecure"`
	ServiceName     string        `toml:"service_name"`
	MetricsTextfile string        `toml:"metrics_textfile"`
	Traces          TracesConfig  `toml:"traces"`
	Metrics         MetricsConfig `toml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `toml:"enabled"`
	SampleRate float64 `toml:"sample_rate"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := base()
	applyDefaults(cfg)
	cfg.Archive.Wait, _ = time.ParseDuration(cfg.Archive.WaitStr)
	return cfg
}

// base holds the defaults that an absent key cannot express.
func base() *Config {
	return &Config{
		Report:  ReportConfig{Header: true},
		Archive: ArchiveConfig{Available: true},
	}
}

// Load reads and parses a TOML config file. Keys missing from the file
// take the same values as Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := base()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := parseWait(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Report.Format == "" {
		cfg.Report.Format = FormatCSV
	}
	if cfg.Archive.WaitStr == "" {
		cfg.Archive.WaitStr = "30m"
	}
	if cfg.Journal.Dir == "" {
		cfg.Journal.Dir = "."
	}
	if cfg.SSO.Region == "" {
		cfg.SSO.Region = DefaultRegion
	}
	if cfg.SSO.DefaultRole == "" {
		cfg.SSO.DefaultRole = "AdministratorAccess"
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "inventa"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func parseWait(cfg *Config) error {
	d, err := time.ParseDuration(cfg.Archive.WaitStr)
	if err != nil {
		return fmt.Errorf("parse archive wait %q: %w", cfg.Archive.WaitStr, err)
	}
	cfg.Archive.Wait = d
	return nil
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	switch c.Report.Format {
	case FormatCSV, FormatTable, FormatYAML:
	default:
		return fmt.Errorf("report: unknown format %q (want csv, table or yaml)", c.Report.Format)
	}
	if c.Archive.Wait < 0 {
		return fmt.Errorf("archive: wait must not be negative (got %v)", c.Archive.Wait)
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	for _, r := range c.AWS.Regions {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("aws: empty region name")
		}
	}
	return nil
}

// ParseBool parses a boolean flag value. Only the listed literals are
// accepted; anything else is an error rather than false.
func ParseBool(s string) (bool, error) {
	switch strings.TrimSpace(s) {
	case "true", "True", "TRUE", "1", "yes", "Yes":
		return true, nil
	case "false", "False", "FALSE", "0", "no", "No":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q: use true or false", s)
	}
}

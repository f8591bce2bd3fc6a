// Package config loads analyzer configuration from a YAML file layered over
// built-in defaults, with a small set of environment overrides for values
// that differ between deployments (archive URL, cache dir, risk-free rate).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// NSEConfig controls the archive fetcher.
type NSEConfig struct {
	BaseURL           string `yaml:"base_url"`            // F&O archives root
	UserAgent         string `yaml:"user_agent"`          // browser UA, avoids 403s
	Referer           string `yaml:"referer"`             //
	TimeoutSeconds    int    `yaml:"timeout_seconds"`     // per-request timeout
	RequestsPerMinute int    `yaml:"requests_per_minute"` // archive politeness limit
	CacheDir          string `yaml:"cache_dir"`           // zstd snapshot cache, empty disables
	MaxLookbackDays   int    `yaml:"max_lookback_days"`   // fallback window for missing dates
}

// MarketConfig holds market conventions used by the analysis run.
type MarketConfig struct {
	RiskFreeRate    float64 `yaml:"risk_free_rate"`    // annual, continuously compounded
	StrikeInterval  float64 `yaml:"strike_interval"`   // strike grid spacing
	MinClosePrice   float64 `yaml:"min_close_price"`   // liquidity floor for weekly chain
	WeeklyExpiryDay string  `yaml:"weekly_expiry_day"` // weekday name of the weekly cycle
}

// LoggingConfig controls the logger facade.
type LoggingConfig struct {
	Verbosity  int    `yaml:"verbosity"` // 0=errors,1=info,2=debug,3=trace
	File       string `yaml:"file"`      // rotated log file, empty for stderr only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ReportConfig controls result output.
type ReportConfig struct {
	Dir string `yaml:"dir"`
}

type Config struct {
	NSE     NSEConfig     `yaml:"nse"`
	Market  MarketConfig  `yaml:"market"`
	Logging LoggingConfig `yaml:"logging"`
	Report  ReportConfig  `yaml:"report"`
}

// Default returns the built-in configuration, matching NSE conventions for
// NIFTY weekly index options.
func Default() Config {
	return Config{
		NSE: NSEConfig{
			BaseURL:           "https://nsearchives.nseindia.com/content/fo/",
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			Referer:           "https://www.nseindia.com/",
			TimeoutSeconds:    15,
			RequestsPerMinute: 20,
			CacheDir:          "data_cache",
			MaxLookbackDays:   30,
		},
		Market: MarketConfig{
			RiskFreeRate:    0.10,
			StrikeInterval:  50,
			MinClosePrice:   5,
			WeeklyExpiryDay: "Wednesday",
		},
		Logging: LoggingConfig{
			Verbosity:  1,
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		Report: ReportConfig{Dir: "out"},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the
// defaults with environment overrides applied.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, cfg.validate()
}

// applyEnv overrides selected fields from the environment. godotenv in the
// CLI loads .env before this runs.
func (c *Config) applyEnv() {
	if v := os.Getenv("NSE_BASE_URL"); v != "" {
		c.NSE.BaseURL = v
	}
	if v := os.Getenv("BHAV_CACHE_DIR"); v != "" {
		c.NSE.CacheDir = v
	}
	if v := os.Getenv("RISK_FREE_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Market.RiskFreeRate = f
		}
	}
}

func (c *Config) validate() error {
	if c.Market.RiskFreeRate < 0 || c.Market.RiskFreeRate > 1 {
		return fmt.Errorf("risk_free_rate %.4f out of range [0,1]", c.Market.RiskFreeRate)
	}
	if c.Market.StrikeInterval <= 0 {
		return fmt.Errorf("strike_interval must be positive, got %.2f", c.Market.StrikeInterval)
	}
	if _, err := c.ExpiryWeekday(); err != nil {
		return err
	}
	return nil
}

// ExpiryWeekday parses the configured weekly expiry day name.
func (c *Config) ExpiryWeekday() (time.Weekday, error) {
	name := strings.ToLower(strings.TrimSpace(c.Market.WeeklyExpiryDay))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.ToLower(wd.String()) == name {
			return wd, nil
		}
	}
	return 0, fmt.Errorf("unknown weekly_expiry_day %q", c.Market.WeeklyExpiryDay)
}

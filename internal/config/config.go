package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"resolvent/internal/rule"
)

type Config struct {
	General  GeneralConfig  `toml:"general"`
	Manifold ManifoldConfig `toml:"manifold"`
	Schedule ScheduleConfig `toml:"schedule"`
	Markets  []MarketConfig `toml:"market"`
}

type GeneralConfig struct {
	DBPath   string `toml:"db_path"`
	LogLevel string `toml:"log_level"`
	DryRun   bool   `toml:"dry_run"`
}

type ManifoldConfig struct {
	BaseURL string `toml:"base_url"`
}

type ScheduleConfig struct {
	EvalInterval     Duration `toml:"eval_interval"`
	SnapshotInterval Duration `toml:"snapshot_interval"`
	ReportInterval   Duration `toml:"report_interval"`
	CacheTTL         Duration `toml:"cache_ttl"`
	// MaxFailures is how many consecutive resolve failures blacklist a
	// market for the rest of the process.
	MaxFailures int `toml:"max_failures"`
}

// MarketConfig declares one tracked market and its ordered rule chains.
// Min and Max carry the value range of a numeric market; the market
// payload from the API does not include it.
type MarketConfig struct {
	ID     string      `toml:"id"`
	Slug   string      `toml:"slug"`
	Notes  string      `toml:"notes"`
	Min    float64     `toml:"min"`
	Max    float64     `toml:"max"`
	Gates  []rule.Spec `toml:"gate"`
	Values []rule.Spec `toml:"value"`
}

// Ref returns whichever identifier the market was declared with.
func (m MarketConfig) Ref() string {
	if m.ID != "" {
		return m.ID
	}
	return m.Slug
}

// Duration wraps time.Duration for TOML unmarshaling.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the parts a bad config file gets wrong most often.
func (c *Config) Validate() error {
	for i, m := range c.Markets {
		if m.ID == "" && m.Slug == "" {
			return fmt.Errorf("market %d: needs an id or a slug", i)
		}
		if m.ID != "" && m.Slug != "" {
			return fmt.Errorf("market %s: declare id or slug, not both", m.ID)
		}
		if m.Max < m.Min {
			return fmt.Errorf("market %s: max %v below min %v", m.Ref(), m.Max, m.Min)
		}
	}
	return nil
}

func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			DBPath:   "./data/resolvent.db",
			LogLevel: "info",
		},
		Schedule: ScheduleConfig{
			EvalInterval:     Duration{5 * time.Minute},
			SnapshotInterval: Duration{15 * time.Minute},
			ReportInterval:   Duration{1 * time.Hour},
			CacheTTL:         Duration{20 * time.Minute},
			MaxFailures:      3,
		},
	}
}

package harvest

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob that influences a harvest run. All values
// originate from Viper so the engine can be configured via files, env vars,
// or CLI flags while staying decoupled from the config source itself.
type Config struct {
	Sites              map[string]SiteConfig
	TargetPerSite      int
	UserAgent          string
	RequestTimeout     time.Duration
	MaxRetries         int
	BackoffBase        time.Duration
	BackoffFactor      float64
	DelayMin           time.Duration
	DelayMax           time.Duration
	MaxAttemptsPerSite int
	ProgressEvery      int
	OutputDir          string

	MinBodyBytes  int
	LongBodyBytes int
	Keywords      []string

	MetricsAddr string
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	sites := make(map[string]SiteConfig)
	if err := v.UnmarshalKey("harvester.sites", &sites); err != nil {
		return Config{}, fmt.Errorf("decode harvester.sites: %w", err)
	}
	cfg := Config{
		Sites:              sites,
		TargetPerSite:      v.GetInt("harvester.target_per_site"),
		UserAgent:          v.GetString("harvester.user_agent"),
		RequestTimeout:     v.GetDuration("harvester.request_timeout"),
		MaxRetries:         v.GetInt("harvester.max_retries"),
		BackoffBase:        v.GetDuration("harvester.backoff_base"),
		BackoffFactor:      v.GetFloat64("harvester.backoff_factor"),
		DelayMin:           v.GetDuration("harvester.delay_min"),
		DelayMax:           v.GetDuration("harvester.delay_max"),
		MaxAttemptsPerSite: v.GetInt("harvester.max_attempts_per_site"),
		ProgressEvery:      v.GetInt("harvester.progress_every"),
		OutputDir:          v.GetString("harvester.output_dir"),
		MinBodyBytes:       v.GetInt("classifier.min_body_bytes"),
		LongBodyBytes:      v.GetInt("classifier.long_body_bytes"),
		Keywords:           v.GetStringSlice("classifier.keywords"),
		MetricsAddr:        v.GetString("metrics.listen_addr"),
	}
	return cfg, cfg.Validate()
}

// Validate checks for configuration combinations that cannot work.
func (c Config) Validate() error {
	if len(c.Sites) == 0 {
		return fmt.Errorf("harvester.sites must define at least one site")
	}
	for key, site := range c.Sites {
		if err := site.Validate(); err != nil {
			return fmt.Errorf("site %s: %w", key, err)
		}
	}
	if c.TargetPerSite <= 0 {
		return fmt.Errorf("harvester.target_per_site must be > 0")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("harvester.user_agent must be set")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("harvester.request_timeout must be > 0")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("harvester.max_retries must be > 0")
	}
	if c.BackoffBase <= 0 {
		return fmt.Errorf("harvester.backoff_base must be > 0")
	}
	if c.BackoffFactor <= 1 {
		return fmt.Errorf("harvester.backoff_factor must be > 1")
	}
	if c.DelayMin < 0 || c.DelayMax < c.DelayMin {
		return fmt.Errorf("harvester delay range [%s, %s] is invalid", c.DelayMin, c.DelayMax)
	}
	if c.MaxAttemptsPerSite <= 0 {
		return fmt.Errorf("harvester.max_attempts_per_site must be > 0")
	}
	if c.ProgressEvery <= 0 {
		return fmt.Errorf("harvester.progress_every must be > 0")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("harvester.output_dir must be set")
	}
	if c.MinBodyBytes < 0 {
		return fmt.Errorf("classifier.min_body_bytes must be >= 0")
	}
	if c.LongBodyBytes < c.MinBodyBytes {
		return fmt.Errorf("classifier.long_body_bytes must be >= classifier.min_body_bytes")
	}
	return nil
}

// SiteKeys returns the configured site keys in deterministic order.
func (c Config) SiteKeys() []string {
	keys := make([]string, 0, len(c.Sites))
	for key := range c.Sites {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

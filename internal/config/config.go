// Package config loads and validates monitor configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/oddsflow/rosterwatch/internal/monitor"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server      ServerConfig           `mapstructure:"server"`
	Logging     LoggingConfig          `mapstructure:"logging"`
	Scanner     ScannerConfig          `mapstructure:"scanner"`
	Fetch       FetchConfig            `mapstructure:"fetch"`
	Headless    HeadlessConfig         `mapstructure:"headless"`
	Gate        GateConfig             `mapstructure:"gate"`
	Classifier  ClassifierConfig       `mapstructure:"classifier"`
	Validator   ValidatorConfig        `mapstructure:"validator"`
	Queue       QueueConfig            `mapstructure:"queue"`
	Breaker     BreakerConfig          `mapstructure:"breaker"`
	Fingerprint FingerprintConfig      `mapstructure:"fingerprint"`
	Sources     []monitor.SourceConfig `mapstructure:"sources"`
}

// ServerConfig controls the introspection HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ScannerConfig governs scan loop behavior.
type ScannerConfig struct {
	DefaultInterval time.Duration `mapstructure:"default_interval"`
	Workers         int           `mapstructure:"workers"`
	SnippetLength   int           `mapstructure:"snippet_length"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
}

// FetchConfig configures the HTTP-based fetchers.
type FetchConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	MaxPages       int    `mapstructure:"max_pages"`
	MaxFeedItems   int    `mapstructure:"max_feed_items"`
}

// HeadlessConfig configures the headless rendering fetcher.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// GateConfig controls the relevance gate thresholds and vocabularies.
type GateConfig struct {
	LowThreshold     float64  `mapstructure:"low_threshold"`
	HighThreshold    float64  `mapstructure:"high_threshold"`
	MinContentLength int      `mapstructure:"min_content_length"`
	Exclusions       []string `mapstructure:"exclusions"`
	KnownSubjects    []string `mapstructure:"known_subjects"`
}

// ClassifierConfig configures the remote classifier. An empty API key
// disables escalation; ambiguous items are then dropped.
type ClassifierConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MinInterval time.Duration `mapstructure:"min_interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ValidatorConfig controls cross-source corroboration.
type ValidatorConfig struct {
	Window        time.Duration `mapstructure:"window"`
	AggregateTTL  time.Duration `mapstructure:"aggregate_ttl"`
	BoostTwo      float64       `mapstructure:"boost_two"`
	BoostMany     float64       `mapstructure:"boost_many"`
	ConfidenceCap float64       `mapstructure:"confidence_cap"`
}

// QueueConfig controls the discovery queue. HighPriorityCategories is the
// default category filter for out-of-band callbacks; empty means every
// category qualifies.
type QueueConfig struct {
	TTL                    time.Duration `mapstructure:"ttl"`
	MaxEntries             int           `mapstructure:"max_entries"`
	HighPriorityThreshold  float64       `mapstructure:"high_priority_threshold"`
	HighPriorityCategories []string      `mapstructure:"high_priority_categories"`
}

// BreakerConfig controls the per-source circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	RecoveryTimeout  time.Duration `mapstructure:"recovery_timeout"`
}

// FingerprintConfig selects and tunes the dedup store.
type FingerprintConfig struct {
	Backend    string        `mapstructure:"backend"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
	RedisAddr  string        `mapstructure:"redis_addr"`
	RedisDB    int           `mapstructure:"redis_db"`
}

// Fingerprint backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ROSTERWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("scanner.default_interval", "60s")
	v.SetDefault("scanner.workers", 2)
	v.SetDefault("scanner.snippet_length", 240)
	v.SetDefault("scanner.sweep_interval", "5m")
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.user_agent", "rosterwatch-bot/0.1")
	v.SetDefault("fetch.max_pages", 10)
	v.SetDefault("fetch.max_feed_items", 25)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("gate.low_threshold", 0.5)
	v.SetDefault("gate.high_threshold", 0.7)
	v.SetDefault("gate.min_content_length", 80)
	v.SetDefault("classifier.model", "command-r")
	v.SetDefault("classifier.min_interval", "2s")
	v.SetDefault("classifier.max_attempts", 2)
	v.SetDefault("classifier.timeout", "20s")
	v.SetDefault("validator.window", "15m")
	v.SetDefault("validator.aggregate_ttl", "60m")
	v.SetDefault("validator.boost_two", 0.15)
	v.SetDefault("validator.boost_many", 0.25)
	v.SetDefault("validator.confidence_cap", 0.95)
	v.SetDefault("queue.ttl", "24h")
	v.SetDefault("queue.max_entries", 1000)
	v.SetDefault("queue.high_priority_threshold", 0.85)
	v.SetDefault("breaker.failure_threshold", 3)
	v.SetDefault("breaker.recovery_timeout", "5m")
	v.SetDefault("fingerprint.backend", BackendMemory)
	v.SetDefault("fingerprint.ttl", "24h")
	v.SetDefault("fingerprint.max_entries", 5000)
}

// Validate enforces required values and reasonable limits. Misconfiguration
// is fatal at startup rather than discovered mid-scan.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scanner.Workers <= 0 {
		return fmt.Errorf("scanner.workers must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Gate.LowThreshold <= 0 || c.Gate.HighThreshold <= c.Gate.LowThreshold {
		return fmt.Errorf("gate thresholds must satisfy 0 < low < high")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	for _, raw := range c.Queue.HighPriorityCategories {
		if !monitor.Category(raw).Valid() {
			return fmt.Errorf("queue.high_priority_categories: %q is not a valid category", raw)
		}
	}
	switch c.Fingerprint.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Fingerprint.RedisAddr == "" {
			return fmt.Errorf("fingerprint.redis_addr must be set for the redis backend")
		}
	default:
		return fmt.Errorf("fingerprint.backend %q is not one of memory, redis", c.Fingerprint.Backend)
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d].id must be set", i)
		}
		if _, dup := seen[src.ID]; dup {
			return fmt.Errorf("sources[%d].id %q is duplicated", i, src.ID)
		}
		seen[src.ID] = struct{}{}
		if src.URL == "" {
			return fmt.Errorf("source %q: url must be set", src.ID)
		}
		if !src.Mode.Valid() {
			return fmt.Errorf("source %q: mode %q is not one of page, paginated, feed, rendered", src.ID, src.Mode)
		}
		if src.Mode == monitor.ModeRendered && !c.Headless.Enabled {
			return fmt.Errorf("source %q: rendered mode requires headless.enabled", src.ID)
		}
	}
	return nil
}

// Groups returns the distinct source groups in configuration order. Sources
// without a group land in "default".
func (c Config) Groups() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, src := range c.Sources {
		g := src.Group
		if g == "" {
			g = "default"
		}
		if _, ok := seen[g]; ok {
			continue
		}
		seen[g] = struct{}{}
		out = append(out, g)
	}
	return out
}

// SourcesForGroup filters sources by group.
func (c Config) SourcesForGroup(group string) []monitor.SourceConfig {
	var out []monitor.SourceConfig
	for _, src := range c.Sources {
		g := src.Group
		if g == "" {
			g = "default"
		}
		if g == group {
			out = append(out, src)
		}
	}
	return out
}

// Categories converts the configured high-priority category names. Nil means
// no category filter.
func (q QueueConfig) Categories() []monitor.Category {
	if len(q.HighPriorityCategories) == 0 {
		return nil
	}
	out := make([]monitor.Category, 0, len(q.HighPriorityCategories))
	for _, raw := range q.HighPriorityCategories {
		out = append(out, monitor.Category(raw))
	}
	return out
}

// FetchTimeout converts the fetch timeout into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

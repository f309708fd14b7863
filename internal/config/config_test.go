package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/oddsflow/rosterwatch/internal/monitor"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
logging:
  development: false
scanner:
  default_interval: 90s
  workers: 4
gate:
  low_threshold: 0.4
  high_threshold: 0.8
  known_subjects: ["Team X", "Team Y"]
classifier:
  api_key: secret
  min_interval: 3s
queue:
  high_priority_categories: ["absence", "suspension"]
fingerprint:
  backend: redis
  redis_addr: localhost:6379
sources:
  - id: club-site
    url: https://club.example.com/news
    mode: paginated
    group: league-one
    link_selector: "a.article"
    scan_interval: 120s
  - id: club-feed
    url: https://club.example.com/rss
    mode: feed
    group: league-one
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Scanner.DefaultInterval != 90*time.Second || cfg.Scanner.Workers != 4 {
		t.Fatalf("expected scanner overrides to apply: %+v", cfg.Scanner)
	}
	if cfg.Gate.LowThreshold != 0.4 || cfg.Gate.HighThreshold != 0.8 {
		t.Fatalf("expected gate thresholds to apply: %+v", cfg.Gate)
	}
	if len(cfg.Gate.KnownSubjects) != 2 {
		t.Fatalf("expected known subjects to load: %+v", cfg.Gate.KnownSubjects)
	}
	if cfg.Classifier.APIKey != "secret" || cfg.Classifier.MinInterval != 3*time.Second {
		t.Fatalf("expected classifier overrides to apply: %+v", cfg.Classifier)
	}
	if cfg.Fingerprint.Backend != BackendRedis || cfg.Fingerprint.RedisAddr != "localhost:6379" {
		t.Fatalf("expected redis fingerprint backend: %+v", cfg.Fingerprint)
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(cfg.Sources))
	}
	src := cfg.Sources[0]
	if src.Mode != monitor.ModePaginated || src.ScanInterval != 120*time.Second || src.LinkSelector != "a.article" {
		t.Fatalf("expected source fields to load: %+v", src)
	}
	// Untouched sections keep their defaults.
	if cfg.Validator.Window != 15*time.Minute || cfg.Queue.TTL != 24*time.Hour {
		t.Fatalf("expected defaults to survive partial config")
	}
	if cfg.Breaker.FailureThreshold != 3 {
		t.Fatalf("expected breaker default, got %d", cfg.Breaker.FailureThreshold)
	}
	cats := cfg.Queue.Categories()
	if len(cats) != 2 || cats[0] != monitor.CategoryAbsence || cats[1] != monitor.CategorySuspension {
		t.Fatalf("expected queue categories to load: %v", cats)
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Scanner.DefaultInterval != time.Minute {
		t.Fatalf("expected 60s default interval, got %v", cfg.Scanner.DefaultInterval)
	}
	if cfg.Fingerprint.Backend != BackendMemory {
		t.Fatalf("expected memory backend default, got %q", cfg.Fingerprint.Backend)
	}
	if got := cfg.FetchTimeout(); got != 15*time.Second {
		t.Fatalf("expected fetch timeout 15s, got %v", got)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	base := func(t *testing.T) Config {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		return cfg
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "bad mode",
			mutate:  func(c *Config) { c.Sources = []monitor.SourceConfig{{ID: "a", URL: "https://a", Mode: "spa"}} },
			wantErr: "mode",
		},
		{
			name:    "missing id",
			mutate:  func(c *Config) { c.Sources = []monitor.SourceConfig{{URL: "https://a", Mode: monitor.ModePage}} },
			wantErr: "id must be set",
		},
		{
			name: "duplicate id",
			mutate: func(c *Config) {
				c.Sources = []monitor.SourceConfig{
					{ID: "a", URL: "https://a", Mode: monitor.ModePage},
					{ID: "a", URL: "https://b", Mode: monitor.ModePage},
				}
			},
			wantErr: "duplicated",
		},
		{
			name:    "inverted thresholds",
			mutate:  func(c *Config) { c.Gate.LowThreshold = 0.8; c.Gate.HighThreshold = 0.5 },
			wantErr: "thresholds",
		},
		{
			name:    "bad queue category",
			mutate:  func(c *Config) { c.Queue.HighPriorityCategories = []string{"injury"} },
			wantErr: "high_priority_categories",
		},
		{
			name:    "redis without addr",
			mutate:  func(c *Config) { c.Fingerprint.Backend = BackendRedis },
			wantErr: "redis_addr",
		},
		{
			name: "rendered without headless",
			mutate: func(c *Config) {
				c.Sources = []monitor.SourceConfig{{ID: "a", URL: "https://a", Mode: monitor.ModeRendered}}
			},
			wantErr: "headless",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base(t)
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestGroupHelpers(t *testing.T) {
	t.Parallel()

	cfg := Config{Sources: []monitor.SourceConfig{
		{ID: "a", Group: "league-one"},
		{ID: "b"},
		{ID: "c", Group: "league-one"},
	}}

	groups := cfg.Groups()
	if len(groups) != 2 || groups[0] != "league-one" || groups[1] != "default" {
		t.Fatalf("unexpected groups: %v", groups)
	}
	if got := cfg.SourcesForGroup("league-one"); len(got) != 2 {
		t.Fatalf("expected 2 sources in league-one, got %d", len(got))
	}
	if got := cfg.SourcesForGroup("default"); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("expected ungrouped source in default, got %+v", got)
	}
}

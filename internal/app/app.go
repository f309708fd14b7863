// Package app initializes and holds the long-lived services of the monitor,
// acting as the composition root.
package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oddsflow/rosterwatch/internal/api"
	"github.com/oddsflow/rosterwatch/internal/breaker"
	"github.com/oddsflow/rosterwatch/internal/classify"
	"github.com/oddsflow/rosterwatch/internal/clock/system"
	"github.com/oddsflow/rosterwatch/internal/config"
	"github.com/oddsflow/rosterwatch/internal/discovery"
	collyfetch "github.com/oddsflow/rosterwatch/internal/fetch/colly"
	"github.com/oddsflow/rosterwatch/internal/fetch/feed"
	"github.com/oddsflow/rosterwatch/internal/fetch/headless"
	"github.com/oddsflow/rosterwatch/internal/fingerprint"
	"github.com/oddsflow/rosterwatch/internal/gate"
	"github.com/oddsflow/rosterwatch/internal/hash/sha256"
	"github.com/oddsflow/rosterwatch/internal/id/uuid"
	"github.com/oddsflow/rosterwatch/internal/logging"
	"github.com/oddsflow/rosterwatch/internal/monitor"
	"github.com/oddsflow/rosterwatch/internal/notify"
	"github.com/oddsflow/rosterwatch/internal/scanner"
	"github.com/oddsflow/rosterwatch/internal/telemetry"
	"github.com/oddsflow/rosterwatch/internal/validator"
)

// App wires every pipeline component from configuration and owns their
// lifecycles. It is initialized once at startup and torn down by Close.
type App struct {
	cfg    config.Config
	logger *zap.Logger

	breaker      *breaker.Breaker
	fingerprints monitor.FingerprintStore
	gate         *gate.Gate
	validator    *validator.Validator
	queue        *discovery.Queue

	loops   []*scanner.Loop
	janitor *scanner.Janitor
	server  *http.Server

	headless   *headless.Fetcher
	redisStore *fingerprint.RedisStore
}

// New builds the full pipeline. It fails fast on anything a scan loop would
// otherwise discover mid-flight: bad fingerprint backends, unreachable Redis,
// or a classifier the config demands but cannot construct.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	telemetry.Init()

	a := &App{cfg: cfg, logger: logger}
	clk := system.New()

	a.breaker = breaker.New(breaker.Config{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		RecoveryTimeout:  cfg.Breaker.RecoveryTimeout,
	}, clk, logger)

	switch cfg.Fingerprint.Backend {
	case config.BackendRedis:
		store, err := fingerprint.NewRedisStore(ctx, fingerprint.RedisConfig{
			Addr: cfg.Fingerprint.RedisAddr,
			DB:   cfg.Fingerprint.RedisDB,
			TTL:  cfg.Fingerprint.TTL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect fingerprint redis: %w", err)
		}
		a.redisStore = store
		a.fingerprints = store
		logger.Info("using redis fingerprint store", zap.String("addr", cfg.Fingerprint.RedisAddr))
	default:
		a.fingerprints = fingerprint.NewCache(fingerprint.Config{
			TTL:        cfg.Fingerprint.TTL,
			MaxEntries: cfg.Fingerprint.MaxEntries,
		}, clk)
	}

	a.gate = gate.New(gate.Config{
		LowThreshold:     cfg.Gate.LowThreshold,
		HighThreshold:    cfg.Gate.HighThreshold,
		MinContentLength: cfg.Gate.MinContentLength,
		Exclusions:       cfg.Gate.Exclusions,
		KnownSubjects:    cfg.Gate.KnownSubjects,
	}, logger)

	a.validator = validator.New(validator.Config{
		Window:        cfg.Validator.Window,
		AggregateTTL:  cfg.Validator.AggregateTTL,
		BoostTwo:      cfg.Validator.BoostTwo,
		BoostMany:     cfg.Validator.BoostMany,
		ConfidenceCap: cfg.Validator.ConfidenceCap,
	}, clk, logger)

	a.queue = discovery.New(discovery.Config{
		TTL:                    cfg.Queue.TTL,
		MaxEntries:             cfg.Queue.MaxEntries,
		HighPriorityThreshold:  cfg.Queue.HighPriorityThreshold,
		HighPriorityCategories: cfg.Queue.Categories(),
	}, uuid.NewGenerator(), clk, logger)

	classifier, err := a.buildClassifier()
	if err != nil {
		return nil, err
	}

	fetchers, err := a.buildFetchers()
	if err != nil {
		return nil, err
	}

	notifier := notify.NewLog(logger, cfg.Queue.HighPriorityThreshold)

	pipe := scanner.Pipeline{
		Breaker:      a.breaker,
		Fingerprints: a.fingerprints,
		Gate:         a.gate,
		Validator:    a.validator,
		Queue:        a.queue,
		Classifier:   classifier,
		Notifier:     notifier,
		Hasher:       sha256.New(),
		Clock:        clk,
		Logger:       logger,
	}

	for _, group := range cfg.Groups() {
		loop := scanner.NewLoop(scanner.Config{
			Group:         group,
			ScanInterval:  cfg.Scanner.DefaultInterval,
			Workers:       cfg.Scanner.Workers,
			SnippetLength: cfg.Scanner.SnippetLength,
		}, cfg.SourcesForGroup(group), fetchers, pipe)
		a.loops = append(a.loops, loop)
	}

	a.janitor = scanner.NewJanitor(cfg.Scanner.SweepInterval, a.fingerprints, a.validator, a.queue, logger)

	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(a.queue, a.breaker, a.validator, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// buildClassifier returns nil when no API key is configured; the scan loops
// then drop ambiguous items instead of escalating them.
func (a *App) buildClassifier() (monitor.Classifier, error) {
	if a.cfg.Classifier.APIKey == "" {
		a.logger.Warn("no classifier api key configured, ambiguous items will be dropped")
		return nil, nil
	}
	remote, err := classify.NewCohere(classify.CohereConfig{
		APIKey:  a.cfg.Classifier.APIKey,
		Model:   a.cfg.Classifier.Model,
		Timeout: a.cfg.Classifier.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}
	return classify.NewLimited(remote, classify.Config{
		MinInterval: a.cfg.Classifier.MinInterval,
		MaxAttempts: a.cfg.Classifier.MaxAttempts,
	}, a.logger), nil
}

func (a *App) buildFetchers() (map[monitor.NavigationMode]monitor.Fetcher, error) {
	static := collyfetch.New(collyfetch.Config{
		UserAgent: a.cfg.Fetch.UserAgent,
		Timeout:   a.cfg.FetchTimeout(),
		MaxPages:  a.cfg.Fetch.MaxPages,
	}, a.logger)

	fetchers := map[monitor.NavigationMode]monitor.Fetcher{
		monitor.ModePage:      static,
		monitor.ModePaginated: static,
		monitor.ModeFeed: feed.New(feed.Config{
			UserAgent: a.cfg.Fetch.UserAgent,
			Timeout:   a.cfg.FetchTimeout(),
			MaxItems:  a.cfg.Fetch.MaxFeedItems,
		}),
	}

	if a.cfg.Headless.Enabled {
		rendered, err := headless.New(headless.Config{
			MaxParallel:       a.cfg.Headless.MaxParallel,
			UserAgent:         a.cfg.Fetch.UserAgent,
			NavigationTimeout: time.Duration(a.cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("build headless fetcher: %w", err)
		}
		a.headless = rendered
		fetchers[monitor.ModeRendered] = rendered
	}
	return fetchers, nil
}

// Run starts every scan loop, the janitor, and the HTTP server, and blocks
// until the context ends. The HTTP server gets a short drain window on the
// way out.
func (a *App) Run(ctx context.Context) error {
	if len(a.cfg.Sources) == 0 {
		return fmt.Errorf("no sources configured")
	}

	var wg sync.WaitGroup
	for _, loop := range a.loops {
		wg.Add(1)
		go func(l *scanner.Loop) {
			defer wg.Done()
			l.Run(ctx)
		}(loop)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.janitor.Run(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("introspection server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		return fmt.Errorf("introspection server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("server shutdown incomplete", zap.Error(err))
	}
	wg.Wait()
	return nil
}

// Close releases external resources and flushes the logger.
func (a *App) Close() {
	if a.headless != nil {
		a.headless.Close()
	}
	if a.redisStore != nil {
		if err := a.redisStore.Close(); err != nil {
			a.logger.Warn("error closing redis client", zap.Error(err))
		}
	}
	// Best effort; stderr sync errors on some platforms are expected.
	_ = a.logger.Sync()
}

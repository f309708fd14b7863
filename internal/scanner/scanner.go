// Package scanner drives the periodic monitoring loops. One Loop owns one
// source group; within a cycle its sources are processed by a small worker
// pool, and each source runs the strict per-item sequence: circuit check,
// fetch, fingerprint check, relevance gate, optional classification,
// cross-source validation, queue push.
package scanner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oddsflow/rosterwatch/internal/breaker"
	"github.com/oddsflow/rosterwatch/internal/discovery"
	"github.com/oddsflow/rosterwatch/internal/gate"
	"github.com/oddsflow/rosterwatch/internal/hash/sha256"
	"github.com/oddsflow/rosterwatch/internal/monitor"
	"github.com/oddsflow/rosterwatch/internal/telemetry"
	"github.com/oddsflow/rosterwatch/internal/validator"
)

// Config controls one scan loop.
type Config struct {
	// Group names the source group; it doubles as the queue index key.
	Group string
	// ScanInterval is the default cycle cadence; sources may override it.
	ScanInterval time.Duration
	// Workers bounds in-cycle source concurrency, for politeness against
	// remote sites.
	Workers int
	// SnippetLength bounds the raw snippet carried on a Signal.
	SnippetLength int
}

const (
	defaultScanInterval  = time.Minute
	defaultWorkers       = 2
	defaultSnippetLength = 240
)

// Pipeline bundles the shared components a Loop feeds. All of them are safe
// for concurrent use by multiple loops.
type Pipeline struct {
	Breaker      *breaker.Breaker
	Fingerprints monitor.FingerprintStore
	Gate         *gate.Gate
	Validator    *validator.Validator
	Queue        *discovery.Queue
	Classifier   monitor.Classifier
	Notifier     monitor.Notifier
	Hasher       monitor.Hasher
	Clock        monitor.Clock
	Logger       *zap.Logger
}

// Loop scans one group of sources until its context ends.
type Loop struct {
	cfg      Config
	sources  []monitor.SourceConfig
	fetchers map[monitor.NavigationMode]monitor.Fetcher
	pipe     Pipeline
	logger   *zap.Logger

	// lastScan is touched only by the loop goroutine.
	lastScan map[string]time.Time
}

// NewLoop constructs a Loop. fetchers must cover every navigation mode used
// by sources; config validation guarantees this at startup.
func NewLoop(cfg Config, sources []monitor.SourceConfig, fetchers map[monitor.NavigationMode]monitor.Fetcher, pipe Pipeline) *Loop {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = defaultScanInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.SnippetLength <= 0 {
		cfg.SnippetLength = defaultSnippetLength
	}
	logger := pipe.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		cfg:      cfg,
		sources:  sources,
		fetchers: fetchers,
		pipe:     pipe,
		logger:   logger.With(zap.String("group", cfg.Group)),
		lastScan: make(map[string]time.Time),
	}
}

// Run blocks, scanning until the context finishes. Sleeps are interruptible
// so shutdown is observed within the tick granularity.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.tickInterval())
	defer ticker.Stop()

	l.ScanOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("scan loop stopped")
			return
		case <-ticker.C:
			l.ScanOnce(ctx)
		}
	}
}

// ScanOnce runs one cycle over all due sources using the worker pool.
func (l *Loop) ScanOnce(ctx context.Context) {
	due := l.dueSources()
	if len(due) == 0 {
		return
	}

	sem := make(chan struct{}, l.cfg.Workers)
	var wg sync.WaitGroup
	for _, src := range due {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(src monitor.SourceConfig) {
			defer wg.Done()
			defer func() { <-sem }()
			l.scanSource(ctx, src)
		}(src)
	}
	wg.Wait()
	telemetry.IncScanCycle(l.cfg.Group)
}

func (l *Loop) dueSources() []monitor.SourceConfig {
	now := l.pipe.Clock.Now()
	var due []monitor.SourceConfig
	for _, src := range l.sources {
		interval := src.ScanInterval
		if interval <= 0 {
			interval = l.cfg.ScanInterval
		}
		if last, ok := l.lastScan[src.ID]; ok && now.Sub(last) < interval {
			continue
		}
		l.lastScan[src.ID] = now
		due = append(due, src)
	}
	return due
}

// tickInterval is the scheduling granularity: the smallest configured
// interval, so per-source overrides are honored.
func (l *Loop) tickInterval() time.Duration {
	min := l.cfg.ScanInterval
	for _, src := range l.sources {
		if src.ScanInterval > 0 && src.ScanInterval < min {
			min = src.ScanInterval
		}
	}
	return min
}

// scanSource runs the full pipeline for one source. All failures are
// contained here; nothing propagates to the loop.
func (l *Loop) scanSource(ctx context.Context, src monitor.SourceConfig) {
	if !l.pipe.Breaker.Allow(src.ID) {
		l.logger.Debug("source skipped by circuit breaker", zap.String("source_id", src.ID))
		return
	}

	fetcher, ok := l.fetchers[src.Mode]
	if !ok {
		l.logger.Error("no fetcher for navigation mode",
			zap.String("source_id", src.ID),
			zap.String("mode", string(src.Mode)),
		)
		return
	}

	items, err := fetcher.Fetch(ctx, src)
	if err != nil {
		l.recordFetchFailure(src, err)
		return
	}
	l.pipe.Breaker.RecordSuccess(src.ID)

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		l.processItem(ctx, src, item)
	}
}

func (l *Loop) recordFetchFailure(src monitor.SourceConfig, err error) {
	class := monitor.ClassOf(err)
	telemetry.IncFetchError(src.ID, string(class))
	l.pipe.Breaker.RecordFailure(src.ID, class == monitor.ErrClassTransport)

	switch class {
	case monitor.ErrClassEmpty:
		l.logger.Debug("source had nothing to extract", zap.String("source_id", src.ID))
	case monitor.ErrClassParse:
		l.logger.Warn("source content unparsable", zap.String("source_id", src.ID), zap.Error(err))
	default:
		l.logger.Warn("source fetch failed", zap.String("source_id", src.ID), zap.Error(err))
	}
}

func (l *Loop) processItem(ctx context.Context, src monitor.SourceConfig, item monitor.Extracted) {
	hash, err := l.pipe.Hasher.Hash(sha256.Normalize(item.Title + " " + item.Text))
	if err != nil {
		l.logger.Error("content hash failed", zap.String("source_id", src.ID), zap.Error(err))
		return
	}
	if l.pipe.Fingerprints.Seen(ctx, hash) {
		return
	}
	l.pipe.Fingerprints.Record(ctx, hash)

	ev := l.pipe.Gate.Evaluate(item)
	var signal monitor.Signal
	switch ev.Route {
	case gate.RouteDiscard, gate.RouteSkip:
		return
	case gate.RouteEscalate:
		escalated, ok := l.escalate(ctx, src, item, ev)
		if !ok {
			return
		}
		signal = escalated
	case gate.RouteAlert:
		signal = monitor.Signal{
			Subject:    ev.Subject,
			Category:   ev.Category,
			Confidence: ev.Score,
		}
	}

	signal.SourceID = src.ID
	signal.OriginURL = item.URL
	signal.Snippet = snippet(item.Text, l.cfg.SnippetLength)
	signal.DiscoveredAt = l.pipe.Clock.Now()

	result := l.pipe.Validator.Register(signal.Subject, signal.Category, src.ID, signal.Confidence)
	signal.Confidence = result.Confidence

	id, err := l.pipe.Queue.Push(signal, l.cfg.Group)
	if err != nil {
		l.logger.Error("queue push failed", zap.String("source_id", src.ID), zap.Error(err))
		return
	}
	telemetry.IncSignal(string(signal.Category), result.MultiSource)
	l.logger.Info("signal discovered",
		zap.String("id", id),
		zap.String("source_id", src.ID),
		zap.String("subject", signal.Subject),
		zap.String("category", string(signal.Category)),
		zap.Float64("confidence", signal.Confidence),
		zap.String("corroboration", result.Tag),
	)

	if l.pipe.Notifier != nil {
		if err := l.pipe.Notifier.Notify(ctx, signal); err != nil {
			l.logger.Warn("notify failed", zap.String("source_id", src.ID), zap.Error(err))
		}
	}
}

// escalate sends the ambiguous item to the remote classifier. Failures drop
// the item rather than defaulting to an alert.
func (l *Loop) escalate(ctx context.Context, src monitor.SourceConfig, item monitor.Extracted, ev gate.Evaluation) (monitor.Signal, bool) {
	if l.pipe.Classifier == nil {
		l.logger.Debug("no classifier configured, dropping ambiguous item",
			zap.String("source_id", src.ID),
		)
		return monitor.Signal{}, false
	}
	result, err := l.pipe.Classifier.Classify(ctx, item.Text)
	if err != nil {
		l.logger.Warn("classification failed, dropping item",
			zap.String("source_id", src.ID),
			zap.Error(err),
		)
		return monitor.Signal{}, false
	}

	subject := result.Subject
	if subject == "" {
		subject = ev.Subject
	}
	return monitor.Signal{
		Subject:    subject,
		Category:   result.Category,
		Confidence: result.Confidence,
		Classified: &result,
	}, true
}

func snippet(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// Package validator reconciles independently discovered reports of the same
// real-world event. Corroboration from unrelated sources boosts confidence; a
// single source repeating itself does not.
package validator

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/oddsflow/rosterwatch/internal/monitor"
	"github.com/oddsflow/rosterwatch/internal/telemetry"
)

// Config controls aggregation windows and confidence boosts. All values are
// tunable; the defaults are starting points, not requirements.
type Config struct {
	// Window gates how long after the first contribution new sources may
	// still join an aggregate.
	Window time.Duration
	// AggregateTTL gates how long an aggregate survives after its last
	// contribution before the sweep removes it.
	AggregateTTL  time.Duration
	BoostTwo      float64
	BoostMany     float64
	ConfidenceCap float64
}

const (
	defaultWindow       = 15 * time.Minute
	defaultAggregateTTL = 60 * time.Minute
	defaultBoostTwo     = 0.15
	defaultBoostMany    = 0.25
	defaultCap          = 0.95
)

type aggregate struct {
	sources   map[string]struct{}
	firstSeen time.Time
	lastSeen  time.Time
	// base is the highest contributed confidence; boosts apply on top of it
	// so the result never decreases as sources join.
	base float64
}

// Result is the outcome of one registration.
type Result struct {
	Confidence  float64
	MultiSource bool
	Tag         string
}

// Validator owns the aggregate map. Safe for concurrent use.
type Validator struct {
	mu     sync.Mutex
	cfg    Config
	byKey  map[string]*aggregate
	clock  monitor.Clock
	logger *zap.Logger
}

// New constructs a Validator.
func New(cfg Config, clock monitor.Clock, logger *zap.Logger) *Validator {
	if cfg.Window <= 0 {
		cfg.Window = defaultWindow
	}
	if cfg.AggregateTTL <= 0 {
		cfg.AggregateTTL = defaultAggregateTTL
	}
	if cfg.BoostTwo <= 0 {
		cfg.BoostTwo = defaultBoostTwo
	}
	if cfg.BoostMany <= 0 {
		cfg.BoostMany = defaultBoostMany
	}
	if cfg.ConfidenceCap <= 0 {
		cfg.ConfidenceCap = defaultCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		cfg:    cfg,
		byKey:  make(map[string]*aggregate),
		clock:  clock,
		logger: logger,
	}
}

// Register records one source's report of (subject, category) and returns the
// possibly boosted confidence. The same source reporting twice does not
// double-count.
func (v *Validator) Register(subject string, category monitor.Category, sourceID string, confidence float64) Result {
	// A signal without a subject cannot corroborate anything: unrelated
	// subjectless reports would otherwise share one aggregate and boost
	// each other.
	if strings.TrimSpace(subject) == "" {
		return Result{Confidence: confidence, MultiSource: false, Tag: "no_subject"}
	}
	key := aggregationKey(subject, category)
	now := v.clock.Now()

	v.mu.Lock()
	defer v.mu.Unlock()

	agg, ok := v.byKey[key]
	if ok && now.Sub(agg.firstSeen) > v.cfg.Window {
		// The window only gates new contributions; existence is the sweep's
		// concern. A late report starts a fresh aggregate.
		ok = false
	}
	if !ok {
		agg = &aggregate{
			sources:   map[string]struct{}{sourceID: {}},
			firstSeen: now,
			lastSeen:  now,
			base:      confidence,
		}
		v.byKey[key] = agg
		telemetry.SetValidatorAggregates(len(v.byKey))
		return Result{Confidence: confidence, MultiSource: false, Tag: "single_source"}
	}

	agg.sources[sourceID] = struct{}{}
	agg.lastSeen = now
	if confidence > agg.base {
		agg.base = confidence
	}

	n := len(agg.sources)
	boosted := agg.base + v.boost(n)
	if boosted > v.cfg.ConfidenceCap {
		boosted = v.cfg.ConfidenceCap
	}
	if n > 1 {
		v.logger.Info("cross-source corroboration",
			zap.String("subject", subject),
			zap.String("category", string(category)),
			zap.Int("sources", n),
			zap.Float64("confidence", boosted),
		)
	}
	return Result{
		Confidence:  boosted,
		MultiSource: n > 1,
		Tag:         fmt.Sprintf("%d_sources", n),
	}
}

// Sweep removes aggregates whose last contribution is older than the TTL and
// returns how many were removed.
func (v *Validator) Sweep() int {
	now := v.clock.Now()

	v.mu.Lock()
	defer v.mu.Unlock()

	removed := 0
	for key, agg := range v.byKey {
		if now.Sub(agg.lastSeen) > v.cfg.AggregateTTL {
			delete(v.byKey, key)
			removed++
		}
	}
	telemetry.SetValidatorAggregates(len(v.byKey))
	return removed
}

// Size returns the number of live aggregates.
func (v *Validator) Size() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.byKey)
}

func (v *Validator) boost(sources int) float64 {
	switch {
	case sources >= 3:
		return v.cfg.BoostMany
	case sources == 2:
		return v.cfg.BoostTwo
	default:
		return 0
	}
}

// commonSuffixes are club-name decorations stripped during normalization so
// "Melchester Rovers FC" and "melchester rovers" aggregate together.
var commonSuffixes = []string{"fc", "cf", "sc", "afc", "cfc", "bk", "if"}

func aggregationKey(subject string, category monitor.Category) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(subject)))
	for len(fields) > 1 {
		last := fields[len(fields)-1]
		stripped := false
		for _, s := range commonSuffixes {
			if last == s {
				fields = fields[:len(fields)-1]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return strings.Join(fields, " ") + "|" + string(category)
}

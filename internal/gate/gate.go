// Package gate implements the three-stage relevance filter that decides, per
// extracted item, whether to drop it, score it locally, escalate it to the
// remote classifier, or alert on it directly. The tiering exists to keep the
// expensive classifier call confined to the ambiguous middle band.
package gate

import (
	"strings"

	"go.uber.org/zap"

	"github.com/oddsflow/rosterwatch/internal/monitor"
	"github.com/oddsflow/rosterwatch/internal/telemetry"
)

// Route is the gate's decision for one item.
type Route string

// Routing outcomes.
const (
	RouteDiscard  Route = "discard"
	RouteSkip     Route = "skip"
	RouteEscalate Route = "escalate"
	RouteAlert    Route = "alert"
)

// Evaluation is the gate's full output for one item.
type Evaluation struct {
	Route    Route
	Score    float64
	Category monitor.Category
	Subject  string
	// Reason is set for discards, for logging.
	Reason string
}

// Config controls gate thresholds and vocabularies.
type Config struct {
	LowThreshold  float64
	HighThreshold float64
	// MinContentLength is the boilerplate pre-check floor, in runes.
	MinContentLength int
	Exclusions       []string
	KnownSubjects    []string
}

const (
	defaultLowThreshold     = 0.5
	defaultHighThreshold    = 0.7
	defaultMinContentLength = 80

	scoreBaseline = 0.1
	// scoreCap stays below 1.0 so classifier-backed confidences can exceed
	// any locally produced score.
	scoreCap = 0.9
)

// Gate applies the exclusion filter, the local scorer, and the tiered router
// in order. It is stateless and safe for concurrent use.
type Gate struct {
	cfg        Config
	exclusions *exclusionList
	subjects   *SubjectExtractor
	logger     *zap.Logger
}

// New constructs a Gate. An empty exclusion list falls back to the built-in
// denylist.
func New(cfg Config, logger *zap.Logger) *Gate {
	if cfg.LowThreshold <= 0 {
		cfg.LowThreshold = defaultLowThreshold
	}
	if cfg.HighThreshold <= 0 {
		cfg.HighThreshold = defaultHighThreshold
	}
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = defaultMinContentLength
	}
	exclusions := cfg.Exclusions
	if len(exclusions) == 0 {
		exclusions = defaultExclusions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		cfg:        cfg,
		exclusions: newExclusionList(exclusions),
		subjects:   NewSubjectExtractor(cfg.KnownSubjects),
		logger:     logger,
	}
}

// Evaluate runs all stages against one extracted item.
func (g *Gate) Evaluate(item monitor.Extracted) Evaluation {
	text := strings.TrimSpace(item.Title + " " + item.Text)
	lower := strings.ToLower(text)

	// Boilerplate runs before the exclusion filter: it is cheaper and menu
	// text would otherwise produce false category matches.
	if reason, ok := g.isBoilerplate(text, lower); ok {
		telemetry.IncGateDecision(string(RouteDiscard))
		return Evaluation{Route: RouteDiscard, Reason: reason}
	}

	if phrase, ok := g.exclusions.Matches(lower); ok {
		telemetry.IncGateDecision(string(RouteDiscard))
		return Evaluation{Route: RouteDiscard, Reason: "excluded: " + phrase}
	}

	score, category := g.scoreLocally(lower)
	subject := g.subjects.Extract(text)

	route := g.RouteFor(score)
	telemetry.IncGateDecision(string(route))
	return Evaluation{
		Route:    route,
		Score:    score,
		Category: category,
		Subject:  subject,
	}
}

// RouteFor maps a local score to a routing decision. Boundaries are inclusive
// on the upper side: exactly lowThreshold escalates, exactly highThreshold
// alerts.
func (g *Gate) RouteFor(score float64) Route {
	switch {
	case score < g.cfg.LowThreshold:
		return RouteSkip
	case score < g.cfg.HighThreshold:
		return RouteEscalate
	default:
		return RouteAlert
	}
}

func (g *Gate) isBoilerplate(text, lower string) (string, bool) {
	if len([]rune(text)) < g.cfg.MinContentLength {
		return "too short", true
	}
	// Short-ish content dominated by consent/navigation markers is chrome,
	// not an article.
	if len(lower) < 600 {
		hits := 0
		for _, marker := range boilerplateMarkers {
			if strings.Contains(lower, marker) {
				hits++
			}
		}
		if hits >= 2 {
			return "navigation boilerplate", true
		}
	}
	return "", false
}

// scoreLocally runs the weighted multilingual keyword scan. The result starts
// at a small baseline once any term matches and is capped below 1.0.
func (g *Gate) scoreLocally(lower string) (float64, monitor.Category) {
	perCategory := map[monitor.Category]float64{}
	matched := false
	for _, t := range relevanceTerms {
		if strings.Contains(lower, t.phrase) {
			perCategory[t.category] += t.weight
			matched = true
		}
	}
	if !matched {
		return 0, monitor.CategoryOther
	}

	best := monitor.CategoryOther
	bestWeight := 0.0
	total := scoreBaseline
	for cat, w := range perCategory {
		total += w
		if w > bestWeight {
			best = cat
			bestWeight = w
		}
	}
	if total > scoreCap {
		total = scoreCap
	}
	return total, best
}

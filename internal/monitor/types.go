package monitor

import "time"

// NavigationMode selects how a source is fetched.
type NavigationMode string

// Navigation modes accepted in source configuration.
const (
	// ModePage fetches a single static page.
	ModePage NavigationMode = "page"
	// ModePaginated fetches an index page and follows article links.
	ModePaginated NavigationMode = "paginated"
	// ModeFeed reads an RSS or Atom feed.
	ModeFeed NavigationMode = "feed"
	// ModeRendered drives a headless browser for script-heavy pages.
	ModeRendered NavigationMode = "rendered"
)

// Valid reports whether the mode is one of the accepted values.
func (m NavigationMode) Valid() bool {
	switch m {
	case ModePage, ModePaginated, ModeFeed, ModeRendered:
		return true
	}
	return false
}

// Category labels the kind of roster event a signal describes.
type Category string

// Signal categories emitted by the gate and the classifier.
const (
	CategoryAbsence      Category = "absence"
	CategorySuspension   Category = "suspension"
	CategoryRosterChange Category = "roster_change"
	CategoryOther        Category = "other"
)

// Valid reports whether the category is one of the accepted values.
func (c Category) Valid() bool {
	switch c {
	case CategoryAbsence, CategorySuspension, CategoryRosterChange, CategoryOther:
		return true
	}
	return false
}

// SourceConfig describes a single monitored source.
type SourceConfig struct {
	ID           string         `json:"id" mapstructure:"id"`
	URL          string         `json:"url" mapstructure:"url"`
	Mode         NavigationMode `json:"mode" mapstructure:"mode"`
	Group        string         `json:"group" mapstructure:"group"`
	Language     string         `json:"language,omitempty" mapstructure:"language"`
	ScanInterval time.Duration  `json:"scan_interval,omitempty" mapstructure:"scan_interval"`
	LinkSelector string         `json:"link_selector,omitempty" mapstructure:"link_selector"`
	MaxPages     int            `json:"max_pages,omitempty" mapstructure:"max_pages"`
}

// Extracted is one unit of readable content pulled from a source: a page,
// an article behind an index link, or a feed entry.
type Extracted struct {
	URL   string
	Title string
	Text  string
}

// ClassifierResult is the structured verdict returned by a remote
// classifier for one extracted item.
type ClassifierResult struct {
	Category   Category `json:"category"`
	Confidence float64  `json:"confidence"`
	Subject    string   `json:"subject"`
}

// Signal is a roster event that passed the relevance gate, carrying the
// confidence assigned locally or by the classifier and later adjusted by
// cross-source validation.
type Signal struct {
	Subject      string            `json:"subject"`
	Category     Category          `json:"category"`
	Confidence   float64           `json:"confidence"`
	SourceID     string            `json:"source_id"`
	OriginURL    string            `json:"origin_url"`
	Snippet      string            `json:"snippet,omitempty"`
	DiscoveredAt time.Time         `json:"discovered_at"`
	Classified   *ClassifierResult `json:"classified,omitempty"`
}

// QueueItem wraps a signal held in the discovery queue.
type QueueItem struct {
	ID       string    `json:"id"`
	Signal   Signal    `json:"signal"`
	GroupKey string    `json:"group_key"`
	PushedAt time.Time `json:"pushed_at"`
}

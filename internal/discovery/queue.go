// Package discovery implements the thread-safe hand-off queue between the
// scan loops (producers) and the downstream decision process (consumer).
// Items are read by reference, never drained: the same discovery may match
// multiple concurrent lookups until its TTL expires.
package discovery

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/oddsflow/rosterwatch/internal/monitor"
	"github.com/oddsflow/rosterwatch/internal/telemetry"
)

// Config controls queue retention.
type Config struct {
	TTL        time.Duration
	MaxEntries int
	// HighPriorityThreshold gates the out-of-band callback.
	HighPriorityThreshold  float64
	HighPriorityCategories []monitor.Category
}

const (
	defaultTTL           = 24 * time.Hour
	defaultMaxEntries    = 2000
	defaultHighThreshold = 0.85
)

// Callback receives urgent items out of band, bypassing the consumer's poll
// cadence. It is invoked after all internal locks are released and must be
// non-blocking and re-entrant-safe: it may call back into the queue.
type Callback func(item monitor.QueueItem)

type registration struct {
	fn         Callback
	threshold  float64
	categories map[monitor.Category]struct{}
}

// Stats reports queue activity counters for monitoring.
type Stats struct {
	Pushed  int64 `json:"pushed"`
	Matched int64 `json:"matched"`
	Expired int64 `json:"expired"`
	Evicted int64 `json:"evicted"`
	Size    int   `json:"size"`
}

// Queue is a bounded TTL store indexed by group key.
type Queue struct {
	mu    sync.Mutex
	items map[string]monitor.QueueItem
	order []string // ids, oldest first
	byKey map[string][]string

	cbMu      sync.RWMutex
	callbacks []registration

	cfg    Config
	ids    monitor.IDGenerator
	clock  monitor.Clock
	logger *zap.Logger

	pushed  atomic.Int64
	matched atomic.Int64
	expired atomic.Int64
	evicted atomic.Int64
}

// New constructs a Queue.
func New(cfg Config, ids monitor.IDGenerator, clock monitor.Clock, logger *zap.Logger) *Queue {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = defaultMaxEntries
	}
	if cfg.HighPriorityThreshold <= 0 {
		cfg.HighPriorityThreshold = defaultHighThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		items:  make(map[string]monitor.QueueItem),
		byKey:  make(map[string][]string),
		cfg:    cfg,
		ids:    ids,
		clock:  clock,
		logger: logger,
	}
}

// RegisterCallback adds an out-of-band notification path for items whose
// confidence reaches threshold and whose category is in categories (empty
// means the queue-level default categories, which in turn default to all).
func (q *Queue) RegisterCallback(fn Callback, threshold float64, categories []monitor.Category) {
	if fn == nil {
		return
	}
	if threshold <= 0 {
		threshold = q.cfg.HighPriorityThreshold
	}
	if len(categories) == 0 {
		categories = q.cfg.HighPriorityCategories
	}
	var set map[monitor.Category]struct{}
	if len(categories) > 0 {
		set = make(map[monitor.Category]struct{}, len(categories))
		for _, c := range categories {
			set[c] = struct{}{}
		}
	}
	q.cbMu.Lock()
	q.callbacks = append(q.callbacks, registration{fn: fn, threshold: threshold, categories: set})
	q.cbMu.Unlock()
}

// Push stores a signal and returns its generated ID. Registered callbacks for
// qualifying items are invoked after the internal lock is released.
func (q *Queue) Push(signal monitor.Signal, groupKey string) (string, error) {
	id, err := q.ids.NewID()
	if err != nil {
		return "", err
	}
	item := monitor.QueueItem{
		ID:       id,
		Signal:   signal,
		GroupKey: groupKey,
		PushedAt: q.clock.Now(),
	}

	q.mu.Lock()
	if len(q.order) >= q.cfg.MaxEntries {
		q.removeLocked(q.order[0])
		q.evicted.Add(1)
		telemetry.IncQueueOp("evict")
	}
	q.items[id] = item
	q.order = append(q.order, id)
	q.byKey[groupKey] = append(q.byKey[groupKey], id)
	size := len(q.items)
	q.mu.Unlock()

	q.pushed.Add(1)
	telemetry.IncQueueOp("push")
	telemetry.SetQueueDepth(size)

	q.dispatch(item)
	return id, nil
}

// PopForSubject returns all non-expired items under groupKey whose subject
// fuzzily matches any candidate name. Matched items are not removed.
func (q *Queue) PopForSubject(subjectNames []string, groupKey string) []monitor.QueueItem {
	now := q.clock.Now()

	q.mu.Lock()
	ids := q.byKey[groupKey]
	candidates := make([]monitor.QueueItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := q.items[id]; ok {
			candidates = append(candidates, item)
		}
	}
	q.mu.Unlock()

	var out []monitor.QueueItem
	for _, item := range candidates {
		if now.Sub(item.PushedAt) >= q.cfg.TTL {
			continue
		}
		if subjectMatches(item.Signal.Subject, subjectNames) {
			out = append(out, item)
		}
	}
	if len(out) > 0 {
		q.matched.Add(int64(len(out)))
		telemetry.IncQueueOp("match")
	}
	return out
}

// CleanupExpired removes items older than the TTL and returns how many were
// removed. The scan is split into a read snapshot, a lock-free filter, and a
// re-checked write-back so a long sweep never starves concurrent pushes.
func (q *Queue) CleanupExpired() int {
	now := q.clock.Now()

	q.mu.Lock()
	snapshot := make([]monitor.QueueItem, 0, len(q.order))
	for _, id := range q.order {
		if item, ok := q.items[id]; ok {
			snapshot = append(snapshot, item)
		}
	}
	q.mu.Unlock()

	var stale []string
	for _, item := range snapshot {
		if now.Sub(item.PushedAt) >= q.cfg.TTL {
			stale = append(stale, item.ID)
		}
	}
	if len(stale) == 0 {
		return 0
	}

	q.mu.Lock()
	removed := 0
	for _, id := range stale {
		if _, ok := q.items[id]; ok {
			q.removeLocked(id)
			removed++
		}
	}
	size := len(q.items)
	q.mu.Unlock()

	q.expired.Add(int64(removed))
	telemetry.IncQueueOp("expire")
	telemetry.SetQueueDepth(size)
	if removed > 0 {
		q.logger.Debug("expired discoveries removed", zap.Int("count", removed))
	}
	return removed
}

// Size returns the number of stored items.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// StatsSnapshot returns activity counters.
func (q *Queue) StatsSnapshot() Stats {
	return Stats{
		Pushed:  q.pushed.Load(),
		Matched: q.matched.Load(),
		Expired: q.expired.Load(),
		Evicted: q.evicted.Load(),
		Size:    q.Size(),
	}
}

// removeLocked deletes an item from all indexes. Caller holds q.mu.
func (q *Queue) removeLocked(id string) {
	item, ok := q.items[id]
	if !ok {
		return
	}
	delete(q.items, id)
	q.order = removeID(q.order, id)
	q.byKey[item.GroupKey] = removeID(q.byKey[item.GroupKey], id)
	if len(q.byKey[item.GroupKey]) == 0 {
		delete(q.byKey, item.GroupKey)
	}
}

// dispatch invokes matching callbacks. Never called with q.mu held: a
// callback that touches the queue again must not deadlock.
func (q *Queue) dispatch(item monitor.QueueItem) {
	q.cbMu.RLock()
	regs := q.callbacks
	q.cbMu.RUnlock()

	for _, reg := range regs {
		if item.Signal.Confidence < reg.threshold {
			continue
		}
		if reg.categories != nil {
			if _, ok := reg.categories[item.Signal.Category]; !ok {
				continue
			}
		}
		reg.fn(item)
	}
}

func subjectMatches(stored string, candidates []string) bool {
	s := strings.ToLower(strings.TrimSpace(stored))
	if s == "" {
		return false
	}
	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			continue
		}
		if strings.Contains(s, c) || strings.Contains(c, s) {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

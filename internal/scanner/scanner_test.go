package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oddsflow/rosterwatch/internal/breaker"
	"github.com/oddsflow/rosterwatch/internal/discovery"
	"github.com/oddsflow/rosterwatch/internal/fingerprint"
	"github.com/oddsflow/rosterwatch/internal/gate"
	"github.com/oddsflow/rosterwatch/internal/hash/sha256"
	"github.com/oddsflow/rosterwatch/internal/id/uuid"
	"github.com/oddsflow/rosterwatch/internal/monitor"
	"github.com/oddsflow/rosterwatch/internal/validator"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeFetcher struct {
	mu    sync.Mutex
	items map[string][]monitor.Extracted
	errs  map[string]error
	calls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		items: make(map[string][]monitor.Extracted),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, source monitor.SourceConfig) ([]monitor.Extracted, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[source.ID]++
	if err := f.errs[source.ID]; err != nil {
		return nil, err
	}
	return f.items[source.ID], nil
}

func (f *fakeFetcher) callCount(sourceID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[sourceID]
}

type fakeClassifier struct {
	mu     sync.Mutex
	result monitor.ClassifierResult
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(context.Context, string) (monitor.ClassifierResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

func (f *fakeClassifier) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu      sync.Mutex
	signals []monitor.Signal
}

func (f *fakeNotifier) Notify(_ context.Context, s monitor.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, s)
	return nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.signals)
}

type harness struct {
	loop     *Loop
	fetcher  *fakeFetcher
	clock    *fakeClock
	queue    *discovery.Queue
	notifier *fakeNotifier
}

func newHarness(t *testing.T, sources []monitor.SourceConfig, classifier monitor.Classifier) *harness {
	t.Helper()

	clock := &fakeClock{now: time.Unix(50000, 0)}
	logger := zap.NewNop()
	fetcher := newFakeFetcher()
	queue := discovery.New(discovery.Config{TTL: 24 * time.Hour}, uuid.NewGenerator(), clock, logger)
	notifier := &fakeNotifier{}

	pipe := Pipeline{
		Breaker:      breaker.New(breaker.Config{}, clock, logger),
		Fingerprints: fingerprint.NewCache(fingerprint.Config{}, clock),
		Gate: gate.New(gate.Config{
			KnownSubjects: []string{"Team X"},
		}, logger),
		Validator:  validator.New(validator.Config{}, clock, logger),
		Queue:      queue,
		Classifier: classifier,
		Notifier:   notifier,
		Hasher:     sha256.New(),
		Clock:      clock,
		Logger:     logger,
	}
	fetchers := map[monitor.NavigationMode]monitor.Fetcher{
		monitor.ModePage: fetcher,
	}
	loop := NewLoop(Config{Group: "league-one", ScanInterval: time.Minute}, sources, fetchers, pipe)
	return &harness{loop: loop, fetcher: fetcher, clock: clock, queue: queue, notifier: notifier}
}

func pageSource(id string) monitor.SourceConfig {
	return monitor.SourceConfig{ID: id, URL: "https://" + id + ".example.com", Mode: monitor.ModePage}
}

// Escalation-band text: two medium-weight absence terms keep the local score
// inside [0.5, 0.7).
func escalationText(variant string) string {
	return "Team X sources say the striker is doubtful for Sunday and was unavailable " +
		"in training on Friday, according to a report from " + variant + " published this morning."
}

func TestLoop_EndToEndTwoSourceCorroboration(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{
		result: monitor.ClassifierResult{
			Category:   monitor.CategoryAbsence,
			Confidence: 0.8,
			Subject:    "Team X",
		},
	}
	h := newHarness(t, []monitor.SourceConfig{pageSource("src-a"), pageSource("src-b")}, classifier)

	h.fetcher.items["src-a"] = []monitor.Extracted{{
		URL: "https://src-a.example.com/1", Text: escalationText("the beat writer"),
	}}
	h.fetcher.items["src-b"] = []monitor.Extracted{{
		URL: "https://src-b.example.com/2", Text: escalationText("the club insider"),
	}}

	h.loop.ScanOnce(context.Background())

	require.Equal(t, 2, classifier.callCount())

	items := h.queue.PopForSubject([]string{"Team X"}, "league-one")
	require.Len(t, items, 2)

	confidences := map[float64]bool{}
	for _, item := range items {
		require.Equal(t, monitor.CategoryAbsence, item.Signal.Category)
		confidences[item.Signal.Confidence] = true
	}
	// First registration keeps the classifier confidence; the second is
	// boosted by corroboration and capped.
	require.True(t, confidences[0.8], "expected an un-boosted signal")
	require.True(t, confidences[0.95], "expected a boosted signal")
	require.Equal(t, 2, h.notifier.count())
}

func TestLoop_DedupSuppressesRepeatContent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []monitor.SourceConfig{pageSource("src-a")}, nil)

	h.fetcher.items["src-a"] = []monitor.Extracted{{
		URL: "https://src-a.example.com/1",
		Text: "Team X confirmed their captain was ruled out and will miss the derby " +
			"through injury after being sidelined in training on Thursday afternoon.",
	}}

	h.loop.ScanOnce(context.Background())
	require.Equal(t, 1, h.queue.Size())

	// The unchanged page is re-fetched next cycle; the fingerprint cache
	// stops it before the gate.
	h.clock.advance(2 * time.Minute)
	h.loop.ScanOnce(context.Background())
	require.Equal(t, 2, h.fetcher.callCount("src-a"))
	require.Equal(t, 1, h.queue.Size())
}

func TestLoop_ClassifierFailureDropsItem(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{err: errors.New("remote unavailable")}
	h := newHarness(t, []monitor.SourceConfig{pageSource("src-a")}, classifier)

	h.fetcher.items["src-a"] = []monitor.Extracted{{
		URL: "https://src-a.example.com/1", Text: escalationText("the beat writer"),
	}}

	h.loop.ScanOnce(context.Background())

	require.Equal(t, 1, classifier.callCount())
	require.Equal(t, 0, h.queue.Size())
	require.Equal(t, 0, h.notifier.count())
}

func TestLoop_TransportFailuresTripBreaker(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []monitor.SourceConfig{pageSource("src-a")}, nil)
	h.fetcher.errs["src-a"] = monitor.NewFetchError(monitor.ErrClassTransport, errors.New("connection refused"))

	for i := 0; i < 3; i++ {
		h.loop.ScanOnce(context.Background())
		h.clock.advance(2 * time.Minute)
	}
	require.Equal(t, 3, h.fetcher.callCount("src-a"))

	// Circuit is open: the next cycle skips the source entirely.
	h.loop.ScanOnce(context.Background())
	require.Equal(t, 3, h.fetcher.callCount("src-a"))
}

func TestLoop_EmptyResultsDoNotTripBreaker(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []monitor.SourceConfig{pageSource("src-a")}, nil)
	h.fetcher.errs["src-a"] = monitor.NewFetchError(monitor.ErrClassEmpty, errors.New("nothing extracted"))

	for i := 0; i < 5; i++ {
		h.loop.ScanOnce(context.Background())
		h.clock.advance(2 * time.Minute)
	}
	require.Equal(t, 5, h.fetcher.callCount("src-a"))
}

func TestLoop_PerSourceIntervalOverride(t *testing.T) {
	t.Parallel()

	slow := pageSource("slow")
	slow.ScanInterval = 10 * time.Minute
	h := newHarness(t, []monitor.SourceConfig{pageSource("fast"), slow}, nil)

	h.loop.ScanOnce(context.Background())
	h.clock.advance(2 * time.Minute)
	h.loop.ScanOnce(context.Background())

	require.Equal(t, 2, h.fetcher.callCount("fast"))
	require.Equal(t, 1, h.fetcher.callCount("slow"))

	h.clock.advance(9 * time.Minute)
	h.loop.ScanOnce(context.Background())
	require.Equal(t, 2, h.fetcher.callCount("slow"))
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	h := newHarness(t, []monitor.SourceConfig{pageSource("src-a")}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.loop.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return h.fetcher.callCount("src-a") >= 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop after cancellation")
	}
}

func TestJanitor_Sweeps(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(50000, 0)}
	logger := zap.NewNop()
	cache := fingerprint.NewCache(fingerprint.Config{TTL: time.Hour}, clock)
	v := validator.New(validator.Config{}, clock, logger)
	q := discovery.New(discovery.Config{TTL: time.Hour}, uuid.NewGenerator(), clock, logger)

	cache.Record(context.Background(), "h1")
	v.Register("Team X", monitor.CategoryAbsence, "src-a", 0.6)
	_, err := q.Push(monitor.Signal{Subject: "Team X", Category: monitor.CategoryAbsence, Confidence: 0.6}, "g")
	require.NoError(t, err)

	clock.advance(2 * time.Hour)

	j := NewJanitor(time.Millisecond, cache, v, q, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go j.Run(ctx)

	require.Eventually(t, func() bool {
		return cache.Size() == 0 && v.Size() == 0 && q.Size() == 0
	}, time.Second, 5*time.Millisecond)
}

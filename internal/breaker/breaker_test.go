package breaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
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

func newTestBreaker(clock *fakeClock) *Breaker {
	return New(Config{FailureThreshold: 3, RecoveryTimeout: 5 * time.Minute}, clock, zap.NewNop())
}

func TestBreaker_OpensAfterConsecutiveTransportFailures(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := newTestBreaker(clock)

	require.True(t, b.Allow("espn"))
	b.RecordFailure("espn", true)
	require.True(t, b.Allow("espn"))
	b.RecordFailure("espn", true)
	require.True(t, b.Allow("espn"))
	b.RecordFailure("espn", true)

	require.False(t, b.Allow("espn"))
}

func TestBreaker_NonNetworkFailuresNeverOpen(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := newTestBreaker(clock)

	for i := 0; i < 10; i++ {
		require.True(t, b.Allow("quiet-blog"))
		b.RecordFailure("quiet-blog", false)
	}
	require.True(t, b.Allow("quiet-blog"))
}

func TestBreaker_HalfOpenProbeRecovers(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := newTestBreaker(clock)

	for i := 0; i < 3; i++ {
		b.RecordFailure("espn", true)
	}
	require.False(t, b.Allow("espn"))

	clock.advance(5 * time.Minute)

	// Exactly one probe is granted.
	require.True(t, b.Allow("espn"))
	require.False(t, b.Allow("espn"))

	b.RecordSuccess("espn")
	require.True(t, b.Allow("espn"))

	// The probe success fully reset the failure counter.
	b.RecordFailure("espn", true)
	b.RecordFailure("espn", true)
	require.True(t, b.Allow("espn"))
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := newTestBreaker(clock)

	for i := 0; i < 3; i++ {
		b.RecordFailure("espn", true)
	}
	clock.advance(5 * time.Minute)
	require.True(t, b.Allow("espn"))

	b.RecordFailure("espn", true)
	require.False(t, b.Allow("espn"))

	// The last-failure timestamp was refreshed, so a partial wait is not
	// enough.
	clock.advance(4 * time.Minute)
	require.False(t, b.Allow("espn"))
	clock.advance(time.Minute)
	require.True(t, b.Allow("espn"))
}

func TestBreaker_LateSuccessIsIdempotent(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := newTestBreaker(clock)

	for i := 0; i < 3; i++ {
		b.RecordFailure("espn", true)
	}
	require.False(t, b.Allow("espn"))

	// A success from an attempt that started before the circuit opened still
	// closes it.
	b.RecordSuccess("espn")
	require.True(t, b.Allow("espn"))
	b.RecordSuccess("espn")
	require.True(t, b.Allow("espn"))
}

func TestBreaker_Snapshot(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	b := newTestBreaker(clock)

	b.Allow("a")
	b.RecordFailure("b", true)

	snap := b.Snapshot()
	require.Len(t, snap, 2)
	states := map[string]SourceState{}
	for _, s := range snap {
		states[s.SourceID] = s
	}
	require.Equal(t, StateClosed, states["a"].State)
	require.Equal(t, 1, states["b"].Failures)
}

// Package classify wraps the remote classification collaborator with the
// shared rate limiter and bounded retry policy the pipeline requires.
package classify

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/oddsflow/rosterwatch/internal/monitor"
	"github.com/oddsflow/rosterwatch/internal/telemetry"
)

// Config controls the limiter and retry behavior.
type Config struct {
	// MinInterval is the minimum spacing between remote calls, enforced
	// across all callers through one shared limiter.
	MinInterval time.Duration
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

const (
	defaultMinInterval = 2 * time.Second
	defaultMaxAttempts = 2
	defaultBaseDelay   = 2 * time.Second
	defaultMaxDelay    = 8 * time.Second
)

// Limited decorates a Classifier with rate limiting and jittered exponential
// backoff. Exhausting the retries is non-fatal; the caller drops the item.
type Limited struct {
	inner   monitor.Classifier
	limiter *rate.Limiter
	cfg     Config
	logger  *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewLimited wraps inner. All pipeline call sites must share one instance so
// the minimum inter-call interval holds globally.
func NewLimited(inner monitor.Classifier, cfg Config, logger *zap.Logger) *Limited {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = defaultMinInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = defaultMaxDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		cfg:     cfg,
		logger:  logger,
		sleep:   sleepCtx,
	}
}

// Classify waits for the shared limiter, then calls the remote classifier
// with bounded retries.
func (l *Limited) Classify(ctx context.Context, text string) (monitor.ClassifierResult, error) {
	var lastErr error
	for attempt := 0; attempt < l.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			telemetry.IncClassifierRetry()
			if err := l.sleep(ctx, l.backoff(attempt)); err != nil {
				return monitor.ClassifierResult{}, err
			}
		}

		start := time.Now()
		if err := l.limiter.Wait(ctx); err != nil {
			return monitor.ClassifierResult{}, fmt.Errorf("classifier rate limit wait: %w", err)
		}
		telemetry.ObserveClassifierWait(time.Since(start))

		result, err := l.inner.Classify(ctx, text)
		if err == nil {
			telemetry.IncClassifierCall("ok")
			return result, nil
		}
		telemetry.IncClassifierCall("error")
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			break
		}
		l.logger.Warn("classifier call failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return monitor.ClassifierResult{}, fmt.Errorf("classify after %d attempts: %w", l.cfg.MaxAttempts, lastErr)
}

// backoff returns the jittered wait before the given retry attempt.
func (l *Limited) backoff(attempt int) time.Duration {
	delay := float64(l.cfg.BaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(l.cfg.MaxDelay) {
		delay = float64(l.cfg.MaxDelay)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

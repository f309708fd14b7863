package scanner

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/oddsflow/rosterwatch/internal/discovery"
	"github.com/oddsflow/rosterwatch/internal/monitor"
	"github.com/oddsflow/rosterwatch/internal/validator"
)

// Janitor periodically sweeps the bounded in-memory windows: expired
// fingerprints, stale aggregates, and expired discoveries.
type Janitor struct {
	interval     time.Duration
	fingerprints monitor.FingerprintStore
	validator    *validator.Validator
	queue        *discovery.Queue
	logger       *zap.Logger
}

const defaultJanitorInterval = 5 * time.Minute

// NewJanitor constructs a Janitor.
func NewJanitor(interval time.Duration, fingerprints monitor.FingerprintStore, v *validator.Validator, q *discovery.Queue, logger *zap.Logger) *Janitor {
	if interval <= 0 {
		interval = defaultJanitorInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Janitor{
		interval:     interval,
		fingerprints: fingerprints,
		validator:    v,
		queue:        q,
		logger:       logger,
	}
}

// Run blocks, sweeping until the context finishes.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	fingerprints := j.fingerprints.Sweep(ctx)
	aggregates := j.validator.Sweep()
	discoveries := j.queue.CleanupExpired()
	if fingerprints+aggregates+discoveries > 0 {
		j.logger.Debug("sweep completed",
			zap.Int("fingerprints", fingerprints),
			zap.Int("aggregates", aggregates),
			zap.Int("discoveries", discoveries),
		)
	}
}

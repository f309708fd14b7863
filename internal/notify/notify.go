// Package notify delivers discovered signals to outbound channels. The log
// notifier is the default sink; downstream consumers normally read the
// discovery queue instead.
package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/oddsflow/rosterwatch/internal/monitor"
)

// Log writes each signal as a structured log entry. High-confidence signals
// log at warn level so they stand out in aggregated output.
type Log struct {
	logger        *zap.Logger
	warnThreshold float64
}

// NewLog constructs a log notifier. warnThreshold <= 0 disables the level
// bump.
func NewLog(logger *zap.Logger, warnThreshold float64) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger, warnThreshold: warnThreshold}
}

// Notify implements monitor.Notifier.
func (l *Log) Notify(_ context.Context, signal monitor.Signal) error {
	fields := []zap.Field{
		zap.String("subject", signal.Subject),
		zap.String("category", string(signal.Category)),
		zap.Float64("confidence", signal.Confidence),
		zap.String("source_id", signal.SourceID),
		zap.String("origin_url", signal.OriginURL),
	}
	if l.warnThreshold > 0 && signal.Confidence >= l.warnThreshold {
		l.logger.Warn("high-confidence roster signal", fields...)
		return nil
	}
	l.logger.Info("roster signal", fields...)
	return nil
}

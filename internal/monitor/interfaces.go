package monitor

import (
	"context"
	"time"
)

// Fetcher retrieves readable content for a source. Implementations classify
// their failures with FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, source SourceConfig) ([]Extracted, error)
}

// Classifier assigns a category, confidence, and subject to extracted text.
type Classifier interface {
	Classify(ctx context.Context, text string) (ClassifierResult, error)
}

// Notifier delivers a signal to an outbound channel.
type Notifier interface {
	Notify(ctx context.Context, signal Signal) error
}

// FingerprintStore remembers content hashes so unchanged pages are
// processed once. Sweep removes expired entries and reports how many.
type FingerprintStore interface {
	Seen(ctx context.Context, hash string) bool
	Record(ctx context.Context, hash string)
	Sweep(ctx context.Context) int
}

// Hasher computes digests for content deduplication.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces queue item IDs.
type IDGenerator interface {
	NewID() (string, error)
}

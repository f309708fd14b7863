// Package monitor defines the core types shared across the roster-signal
// pipeline: source configuration, extracted content, signals, and the
// contracts between fetchers, the relevance gate, the classifier, the
// validator, and the discovery queue.
package monitor

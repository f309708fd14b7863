// Package feed implements the fetch/extract collaborator for RSS/Atom
// sources.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/oddsflow/rosterwatch/internal/monitor"
)

// Config controls feed fetching.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxItems bounds how many entries of one feed are considered per scan.
	MaxItems int
}

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxItems = 20
)

// Fetcher implements monitor.Fetcher for ModeFeed sources. The HTTP round
// trip is done separately from parsing so transport and parse failures are
// classified apart.
type Fetcher struct {
	cfg    Config
	client *http.Client
	parser *gofeed.Parser
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = defaultMaxItems
	}
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		parser: gofeed.NewParser(),
	}
}

// Fetch retrieves and parses the feed, returning one Extracted per entry.
func (f *Fetcher) Fetch(ctx context.Context, source monitor.SourceConfig) ([]monitor.Extracted, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, monitor.NewFetchError(monitor.ErrClassTransport, fmt.Errorf("build request: %w", err))
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, monitor.NewFetchError(monitor.ErrClassTransport, fmt.Errorf("fetch feed: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, monitor.NewFetchError(monitor.ErrClassTransport,
			fmt.Errorf("fetch feed: unexpected status %d", resp.StatusCode))
	}

	parsed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, monitor.NewFetchError(monitor.ErrClassParse, fmt.Errorf("parse feed: %w", err))
	}
	if len(parsed.Items) == 0 {
		return nil, monitor.NewFetchError(monitor.ErrClassEmpty, errors.New("feed has no entries"))
	}

	count := len(parsed.Items)
	if count > f.cfg.MaxItems {
		count = f.cfg.MaxItems
	}
	out := make([]monitor.Extracted, 0, count)
	for _, item := range parsed.Items[:count] {
		body := item.Description
		if body == "" {
			body = item.Content
		}
		text := strings.TrimSpace(stripTags(body))
		title := strings.TrimSpace(item.Title)
		if text == "" && title == "" {
			continue
		}
		link := item.Link
		if link == "" {
			link = source.URL
		}
		out = append(out, monitor.Extracted{
			URL:   link,
			Title: title,
			Text:  text,
		})
	}
	if len(out) == 0 {
		return nil, monitor.NewFetchError(monitor.ErrClassEmpty, errors.New("feed entries had no text"))
	}
	return out, nil
}

// stripTags removes HTML markup that feeds commonly embed in descriptions.
func stripTags(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteByte(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

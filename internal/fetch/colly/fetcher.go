// Package collyfetch implements the fetch/extract collaborator for static
// HTML sources using the Colly collector, with readability-based text
// extraction.
package collyfetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/oddsflow/rosterwatch/internal/monitor"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxPages bounds link-following for paginated sources when the source
	// itself does not override it.
	MaxPages int
}

const (
	defaultTimeout  = 15 * time.Second
	defaultMaxPages = 5
)

type page struct {
	url  string
	body []byte
}

// Fetcher implements monitor.Fetcher for ModePage and ModePaginated sources.
type Fetcher struct {
	cfg    Config
	logger *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = defaultMaxPages
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{cfg: cfg, logger: logger}
}

// Fetch retrieves the source page (and, for paginated sources, linked pages)
// and returns normalized article text per page.
func (f *Fetcher) Fetch(ctx context.Context, source monitor.SourceConfig) ([]monitor.Extracted, error) {
	pages, err := f.collect(ctx, source)
	if err != nil {
		return nil, err
	}
	return f.extract(source, pages)
}

func (f *Fetcher) collect(ctx context.Context, source monitor.SourceConfig) ([]page, error) {
	c := colly.NewCollector(colly.Async(false))
	c.SetRequestTimeout(f.cfg.Timeout)
	if f.cfg.UserAgent != "" {
		c.UserAgent = f.cfg.UserAgent
	}

	var (
		pages    []page
		links    []string
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		pages = append(pages, page{
			url:  r.Request.URL.String(),
			body: append([]byte(nil), r.Body...),
		})
	})
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})
	if source.Mode == monitor.ModePaginated {
		selector := source.LinkSelector
		if selector == "" {
			selector = "a[href]"
		}
		c.OnHTML(selector, func(e *colly.HTMLElement) {
			// Only follow links discovered on the index page itself.
			if e.Request.URL.String() != source.URL {
				return
			}
			if link := e.Request.AbsoluteURL(e.Attr("href")); link != "" {
				links = append(links, link)
			}
		})
	}

	if err := c.Visit(source.URL); err != nil {
		return nil, monitor.NewFetchError(monitor.ErrClassTransport, fmt.Errorf("visit %s: %w", source.URL, err))
	}
	if fetchErr != nil {
		return nil, monitor.NewFetchError(monitor.ErrClassTransport, fmt.Errorf("fetch %s: %w", source.URL, fetchErr))
	}

	maxPages := source.MaxPages
	if maxPages <= 0 {
		maxPages = f.cfg.MaxPages
	}
	for _, link := range dedupe(links) {
		if ctx.Err() != nil {
			return nil, monitor.NewFetchError(monitor.ErrClassTransport, ctx.Err())
		}
		if len(pages) >= maxPages {
			break
		}
		// Individual article failures are tolerable as long as the index
		// page itself was reachable.
		if err := c.Visit(link); err != nil {
			f.logger.Debug("linked page fetch failed",
				zap.String("source_id", source.ID),
				zap.String("url", link),
				zap.Error(err),
			)
		}
	}
	return pages, nil
}

func (f *Fetcher) extract(source monitor.SourceConfig, pages []page) ([]monitor.Extracted, error) {
	if len(pages) == 0 {
		return nil, monitor.NewFetchError(monitor.ErrClassEmpty, errors.New("no pages fetched"))
	}

	var (
		out       []monitor.Extracted
		parseErrs int
	)
	for _, p := range pages {
		pageURL, err := url.Parse(p.url)
		if err != nil {
			parseErrs++
			continue
		}
		article, err := readability.FromReader(bytes.NewReader(p.body), pageURL)
		if err != nil {
			parseErrs++
			f.logger.Debug("readability extraction failed",
				zap.String("source_id", source.ID),
				zap.String("url", p.url),
				zap.Error(err),
			)
			continue
		}
		text := strings.TrimSpace(article.TextContent)
		if text == "" {
			continue
		}
		out = append(out, monitor.Extracted{
			URL:   p.url,
			Title: strings.TrimSpace(article.Title),
			Text:  text,
		})
	}

	if len(out) == 0 {
		if parseErrs > 0 {
			return nil, monitor.NewFetchError(monitor.ErrClassParse,
				fmt.Errorf("all %d fetched pages failed extraction", parseErrs))
		}
		return nil, monitor.NewFetchError(monitor.ErrClassEmpty, errors.New("nothing extracted"))
	}
	return out, nil
}

func dedupe(links []string) []string {
	seen := make(map[string]struct{}, len(links))
	out := links[:0]
	for _, l := range links {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

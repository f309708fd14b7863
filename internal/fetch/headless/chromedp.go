// Package headless implements the fetch/extract collaborator for JS-heavy
// sources using a headless browser.
package headless

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"

	"github.com/oddsflow/rosterwatch/internal/monitor"
)

// Config controls the behavior of the headless fetcher.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
}

const defaultNavigationTimeout = 45 * time.Second

// Fetcher implements monitor.Fetcher using chromedp for ModeRendered sources.
type Fetcher struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates a headless fetcher backed by chromedp. Call Close when done.
func New(cfg Config) (*Fetcher, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = defaultNavigationTimeout
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Fetcher{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context.
func (f *Fetcher) Close() {
	f.allocCancel()
}

// Fetch renders the page and extracts the article text from the final DOM.
func (f *Fetcher) Fetch(ctx context.Context, source monitor.SourceConfig) ([]monitor.Extracted, error) {
	if err := f.acquire(ctx); err != nil {
		return nil, monitor.NewFetchError(monitor.ErrClassTransport, err)
	}
	defer f.release()

	taskCtx, taskCancel := chromedp.NewContext(f.allocator)
	defer taskCancel()
	taskCtx, cancel := context.WithTimeout(taskCtx, f.cfg.NavigationTimeout)
	defer cancel()

	// Abandon the render when the caller shuts down.
	go func() {
		select {
		case <-ctx.Done():
			taskCancel()
		case <-taskCtx.Done():
		}
	}()

	var html string
	actions := []chromedp.Action{
		chromedp.Navigate(source.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, monitor.NewFetchError(monitor.ErrClassTransport, fmt.Errorf("render %s: %w", source.URL, err))
	}

	pageURL, err := url.Parse(source.URL)
	if err != nil {
		return nil, monitor.NewFetchError(monitor.ErrClassParse, fmt.Errorf("parse url: %w", err))
	}
	article, err := readability.FromReader(bytes.NewReader([]byte(html)), pageURL)
	if err != nil {
		return nil, monitor.NewFetchError(monitor.ErrClassParse, fmt.Errorf("extract rendered page: %w", err))
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return nil, monitor.NewFetchError(monitor.ErrClassEmpty, errors.New("rendered page had no text"))
	}
	return []monitor.Extracted{{
		URL:   source.URL,
		Title: strings.TrimSpace(article.Title),
		Text:  text,
	}}, nil
}

func (f *Fetcher) acquire(ctx context.Context) error {
	if f.limiter == nil {
		return nil
	}
	select {
	case f.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("headless slot wait: %w", ctx.Err())
	}
}

func (f *Fetcher) release() {
	if f.limiter != nil {
		<-f.limiter
	}
}

package collyfetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oddsflow/rosterwatch/internal/monitor"
)

func articleHTML(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>%s</title></head>
<body><article><h1>%s</h1><p>%s</p><p>%s</p></article></body></html>`,
		title, title, body, body)
}

func TestFetcher_SinglePage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(articleHTML(
			"Captain ruled out",
			"The captain will miss Saturday's derby through injury, the club confirmed on Friday morning.",
		)))
	}))
	defer srv.Close()

	f := New(Config{}, zap.NewNop())
	items, err := f.Fetch(context.Background(), monitor.SourceConfig{
		ID:   "club-site",
		URL:  srv.URL,
		Mode: monitor.ModePage,
	})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Contains(t, items[0].Text, "miss Saturday")
}

func TestFetcher_PaginatedFollowsLinks(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>
<a href="/news/1">one</a>
<a href="/news/2">two</a>
</body></html>`))
	})
	for i := 1; i <= 2; i++ {
		i := i
		mux.HandleFunc(fmt.Sprintf("/news/%d", i), func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(articleHTML(
				fmt.Sprintf("Story %d", i),
				"A long enough paragraph describing the roster move and its consequences for the weekend fixture in detail.",
			)))
		})
	}

	f := New(Config{}, zap.NewNop())
	items, err := f.Fetch(context.Background(), monitor.SourceConfig{
		ID:       "club-news",
		URL:      srv.URL + "/",
		Mode:     monitor.ModePaginated,
		MaxPages: 3,
	})
	require.NoError(t, err)
	// The index page has no article text, the two linked stories do.
	require.Len(t, items, 2)
}

func TestFetcher_TransportError(t *testing.T) {
	t.Parallel()

	f := New(Config{}, zap.NewNop())
	_, err := f.Fetch(context.Background(), monitor.SourceConfig{
		ID:   "down",
		URL:  "http://127.0.0.1:1/",
		Mode: monitor.ModePage,
	})
	require.Error(t, err)
	require.Equal(t, monitor.ErrClassTransport, monitor.ClassOf(err))
}

func TestFetcher_EmptyPage(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	}))
	defer srv.Close()

	f := New(Config{}, zap.NewNop())
	_, err := f.Fetch(context.Background(), monitor.SourceConfig{
		ID:   "blank",
		URL:  srv.URL,
		Mode: monitor.ModePage,
	})
	require.Error(t, err)
	require.Equal(t, monitor.ErrClassEmpty, monitor.ClassOf(err))
}

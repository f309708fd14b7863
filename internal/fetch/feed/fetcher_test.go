package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oddsflow/rosterwatch/internal/monitor"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Club News</title>
    <item>
      <title>Captain ruled out for derby</title>
      <link>https://example.com/news/1</link>
      <description><![CDATA[<p>The captain will miss Saturday through injury.</p>]]></description>
    </item>
    <item>
      <title>Training report</title>
      <link>https://example.com/news/2</link>
      <description>Light session ahead of the weekend.</description>
    </item>
  </channel>
</rss>`

func sourceFor(url string) monitor.SourceConfig {
	return monitor.SourceConfig{ID: "club-feed", URL: url, Mode: monitor.ModeFeed}
}

func TestFetcher_ParsesEntries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := New(Config{})
	items, err := f.Fetch(context.Background(), sourceFor(srv.URL))
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Captain ruled out for derby", items[0].Title)
	require.Equal(t, "https://example.com/news/1", items[0].URL)
	require.Contains(t, items[0].Text, "miss Saturday through injury")
	require.NotContains(t, items[0].Text, "<p>")
}

func TestFetcher_MaxItemsBound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	f := New(Config{MaxItems: 1})
	items, err := f.Fetch(context.Background(), sourceFor(srv.URL))
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestFetcher_TransportErrorClass(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := New(Config{})
	_, err := f.Fetch(context.Background(), sourceFor(srv.URL))
	require.Error(t, err)
	require.Equal(t, monitor.ErrClassTransport, monitor.ClassOf(err))
}

func TestFetcher_ParseErrorClass(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("this is not xml"))
	}))
	defer srv.Close()

	f := New(Config{})
	_, err := f.Fetch(context.Background(), sourceFor(srv.URL))
	require.Error(t, err)
	require.Equal(t, monitor.ErrClassParse, monitor.ClassOf(err))
}

func TestFetcher_EmptyFeedClass(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>empty</title></channel></rss>`))
	}))
	defer srv.Close()

	f := New(Config{})
	_, err := f.Fetch(context.Background(), sourceFor(srv.URL))
	require.Error(t, err)
	require.Equal(t, monitor.ErrClassEmpty, monitor.ClassOf(err))
}

func TestFetcher_UnreachableHost(t *testing.T) {
	t.Parallel()

	f := New(Config{})
	_, err := f.Fetch(context.Background(), sourceFor("http://127.0.0.1:1/feed.xml"))
	require.Error(t, err)
	require.Equal(t, monitor.ErrClassTransport, monitor.ClassOf(err))
}

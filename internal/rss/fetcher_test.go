package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example Security</title>
  <link>https://security.example.com/</link>
  <item>
    <title>Critical RCE in popular router firmware</title>
    <link>https://security.example.com/posts/rce-router</link>
    <description>&lt;p&gt;A &lt;b&gt;critical&lt;/b&gt; bug.&lt;/p&gt;</description>
    <pubDate>Mon, 03 Jun 2024 09:30:00 GMT</pubDate>
  </item>
  <item>
    <title>Weekly roundup</title>
    <link>https://security.example.com/posts/roundup</link>
    <description>Everything else.</description>
  </item>
</channel>
</rss>`

func testFetcher(retries int) *Fetcher {
	return NewFetcher(Options{
		UserAgent: "test-agent/1.0",
		Timeout:   2 * time.Second,
		Retries:   retries,
		Backoff:   time.Millisecond,
	})
}

func serveFeed(body, contentType string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Write([]byte(body))
	}))
}

func TestFetch_OK(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	src := Source{Name: "Example", URL: srv.URL, Category: "Security", Kind: KindRSS}
	res := testFetcher(3).Fetch(context.Background(), src)

	require.Equal(t, StatusOK, res.Status, "err: %v", res.Err)
	assert.Equal(t, "test-agent/1.0", gotUA)
	assert.Equal(t, 1, res.Attempts)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Entries, 2)

	first := res.Entries[0]
	assert.Equal(t, "Critical RCE in popular router firmware", first.Title)
	assert.Equal(t, "https://security.example.com/posts/rce-router", first.Link)
	assert.Equal(t, "Security", first.Category)
	assert.Equal(t, "Example", first.Source)
	assert.Equal(t, srv.URL, first.SourceURL)
	assert.True(t, time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC).Equal(first.Published))
	assert.Equal(t, "A critical bug.", first.Text())

	assert.False(t, res.Entries[1].HasPublished())

	_, failed := res.ErrorRecord()
	assert.False(t, failed)
}

func TestFetch_RetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	res := testFetcher(3).Fetch(context.Background(), Source{URL: srv.URL, Kind: KindRSS})

	require.Equal(t, StatusOK, res.Status, "err: %v", res.Err)
	assert.Equal(t, 4, res.Attempts)
	assert.EqualValues(t, 4, atomic.LoadInt32(&calls))
	assert.Len(t, res.Entries, 2)
}

func TestFetch_RetriesExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	res := testFetcher(3).Fetch(context.Background(), Source{URL: srv.URL, Kind: KindRSS})

	assert.Equal(t, StatusHTTPError, res.Status)
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Equal(t, 4, res.Attempts)
	assert.EqualValues(t, 4, atomic.LoadInt32(&calls))

	rec, failed := res.ErrorRecord()
	require.True(t, failed)
	assert.Equal(t, srv.URL, rec.SourceURL)
	assert.Contains(t, rec.Reason, "503")
}

func TestFetch_NonRetryableStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	res := testFetcher(3).Fetch(context.Background(), Source{URL: srv.URL, Kind: KindRSS})

	assert.Equal(t, StatusHTTPError, res.Status)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, 1, res.Attempts)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestFetch_InvalidURL(t *testing.T) {
	for _, raw := range []string{"not a url", "ftp://example.com/feed", "http://"} {
		res := testFetcher(3).Fetch(context.Background(), Source{URL: raw, Kind: KindRSS})
		assert.Equal(t, StatusNetworkError, res.Status, raw)
		assert.ErrorIs(t, res.Err, ErrInvalidURL, raw)
		assert.Zero(t, res.Attempts, raw)
	}
}

func TestFetch_NetworkError(t *testing.T) {
	srv := serveFeed(sampleRSS, "application/rss+xml")
	url := srv.URL
	srv.Close()

	res := testFetcher(2).Fetch(context.Background(), Source{URL: url, Kind: KindRSS})

	assert.Equal(t, StatusNetworkError, res.Status)
	assert.Equal(t, 1, res.Attempts, "connection errors are not retried")
	assert.Error(t, res.Err)
}

func TestFetch_ContentTypeMismatchStillParses(t *testing.T) {
	srv := serveFeed(sampleRSS, "text/plain")
	defer srv.Close()

	res := testFetcher(0).Fetch(context.Background(), Source{URL: srv.URL, Kind: KindRSS})

	require.Equal(t, StatusOK, res.Status, "err: %v", res.Err)
	assert.Len(t, res.Entries, 2)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "text/plain")
}

func TestFetch_ContentTypeError(t *testing.T) {
	srv := serveFeed("<html><body><h1>Login required</h1></body></html>", "text/html")
	defer srv.Close()

	res := testFetcher(0).Fetch(context.Background(), Source{URL: srv.URL, Kind: KindRSS})

	assert.Equal(t, StatusContentTypeError, res.Status)
	assert.ErrorIs(t, res.Err, ErrContentType)
}

func TestFetch_ParseError(t *testing.T) {
	srv := serveFeed("this is definitely not a feed", "application/xml")
	defer srv.Close()

	res := testFetcher(0).Fetch(context.Background(), Source{URL: srv.URL, Kind: KindRSS})

	assert.Equal(t, StatusParseError, res.Status)
	assert.ErrorIs(t, res.Err, ErrNoItems)
	assert.Empty(t, res.Entries)
}

func TestFetch_TruncatedFeedKeepsItems(t *testing.T) {
	truncated := `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Broken</title>
<item><title>One</title><link>https://broken.example.com/1</link></item>
<item><title>Two</title><link>https://broken.exa`
	srv := serveFeed(truncated, "application/rss+xml")
	defer srv.Close()

	res := testFetcher(0).Fetch(context.Background(), Source{URL: srv.URL, Kind: KindRSS})

	require.Equal(t, StatusOK, res.Status, "err: %v", res.Err)
	require.NotEmpty(t, res.Entries)
	assert.Equal(t, "One", res.Entries[0].Title)
	assert.Equal(t, "https://broken.example.com/1", res.Entries[0].Link)
}

func TestFetch_HTMLSource(t *testing.T) {
	page := `<html><body>
<article><h2><a href="/news/ai-model">New open model released</a></h2>
<p>The weights are available under a permissive license.</p></article>
</body></html>`
	srv := serveFeed(page, "text/html; charset=utf-8")
	defer srv.Close()

	src := Source{Name: "Blog", URL: srv.URL + "/news/", Category: "AI", Kind: KindHTML}
	res := testFetcher(0).Fetch(context.Background(), src)

	require.Equal(t, StatusOK, res.Status, "err: %v", res.Err)
	require.Len(t, res.Entries, 1)
	assert.Equal(t, "New open model released", res.Entries[0].Title)
	assert.Equal(t, srv.URL+"/news/ai-model", res.Entries[0].Link)
	assert.Equal(t, "AI", res.Entries[0].Category)
	assert.Empty(t, res.Warnings)
}

func TestFetch_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewFetcher(Options{Retries: 5, Backoff: time.Hour}).Fetch(ctx, Source{URL: srv.URL, Kind: KindRSS})
	assert.True(t, res.Failed())
	assert.LessOrEqual(t, res.Attempts, 1)
}

func TestSalvageItems(t *testing.T) {
	body := `<rss><channel>
<item>
  <title>AT&T outage traced to bad config</title>
  <link>https://telecom.example.com/att</link>
  <description><![CDATA[<p>Millions of customers & businesses affected.</p>]]></description>
  <pubDate>Tue, 04 Jun 2024 08:00:00 GMT</pubDate>
</item>
<item>
  <title>Second</title>
  <link>https://telecom.example.com/second</link>
</item>
<item><description>no title or link</description></item>
</channel>`

	src := Source{Name: "Telecom", URL: "https://telecom.example.com/rss", Category: "Tech"}
	entries := salvageItems(src, []byte(body))

	require.Len(t, entries, 2)
	first := entries[0]
	assert.Equal(t, "AT&T outage traced to bad config", first.Title)
	assert.Equal(t, "https://telecom.example.com/att", first.Link)
	assert.Contains(t, first.Summary, "Millions of customers & businesses affected.")
	assert.True(t, time.Date(2024, 6, 4, 8, 0, 0, 0, time.UTC).Equal(first.Published))
	assert.Equal(t, "Tech", first.Category)
	assert.Equal(t, "Telecom", first.Source)

	assert.Equal(t, "https://telecom.example.com/second", entries[1].Link)
}

func TestSalvageItems_Atom(t *testing.T) {
	body := `<feed xmlns="http://www.w3.org/2005/Atom">
<entry>
  <title>Atom entry</title>
  <link rel="replies" href="https://atom.example.com/1#comments"/>
  <link rel="alternate" href="https://atom.example.com/1"/>
  <updated>2024-06-02T10:00:00Z</updated>
  <summary>Summary & more</summary>
</entry>`

	entries := salvageItems(Source{URL: "https://atom.example.com/feed"}, []byte(body))

	require.Len(t, entries, 1)
	assert.Equal(t, "https://atom.example.com/1", entries[0].Link)
	assert.Equal(t, "Summary & more", entries[0].Summary)
	assert.True(t, time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC).Equal(entries[0].Published))
}

func TestStatusString(t *testing.T) {
	names := []string{"ok", "http_error", "content_type_error", "parse_error", "network_error"}
	for i, want := range names {
		assert.Equal(t, want, Status(i).String())
	}
	assert.True(t, strings.HasPrefix(Status(42).String(), "status("))
}

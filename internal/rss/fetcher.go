package rss

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/deusflow/newsbrief/internal/logger"
	"github.com/deusflow/newsbrief/internal/metrics"
	"github.com/deusflow/newsbrief/internal/ratelimit"
	"github.com/deusflow/newsbrief/internal/retry"
	"github.com/deusflow/newsbrief/internal/scraper"
)

// Status is the outcome of fetching one source.
type Status int

const (
	StatusOK Status = iota
	StatusHTTPError
	StatusContentTypeError
	StatusParseError
	StatusNetworkError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusHTTPError:
		return "http_error"
	case StatusContentTypeError:
		return "content_type_error"
	case StatusParseError:
		return "parse_error"
	case StatusNetworkError:
		return "network_error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// FetchResult is produced for every source of a run, successful or not.
type FetchResult struct {
	Source   Source
	Entries  []Entry
	Status   Status
	Code     int // HTTP status code for StatusHTTPError
	Err      error
	Attempts int
	Warnings []string
}

func (r FetchResult) Failed() bool {
	return r.Status != StatusOK
}

// FetchError is the side-channel record emitted for a failed source.
type FetchError struct {
	SourceURL string `json:"source_url"`
	Reason    string `json:"reason"`
}

// ErrorRecord returns the side-channel record for a failed result.
func (r FetchResult) ErrorRecord() (FetchError, bool) {
	if !r.Failed() {
		return FetchError{}, false
	}
	reason := r.Status.String()
	if r.Err != nil {
		reason = r.Err.Error()
	}
	return FetchError{SourceURL: r.Source.URL, Reason: reason}, true
}

// HTTPStatusError is returned for non-2xx responses.
type HTTPStatusError struct {
	Code int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.Code, http.StatusText(e.Code))
}

var (
	ErrInvalidURL  = errors.New("invalid source url")
	ErrNoItems     = errors.New("feed could not be parsed and no items were recovered")
	ErrContentType = errors.New("unexpected content type")
)

// DefaultRetryableStatus lists the transient HTTP codes retried by default.
var DefaultRetryableStatus = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

const maxBodyBytes = 10 << 20

// Options configure a Fetcher. They are set once at startup and only read
// afterwards, so one Fetcher is shared by all fetch workers.
type Options struct {
	Client          *http.Client
	UserAgent       string
	Timeout         time.Duration // per attempt
	Retries         int
	Backoff         time.Duration // delay before the first retry, doubled after each
	RetryableStatus []int
	Limiter         *ratelimit.HostLimiter
}

type Fetcher struct {
	opts      Options
	retryable map[int]bool
}

func NewFetcher(opts Options) *Fetcher {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RetryableStatus == nil {
		opts.RetryableStatus = DefaultRetryableStatus
	}

	retryable := make(map[int]bool, len(opts.RetryableStatus))
	for _, code := range opts.RetryableStatus {
		retryable[code] = true
	}
	return &Fetcher{opts: opts, retryable: retryable}
}

// Fetch downloads and parses one source. It never fails: every failure mode
// is reported through the result's Status.
func (f *Fetcher) Fetch(ctx context.Context, src Source) FetchResult {
	start := time.Now()
	res := f.fetch(ctx, src)
	metrics.Global.RecordFetch(res.Status.String(), !res.Failed(), time.Since(start))

	if res.Failed() {
		logger.Warn("source failed", "source", src.URL, "status", res.Status.String(), "attempts", res.Attempts, "error", res.Err)
	} else {
		logger.Info("source fetched", "source", src.URL, "entries", len(res.Entries), "attempts", res.Attempts)
	}
	return res
}

func (f *Fetcher) fetch(ctx context.Context, src Source) FetchResult {
	res := FetchResult{Source: src}

	if err := validateURL(src.URL); err != nil {
		res.Status = StatusNetworkError
		res.Err = err
		return res
	}

	var body []byte
	var contentType string
	policy := retry.RetryConfig{MaxRetries: f.opts.Retries, Delay: f.opts.Backoff, Backoff: true}

	err := retry.WithRetry(ctx, policy, func() error {
		res.Attempts++
		b, ct, err := f.get(ctx, src.URL)
		if err == nil {
			body, contentType = b, ct
			return nil
		}

		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && f.retryable[statusErr.Code] {
			logger.Debug("transient fetch failure", "source", src.URL, "code", statusErr.Code, "attempt", res.Attempts)
			return err
		}
		return retry.Permanent(err)
	})
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) {
			res.Status = StatusHTTPError
			res.Code = statusErr.Code
		} else {
			res.Status = StatusNetworkError
		}
		res.Err = err
		return res
	}

	mismatch := !contentTypeAllowed(src.Kind, contentType)
	if mismatch {
		warning := fmt.Sprintf("unexpected content type %q", contentType)
		res.Warnings = append(res.Warnings, warning)
		logger.Warn("content type mismatch, parsing anyway", "source", src.URL, "content_type", contentType)
	}

	entries, warnings, err := parseBody(src, body)
	res.Warnings = append(res.Warnings, warnings...)
	if err != nil {
		if mismatch {
			res.Status = StatusContentTypeError
			res.Err = fmt.Errorf("%w %q: %v", ErrContentType, contentType, err)
		} else {
			res.Status = StatusParseError
			res.Err = err
		}
		return res
	}

	res.Status = StatusOK
	res.Entries = entries
	return res
}

func (f *Fetcher) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := f.opts.Limiter.Wait(ctx, rawURL); err != nil {
		return nil, "", err
	}

	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("request creation failed: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.8, */*;q=0.5")

	resp, err := f.opts.Client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, "", &HTTPStatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return nil
}

// contentTypeAllowed reports whether the declared type looks like the kind
// of document the source is configured as.
func contentTypeAllowed(kind Kind, contentType string) bool {
	ct := strings.ToLower(contentType)
	if kind == KindHTML {
		return strings.Contains(ct, "html")
	}
	return strings.Contains(ct, "xml") || strings.Contains(ct, "rss") || strings.Contains(ct, "atom")
}

// parseBody turns a response body into entries. For feeds a fatal gofeed
// error is only a failure when salvaging recovers no items either.
func parseBody(src Source, body []byte) ([]Entry, []string, error) {
	if src.Kind == KindHTML {
		articles, err := scraper.ScrapeListing(bytes.NewReader(body), src.URL)
		if err != nil {
			return nil, nil, err
		}
		if len(articles) == 0 {
			logger.Warn("no articles found on page", "source", src.URL)
		}
		entries := make([]Entry, 0, len(articles))
		for _, a := range articles {
			entries = append(entries, Entry{
				Title:     a.Title,
				Link:      a.Link,
				Summary:   a.Summary,
				Published: a.Published,
				Category:  src.Category,
				Source:    src.Name,
				SourceURL: src.URL,
			})
		}
		return entries, nil, nil
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err == nil {
		entries := make([]Entry, 0, len(feed.Items))
		for _, item := range feed.Items {
			if item == nil {
				continue
			}
			entries = append(entries, entryFromItem(src, item))
		}
		return entries, nil, nil
	}

	salvaged := salvageItems(src, body)
	if len(salvaged) == 0 {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoItems, err)
	}
	warning := fmt.Sprintf("malformed feed, recovered %d items: %v", len(salvaged), err)
	logger.Warn("malformed feed accepted", "source", src.URL, "items", len(salvaged), "error", err)
	return salvaged, []string{warning}, nil
}

func entryFromItem(src Source, item *gofeed.Item) Entry {
	link := strings.TrimSpace(item.Link)
	if link == "" && len(item.Links) > 0 {
		link = strings.TrimSpace(item.Links[0])
	}

	var published time.Time
	switch {
	case item.PublishedParsed != nil:
		published = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		published = *item.UpdatedParsed
	}

	return Entry{
		Title:     strings.TrimSpace(item.Title),
		Link:      link,
		Summary:   item.Description,
		Content:   item.Content,
		Published: published,
		Category:  src.Category,
		Source:    src.Name,
		SourceURL: src.URL,
	}
}

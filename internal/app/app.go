// Package app wires the pipeline together: fetch every configured source,
// filter the pooled entries, group near-duplicates, rank and diversify the
// groups and score the trending category.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/deusflow/newsbrief/internal/config"
	"github.com/deusflow/newsbrief/internal/logger"
	"github.com/deusflow/newsbrief/internal/metrics"
	"github.com/deusflow/newsbrief/internal/news"
	"github.com/deusflow/newsbrief/internal/ratelimit"
	"github.com/deusflow/newsbrief/internal/rss"
)

var (
	ErrNoSources        = errors.New("no usable sources configured")
	ErrAllSourcesFailed = errors.New("all sources failed")
)

// Deps are the collaborators of a run. All fields are optional.
type Deps struct {
	Client     *http.Client
	Summarizer news.Summarizer
	Now        func() time.Time
}

type Stats struct {
	Sources          int           `json:"sources"`
	SourcesFailed    int           `json:"sources_failed"`
	EntriesCollected int           `json:"entries_collected"`
	EntriesMatched   int           `json:"entries_matched"`
	Groups           int           `json:"groups"`
	Highlights       int           `json:"highlights"`
	Duration         time.Duration `json:"duration"`
}

// Report is everything a run produces for downstream formatting.
type Report struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Highlights  []news.Highlight       `json:"highlights"`
	Categories  []string               `json:"categories"`
	ByCategory  map[string][]rss.Entry `json:"by_category"`
	Trend       *news.CategoryTrend    `json:"trend,omitempty"`
	Errors      []rss.FetchError       `json:"errors"`
	Results     []rss.FetchResult      `json:"-"`
	Stats       Stats                  `json:"stats"`
}

// Sources converts the configured sources into registry descriptors.
func Sources(cfg *config.Config) []rss.Source {
	out := make([]rss.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		out = append(out, rss.Source{Name: s.Name, URL: s.URL, Category: s.Category, Kind: rss.Kind(s.Kind)})
	}
	return out
}

// NewFetcher builds the fetcher shared by all workers of a run.
func NewFetcher(s config.Settings, client *http.Client) *rss.Fetcher {
	return rss.NewFetcher(rss.Options{
		Client:          client,
		UserAgent:       s.UserAgent,
		Timeout:         s.FetchTimeout,
		Retries:         s.FetchRetries,
		Backoff:         s.FetchBackoff,
		RetryableStatus: s.RetryableStatusCodes,
		Limiter:         ratelimit.NewHostLimiter(s.HostRate, s.HostBurst),
	})
}

// Run executes one pipeline pass. Individual source failures are part of the
// report; Run only fails when there is nothing to fetch (ErrNoSources) or
// every source failed (ErrAllSourcesFailed, returned with the report).
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*Report, error) {
	start := time.Now()
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	registry := rss.NewRegistry(Sources(cfg))
	if registry.Len() == 0 {
		metrics.Global.SetError(ErrNoSources.Error())
		return nil, ErrNoSources
	}
	s := cfg.Settings

	fetchCtx := ctx
	if s.RunTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.RunTimeout)
		defer cancel()
	}

	logger.Info("fetching sources", "sources", registry.Len(), "workers", s.Workers)
	results, fetchErrs := NewFetcher(s, deps.Client).FetchAll(fetchCtx, registry.All(), s.Workers)

	pool := rss.Entries(results)
	metrics.Global.AddEntriesCollected(len(pool))

	runAt := now()
	matcher := news.CompileKeywords(cfg.Filters.Keywords)
	matched := news.FilterRecent(matcher.Filter(pool), news.Cutoff(runAt, cfg.RecencyWindow()))
	metrics.Global.AddEntriesMatched(len(matched))
	logger.Info("entries filtered", "collected", len(pool), "matched", len(matched), "keywords", len(matcher.Keywords()))

	index := news.IndexByCategory(matched)

	dedup := news.NewDeduplicator(s.SimilarityThreshold)
	dedup.Now = func() time.Time { return runAt }
	groups := dedup.Group(matched)
	metrics.Global.AddDuplicatesMerged(len(matched) - len(groups))

	highlights := news.Rank(groups, news.RankOptions{MaxResults: s.MaxResults, MaxPerDomain: s.MaxPerDomain})
	highlights = news.Annotate(ctx, deps.Summarizer, highlights)
	metrics.Global.SetHighlights(len(highlights))

	report := &Report{
		GeneratedAt: runAt,
		Highlights:  highlights,
		Categories:  index.Categories(),
		ByCategory:  index.Map(),
		Trend:       news.ScoreTrend(index, highlights),
		Errors:      fetchErrs,
		Results:     results,
		Stats: Stats{
			Sources:          len(results),
			SourcesFailed:    len(fetchErrs),
			EntriesCollected: len(pool),
			EntriesMatched:   len(matched),
			Groups:           len(groups),
			Highlights:       len(highlights),
			Duration:         time.Since(start),
		},
	}

	metrics.Global.RecordProcessingTime(report.Stats.Duration)
	metrics.Global.SetLastRun()

	if report.Stats.SourcesFailed == report.Stats.Sources {
		metrics.Global.SetError(ErrAllSourcesFailed.Error())
		return report, ErrAllSourcesFailed
	}

	logger.Info("run complete",
		"highlights", len(highlights),
		"groups", len(groups),
		"failed_sources", len(fetchErrs),
		"elapsed", report.Stats.Duration.Round(time.Millisecond))
	return report, nil
}

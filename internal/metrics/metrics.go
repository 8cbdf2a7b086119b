package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	feedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsbrief_feed_fetches_total",
		Help: "Feed fetches by final status",
	}, []string{"status"})
	feedFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsbrief_feed_fetch_duration_seconds",
		Help:    "Time spent fetching one source, retries included",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms .. ~25s
	})
	entriesCollected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsbrief_entries_collected_total",
		Help: "Entries parsed from all sources",
	})
	duplicatesMerged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsbrief_duplicates_merged_total",
		Help: "Entries absorbed into an existing story group",
	})
	highlightsSelected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "newsbrief_highlights",
		Help: "Highlights produced by the last run",
	})
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsbrief_run_duration_seconds",
		Help:    "Wall time of a full pipeline run",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	FeedsFetched       int64
	FeedsFailed        int64
	EntriesCollected   int64
	EntriesMatched     int64
	DuplicatesMerged   int64
	HighlightsSelected int64
	SummariesGenerated int64
	SummaryFailures    int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
}

var Global = &Metrics{IsHealthy: true}

// RecordFetch counts one finished source fetch.
func (m *Metrics) RecordFetch(status string, ok bool, d time.Duration) {
	feedFetches.WithLabelValues(status).Inc()
	feedFetchDuration.Observe(d.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.FeedsFetched++
	} else {
		m.FeedsFailed++
	}
}

func (m *Metrics) AddEntriesCollected(n int) {
	entriesCollected.Add(float64(n))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.EntriesCollected += int64(n)
}

func (m *Metrics) AddEntriesMatched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EntriesMatched += int64(n)
}

func (m *Metrics) AddDuplicatesMerged(n int) {
	duplicatesMerged.Add(float64(n))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.DuplicatesMerged += int64(n)
}

func (m *Metrics) SetHighlights(n int) {
	highlightsSelected.Set(float64(n))

	m.mu.Lock()
	defer m.mu.Unlock()
	m.HighlightsSelected = int64(n)
}

func (m *Metrics) IncrementSummaries() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummariesGenerated++
}

func (m *Metrics) IncrementSummaryFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SummaryFailures++
}

func (m *Metrics) RecordProcessingTime(duration time.Duration) {
	runDuration.Observe(duration.Seconds())

	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"feeds_fetched":              m.FeedsFetched,
		"feeds_failed":               m.FeedsFailed,
		"entries_collected":          m.EntriesCollected,
		"entries_matched":            m.EntriesMatched,
		"duplicates_merged":          m.DuplicatesMerged,
		"highlights_selected":        m.HighlightsSelected,
		"summaries_generated":        m.SummariesGenerated,
		"summary_failures":           m.SummaryFailures,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
}

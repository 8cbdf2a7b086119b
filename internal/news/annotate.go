package news

import (
	"context"

	"github.com/deusflow/newsbrief/internal/logger"
	"github.com/deusflow/newsbrief/internal/metrics"
	"github.com/deusflow/newsbrief/internal/scraper"
)

// ExcerptRunes bounds fallback excerpts taken from the feed summary.
const ExcerptRunes = 300

// Summarizer produces a short excerpt for an article.
type Summarizer interface {
	Summarize(ctx context.Context, title, text string) (string, error)
}

// Annotate returns copies of highlights carrying an excerpt. The summarizer
// is optional; when it is nil, fails or ctx is done the excerpt is the
// cleaned feed summary instead.
func Annotate(ctx context.Context, s Summarizer, highlights []Highlight) []Highlight {
	out := make([]Highlight, len(highlights))
	for i, h := range highlights {
		text := plainSummary(h)
		excerpt := scraper.Truncate(text, ExcerptRunes)

		if s != nil && ctx.Err() == nil {
			summary, err := s.Summarize(ctx, h.Entry.Title, text)
			switch {
			case err != nil:
				metrics.Global.IncrementSummaryFailures()
				logger.Warn("summarizer failed, using feed summary", "title", h.Entry.Title, "error", err)
			case summary != "":
				metrics.Global.IncrementSummaries()
				excerpt = summary
			}
		}

		h.Entry = h.Entry.WithExcerpt(excerpt)
		out[i] = h
	}
	return out
}

func plainSummary(h Highlight) string {
	if text := scraper.PlainText(h.Entry.Summary); text != "" {
		return text
	}
	return scraper.PlainText(h.Entry.Content)
}

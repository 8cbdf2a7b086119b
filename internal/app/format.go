package app

import (
	"fmt"
	"strings"

	"github.com/deusflow/newsbrief/internal/news"
	"github.com/deusflow/newsbrief/internal/scraper"
)

const excerptPreviewRunes = 280

// FormatReport renders a plain-text digest of the report for the terminal.
func FormatReport(r *Report) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Highlights %s\n", r.GeneratedAt.Format("2006-01-02 15:04")))
	b.WriteString(strings.Repeat("━", 40) + "\n\n")

	if len(r.Highlights) == 0 {
		b.WriteString("No highlights.\n")
	}
	for i, h := range r.Highlights {
		b.WriteString(formatHighlight(h, i+1))
	}

	if r.Trend != nil {
		b.WriteString(fmt.Sprintf("\nTrending: %s (score %d, %d highlight mentions, %d articles)\n",
			r.Trend.Category, r.Trend.Score, r.Trend.HighlightWeight, r.Trend.ArticleCount))
		for _, e := range r.Trend.TopEntries {
			b.WriteString(fmt.Sprintf("  - %s\n", e.Title))
		}
	}

	if len(r.Categories) > 0 {
		b.WriteString("\nBy category:\n")
		for _, cat := range r.Categories {
			b.WriteString(fmt.Sprintf("  %-20s %d\n", cat, len(r.ByCategory[cat])))
		}
	}

	if len(r.Errors) > 0 {
		b.WriteString(fmt.Sprintf("\nFailed sources (%d):\n", len(r.Errors)))
		for _, e := range r.Errors {
			b.WriteString(fmt.Sprintf("  %s: %s\n", e.SourceURL, e.Reason))
		}
	}

	s := r.Stats
	b.WriteString(fmt.Sprintf("\n%d/%d sources ok, %d entries, %d matched, %d groups\n",
		s.Sources-s.SourcesFailed, s.Sources, s.EntriesCollected, s.EntriesMatched, s.Groups))
	return b.String()
}

func formatHighlight(h news.Highlight, number int) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%d. %s\n", number, h.Entry.Title))
	meta := []string{h.Domain, h.Entry.Category}
	if h.MentionCount > 1 {
		meta = append(meta, fmt.Sprintf("%d mentions", h.MentionCount))
	}
	if h.Entry.HasPublished() {
		meta = append(meta, h.Entry.Published.Format("2006-01-02"))
	}
	b.WriteString("   " + strings.Join(meta, " · ") + "\n")

	if text := scraper.Truncate(h.Entry.Text(), excerptPreviewRunes); text != "" {
		b.WriteString("   " + text + "\n")
	}
	b.WriteString("   " + h.Entry.Link + "\n\n")
	return b.String()
}

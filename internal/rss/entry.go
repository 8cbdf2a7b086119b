package rss

import (
	"time"

	"github.com/deusflow/newsbrief/internal/scraper"
)

// Entry is one feed item. Entries are passed by value between pipeline
// stages; annotations produce a modified copy.
type Entry struct {
	Title     string    `json:"title"`
	Link      string    `json:"link"`
	Summary   string    `json:"summary,omitempty"` // raw, possibly HTML
	Content   string    `json:"content,omitempty"` // content blocks, possibly HTML
	Published time.Time `json:"published,omitempty"`
	Category  string    `json:"category"`
	Source    string    `json:"source"`
	SourceURL string    `json:"source_url"`

	// Excerpt is filled by an external summarizer; empty means none.
	Excerpt string `json:"excerpt,omitempty"`
}

// HasPublished reports whether the feed supplied a usable timestamp.
func (e Entry) HasPublished() bool {
	return !e.Published.IsZero()
}

// Timestamp returns the published time, or now when the entry has none.
func (e Entry) Timestamp(now time.Time) time.Time {
	if e.HasPublished() {
		return e.Published
	}
	return now
}

// WithExcerpt returns a copy of e carrying the excerpt.
func (e Entry) WithExcerpt(excerpt string) Entry {
	e.Excerpt = excerpt
	return e
}

// Text returns the excerpt when present, otherwise the summary as plain text.
func (e Entry) Text() string {
	if e.Excerpt != "" {
		return e.Excerpt
	}
	if e.Summary != "" {
		return scraper.PlainText(e.Summary)
	}
	return scraper.PlainText(e.Content)
}

// SearchText is the field bundle keyword matching runs against.
func (e Entry) SearchText() string {
	return e.Title + "\n" + e.Summary + "\n" + e.Content
}

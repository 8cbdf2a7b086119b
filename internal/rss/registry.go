package rss

import (
	"strings"

	"github.com/samber/lo"

	"github.com/deusflow/newsbrief/internal/logger"
)

// DefaultCategory is used for sources configured without a category.
const DefaultCategory = "General"

// Kind selects how a source body is turned into entries.
type Kind string

const (
	KindRSS  Kind = "rss"  // RSS, Atom or JSON feed
	KindHTML Kind = "html" // listing page scraped for headlines
)

// Source describes one configured feed.
type Source struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Kind     Kind   `json:"kind"`
}

// Registry holds the sources of a run. It is not modified after NewRegistry.
type Registry struct {
	sources []Source
}

// NewRegistry normalises the configured sources: blank URLs are dropped,
// missing names, categories and kinds get defaults, duplicate URLs keep the
// first occurrence.
func NewRegistry(sources []Source) *Registry {
	seen := make(map[string]bool, len(sources))
	out := make([]Source, 0, len(sources))

	for _, src := range sources {
		src.URL = strings.TrimSpace(src.URL)
		if src.URL == "" {
			logger.Warn("skipping source without url", "name", src.Name)
			continue
		}
		if seen[src.URL] {
			logger.Warn("skipping duplicate source", "url", src.URL)
			continue
		}
		seen[src.URL] = true

		src.Name = strings.TrimSpace(src.Name)
		if src.Name == "" {
			src.Name = src.URL
		}
		src.Category = strings.TrimSpace(src.Category)
		if src.Category == "" {
			src.Category = DefaultCategory
		}
		switch Kind(strings.ToLower(string(src.Kind))) {
		case KindHTML:
			src.Kind = KindHTML
		default:
			src.Kind = KindRSS
		}
		out = append(out, src)
	}

	return &Registry{sources: out}
}

// All returns a copy of the sources in configuration order.
func (r *Registry) All() []Source {
	return append([]Source(nil), r.sources...)
}

func (r *Registry) Len() int {
	return len(r.sources)
}

// Categories lists categories in first-appearance order.
func (r *Registry) Categories() []string {
	return lo.Uniq(lo.Map(r.sources, func(s Source, _ int) string { return s.Category }))
}

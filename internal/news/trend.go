package news

import (
	"github.com/deusflow/newsbrief/internal/rss"
)

const topEntriesPerTrend = 3

// CategoryIndex partitions matched entries by source category, remembering
// the order in which categories first appeared.
type CategoryIndex struct {
	order   []string
	entries map[string][]rss.Entry
}

func NewCategoryIndex() *CategoryIndex {
	return &CategoryIndex{entries: make(map[string][]rss.Entry)}
}

// IndexByCategory builds an index from entries in order.
func IndexByCategory(entries []rss.Entry) *CategoryIndex {
	idx := NewCategoryIndex()
	for _, e := range entries {
		idx.Add(e)
	}
	return idx
}

func (c *CategoryIndex) Add(e rss.Entry) {
	cat := categoryOf(e)
	if _, ok := c.entries[cat]; !ok {
		c.order = append(c.order, cat)
	}
	c.entries[cat] = append(c.entries[cat], e)
}

// Categories returns categories in first-appearance order.
func (c *CategoryIndex) Categories() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.order...)
}

func (c *CategoryIndex) Entries(category string) []rss.Entry {
	if c == nil {
		return nil
	}
	return c.entries[category]
}

func (c *CategoryIndex) Count(category string) int {
	return len(c.Entries(category))
}

// Len is the total number of indexed entries.
func (c *CategoryIndex) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, es := range c.entries {
		n += len(es)
	}
	return n
}

// Map returns a copy of the partition, keyed by category.
func (c *CategoryIndex) Map() map[string][]rss.Entry {
	out := make(map[string][]rss.Entry)
	if c == nil {
		return out
	}
	for cat, es := range c.entries {
		out[cat] = append([]rss.Entry(nil), es...)
	}
	return out
}

// CategoryTrend is the category that dominated the run.
type CategoryTrend struct {
	Category        string      `json:"category"`
	ArticleCount    int         `json:"article_count"`
	HighlightWeight int         `json:"highlight_weight"`
	Score           int         `json:"score"`
	TopEntries      []rss.Entry `json:"top_entries"`
}

// ScoreTrend picks the category with the highest 2*highlightWeight +
// articleCount, where highlightWeight sums the mention counts of that
// category's highlights. Ties go to the category seen first: index order,
// then categories that only appear among highlights in highlight order.
// It returns nil when there is nothing to score.
func ScoreTrend(index *CategoryIndex, highlights []Highlight) *CategoryTrend {
	order := index.Categories()
	seen := make(map[string]bool, len(order))
	for _, cat := range order {
		seen[cat] = true
	}

	weights := make(map[string]int)
	for _, h := range highlights {
		cat := categoryOf(h.Entry)
		weights[cat] += h.MentionCount
		if !seen[cat] {
			seen[cat] = true
			order = append(order, cat)
		}
	}
	if len(order) == 0 {
		return nil
	}

	var best *CategoryTrend
	for _, cat := range order {
		t := &CategoryTrend{
			Category:        cat,
			ArticleCount:    index.Count(cat),
			HighlightWeight: weights[cat],
		}
		t.Score = t.HighlightWeight*2 + t.ArticleCount
		if best == nil || t.Score > best.Score {
			best = t
		}
	}

	for _, h := range highlights {
		if len(best.TopEntries) == topEntriesPerTrend {
			break
		}
		if categoryOf(h.Entry) == best.Category {
			best.TopEntries = append(best.TopEntries, h.Entry)
		}
	}
	return best
}

func categoryOf(e rss.Entry) string {
	if e.Category == "" {
		return rss.DefaultCategory
	}
	return e.Category
}

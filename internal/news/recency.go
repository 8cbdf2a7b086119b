package news

import (
	"time"

	"github.com/samber/lo"

	"github.com/deusflow/newsbrief/internal/rss"
)

// Cutoff returns the oldest publish time still considered recent. A
// non-positive window disables the recency filter.
func Cutoff(now time.Time, window time.Duration) time.Time {
	if window <= 0 {
		return time.Time{}
	}
	return now.Add(-window)
}

// IsRecent reports whether e was published at or after cutoff. Entries
// without a timestamp count as published now and are always recent.
func IsRecent(e rss.Entry, cutoff time.Time) bool {
	if !e.HasPublished() || cutoff.IsZero() {
		return true
	}
	return !e.Published.Before(cutoff)
}

func FilterRecent(entries []rss.Entry, cutoff time.Time) []rss.Entry {
	return lo.Filter(entries, func(e rss.Entry, _ int) bool { return IsRecent(e, cutoff) })
}

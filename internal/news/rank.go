package news

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/deusflow/newsbrief/internal/logger"
	"github.com/deusflow/newsbrief/internal/rss"
)

var ErrNoHost = errors.New("link has no host")

// Highlight is a group promoted to the final ranked list.
type Highlight struct {
	Entry        rss.Entry `json:"entry"`
	MentionCount int       `json:"mention_count"`
	Domain       string    `json:"domain"`
	Published    time.Time `json:"published"`
}

type RankOptions struct {
	MaxResults   int // total highlights; <= 0 yields none
	MaxPerDomain int // highlights sharing a domain; <= 0 means unlimited
}

// NormalizeDomain returns the lowercased host of link without a leading
// "www.".
func NormalizeDomain(link string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: %q", ErrNoHost, link)
	}
	return strings.TrimPrefix(host, "www."), nil
}

// Rank orders groups by mention count then recency and admits them greedily
// while their domain is under the cap. The result is a subsequence of the
// sorted groups: a skipped group is never backfilled. Groups whose link has
// no usable domain are dropped.
func Rank(groups []Group, opts RankOptions) []Highlight {
	if opts.MaxResults <= 0 || len(groups) == 0 {
		return nil
	}

	sorted := append([]Group(nil), groups...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].MemberCount != sorted[j].MemberCount {
			return sorted[i].MemberCount > sorted[j].MemberCount
		}
		return sorted[i].RepresentativeTime.After(sorted[j].RepresentativeTime)
	})

	perDomain := make(map[string]int)
	highlights := make([]Highlight, 0, min(opts.MaxResults, len(sorted)))

	for _, g := range sorted {
		if len(highlights) >= opts.MaxResults {
			break
		}
		domain, err := NormalizeDomain(g.Representative.Link)
		if err != nil {
			logger.Debug("skipping group without domain", "title", g.Representative.Title, "error", err)
			continue
		}
		if opts.MaxPerDomain > 0 && perDomain[domain] >= opts.MaxPerDomain {
			continue
		}
		perDomain[domain]++
		highlights = append(highlights, Highlight{
			Entry:        g.Representative,
			MentionCount: g.MemberCount,
			Domain:       domain,
			Published:    g.RepresentativeTime,
		})
	}
	return highlights
}

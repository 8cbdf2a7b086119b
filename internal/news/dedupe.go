package news

import (
	"time"

	"github.com/deusflow/newsbrief/internal/rss"
)

// DefaultThreshold is the title similarity at which two entries are treated
// as the same story.
const DefaultThreshold = 0.8

// Group is a cluster of entries reporting the same story.
type Group struct {
	Representative     rss.Entry
	RepresentativeTime time.Time
	MemberCount        int
	Members            []rss.Entry // in arrival order, seed first
}

// Deduplicator clusters near-duplicate entries by title.
type Deduplicator struct {
	Threshold  float64
	Similarity SimilarityFunc
	Now        func() time.Time
}

func NewDeduplicator(threshold float64) *Deduplicator {
	return &Deduplicator{Threshold: threshold, Similarity: TitleSimilarity, Now: time.Now}
}

// Group partitions entries into groups with greedy seeded clustering: in
// arrival order each unassigned entry seeds a group and absorbs every later
// unassigned entry whose title is similar enough to the seed. Groups are never
// merged afterwards, so with three or more borderline titles the membership
// depends on arrival order.
//
// The representative is the member with the latest timestamp (missing
// timestamps count as now); ties keep the earlier member.
func (d *Deduplicator) Group(entries []rss.Entry) []Group {
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	similarity := d.Similarity
	if similarity == nil {
		similarity = TitleSimilarity
	}
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}

	assigned := make([]bool, len(entries))
	var groups []Group

	for i, seed := range entries {
		if assigned[i] {
			continue
		}
		assigned[i] = true

		g := Group{
			Representative:     seed,
			RepresentativeTime: seed.Timestamp(now),
			MemberCount:        1,
			Members:            []rss.Entry{seed},
		}
		for j := i + 1; j < len(entries); j++ {
			if assigned[j] || similarity(seed.Title, entries[j].Title) < threshold {
				continue
			}
			assigned[j] = true
			g.Members = append(g.Members, entries[j])
			g.MemberCount++

			if ts := entries[j].Timestamp(now); ts.After(g.RepresentativeTime) {
				g.Representative = entries[j]
				g.RepresentativeTime = ts
			}
		}
		groups = append(groups, g)
	}
	return groups
}

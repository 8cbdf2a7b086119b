package news

import (
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/deusflow/newsbrief/internal/rss"
)

// KeywordMatcher decides whether an entry is relevant. All keywords are
// compiled into one case-insensitive whole-word pattern so each entry costs a
// single regex search.
type KeywordMatcher struct {
	keywords []string
	re       *regexp.Regexp
}

// CompileKeywords builds a matcher for the given keywords. Blank and repeated
// keywords are ignored; with none left the matcher accepts everything.
func CompileKeywords(keywords []string) *KeywordMatcher {
	cleaned := lo.Uniq(lo.FilterMap(keywords, func(k string, _ int) (string, bool) {
		k = strings.TrimSpace(k)
		return k, k != ""
	}))
	if len(cleaned) == 0 {
		return &KeywordMatcher{}
	}

	quoted := lo.Map(cleaned, func(k string, _ int) string { return regexp.QuoteMeta(k) })
	pattern := `(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`
	return &KeywordMatcher{keywords: cleaned, re: regexp.MustCompile(pattern)}
}

// Keywords returns the effective keyword list.
func (m *KeywordMatcher) Keywords() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keywords...)
}

func (m *KeywordMatcher) Empty() bool {
	return m == nil || m.re == nil
}

// Matches scans the title, summary and content of e.
func (m *KeywordMatcher) Matches(e rss.Entry) bool {
	if m.Empty() {
		return true
	}
	return m.re.MatchString(e.SearchText())
}

// Filter keeps the matching entries in order.
func (m *KeywordMatcher) Filter(entries []rss.Entry) []rss.Entry {
	return lo.Filter(entries, func(e rss.Entry, _ int) bool { return m.Matches(e) })
}

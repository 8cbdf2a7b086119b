package news

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deusflow/newsbrief/internal/rss"
)

func TestKeywordMatcher_EmptyAcceptsAll(t *testing.T) {
	entries := []rss.Entry{{Title: "anything"}, {}, {Summary: "email"}}

	for _, m := range []*KeywordMatcher{nil, CompileKeywords(nil), CompileKeywords([]string{"", "   "})} {
		assert.True(t, m.Empty())
		for _, e := range entries {
			assert.True(t, m.Matches(e))
		}
	}
}

func TestKeywordMatcher_WholeWordCaseInsensitive(t *testing.T) {
	m := CompileKeywords([]string{"AI", "ransomware"})

	tests := []struct {
		name  string
		entry rss.Entry
		want  bool
	}{
		{"title upper", rss.Entry{Title: "New AI chip unveiled"}, true},
		{"title lower", rss.Entry{Title: "new ai chip unveiled"}, true},
		{"inside word", rss.Entry{Title: "Check your email today"}, false},
		{"prefix of word", rss.Entry{Title: "Aim higher"}, false},
		{"summary", rss.Entry{Title: "Weekly", Summary: "<p>RANSOMWARE hits hospital</p>"}, true},
		{"content", rss.Entry{Title: "Weekly", Content: "gang deploys ransomware."}, true},
		{"punctuation boundary", rss.Entry{Title: "Is (AI) overhyped?"}, true},
		{"no match", rss.Entry{Title: "Quarterly earnings", Summary: "flat"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Matches(tt.entry))
		})
	}
}

func TestKeywordMatcher_EscapesMeta(t *testing.T) {
	m := CompileKeywords([]string{"node.js"})

	assert.True(t, m.Matches(rss.Entry{Title: "Node.js 22 released"}))
	assert.False(t, m.Matches(rss.Entry{Title: "nodexjs is not a thing"}))
}

func TestCompileKeywords_DeduplicatesAndTrims(t *testing.T) {
	m := CompileKeywords([]string{" cloud ", "cloud", "", "linux"})
	assert.Equal(t, []string{"cloud", "linux"}, m.Keywords())
}

func TestKeywordMatcher_Filter(t *testing.T) {
	m := CompileKeywords([]string{"linux"})
	entries := []rss.Entry{
		{Title: "Linux 6.9 out"},
		{Title: "Windows update"},
		{Title: "Kernel news", Summary: "linux scheduler rework"},
	}

	got := m.Filter(entries)
	assert.Len(t, got, 2)
	assert.Equal(t, "Linux 6.9 out", got[0].Title)
	assert.Equal(t, "Kernel news", got[1].Title)
}

package news

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// SimilarityFunc scores two titles in [0, 1]; 1 means identical.
type SimilarityFunc func(a, b string) float64

// TitleSimilarity is a token-sort edit-distance ratio: both titles are
// lowercased, stripped of punctuation and have their words sorted before the
// Levenshtein distance is taken, so reordered or re-punctuated headlines
// still score high. The result is symmetric.
func TitleSimilarity(a, b string) float64 {
	na, nb := normalizeTitle(a), normalizeTitle(b)
	la, lb := utf8.RuneCountInString(na), utf8.RuneCountInString(nb)

	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(na, nb)
	return 1 - float64(d)/float64(longest)
}

func normalizeTitle(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)

	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

package scraper

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// blockTags get whitespace around their text so adjacent paragraphs don't fuse.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "tr": true, "td": true, "th": true,
	"section": true, "article": true, "figure": true, "figcaption": true,
}

// HTMLToText renders an HTML fragment (feed summaries are usually HTML) as
// plain text with collapsed whitespace.
func HTMLToText(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript").Remove()

	var b strings.Builder
	collectText(doc.Selection, &b)
	return collapseSpace(b.String()), nil
}

func collectText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		switch name := goquery.NodeName(c); name {
		case "#text":
			b.WriteString(c.Text())
		case "#comment":
		default:
			block := blockTags[name]
			if block {
				b.WriteByte(' ')
			}
			collectText(c, b)
			if block {
				b.WriteByte(' ')
			}
		}
	})
}

// StripTags is the crude fallback used when HTML parsing fails: drop
// everything between angle brackets and unescape entities.
func StripTags(raw string) string {
	inTag := false
	var result strings.Builder
	for _, char := range raw {
		if char == '<' {
			inTag = true
		} else if char == '>' {
			inTag = false
			result.WriteRune(' ')
		} else if !inTag {
			result.WriteRune(char)
		}
	}
	return collapseSpace(html.UnescapeString(result.String()))
}

// PlainText converts raw summary HTML to text, substituting StripTags when
// the HTML cannot be parsed.
func PlainText(raw string) string {
	text, err := HTMLToText(raw)
	if err != nil {
		return StripTags(raw)
	}
	return text
}

// Truncate shortens s to at most maxRunes runes, preferring a word boundary.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}

	runes := []rune(s)
	cut := string(runes[:maxRunes])
	if idx := strings.LastIndex(cut, " "); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + "..."
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339Nano,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate tries the date formats seen in feeds and blog listings.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

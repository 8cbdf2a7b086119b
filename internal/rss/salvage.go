package rss

import (
	"bytes"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/newsbrief/internal/scraper"
)

var reCDATA = regexp.MustCompile(`(?s)<!\[CDATA\[(.*?)\]\]>`)

// salvageItems recovers items from a feed the strict parser rejected
// (unescaped ampersands, truncated documents, stray markup). It walks the body
// with the tolerant HTML parser and reads the usual RSS/Atom item fields.
func salvageItems(src Source, body []byte) []Entry {
	body = reCDATA.ReplaceAllFunc(body, func(m []byte) []byte {
		inner := reCDATA.FindSubmatch(m)[1]
		return []byte(html.EscapeString(string(inner)))
	})

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var entries []Entry
	doc.Find("item, entry").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find("title").First().Text())
		link := salvageLink(s)
		if title == "" && link == "" {
			return
		}

		e := Entry{
			Title:     title,
			Link:      link,
			Category:  src.Category,
			Source:    src.Name,
			SourceURL: src.URL,
		}
		s.Children().Each(func(_ int, c *goquery.Selection) {
			switch goquery.NodeName(c) {
			case "description", "summary":
				if e.Summary == "" {
					e.Summary = strings.TrimSpace(c.Text())
				}
			case "content", "content:encoded":
				if e.Content == "" {
					e.Content = strings.TrimSpace(c.Text())
				}
			case "pubdate", "published", "updated", "dc:date":
				if t, ok := scraper.ParseDate(c.Text()); ok && e.Published.IsZero() {
					e.Published = t
				}
			}
		})
		entries = append(entries, e)
	})
	return entries
}

// salvageLink handles both Atom <link href> and RSS <link>url</link>; the
// HTML parser treats <link> as a void element so the RSS url ends up in the
// text node that follows it.
func salvageLink(s *goquery.Selection) string {
	var link string
	afterLink := false

	s.Contents().EachWithBreak(func(_ int, c *goquery.Selection) bool {
		switch goquery.NodeName(c) {
		case "link":
			if href, ok := c.Attr("href"); ok && strings.TrimSpace(href) != "" {
				if rel, _ := c.Attr("rel"); rel == "" || rel == "alternate" {
					link = strings.TrimSpace(href)
					return false
				}
				return true
			}
			if text := strings.TrimSpace(c.Text()); text != "" {
				link = text
				return false
			}
			afterLink = true
		case "#text":
			if text := strings.TrimSpace(c.Text()); afterLink && text != "" {
				link = text
				return false
			}
		default:
			afterLink = false
		}
		return true
	})
	return link
}

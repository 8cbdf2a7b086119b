package scraper

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Article is one headline found on an HTML listing page.
type Article struct {
	Title     string
	Link      string
	Summary   string
	Published time.Time
}

// Containers tried in order; the first selector yielding articles wins.
var containerSelectors = []string{
	"article",
	".post",
	".entry",
	".news-item",
	".views-row",
	".blog-post",
	"li.item",
}

const headlineSelector = "h1 a[href], h2 a[href], h3 a[href], h4 a[href], a.title[href], a[rel=bookmark]"

// ScrapeListing extracts articles from a blog or newsroom listing page for
// sites that publish no feed.
func ScrapeListing(r io.Reader, baseURL string) ([]Article, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}
	return ExtractListing(doc, baseURL), nil
}

// ExtractListing walks the generic container selectors of a parsed page.
func ExtractListing(doc *goquery.Document, baseURL string) []Article {
	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
	}

	seen := make(map[string]bool)
	var out []Article

	for _, selector := range containerSelectors {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			a := s.Find(headlineSelector).First()
			if a.Length() == 0 {
				return
			}

			title := collapseSpace(a.Text())
			href, _ := a.Attr("href")
			link := resolveURL(base, href)
			if title == "" || link == "" || seen[link] {
				return
			}
			seen[link] = true

			out = append(out, Article{
				Title:     title,
				Link:      link,
				Summary:   summaryOf(s, title),
				Published: publishedOf(s),
			})
		})
		if len(out) > 0 {
			break
		}
	}

	return out
}

func summaryOf(s *goquery.Selection, title string) string {
	var summary string
	s.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := collapseSpace(p.Text())
		if len(text) > 20 && text != title {
			summary = text
			return false
		}
		return true
	})
	return summary
}

func publishedOf(s *goquery.Selection) time.Time {
	tag := s.Find("time").First()
	if tag.Length() == 0 {
		return time.Time{}
	}
	if dt, ok := tag.Attr("datetime"); ok {
		if t, ok := ParseDate(dt); ok {
			return t
		}
	}
	if t, ok := ParseDate(tag.Text()); ok {
		return t
	}
	return time.Time{}
}

func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if ref.IsAbs() {
		return ref.String()
	}
	if base == nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

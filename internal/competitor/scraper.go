// Package competitor fetches competitor pages and mines their headings for
// keywords.
package competitor

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"github.com/sells-group/rankrent-cli/internal/model"
)

const maxHeadingWords = 10

// Page is the SEO-relevant content of one competitor page.
type Page struct {
	URL         string   `json:"url"`
	Domain      string   `json:"domain"`
	Position    int      `json:"position"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	H1          []string `json:"h1"`
	H2          []string `json:"h2"`
}

// Headings returns the h1 then h2 headings.
func (p Page) Headings() []string {
	out := make([]string, 0, len(p.H1)+len(p.H2))
	out = append(out, p.H1...)
	return append(out, p.H2...)
}

// ParsePage decodes data to UTF-8 using the content type and any meta
// charset, then extracts title, meta description and headings.
func ParsePage(data []byte, contentType string) (*Page, error) {
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	utf8data, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if !utf8.Valid(data) {
			return nil, eris.Wrap(err, "competitor: decode page")
		}
		utf8data = data
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8data))
	if err != nil {
		return nil, eris.Wrap(err, "competitor: parse html")
	}
	doc.Find("script,noscript,style").Remove()

	p := &Page{
		Title:       collapse(doc.Find("title").First().Text()),
		Description: collapse(doc.Find(`meta[name="description"]`).AttrOr("content", "")),
	}
	if p.Description == "" {
		p.Description = collapse(doc.Find(`meta[property="og:description"]`).AttrOr("content", ""))
	}
	p.H1 = texts(doc.Find("h1"))
	p.H2 = texts(doc.Find("h2"))
	return p, nil
}

func texts(sel *goquery.Selection) []string {
	var out []string
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := collapse(s.Text()); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Scraper fetches and parses competitor pages.
type Scraper struct {
	fetcher *Fetcher
}

// NewScraper creates a Scraper.
func NewScraper(f *Fetcher) *Scraper {
	return &Scraper{fetcher: f}
}

// Scrape fetches the pages of up to limit recommended competitors in rank
// order. Pages that fail to load are logged and skipped.
func (s *Scraper) Scrape(ctx context.Context, comps []model.Competitor, limit int) []Page {
	var pages []Page
	for _, c := range comps {
		if limit > 0 && len(pages) >= limit {
			break
		}
		if !c.Recommended || c.URL == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		log := zap.L().With(zap.String("domain", c.Domain), zap.String("url", c.URL))
		body, contentType, err := s.fetcher.Fetch(ctx, c.URL)
		if err != nil {
			log.Warn("competitor: fetch failed", zap.Error(err))
			continue
		}
		p, err := ParsePage(body, contentType)
		if err != nil {
			log.Warn("competitor: parse failed", zap.Error(err))
			continue
		}
		p.URL, p.Domain, p.Position = c.URL, c.Domain, c.Position
		log.Debug("competitor: page scraped", zap.Int("h1", len(p.H1)), zap.Int("h2", len(p.H2)))
		pages = append(pages, *p)
	}
	zap.L().Info("competitor: pages scraped", zap.Int("pages", len(pages)))
	return pages
}

// Enrich fills empty competitor titles and descriptions from scraped pages.
func Enrich(comps []model.Competitor, pages []Page) {
	byDomain := make(map[string]Page, len(pages))
	for _, p := range pages {
		byDomain[p.Domain] = p
	}
	for i := range comps {
		p, ok := byDomain[comps[i].Domain]
		if !ok {
			continue
		}
		if comps[i].Title == "" {
			comps[i].Title = p.Title
		}
		if comps[i].Description == "" {
			comps[i].Description = p.Description
		}
	}
}

// HeadingKeywords turns headings that mention the niche into keywords. The
// keyword carries the competitor's SERP position.
func HeadingKeywords(pages []Page, niche string) []model.Keyword {
	nicheKey := model.NormalizeKey(niche)
	if nicheKey == "" {
		return nil
	}

	seen := map[string]bool{}
	var out []model.Keyword
	for _, p := range pages {
		for _, h := range p.Headings() {
			text := strings.Trim(h, " .:!?¿¡|-")
			key := model.NormalizeKey(text)
			if !strings.Contains(key, nicheKey) || seen[key] {
				continue
			}
			if len(strings.Fields(key)) > maxHeadingWords {
				continue
			}
			kw, err := model.NewKeyword(text, model.SourceCompetitorScrape)
			if err != nil {
				continue
			}
			seen[key] = true
			kw.Position = p.Position
			out = append(out, kw)
		}
	}
	return out
}

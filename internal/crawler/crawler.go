// Package crawler fetches web pages for URL ingestion. It collects the
// visible text of a page (and optionally same-domain pages linked from it)
// so the result can be chunked and embedded like any other document.
package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	colly "github.com/gocolly/colly/v2"
)

// Page is the extracted text of one crawled URL.
type Page struct {
	URL   string
	Title string
	Text  string
}

type Config struct {
	MaxPages int // pages fetched per crawl, including the start URL
	MaxDepth int
	Timeout  time.Duration
}

func DefaultConfig() Config {
	return Config{MaxPages: 1, MaxDepth: 1, Timeout: 30 * time.Second}
}

// Crawl fetches startURL and, when MaxPages allows, same-domain pages linked
// from it. Pages with no extractable text are skipped.
func Crawl(startURL string, cfg Config) ([]Page, error) {
	parsed, err := url.Parse(startURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid url %q", startURL)
	}
	if cfg.MaxPages < 1 {
		cfg.MaxPages = 1
	}
	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = 1
	}

	// Colly matches allowed domains against the hostname without the port.
	host := parsed.Hostname()
	c := colly.NewCollector(
		colly.AllowedDomains(host, "www."+host),
		colly.MaxDepth(cfg.MaxDepth),
	)
	c.SetRequestTimeout(cfg.Timeout)

	var pages []Page
	var crawlErr error

	c.OnHTML("html", func(e *colly.HTMLElement) {
		if len(pages) >= cfg.MaxPages {
			return
		}
		title := strings.TrimSpace(e.DOM.Find("title").First().Text())
		text := extractVisibleText(e.DOM)
		if text == "" {
			return
		}
		pages = append(pages, Page{
			URL:   e.Request.URL.String(),
			Title: title,
			Text:  text,
		})
	})

	if cfg.MaxPages > 1 {
		c.OnHTML("a[href]", func(e *colly.HTMLElement) {
			if len(pages) >= cfg.MaxPages {
				return
			}
			_ = e.Request.Visit(e.Attr("href"))
		})
	}

	c.OnError(func(r *colly.Response, err error) {
		if crawlErr == nil {
			crawlErr = fmt.Errorf("fetch %s: %w", r.Request.URL, err)
		}
	})

	if err := c.Visit(startURL); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", startURL, err)
	}
	c.Wait()

	if len(pages) == 0 {
		if crawlErr != nil {
			return nil, crawlErr
		}
		return nil, fmt.Errorf("no extractable text at %s", startURL)
	}
	return pages, nil
}

// extractVisibleText strips script/style/nav noise and collapses the
// remaining text node content into paragraph-separated plain text.
func extractVisibleText(doc *goquery.Selection) string {
	sel := doc.Clone()
	sel.Find("script, style, noscript, nav, header, footer, iframe").Remove()

	var parts []string
	sel.Find("h1, h2, h3, h4, h5, h6, p, li, td, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		t := strings.TrimSpace(s.Text())
		if t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(sel.Text())
	}
	return strings.Join(parts, "\n\n")
}

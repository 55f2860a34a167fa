package crawler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Sample Page</title><style>body { color: red; }</style></head>
<body>
<nav><a href="/ignored">menu link</a></nav>
<h1>Heading</h1>
<p>First paragraph of the body.</p>
<script>console.log("not text");</script>
<ul><li>item one</li><li>item two</li></ul>
<footer>footer boilerplate</footer>
</body>
</html>`

func TestExtractVisibleText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(samplePage))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	text := extractVisibleText(doc.Selection)

	for _, want := range []string{"Heading", "First paragraph of the body.", "item one", "item two"} {
		if !strings.Contains(text, want) {
			t.Fatalf("extracted text missing %q:\n%s", want, text)
		}
	}
	for _, unwanted := range []string{"console.log", "color: red", "menu link", "footer boilerplate"} {
		if strings.Contains(text, unwanted) {
			t.Fatalf("extracted text contains noise %q:\n%s", unwanted, text)
		}
	}
	if !strings.Contains(text, "Heading\n\nFirst paragraph") {
		t.Fatalf("blocks not paragraph-separated:\n%s", text)
	}
}

func TestExtractVisibleTextPlainBody(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body>bare text only</body></html>"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := extractVisibleText(doc.Selection); got != "bare text only" {
		t.Fatalf("got %q", got)
	}
}

func TestCrawlSinglePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	pages, err := Crawl(srv.URL, DefaultConfig())
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if pages[0].Title != "Sample Page" {
		t.Fatalf("title = %q", pages[0].Title)
	}
	if !strings.Contains(pages[0].Text, "First paragraph of the body.") {
		t.Fatalf("page text missing body content:\n%s", pages[0].Text)
	}
}

func TestCrawlInvalidURL(t *testing.T) {
	for _, u := range []string{"", "not a url", "/relative/only"} {
		if _, err := Crawl(u, DefaultConfig()); err == nil {
			t.Fatalf("Crawl(%q) succeeded, want error", u)
		}
	}
}

func TestCrawlFollowsLinksUpToMaxPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Index</title></head><body><p>index page</p><a href="/second">next</a></body></html>`))
	})
	mux.HandleFunc("/second", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><title>Second</title></head><body><p>second page</p></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	pages, err := Crawl(srv.URL, Config{MaxPages: 2, MaxDepth: 2, Timeout: DefaultConfig().Timeout})
	if err != nil {
		t.Fatalf("Crawl: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("got %d pages, want 2", len(pages))
	}
}

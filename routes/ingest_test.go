package routes

import (
	"testing"

	"rag-backend/models"
)

func TestCrawlConfigDerivation(t *testing.T) {
	cases := []struct {
		name               string
		maxPages, maxDepth int
		wantPages, wantDepth int
	}{
		{"defaults", 0, 0, 1, 1},
		{"single page stays shallow", 1, 0, 1, 1},
		{"multi page implies depth 2", 5, 0, 5, 2},
		{"explicit depth wins", 5, 3, 5, 3},
		{"explicit depth on single page", 1, 2, 1, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := crawlConfig(models.IngestURLRequest{
				URL:      "https://example.com",
				MaxPages: tc.maxPages,
				MaxDepth: tc.maxDepth,
			})
			if cfg.MaxPages != tc.wantPages || cfg.MaxDepth != tc.wantDepth {
				t.Fatalf("crawlConfig(pages=%d, depth=%d) = (pages=%d, depth=%d), want (pages=%d, depth=%d)",
					tc.maxPages, tc.maxDepth, cfg.MaxPages, cfg.MaxDepth, tc.wantPages, tc.wantDepth)
			}
		})
	}
}

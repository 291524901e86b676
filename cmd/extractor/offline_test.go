package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/aluiziolira/go-scrape-products/bundle"
	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/pipeline"
	"github.com/aluiziolira/go-scrape-products/scraper"
)

type memoryWriter struct {
	mu       sync.Mutex
	products []*models.Product
}

func (w *memoryWriter) Write(products []*models.Product) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.products = append(w.products, products...)
	return nil
}

func (w *memoryWriter) Close() error    { return nil }
func (w *memoryWriter) Validate() error { return nil }

const bundleLines = `{"url": "https://a.test/p/1", "data": {"json-ld": [{"@type": "Product", "name": "Desk Lamp", "sku": "L1", "offers": {"price": "19.99", "priceCurrency": "USD", "availability": "InStock"}}]}}
not json

{"url": "https://b.test/item", "origin": "b.test", "data": {"json-ld": [{"@type": "Product", "name": "Desk Lamp", "sku": "L1", "description": "Brass, 40cm", "offers": {"price": "19.99", "priceCurrency": "USD"}}]}}
{"url": "https://c.test/about", "data": {"json-ld": [{"@type": "Organization", "name": "C"}]}}
`

func TestRunOffline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pages.jsonl")
	if err := os.WriteFile(path, []byte(bundleLines), 0o644); err != nil {
		t.Fatalf("write bundles: %v", err)
	}

	cfg := config.DefaultConfig()
	writer := &memoryWriter{}
	p := pipeline.NewPipeline(context.Background(), writer, cfg)
	p.Start(2)

	result, err := runOffline(context.Background(), path, cfg, scraper.NewMetrics(), p)
	if err != nil {
		t.Fatalf("run offline: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if result.PageCount != 3 || result.ExtractedURLs != 2 || result.MissedURLs != 1 {
		t.Fatalf("pages/extracted/missed = %d/%d/%d, want 3/2/1", result.PageCount, result.ExtractedURLs, result.MissedURLs)
	}
	if result.ErrorsByType["decode"] != 1 || len(result.FailedURLs) != 1 || !strings.HasSuffix(result.FailedURLs[0], ":2") {
		t.Fatalf("decode errors = %v, failed = %v", result.ErrorsByType, result.FailedURLs)
	}
	if result.WinsBySyntax["json-ld"] != 2 {
		t.Fatalf("wins = %v", result.WinsBySyntax)
	}

	if len(writer.products) != 1 {
		t.Fatalf("written = %d, want both lamps merged into one", len(writer.products))
	}
	if got := writer.products[0].Description.Text; got != "Brass, 40cm" {
		t.Fatalf("description = %q, want the richer record", got)
	}
}

func TestRunOfflineMissingFile(t *testing.T) {
	p := pipeline.NewPipeline(context.Background(), &memoryWriter{}, config.DefaultConfig())
	if _, err := runOffline(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"), config.DefaultConfig(), nil, p); err == nil {
		t.Fatalf("expected an open error")
	}
}

func TestPageOrigin(t *testing.T) {
	tests := []struct {
		page bundle.Page
		want string
	}{
		{page: bundle.Page{URL: "https://Shop.test:8443/p/1", Origin: "feed-1"}, want: "feed-1"},
		{page: bundle.Page{URL: "https://shop.test:8443/p/1"}, want: "shop.test"},
		{page: bundle.Page{URL: "not a url"}, want: "not a url"},
	}
	for _, tt := range tests {
		if got := pageOrigin(tt.page); got != tt.want {
			t.Fatalf("pageOrigin(%+v) = %q, want %q", tt.page, got, tt.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" json-ld, ,microdata,")
	if len(got) != 2 || got[0] != "json-ld" || got[1] != "microdata" {
		t.Fatalf("splitList = %v", got)
	}
	if splitList("") != nil {
		t.Fatalf("empty input should give nil")
	}
}

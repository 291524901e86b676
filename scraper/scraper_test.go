package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/dedup"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/pipeline"
	"github.com/jarcoal/httpmock"
)

const baseURL = "http://example.test/"

func noopVisit() error { return nil }

func TestRetryManagerScheduleRespectsLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Hour
	cfg.RetryBackoffMax = time.Hour

	rm := newRetryManager(cfg, NewMetrics())

	if !rm.Schedule("http://example.com/page", noopVisit) {
		t.Fatalf("first retry should be scheduled")
	}
	if !rm.Schedule("http://example.com/page", noopVisit) {
		t.Fatalf("second retry should be scheduled")
	}
	if rm.Schedule("http://example.com/page", noopVisit) {
		t.Fatalf("third retry should not be scheduled")
	}

	rm.Stop()
	if got := rm.TotalRetries(); got != 2 {
		t.Fatalf("total retries = %d, want 2", got)
	}
	if rm.Schedule("http://example.com/other", noopVisit) {
		t.Fatalf("stopped manager must not schedule")
	}
}

func TestRetryManagerDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxRetries = 0

	rm := newRetryManager(cfg, nil)
	if rm.Schedule("http://example.com/page", noopVisit) {
		t.Fatalf("retries are disabled")
	}
}

func TestRetryManagerWaitRunsVisit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.MaxRetries = 1
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = time.Millisecond

	rm := newRetryManager(cfg, nil)
	var visits int32
	if !rm.Schedule("http://example.com/page", func() error {
		atomic.AddInt32(&visits, 1)
		return errors.New("still down")
	}) {
		t.Fatalf("retry should be scheduled")
	}

	if !rm.Wait() {
		t.Fatalf("wait should report a fired retry")
	}
	if got := atomic.LoadInt32(&visits); got != 1 {
		t.Fatalf("visits = %d, want 1", got)
	}
	if rm.Wait() {
		t.Fatalf("second wait should report nothing new")
	}
}

func TestRetryManagerStopReleasesWait(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RetryBackoff = time.Hour
	cfg.RetryBackoffMax = time.Hour

	rm := newRetryManager(cfg, nil)
	rm.Schedule("http://example.com/page", func() error {
		t.Errorf("stopped retry must not run")
		return nil
	})

	done := make(chan bool)
	go func() { done <- rm.Wait() }()
	rm.Stop()

	select {
	case fired := <-done:
		if fired {
			t.Fatalf("nothing should have fired")
		}
	case <-time.After(time.Second):
		t.Fatalf("wait did not return after stop")
	}
}

func TestRetryManagerBackoffCapped(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RetryBackoff = 200 * time.Millisecond
	cfg.RetryBackoffMax = 500 * time.Millisecond

	rm := newRetryManager(cfg, NewMetrics())

	if got := rm.backoff(1); got != 200*time.Millisecond {
		t.Fatalf("first delay = %v, want 200ms", got)
	}
	if got := rm.backoff(2); got != 400*time.Millisecond {
		t.Fatalf("second delay = %v, want 400ms", got)
	}
	if delay := rm.backoff(4); delay != cfg.RetryBackoffMax {
		t.Fatalf("delay %v, want capped at %v", delay, cfg.RetryBackoffMax)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
		retryable  bool
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown", retryable: true},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout", retryable: true},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout", retryable: true},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection", retryable: true},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited", retryable: true},
		{name: "server error", err: errors.New("Bad Gateway"), statusCode: http.StatusBadGateway, expected: "server_error", retryable: true},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other", retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyError(tt.err, tt.statusCode)
			if got := errorTypeLabel(classified); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
			if got := isRetryable(classified); got != tt.retryable {
				t.Fatalf("isRetryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestErrServerUnwraps(t *testing.T) {
	cause := errors.New("upstream down")
	err := error(ErrServer{Status: 503, Err: cause})
	if !errors.Is(err, cause) {
		t.Fatalf("ErrServer must unwrap to its cause")
	}
	if got := err.Error(); got != "server_error (503): upstream down" {
		t.Fatalf("message = %q", got)
	}
}

func TestNewScraperRequiresSeeds(t *testing.T) {
	cfg := config.DefaultConfig()
	if _, err := NewScraper(cfg); err == nil {
		t.Fatalf("expected an error without seeds")
	}

	cfg.Seeds = []string{"ftp://example.test/"}
	if _, err := NewScraper(cfg); err == nil {
		t.Fatalf("expected an error for a non-http seed")
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Seeds = []string{baseURL}
	cfg.MaxPages = 1
	cfg.Parallelism = 1
	cfg.MaxRetries = 0
	cfg.PipelineBufferSize = 16
	cfg.BatchSize = 1
	return cfg
}

func runScraper(t *testing.T, cfg *config.Config, transport http.RoundTripper) (*models.CrawlResult, *collectingWriter) {
	t.Helper()

	s, err := NewScraper(cfg)
	if err != nil {
		t.Fatalf("new scraper: %v", err)
	}
	s.collector.WithTransport(transport)

	writer := &collectingWriter{}
	p := pipeline.NewPipeline(context.Background(), writer, cfg)
	p.Start(2)

	result, err := s.Run(context.Background(), p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close pipeline: %v", err)
	}
	return result, writer
}

func TestScraperHTTPStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: http.StatusTooManyRequests, expected: "rate_limited"},
		{status: http.StatusForbidden, expected: "forbidden"},
		{status: http.StatusNotFound, expected: "not_found"},
		{status: http.StatusServiceUnavailable, expected: "server_error"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			cfg := testConfig()

			transport := httpmock.NewMockTransport()
			responder := httpmock.NewStringResponder(tt.status, "")
			transport.RegisterResponder("GET", baseURL, responder)
			transport.RegisterResponder("GET", strings.TrimSuffix(baseURL, "/"), responder)

			result, writer := runScraper(t, cfg, transport)

			if got := result.ErrorsByType[tt.expected]; got == 0 {
				t.Fatalf("expected %q classification for status %d, got %v", tt.expected, tt.status, result.ErrorsByType)
			}
			if len(result.FailedURLs) != 1 {
				t.Fatalf("failed urls = %v, want the seed", result.FailedURLs)
			}
			if writer.Count() != 0 {
				t.Fatalf("no product expected from an error page")
			}
		})
	}
}

func TestScraperRetriesServerError(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 5 * time.Millisecond

	var calls int32
	page := jsonLDPage("Retry Lamp", "L-1", "12.50", "")
	responder := func(*http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return httpmock.NewStringResponse(http.StatusBadGateway, "down"), nil
		}
		resp := httpmock.NewStringResponse(http.StatusOK, page)
		resp.Header.Set("Content-Type", "text/html")
		return resp, nil
	}

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", baseURL, responder)
	transport.RegisterResponder("GET", strings.TrimSuffix(baseURL, "/"), responder)

	result, writer := runScraper(t, cfg, transport)

	if result.RetryCount != 1 {
		t.Fatalf("retries = %d, want 1", result.RetryCount)
	}
	if len(result.FailedURLs) != 0 {
		t.Fatalf("failed urls = %v, want none after a successful retry", result.FailedURLs)
	}
	products := writer.All()
	if len(products) != 1 || products[0].Title.Text != "Retry Lamp" {
		t.Fatalf("products = %+v, want the retried lamp", products)
	}
}

func TestScraper_Integration(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPages = 3
	cfg.Parallelism = 4
	cfg.PipelineBufferSize = 128
	cfg.BatchSize = 64
	cfg.DedupeMaxSize = 1000

	transport := httpmock.NewMockTransport()
	page1 := htmlResponder(jsonLDPage("Vintage Medal Set", "A1023", "275.00", "page-2.html"))
	transport.RegisterResponder("GET", baseURL, page1)
	transport.RegisterResponder("GET", strings.TrimSuffix(baseURL, "/"), page1)
	transport.RegisterResponder("GET", baseURL+"page-2.html", htmlResponder(microdataPage("Brass Desk Lamp", "B77", "49.90", "page-3.html")))
	transport.RegisterResponder("GET", baseURL+"page-3.html", htmlResponder(`<html><body><p>Nothing structured here.</p></body></html>`))

	result, writer := runScraper(t, cfg, transport)

	if result.PageCount != 3 {
		t.Fatalf("pages = %d, want 3 (requests=%d errors=%d failed=%v)", result.PageCount, result.RequestCount, result.ErrorCount, result.FailedURLs)
	}
	if result.ExtractedURLs != 2 || result.MissedURLs != 1 {
		t.Fatalf("extracted/missed = %d/%d, want 2/1", result.ExtractedURLs, result.MissedURLs)
	}
	if result.WinsBySyntax["json-ld"] != 1 || result.WinsBySyntax["microdata"] != 1 {
		t.Fatalf("wins = %v, want one json-ld and one microdata", result.WinsBySyntax)
	}
	if result.TotalCount != 2 {
		t.Fatalf("total = %d, want 2", result.TotalCount)
	}

	products := writer.All()
	sort.Slice(products, func(i, j int) bool { return products[i].ShopsItemID < products[j].ShopsItemID })
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}

	medal := products[0]
	if medal.ShopsItemID != "A1023" || medal.Title.Text != "Vintage Medal Set" {
		t.Fatalf("first product = %+v", medal)
	}
	if medal.Price.Amount != 27500 || medal.Price.Currency != "EUR" {
		t.Fatalf("medal price = %+v, want 27500 EUR", medal.Price)
	}
	if medal.State != models.StateAvailable {
		t.Fatalf("medal state = %q", medal.State)
	}
	if medal.ShopID != dedup.ShopID("example.test") {
		t.Fatalf("shop id = %q, want derived from the page host", medal.ShopID)
	}

	lamp := products[1]
	if lamp.ShopsItemID != "B77" || lamp.Price.Amount != 4990 {
		t.Fatalf("second product = %+v", lamp)
	}
	if lamp.URL != baseURL+"page-2.html" {
		t.Fatalf("lamp url = %q", lamp.URL)
	}
}

type collectingWriter struct {
	mu       sync.Mutex
	products []*models.Product
}

func (cw *collectingWriter) Write(products []*models.Product) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.products = append(cw.products, products...)
	return nil
}

func (cw *collectingWriter) Close() error {
	return nil
}

func (cw *collectingWriter) Validate() error {
	return nil
}

func (cw *collectingWriter) Count() int {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return len(cw.products)
}

func (cw *collectingWriter) All() []*models.Product {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	out := make([]*models.Product, len(cw.products))
	copy(out, cw.products)
	return out
}

type benchWriter struct {
	mu    sync.Mutex
	count int
}

func (bw *benchWriter) Write(products []*models.Product) error {
	bw.mu.Lock()
	bw.count += len(products)
	bw.mu.Unlock()
	return nil
}

func (bw *benchWriter) Close() error {
	return nil
}

func (bw *benchWriter) Validate() error {
	return nil
}

func BenchmarkPipeline_Throughput(b *testing.B) {
	cfg := config.DefaultConfig()
	cfg.PipelineBufferSize = 1024
	cfg.BatchSize = 64
	cfg.DedupeMaxSize = 5000000

	for _, workers := range []int{4, 8, 16, 32} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			writer := &benchWriter{}
			p := pipeline.NewPipeline(context.Background(), writer, cfg)
			p.Start(workers)

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				product := &models.Product{
					ShopsItemID: fmt.Sprintf("SKU-%d", i),
					Title:       models.LocalizedText{Text: fmt.Sprintf("Benchmark Lamp %d", i), Language: "en"},
					Description: models.LocalizedText{Language: models.UnknownLanguage},
					Price:       models.Money{Currency: "EUR", Amount: 1000},
					State:       models.StateAvailable,
					URL:         fmt.Sprintf("http://example.test/p/%d", i),
				}
				if err := p.Process("example.test", product); err != nil {
					b.Fatalf("process: %v", err)
				}
			}
			b.StopTimer()
			if err := p.Close(); err != nil {
				b.Fatalf("close: %v", err)
			}
			elapsed := b.Elapsed().Seconds()
			if elapsed > 0 {
				b.ReportMetric(float64(b.N)/elapsed, "items/sec")
			}
		})
	}
}

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(200, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func nextLink(next string) string {
	if next == "" {
		return ""
	}
	return fmt.Sprintf(`<link rel="next" href="%s">`, next)
}

func jsonLDPage(title, sku, price, next string) string {
	return fmt.Sprintf(`<html lang="en"><head>%s
<script type="application/ld+json">
{"@context": "https://schema.org", "@type": "Product", "name": %q, "sku": %q,
 "offers": {"@type": "Offer", "price": %q, "priceCurrency": "EUR", "availability": "https://schema.org/InStock"}}
</script></head><body><h1>%s</h1></body></html>`, nextLink(next), title, sku, price, title)
}

func microdataPage(title, sku, price, next string) string {
	var builder strings.Builder
	builder.WriteString(`<html lang="en"><body><div itemscope itemtype="https://schema.org/Product">`)
	fmt.Fprintf(&builder, `<h1 itemprop="name">%s</h1><meta itemprop="sku" content="%s">`, title, sku)
	builder.WriteString(`<div itemprop="offers" itemscope itemtype="https://schema.org/Offer">`)
	fmt.Fprintf(&builder, `<span itemprop="price" content="%s">%s</span>`, price, price)
	builder.WriteString(`<meta itemprop="priceCurrency" content="EUR"><link itemprop="availability" href="https://schema.org/InStock">`)
	builder.WriteString(`</div></div>`)
	if next != "" {
		fmt.Fprintf(&builder, `<a rel="next" href="%s">next</a>`, next)
	}
	builder.WriteString(`</body></html>`)
	return builder.String()
}

// Package scraper crawls product pages with colly and extracts one
// canonical product per page.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-products/bundle"
	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/htmldata"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/pipeline"
	"github.com/aluiziolira/go-scrape-products/strategy"
	"github.com/gocolly/colly/v2"
)

const nextPageSelector = `a[rel~="next"], link[rel~="next"]`

// Scraper drives a colly collector over the seed URLs and hands the product
// selected on each page to a pipeline.
type Scraper struct {
	cfg       *config.Config
	collector *colly.Collector
	retry     *retryManager
	selector  *strategy.Selector
	Metrics   *Metrics

	stats crawlStats

	handlersOnce sync.Once
}

// crawlStats accumulates the counters reported in CrawlResult.
type crawlStats struct {
	requests  atomic.Int64
	pages     atomic.Int64
	errors    atomic.Int64
	extracted atomic.Int64
	missed    atomic.Int64

	mu       sync.Mutex
	failed   []string
	byType   map[string]int
	bySyntax map[string]int
}

func (cs *crawlStats) fail(url string) {
	cs.mu.Lock()
	cs.failed = append(cs.failed, url)
	cs.mu.Unlock()
}

func (cs *crawlStats) count(m map[string]int, key string) {
	cs.mu.Lock()
	m[key]++
	cs.mu.Unlock()
}

func (cs *crawlStats) fill(result *models.CrawlResult) {
	result.RequestCount = int(cs.requests.Load())
	result.PageCount = int(cs.pages.Load())
	result.ErrorCount = int(cs.errors.Load())
	result.ExtractedURLs = int(cs.extracted.Load())
	result.MissedURLs = int(cs.missed.Load())

	cs.mu.Lock()
	defer cs.mu.Unlock()
	result.FailedURLs = append([]string(nil), cs.failed...)
	result.ErrorsByType = copyCounts(cs.byType)
	result.WinsBySyntax = copyCounts(cs.bySyntax)
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// NewScraper builds a scraper for cfg.Seeds. Options are applied to the
// selector after the ones derived from cfg.
func NewScraper(cfg *config.Config, opts ...strategy.Option) (*Scraper, error) {
	if err := cfg.ValidateSeeds(); err != nil {
		return nil, fmt.Errorf("seeds: %w", err)
	}

	collector, err := newCollector(cfg)
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics()
	selectorOpts := append([]strategy.Option{
		strategy.WithObserver(metrics),
		strategy.WithSiblingMerge(cfg.MergeSiblings),
		strategy.WithLogger(slog.Default()),
	}, opts...)

	return &Scraper{
		cfg:       cfg,
		collector: collector,
		retry:     newRetryManager(cfg, metrics),
		selector:  strategy.NewSelector(selectorOpts...),
		Metrics:   metrics,
		stats: crawlStats{
			byType:   make(map[string]int),
			bySyntax: make(map[string]int),
		},
	}, nil
}

// newCollector restricts crawling to the seed hosts and applies the
// transport and rate limits from cfg.
func newCollector(cfg *config.Config) (*colly.Collector, error) {
	c := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(cfg.SeedHosts()...),
		colly.UserAgent(cfg.UserAgent),
	)
	c.SetRequestTimeout(cfg.Timeout)
	c.IgnoreRobotsTxt = !cfg.RespectRobotsTxt

	dialer := &net.Dialer{Timeout: cfg.Timeout, KeepAlive: 30 * time.Second}
	c.WithTransport(&http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: cfg.Parallelism,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	rule := &colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}
	if err := c.Limit(rule); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}
	return c, nil
}

// Run visits every seed, follows rel=next pagination up to MaxPages and
// streams the selected products through p. It fails only when no seed
// could be visited at all.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.CrawlResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.retry.SetContext(ctx)
	s.handlersOnce.Do(func() { s.register(ctx, p) })

	result := &models.CrawlResult{StartTime: time.Now()}

	stopWatch := context.AfterFunc(ctx, func() {
		s.retry.Stop()
	})
	defer stopWatch()

	var skipped []error
	for _, seed := range s.cfg.Seeds {
		if err := s.collector.Visit(seed); err != nil {
			skipped = append(skipped, fmt.Errorf("visit %s: %w", seed, err))
		}
	}
	if len(skipped) == len(s.cfg.Seeds) {
		return nil, fmt.Errorf("initial visit: %w", errors.Join(skipped...))
	}
	for _, err := range skipped {
		slog.Warn("seed skipped", slog.Any("error", err))
	}

	// Retries re-enter the collector after their backoff, so keep waiting
	// until a pass ends with none fired.
	for {
		s.collector.Wait()
		if !s.retry.Wait() {
			break
		}
	}
	s.retry.Stop()

	result.EndTime = time.Now()
	s.stats.fill(result)
	result.RetryCount = s.retry.TotalRetries()
	if processed, ok := p.GetMetrics()["processed_products"].(int64); ok {
		result.TotalCount = int(processed)
	}
	return result, nil
}

func (s *Scraper) register(ctx context.Context, p *pipeline.Pipeline) {
	s.collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		r.Ctx.Put("start", time.Now())
		n := s.stats.requests.Add(1)
		s.Metrics.IncRequest("started")
		if n%50 == 0 {
			slog.Debug("crawl progress",
				slog.Int64("requests", n),
				slog.Int64("pages", s.stats.pages.Load()),
				slog.String("url", r.URL.String()),
			)
		}
	})

	s.collector.OnResponse(func(r *colly.Response) {
		s.Metrics.IncRequest("completed")
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			s.Metrics.ObserveDuration(time.Since(start))
		}
	})

	s.collector.OnError(s.handleError)

	s.collector.OnHTML("html", func(e *colly.HTMLElement) {
		s.stats.pages.Add(1)
		s.extract(e, p)
	})

	s.collector.OnHTML(nextPageSelector, func(e *colly.HTMLElement) {
		if ctx.Err() != nil || s.stats.pages.Load() >= int64(s.cfg.MaxPages) {
			return
		}
		next := e.Request.AbsoluteURL(e.Attr("href"))
		if next == "" {
			return
		}
		if err := s.collector.Visit(next); err != nil && !errors.Is(err, colly.ErrAlreadyVisited) {
			slog.Debug("pagination visit skipped", slog.String("url", next), slog.Any("error", err))
		}
	})
}

// handleError classifies a failed request and schedules a retry when the
// category allows it. URLs that are not retried are recorded as failed.
func (s *Scraper) handleError(r *colly.Response, err error) {
	s.stats.errors.Add(1)

	var (
		status int
		url    string
		retry  func() error
	)
	if r != nil {
		status = r.StatusCode
		if r.Request != nil {
			retry = r.Request.Retry
			if r.Request.URL != nil {
				url = r.Request.URL.String()
			}
		}
	}

	classified := classifyError(err, status)
	category := errorTypeLabel(classified)
	s.stats.count(s.stats.byType, category)
	s.Metrics.IncError(category)
	slog.Error("request failed",
		slog.String("url", url),
		slog.Int("status", status),
		slog.String("category", category),
		slog.Any("error", err),
	)

	if retry != nil && isRetryable(classified) && s.retry.Schedule(url, retry) {
		return
	}
	s.stats.fail(url)
}

// extract runs the selector over the structured data of one page and
// hands the winner to the pipeline under the page host.
func (s *Scraper) extract(e *colly.HTMLElement, p *pipeline.Pipeline) {
	pageURL := e.Request.URL.String()
	b := bundle.FromValue(htmldata.FromSelection(e.DOM, e.Request.URL))

	selectFn := s.selector.Select
	if s.cfg.ConcurrentStrategies {
		selectFn = s.selector.SelectConcurrent
	}
	sel := selectFn(b, pageURL, s.cfg.PreferredSyntaxes)
	if sel == nil {
		s.stats.missed.Add(1)
		slog.Debug("no product on page", slog.String("url", pageURL))
		return
	}

	s.stats.extracted.Add(1)
	s.stats.count(s.stats.bySyntax, string(sel.Syntax))
	s.Metrics.IncProducts()

	if err := p.Process(e.Request.URL.Hostname(), sel.Product); err != nil && !errors.Is(err, pipeline.ErrPipelineClosed) {
		slog.Error("pipeline process error", slog.String("url", pageURL), slog.Any("error", err))
	}
}

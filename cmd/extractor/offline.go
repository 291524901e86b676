package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-products/bundle"
	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/pipeline"
	"github.com/aluiziolira/go-scrape-products/scraper"
	"github.com/aluiziolira/go-scrape-products/strategy"
)

const maxPageLine = 16 << 20

// runOffline feeds JSONL page records through the selector and pipeline.
// Lines that fail to decode are logged and counted, not fatal.
func runOffline(ctx context.Context, path string, cfg *config.Config, metrics *scraper.Metrics, p *pipeline.Pipeline) (*models.CrawlResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundles: %w", err)
	}
	defer f.Close()

	selector := strategy.NewSelector(
		strategy.WithObserver(metrics),
		strategy.WithSiblingMerge(cfg.MergeSiblings),
		strategy.WithLogger(slog.Default()),
	)

	result := &models.CrawlResult{
		StartTime:    time.Now(),
		ErrorsByType: map[string]int{},
		WinsBySyntax: map[string]int{},
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxPageLine)
	line := 0
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}

		page, err := bundle.ParsePage(raw)
		if err != nil {
			result.ErrorCount++
			result.ErrorsByType["decode"]++
			result.FailedURLs = append(result.FailedURLs, fmt.Sprintf("%s:%d", path, line))
			slog.Warn("skipping page record", slog.Int("line", line), slog.Any("error", err))
			continue
		}
		result.PageCount++

		var sel *strategy.Selection
		if cfg.ConcurrentStrategies {
			sel = selector.SelectConcurrent(page.Bundle(), page.URL, cfg.PreferredSyntaxes)
		} else {
			sel = selector.Select(page.Bundle(), page.URL, cfg.PreferredSyntaxes)
		}
		if sel == nil {
			result.MissedURLs++
			continue
		}
		result.ExtractedURLs++
		result.WinsBySyntax[string(sel.Syntax)]++
		metrics.IncProducts()

		if err := p.Process(pageOrigin(page), sel.Product); err != nil {
			if errors.Is(err, pipeline.ErrPipelineClosed) || errors.Is(err, context.Canceled) {
				break
			}
			return nil, fmt.Errorf("process line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read bundles: %w", err)
	}

	result.EndTime = time.Now()
	if processed, ok := p.GetMetrics()["processed_products"].(int64); ok {
		result.TotalCount = int(processed)
	}
	return result, nil
}

// pageOrigin is the record's origin, or the host of its URL.
func pageOrigin(page bundle.Page) string {
	if page.Origin != "" {
		return page.Origin
	}
	if u, err := url.Parse(page.URL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return page.URL
}

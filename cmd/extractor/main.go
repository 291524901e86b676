package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/pipeline"
	"github.com/aluiziolira/go-scrape-products/scraper"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type flags struct {
	configPath        string
	bundles           string
	seeds             string
	syntaxes          string
	maxPages          int
	parallelism       int
	delayMs           int
	randomDelayMs     int
	maxRetries        int
	retryBackoffMs    int
	retryBackoffMaxMs int
	respectRobots     bool
	mergeSiblings     bool
	concurrent        bool
	outputFile        string
	outputFormat      string
	verbose           bool
	metricsAddr       string
}

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	defaults := config.DefaultConfig()
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Optional YAML or JSON config file")
	flag.StringVar(&f.bundles, "bundles", "", "Read pre-extracted pages from this JSONL file instead of crawling")
	flag.StringVar(&f.seeds, "seeds", "", "Comma-separated seed URLs to crawl")
	flag.StringVar(&f.syntaxes, "syntaxes", strings.Join(defaults.PreferredSyntaxes, ","), "Comma-separated syntax preference order")
	flag.IntVar(&f.maxPages, "pages", defaults.MaxPages, "Maximum pages to crawl")
	flag.IntVar(&f.parallelism, "parallel", defaults.Parallelism, "Number of concurrent requests and pipeline workers")
	flag.IntVar(&f.delayMs, "delay", 0, "Delay between requests (milliseconds)")
	flag.IntVar(&f.randomDelayMs, "random-delay", 0, "Random jitter added to delay (milliseconds)")
	flag.IntVar(&f.maxRetries, "max-retries", defaults.MaxRetries, "Maximum retry attempts per URL")
	flag.IntVar(&f.retryBackoffMs, "retry-backoff", int(defaults.RetryBackoff/time.Millisecond), "Initial retry backoff (milliseconds)")
	flag.IntVar(&f.retryBackoffMaxMs, "retry-backoff-max", int(defaults.RetryBackoffMax/time.Millisecond), "Maximum retry backoff (milliseconds)")
	flag.BoolVar(&f.respectRobots, "respect-robots", false, "Respect robots.txt directives")
	flag.BoolVar(&f.mergeSiblings, "merge-siblings", false, "Fill empty fields of the winner from other syntaxes on the page")
	flag.BoolVar(&f.concurrent, "concurrent", false, "Run extraction strategies concurrently")
	flag.StringVar(&f.outputFile, "output", defaults.OutputFile, "Output file path")
	flag.StringVar(&f.outputFormat, "format", defaults.OutputFormat, "Output format: csv, json, or dual")
	flag.BoolVar(&f.verbose, "v", false, "Enable verbose logging")
	flag.StringVar(&f.metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	flag.Parse()

	cfg, err := buildConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if unknown := cfg.UnknownSyntaxes(); len(unknown) > 0 {
		slog.Warn("ignoring unknown syntaxes", slog.Any("syntaxes", unknown))
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			slog.Error("close writer", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight work to finish")
	}()

	metrics := scraper.NewMetrics()
	var s *scraper.Scraper
	if f.bundles == "" {
		s, err = scraper.NewScraper(cfg)
		if err != nil {
			slog.Error("initialising scraper", slog.Any("error", err))
			os.Exit(1)
		}
		metrics = s.Metrics
	}

	metricsServer := startMetricsServer(cfg.MetricsAddr, metrics)

	p := pipeline.NewPipeline(ctx, writer, cfg)
	p.Start(cfg.Parallelism)
	if cfg.Verbose {
		p.StartMetricsReporting(10 * time.Second)
	}

	startTime := time.Now()
	var result *models.CrawlResult
	if s != nil {
		slog.Info("starting crawl",
			slog.Any("seeds", cfg.Seeds),
			slog.Int("pages", cfg.MaxPages),
			slog.Int("workers", cfg.Parallelism),
		)
		result, err = s.Run(ctx, p)
	} else {
		slog.Info("extracting from bundles", slog.String("path", f.bundles))
		result, err = runOffline(ctx, f.bundles, cfg, metrics, p)
	}
	if err != nil {
		slog.Error("extraction failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := p.Close(); err != nil {
		slog.Error("pipeline shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := writer.Validate(); err != nil {
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, time.Since(startTime), cfg.OutputFile, p.GetMetrics())
}

// buildConfig layers defaults, the config file, EXTRACTOR_* variables and
// explicitly set flags, in that order.
func buildConfig(f flags) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.configPath != "" {
		if err := config.LoadFile(f.configPath, cfg); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "seeds":
			cfg.Seeds = splitList(f.seeds)
		case "syntaxes":
			cfg.PreferredSyntaxes = splitList(f.syntaxes)
		case "pages":
			cfg.MaxPages = f.maxPages
		case "parallel":
			cfg.Parallelism = f.parallelism
		case "delay":
			cfg.Delay = time.Duration(f.delayMs) * time.Millisecond
		case "random-delay":
			cfg.RandomDelay = time.Duration(f.randomDelayMs) * time.Millisecond
		case "max-retries":
			cfg.MaxRetries = f.maxRetries
		case "retry-backoff":
			cfg.RetryBackoff = time.Duration(f.retryBackoffMs) * time.Millisecond
		case "retry-backoff-max":
			cfg.RetryBackoffMax = time.Duration(f.retryBackoffMaxMs) * time.Millisecond
		case "respect-robots":
			cfg.RespectRobotsTxt = f.respectRobots
		case "merge-siblings":
			cfg.MergeSiblings = f.mergeSiblings
		case "concurrent":
			cfg.ConcurrentStrategies = f.concurrent
		case "output":
			cfg.OutputFile = f.outputFile
		case "format":
			cfg.OutputFormat = strings.ToLower(f.outputFormat)
		case "v":
			cfg.Verbose = f.verbose
		case "metrics-addr":
			cfg.MetricsAddr = f.metricsAddr
		}
	})
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func startMetricsServer(addr string, metrics *scraper.Metrics) *http.Server {
	if addr == "" || metrics == nil {
		return nil
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	slog.Info("metrics server enabled", slog.String("addr", addr))
	return server
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "csv":
		return pipeline.NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return pipeline.NewDualWriter(filename, jsonFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.CrawlResult, duration time.Duration, outputFile string, metrics map[string]interface{}) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Extraction complete")

	processed, _ := metrics["processed_products"].(int64)
	unique, _ := metrics["unique_products"].(int64)
	itemsPerSec := 0.0
	if duration.Seconds() > 0 {
		itemsPerSec = float64(processed) / duration.Seconds()
	}

	fmt.Printf("  Pages:         %d\n", result.PageCount)
	fmt.Printf("  Extracted:     %d\n", result.ExtractedURLs)
	fmt.Printf("  No product:    %d\n", result.MissedURLs)
	if len(result.WinsBySyntax) > 0 {
		fmt.Printf("  Syntax wins:   %v\n", result.WinsBySyntax)
	}
	fmt.Printf("  Processed:     %d\n", processed)
	fmt.Printf("  Unique:        %d\n", unique)
	if result.RequestCount > 0 {
		successRate := float64(result.RequestCount-result.ErrorCount) / float64(result.RequestCount) * 100
		fmt.Printf("  Success rate:  %.2f%%\n", successRate)
		fmt.Printf("  Errors:        %d\n", result.ErrorCount)
		fmt.Printf("  Retries:       %d\n", result.RetryCount)
		fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
	}
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if valErrors, ok := metrics["validation_errors"].(map[string]int); ok && len(valErrors) > 0 {
		fmt.Printf("  Validation:    %v\n", valErrors)
	}
	if results, ok := metrics["dedup_results"].(map[string]int); ok && len(results) > 0 {
		fmt.Printf("  Dedup:         %v\n", results)
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Items/sec:     %.2f\n", itemsPerSec)
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

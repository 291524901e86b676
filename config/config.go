package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-products/bundle"
)

// Config holds extractor configuration.
type Config struct {
	Seeds            []string      `yaml:"seeds"`
	MaxPages         int           `yaml:"max_pages"`
	Parallelism      int           `yaml:"parallelism"`
	Delay            time.Duration `yaml:"delay"`
	RandomDelay      time.Duration `yaml:"random_delay"`
	Timeout          time.Duration `yaml:"timeout"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	RetryBackoffMax  time.Duration `yaml:"retry_backoff_max"`
	OutputFile       string        `yaml:"output_file"`
	OutputFormat     string        `yaml:"output_format"` // csv, json, or dual
	UserAgent        string        `yaml:"user_agent"`
	Verbose          bool          `yaml:"verbose"`
	RespectRobotsTxt bool          `yaml:"respect_robots_txt"`
	MetricsAddr      string        `yaml:"metrics_addr"`

	BatchSize          int           `yaml:"batch_size"`
	PipelineBufferSize int           `yaml:"pipeline_buffer_size"`
	DedupeMaxSize      int           `yaml:"dedupe_max_size"`
	DrainTimeout       time.Duration `yaml:"drain_timeout"`

	// PreferredSyntaxes orders the extraction strategies. Unknown names are
	// ignored by the selector.
	PreferredSyntaxes    []string `yaml:"preferred_syntaxes"`
	MergeSiblings        bool     `yaml:"merge_siblings"`
	ConcurrentStrategies bool     `yaml:"concurrent_strategies"`
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxPages:           50,
		Parallelism:        16,
		Delay:              0,
		RandomDelay:        0,
		Timeout:            10 * time.Second,
		MaxRetries:         2,
		RetryBackoff:       200 * time.Millisecond,
		RetryBackoffMax:    2 * time.Second,
		OutputFile:         "output/products.csv",
		OutputFormat:       "csv",
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:            false,
		RespectRobotsTxt:   false,
		BatchSize:          100,
		PipelineBufferSize: 1024,
		DedupeMaxSize:      100000,
		DrainTimeout:       30 * time.Second,
		PreferredSyntaxes:  syntaxNames(bundle.Syntaxes),
	}
}

// Validate ensures all configuration values are coherent. Seeds are only
// required when crawling; see ValidateSeeds.
func (c *Config) Validate() error {
	if c.MaxPages <= 0 {
		return fmt.Errorf("max pages must be positive")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.PipelineBufferSize < 0 {
		return fmt.Errorf("pipeline buffer size cannot be negative")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.DrainTimeout < 0 {
		return fmt.Errorf("drain timeout cannot be negative")
	}
	return nil
}

// ValidateSeeds checks that at least one seed is given and every seed is an
// absolute http(s) URL.
func (c *Config) ValidateSeeds() error {
	if len(c.Seeds) == 0 {
		return fmt.Errorf("at least one seed URL is required")
	}
	for _, seed := range c.Seeds {
		parsed, err := url.Parse(seed)
		if err != nil {
			return fmt.Errorf("invalid seed URL %q: %w", seed, err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("seed URL %q must include a host", seed)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("seed URL %q must use http or https", seed)
		}
	}
	return nil
}

// UnknownSyntaxes returns the preferred names the selector will ignore.
func (c *Config) UnknownSyntaxes() []string {
	var out []string
	for _, name := range c.PreferredSyntaxes {
		if _, ok := bundle.ParseSyntax(name); !ok {
			out = append(out, name)
		}
	}
	return out
}

// SeedHosts returns the distinct host names of the seed URLs, without ports.
func (c *Config) SeedHosts() []string {
	seen := make(map[string]bool, len(c.Seeds))
	var hosts []string
	for _, seed := range c.Seeds {
		parsed, err := url.Parse(seed)
		if err != nil || parsed.Host == "" {
			continue
		}
		host := strings.ToLower(parsed.Hostname())
		if !seen[host] {
			seen[host] = true
			hosts = append(hosts, host)
		}
	}
	return hosts
}

func syntaxNames(syntaxes []bundle.Syntax) []string {
	out := make([]string, len(syntaxes))
	for i, s := range syntaxes {
		out[i] = string(s)
	}
	return out
}

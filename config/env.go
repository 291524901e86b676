package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "EXTRACTOR_"

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvBool parses key with strconv.ParseBool.
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return b, true, nil
}

// EnvDuration parses key as a Go duration such as "250ms".
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

// EnvList splits key on commas, dropping empty entries.
func EnvList(key string) ([]string, bool) {
	value, ok := EnvString(key)
	if !ok {
		return nil, false
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out, len(out) > 0
}

// ApplyEnv overlays EXTRACTOR_* variables onto cfg.
func ApplyEnv(cfg *Config) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"PAGES", &cfg.MaxPages},
		{"PARALLEL", &cfg.Parallelism},
		{"MAX_RETRIES", &cfg.MaxRetries},
		{"BATCH_SIZE", &cfg.BatchSize},
		{"BUFFER_SIZE", &cfg.PipelineBufferSize},
		{"DEDUPE_MAX_SIZE", &cfg.DedupeMaxSize},
	}
	for _, e := range ints {
		v, ok, err := EnvInt(EnvPrefix + e.key)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = v
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"DELAY", &cfg.Delay},
		{"TIMEOUT", &cfg.Timeout},
		{"DRAIN_TIMEOUT", &cfg.DrainTimeout},
	}
	for _, e := range durations {
		v, ok, err := EnvDuration(EnvPrefix + e.key)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = v
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"MERGE_SIBLINGS", &cfg.MergeSiblings},
		{"CONCURRENT_STRATEGIES", &cfg.ConcurrentStrategies},
		{"RESPECT_ROBOTS", &cfg.RespectRobotsTxt},
	}
	for _, e := range bools {
		v, ok, err := EnvBool(EnvPrefix + e.key)
		if err != nil {
			return err
		}
		if ok {
			*e.dst = v
		}
	}

	if v, ok := EnvString(EnvPrefix + "OUTPUT"); ok {
		cfg.OutputFile = v
	}
	if v, ok := EnvString(EnvPrefix + "FORMAT"); ok {
		cfg.OutputFormat = strings.ToLower(v)
	}
	if v, ok := EnvString(EnvPrefix + "METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := EnvString(EnvPrefix + "USER_AGENT"); ok {
		cfg.UserAgent = v
	}
	if v, ok := EnvList(EnvPrefix + "SEEDS"); ok {
		cfg.Seeds = v
	}
	if v, ok := EnvList(EnvPrefix + "SYNTAXES"); ok {
		cfg.PreferredSyntaxes = v
	}
	return nil
}

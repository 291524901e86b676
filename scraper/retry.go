package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-products/config"
)

const defaultRetryBackoff = 100 * time.Millisecond

// retryManager re-runs failed requests after a capped exponential backoff.
// Wait lets the crawler block until every scheduled retry has fired.
type retryManager struct {
	maxRetries int
	base       time.Duration
	limit      time.Duration
	metrics    *Metrics

	mu       sync.Mutex
	cond     *sync.Cond
	ctx      context.Context
	attempts map[string]int
	timers   map[string]*time.Timer
	pending  int
	fired    int
	total    int
	stopped  bool
}

func newRetryManager(cfg *config.Config, metrics *Metrics) *retryManager {
	rm := &retryManager{
		maxRetries: cfg.MaxRetries,
		base:       cfg.RetryBackoff,
		limit:      cfg.RetryBackoffMax,
		metrics:    metrics,
		ctx:        context.Background(),
		attempts:   make(map[string]int),
		timers:     make(map[string]*time.Timer),
	}
	if rm.base <= 0 {
		rm.base = defaultRetryBackoff
	}
	rm.cond = sync.NewCond(&rm.mu)
	return rm
}

// Schedule arranges for visit to run after the backoff for url. It reports
// false once url has used its retries or the manager is stopped.
func (rm *retryManager) Schedule(url string, visit func() error) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.maxRetries <= 0 || rm.stopped || rm.ctx.Err() != nil {
		return false
	}
	attempt := rm.attempts[url] + 1
	if attempt > rm.maxRetries {
		return false
	}
	rm.attempts[url] = attempt
	rm.total++
	rm.metrics.IncRetries()

	if old, ok := rm.timers[url]; ok && old.Stop() {
		rm.pending--
	}
	var timer *time.Timer
	timer = time.AfterFunc(rm.backoff(attempt), func() {
		rm.fire(url, func() *time.Timer { return timer }, visit)
	})
	rm.timers[url] = timer
	rm.pending++
	return true
}

// backoff doubles the base delay per attempt, capped at the configured max.
func (rm *retryManager) backoff(attempt int) time.Duration {
	delay := rm.base << max(attempt-1, 0)
	if rm.limit > 0 && (delay > rm.limit || delay <= 0) {
		return rm.limit
	}
	return delay
}

// fire runs visit unless the manager was stopped. self is read under the
// lock since the timer is assigned after AfterFunc returns.
func (rm *retryManager) fire(url string, self func() *time.Timer, visit func() error) {
	rm.mu.Lock()
	run := !rm.stopped && rm.ctx.Err() == nil
	rm.mu.Unlock()

	if run {
		if err := visit(); err != nil {
			slog.Debug("retry visit failed", slog.String("url", url), slog.Any("error", err))
		}
	}

	rm.mu.Lock()
	if rm.timers[url] == self() {
		delete(rm.timers, url)
	}
	rm.pending--
	rm.fired++
	rm.cond.Broadcast()
	rm.mu.Unlock()
}

// Wait blocks until no retry is pending and reports whether any fired
// since the previous call.
func (rm *retryManager) Wait() bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for rm.pending > 0 && !rm.stopped {
		rm.cond.Wait()
	}
	fired := rm.fired > 0
	rm.fired = 0
	return fired
}

// Stop cancels pending retries and releases Wait. It is idempotent.
func (rm *retryManager) Stop() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.stopped {
		return
	}
	rm.stopped = true
	for url, timer := range rm.timers {
		if timer.Stop() {
			rm.pending--
		}
		delete(rm.timers, url)
	}
	rm.cond.Broadcast()
}

func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.total
}

func (rm *retryManager) SetContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	rm.mu.Lock()
	rm.ctx = ctx
	rm.mu.Unlock()
}

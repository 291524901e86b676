// Package pipeline validates, deduplicates and writes extracted products.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/dedup"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when Close gives up waiting for
	// workers and the final flush.
	ErrPipelineCloseTimeout = errors.New("pipeline: close timed out")
)

// drainTimeout bounds Close when the config does not set DrainTimeout.
var drainTimeout = 30 * time.Second

// OutputWriter receives the deduplicated products in batches.
type OutputWriter interface {
	Write(products []*models.Product) error
	Close() error
	Validate() error
}

type record struct {
	product *models.Product
	seq     dedup.Seq
	shopID  string
}

// Pipeline validates products, drops exact repeats, keeps the best record
// per identity and writes the winners in batches when closed.
type Pipeline struct {
	ctx       context.Context
	out       OutputWriter
	queue     chan record
	batchSize int
	drain     time.Duration

	workers sync.WaitGroup
	seen    *lru.Cache[uint64, struct{}]
	index   *dedup.Index
	seq     sequencer
	stats   stats

	// sendMu is held for reading by senders so that stop can close queue
	// once no send is in flight.
	sendMu sync.RWMutex
	closed bool
	done   chan struct{}

	errMu     sync.Mutex
	err       error
	flushOnce sync.Once
}

// NewPipeline builds a pipeline sized from cfg.
func NewPipeline(ctx context.Context, out OutputWriter, cfg *config.Config) *Pipeline {
	if ctx == nil {
		ctx = context.Background()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}
	// lru.New only fails for a non-positive size.
	seen, _ := lru.New[uint64, struct{}](max(cfg.DedupeMaxSize, 1))

	return &Pipeline{
		ctx:       ctx,
		out:       out,
		queue:     make(chan record, cfg.PipelineBufferSize),
		batchSize: batchSize,
		drain:     cfg.DrainTimeout,
		seen:      seen,
		index:     dedup.NewIndex(),
		seq:       sequencer{origins: map[string]int{}, records: map[string]int{}},
		stats:     stats{rejected: map[string]int{}, results: map[string]int{}},
		done:      make(chan struct{}),
	}
}

// Start launches worker goroutines. It does nothing once the pipeline is
// closed.
func (p *Pipeline) Start(workers int) {
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()
	if p.closed {
		return
	}
	for range max(workers, 1) {
		p.workers.Add(1)
		go p.work()
	}
}

// Process enqueues products extracted from origin. Positions are assigned
// here, so the dedup tie-break follows the caller's order.
func (p *Pipeline) Process(origin string, products ...*models.Product) error {
	if err := p.Err(); err != nil {
		return err
	}

	shopID := dedup.ShopID(origin)
	for _, product := range products {
		if product == nil {
			continue
		}
		if err := p.enqueue(record{product: product, seq: p.seq.next(origin), shopID: shopID}); err != nil {
			return err
		}
	}
	return nil
}

// Close stops intake, waits for the workers and writes the deduplicated
// products in batches. It fails with ErrPipelineCloseTimeout when this takes
// longer than the drain timeout.
func (p *Pipeline) Close() error {
	p.stop()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		p.workers.Wait()
		if p.Err() == nil {
			p.flushOnce.Do(p.flush)
		}
	}()

	timeout := p.drain
	if timeout <= 0 {
		timeout = drainTimeout
	}
	select {
	case <-finished:
		return p.Err()
	case <-time.After(timeout):
		return fmt.Errorf("%w after %s", ErrPipelineCloseTimeout, timeout)
	}
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	snap := p.stats.snapshot()
	snap["unique_products"] = int64(p.index.Len())
	return snap
}

// StartMetricsReporting logs progress every interval until Close.
func (p *Pipeline) StartMetricsReporting(interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				slog.Info("pipeline progress",
					slog.Int64("processed", p.stats.processed.Load()),
					slog.Int("unique", p.index.Len()),
					slog.Int("rejected", p.stats.rejectedTotal()),
				)
			case <-p.done:
				return
			}
		}
	}()
}

func (p *Pipeline) work() {
	defer p.workers.Done()
	for rec := range p.queue {
		if product := p.admit(rec); product != nil {
			p.stats.result(p.index.AddAt(product, rec.seq).String())
		}
	}
}

// admit validates rec and returns a stamped copy, or nil when the record
// is invalid or an exact repeat.
func (p *Pipeline) admit(rec record) *models.Product {
	if err := parser.ValidateProduct(rec.product); err != nil {
		p.stats.reject("invalid_record")
		return nil
	}

	product := rec.product.Clone()
	if product.ShopID == "" {
		product.ShopID = rec.shopID
	}

	if key, ok := fingerprint(rec.seq.Origin, product); ok {
		if found, _ := p.seen.ContainsOrAdd(key, struct{}{}); found {
			p.stats.reject("duplicate_record")
			return nil
		}
	}

	p.stats.processed.Add(1)
	return product
}

// fingerprint hashes the full record so that only exact repeats from the
// same origin are dropped before deduplication.
func fingerprint(origin int, p *models.Product) (uint64, bool) {
	data, err := json.Marshal(p)
	if err != nil {
		return 0, false
	}
	d := xxhash.New()
	fmt.Fprintf(d, "%d\x00", origin)
	_, _ = d.Write(data)
	return d.Sum64(), true
}

func (p *Pipeline) flush() {
	products := p.index.Products()
	for start := 0; start < len(products); start += p.batchSize {
		end := min(start+p.batchSize, len(products))
		if err := p.out.Write(products[start:end]); err != nil {
			p.fail(fmt.Errorf("write batch: %w", err))
			return
		}
		p.stats.written.Add(int64(end - start))
	}
}

func (p *Pipeline) enqueue(rec record) error {
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()
	if p.closed {
		return ErrPipelineClosed
	}
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.queue <- rec:
		return nil
	}
}

// stop closes the queue once in-flight sends have finished. Workers keep
// draining meanwhile, so pending sends always complete.
func (p *Pipeline) stop() {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.queue)
	close(p.done)
}

func (p *Pipeline) fail(err error) {
	p.errMu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.errMu.Unlock()
	p.stop()
}

// sequencer numbers origins by first appearance and records within each
// origin.
type sequencer struct {
	mu      sync.Mutex
	origins map[string]int
	records map[string]int
}

func (s *sequencer) next(origin string) dedup.Seq {
	s.mu.Lock()
	defer s.mu.Unlock()
	oi, ok := s.origins[origin]
	if !ok {
		oi = len(s.origins)
		s.origins[origin] = oi
	}
	ri := s.records[origin]
	s.records[origin] = ri + 1
	return dedup.Seq{Origin: oi, Record: ri}
}

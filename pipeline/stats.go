package pipeline

import (
	"maps"
	"sync"
	"sync/atomic"
)

// stats holds the pipeline counters exposed by GetMetrics.
type stats struct {
	processed atomic.Int64
	written   atomic.Int64

	mu       sync.Mutex
	rejected map[string]int // by reason
	results  map[string]int // by dedup.AddResult
}

func (s *stats) reject(reason string) {
	s.mu.Lock()
	s.rejected[reason]++
	s.mu.Unlock()
}

func (s *stats) result(kind string) {
	s.mu.Lock()
	s.results[kind]++
	s.mu.Unlock()
}

func (s *stats) rejectedTotal() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.rejected {
		total += n
	}
	return total
}

func (s *stats) snapshot() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]interface{}{
		"processed_products": s.processed.Load(),
		"written_products":   s.written.Load(),
		"validation_errors":  maps.Clone(s.rejected),
		"dedup_results":      maps.Clone(s.results),
	}
}

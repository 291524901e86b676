package dedup

import (
	"sync"
	"sync/atomic"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/cespare/xxhash/v2"
)

const shardCount = 32

// AddResult describes what Index.Add did with a product.
type AddResult int

const (
	// Inserted means the product opened a new identity.
	Inserted AddResult = iota
	// Replaced means the product beat the previous best.
	Replaced
	// Discarded means an existing record was better.
	Discarded
)

func (r AddResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Replaced:
		return "replaced"
	default:
		return "discarded"
	}
}

// Index is a best-per-identity map safe for concurrent use. Identities are
// spread over shards with one lock each.
type Index struct {
	shards [shardCount]indexShard
	next   atomic.Int64
}

type indexShard struct {
	mu     sync.Mutex
	groups Partial
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	ix := &Index{}
	for i := range ix.shards {
		ix.shards[i].groups = Partial{}
	}
	return ix
}

// Add records p at the next arrival position.
func (ix *Index) Add(p *models.Product) AddResult {
	seq := Seq{Record: int(ix.next.Add(1) - 1)}
	return ix.AddAt(p, seq)
}

// AddAt records p at an explicit position.
func (ix *Index) AddAt(p *models.Product, seq Seq) AddResult {
	c := NewCandidate(p, seq)
	id := Identity(p)
	shard := &ix.shards[xxhash.Sum64String(id)%shardCount]

	shard.mu.Lock()
	defer shard.mu.Unlock()

	prev, ok := shard.groups[id]
	shard.groups.addGroup(id, Group{Best: c, First: seq})
	switch {
	case !ok:
		return Inserted
	case shard.groups[id].Best.Seq != prev.Best.Seq:
		return Replaced
	default:
		return Discarded
	}
}

// Len returns the number of distinct identities.
func (ix *Index) Len() int {
	n := 0
	for i := range ix.shards {
		s := &ix.shards[i]
		s.mu.Lock()
		n += len(s.groups)
		s.mu.Unlock()
	}
	return n
}

// Snapshot copies the current groups.
func (ix *Index) Snapshot() Partial {
	out := Partial{}
	for i := range ix.shards {
		s := &ix.shards[i]
		s.mu.Lock()
		for id, g := range s.groups {
			out[id] = g
		}
		s.mu.Unlock()
	}
	return out
}

// Products returns the current winners ordered by first appearance.
func (ix *Index) Products() []*models.Product {
	return ix.Snapshot().Products()
}

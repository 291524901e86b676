package dedup

import (
	"runtime"
	"sort"

	"github.com/aluiziolira/go-scrape-products/models"
	"golang.org/x/sync/errgroup"
)

// Seq is the position at which a record was encountered.
type Seq struct {
	Origin int
	Record int
}

// Less orders by origin, then record.
func (s Seq) Less(o Seq) bool {
	if s.Origin != o.Origin {
		return s.Origin < o.Origin
	}
	return s.Record < o.Record
}

// Candidate is a product with its score and encounter position.
type Candidate struct {
	Product *models.Product
	Score   int
	Seq     Seq
}

// NewCandidate scores p.
func NewCandidate(p *models.Product, seq Seq) Candidate {
	return Candidate{Product: p, Score: Score(p), Seq: seq}
}

// Better reports whether a should replace b: higher score, then a positive
// price, then more images, then the earlier position. Candidates with
// distinct positions are totally ordered, so folding in any order or grouping
// picks the same winner.
func Better(a, b Candidate) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	aPriced, bPriced := a.Product.Price.Amount > 0, b.Product.Price.Amount > 0
	if aPriced != bPriced {
		return aPriced
	}
	if na, nb := len(a.Product.Images), len(b.Product.Images); na != nb {
		return na > nb
	}
	return a.Seq.Less(b.Seq)
}

// Keep returns the better of a and b.
func Keep(a, b Candidate) Candidate {
	if Better(b, a) {
		return b
	}
	return a
}

// Group is the best candidate of one identity and where it was first seen.
type Group struct {
	Best  Candidate
	First Seq
}

// Partial maps identities to their groups. Partials built over disjoint
// parts of the input can be combined with Fold.
type Partial map[string]Group

// Add folds c into p.
func (p Partial) Add(c Candidate) {
	p.addGroup(Identity(c.Product), Group{Best: c, First: c.Seq})
}

func (p Partial) addGroup(id string, g Group) {
	cur, ok := p[id]
	if !ok {
		p[id] = g
		return
	}
	cur.Best = Keep(cur.Best, g.Best)
	if g.First.Less(cur.First) {
		cur.First = g.First
	}
	p[id] = cur
}

// Fold merges partials into a new one.
func Fold(parts ...Partial) Partial {
	out := Partial{}
	for _, part := range parts {
		for id, g := range part {
			out.addGroup(id, g)
		}
	}
	return out
}

// Products returns the winners ordered by first appearance of their identity.
func (p Partial) Products() []*models.Product {
	groups := make([]Group, 0, len(p))
	for _, g := range p {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].First.Less(groups[j].First) })

	out := make([]*models.Product, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Best.Product)
	}
	return out
}

// Deduplicate returns one product per identity. Origins are visited in
// lexical order so ties resolve the same way on every call.
func Deduplicate(byOrigin map[string][]*models.Product) []*models.Product {
	part := Partial{}
	for oi, origin := range sortedOrigins(byOrigin) {
		addOrigin(part, oi, byOrigin[origin])
	}
	return part.Products()
}

// DeduplicateParallel is Deduplicate with each origin folded on its own
// goroutine. The result is identical.
func DeduplicateParallel(byOrigin map[string][]*models.Product) []*models.Product {
	origins := sortedOrigins(byOrigin)
	parts := make([]Partial, len(origins))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for oi, origin := range origins {
		g.Go(func() error {
			part := Partial{}
			addOrigin(part, oi, byOrigin[origin])
			parts[oi] = part
			return nil
		})
	}
	_ = g.Wait()

	return Fold(parts...).Products()
}

func addOrigin(part Partial, origin int, products []*models.Product) {
	for ri, p := range products {
		if p == nil {
			continue
		}
		part.Add(NewCandidate(p, Seq{Origin: origin, Record: ri}))
	}
}

func sortedOrigins(byOrigin map[string][]*models.Product) []string {
	origins := make([]string, 0, len(byOrigin))
	for origin := range byOrigin {
		origins = append(origins, origin)
	}
	sort.Strings(origins)
	return origins
}

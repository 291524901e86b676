package strategy

import (
	"log/slog"
	"sort"

	"github.com/aluiziolira/go-scrape-products/bundle"
	"github.com/aluiziolira/go-scrape-products/dedup"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
	"golang.org/x/sync/errgroup"
)

// Selection is the winning product of a page.
type Selection struct {
	Product   *models.Product
	Syntax    bundle.Syntax
	Malformed []models.FieldIssue
	// MergedFrom lists the syntaxes merged into Product when sibling
	// merging is enabled.
	MergedFrom []bundle.Syntax
}

// Observer is notified about every outcome the selector evaluates and the
// final decision. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveOutcome(syntax bundle.Syntax, outcome Outcome, valid bool)
	ObserveSelection(sel *Selection)
}

// Selector runs strategies in priority order and keeps the first valid product.
type Selector struct {
	strategies    []Strategy
	observer      Observer
	logger        *slog.Logger
	mergeSiblings bool
}

// Option configures a Selector.
type Option func(*Selector)

// WithStrategies replaces the default strategy set. The given order is the
// fallback order for syntaxes missing from a preference list.
func WithStrategies(strategies ...Strategy) Option {
	return func(s *Selector) { s.strategies = strategies }
}

// WithObserver installs an observer.
func WithObserver(o Observer) Option {
	return func(s *Selector) { s.observer = o }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSiblingMerge enables filling the winner's missing fields and images
// from lower-priority strategies that describe the same product. Selection
// of the winner is unaffected.
func WithSiblingMerge(enabled bool) Option {
	return func(s *Selector) { s.mergeSiblings = enabled }
}

// NewSelector builds a selector over the default strategies.
func NewSelector(opts ...Option) *Selector {
	s := &Selector{
		strategies: Default(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Order sorts the strategies by their position in preferred. Unknown names
// are ignored and unlisted strategies keep their relative order after the
// listed ones.
func (s *Selector) Order(preferred []string) []Strategy {
	rank := make(map[bundle.Syntax]int, len(preferred))
	for i, name := range preferred {
		syntax, ok := bundle.ParseSyntax(name)
		if !ok {
			continue
		}
		if _, seen := rank[syntax]; !seen {
			rank[syntax] = i
		}
	}
	position := func(st Strategy) int {
		if r, ok := rank[st.Syntax()]; ok {
			return r
		}
		return len(preferred)
	}

	ordered := append([]Strategy(nil), s.strategies...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return position(ordered[i]) < position(ordered[j])
	})
	return ordered
}

// Select runs strategies one at a time and stops at the first valid product.
// It returns nil when no strategy yields one.
func (s *Selector) Select(b *bundle.Bundle, pageURL string, preferred []string) *Selection {
	ordered := s.Order(preferred)
	cache := make(map[int]Outcome, len(ordered))
	return s.choose(ordered, func(i int) Outcome {
		if o, ok := cache[i]; ok {
			return o
		}
		o := ordered[i].Extract(b, pageURL)
		cache[i] = o
		return o
	})
}

// SelectConcurrent runs every strategy in parallel and then applies the same
// priority rule as Select, so the result never depends on completion order.
func (s *Selector) SelectConcurrent(b *bundle.Bundle, pageURL string, preferred []string) *Selection {
	ordered := s.Order(preferred)
	outcomes := make([]Outcome, len(ordered))

	var g errgroup.Group
	for i, st := range ordered {
		g.Go(func() error {
			outcomes[i] = st.Extract(b, pageURL)
			return nil
		})
	}
	_ = g.Wait()

	return s.choose(ordered, func(i int) Outcome { return outcomes[i] })
}

func (s *Selector) choose(ordered []Strategy, outcome func(int) Outcome) *Selection {
	for i, st := range ordered {
		o := outcome(i)
		valid := o.Status == Found && parser.IsValidProduct(o.Product)
		s.observeOutcome(st.Syntax(), o, valid)
		if !valid {
			continue
		}

		sel := &Selection{
			Product:   o.Product.Clone(),
			Syntax:    st.Syntax(),
			Malformed: o.Malformed,
		}
		if s.mergeSiblings {
			for j := i + 1; j < len(ordered); j++ {
				sib := outcome(j)
				if sib.Status != Found || !parser.IsValidProduct(sib.Product) {
					continue
				}
				if dedup.SameProduct(sel.Product, sib.Product) {
					sel.Product = dedup.Merge(sel.Product, sib.Product)
					sel.MergedFrom = append(sel.MergedFrom, ordered[j].Syntax())
				}
			}
		}
		s.observeSelection(sel)
		return sel
	}
	s.observeSelection(nil)
	return nil
}

func (s *Selector) observeOutcome(syntax bundle.Syntax, o Outcome, valid bool) {
	if o.Status == Found {
		s.logger.Debug("strategy outcome",
			slog.String("syntax", string(syntax)),
			slog.Bool("valid", valid),
			slog.Int("malformed", len(o.Malformed)),
		)
		for _, issue := range o.Malformed {
			s.logger.Debug("malformed field",
				slog.String("syntax", string(syntax)),
				slog.String("field", issue.Field),
				slog.String("raw", issue.Raw),
			)
		}
	}
	if s.observer != nil {
		s.observer.ObserveOutcome(syntax, o, valid)
	}
}

func (s *Selector) observeSelection(sel *Selection) {
	if s.observer != nil {
		s.observer.ObserveSelection(sel)
	}
}

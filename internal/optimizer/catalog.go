package optimizer

import "duck-rollup/internal/domain"

// Catalog is the immutable set of merged summary specs for one analysis
// batch. Once built it is never modified: routing reads it from any
// number of goroutines without locking, and every change (rebuild,
// invalidation) produces a new Catalog value.
type Catalog struct {
	specs   []*domain.SummarySpec
	bySig   map[string]*domain.SummarySpec
	byTable map[string]*domain.SummarySpec
}

// NewCatalog builds a catalog preserving the given spec order (the
// merger's first-contribution order, which the router uses to break
// ties).
func NewCatalog(specs []*domain.SummarySpec) *Catalog {
	c := &Catalog{
		specs:   append([]*domain.SummarySpec(nil), specs...),
		bySig:   make(map[string]*domain.SummarySpec, len(specs)),
		byTable: make(map[string]*domain.SummarySpec, len(specs)),
	}
	for _, s := range c.specs {
		c.bySig[s.Signature] = s
		c.byTable[s.Table] = s
	}
	return c
}

// Len returns the number of specs.
func (c *Catalog) Len() int { return len(c.specs) }

// Specs returns the specs in insertion order. The returned slice is a
// copy; the specs themselves are shared and must not be mutated.
func (c *Catalog) Specs() []*domain.SummarySpec {
	return append([]*domain.SummarySpec(nil), c.specs...)
}

// BySignature looks up a spec by its signature.
func (c *Catalog) BySignature(sig string) (*domain.SummarySpec, bool) {
	s, ok := c.bySig[sig]
	return s, ok
}

// ByTable looks up a spec by its summary table name.
func (c *Catalog) ByTable(name string) (*domain.SummarySpec, bool) {
	s, ok := c.byTable[name]
	return s, ok
}

// Without returns a new catalog excluding the named tables, preserving
// the order of the remaining specs. The materializer uses it to
// invalidate entries whose summary tables failed to build before any
// routing starts.
func (c *Catalog) Without(tables ...string) *Catalog {
	drop := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		drop[t] = struct{}{}
	}
	kept := make([]*domain.SummarySpec, 0, len(c.specs))
	for _, s := range c.specs {
		if _, ok := drop[s.Table]; !ok {
			kept = append(kept, s)
		}
	}
	return NewCatalog(kept)
}

// Package router matches workload queries against the summary catalog
// and rewrites matched queries to read from summary tables.
package router

import (
	"duck-rollup/internal/domain"
	"duck-rollup/internal/optimizer"
	"duck-rollup/internal/sqlgen"
)

// Router routes queries against one immutable catalog. It holds no
// mutable state, so a single Router serves concurrent callers.
type Router struct {
	catalog   *optimizer.Catalog
	mainTable string
}

// New builds a Router over the catalog and the main table used for
// fallback execution.
func New(catalog *optimizer.Catalog, mainTable string) *Router {
	return &Router{catalog: catalog, mainTable: mainTable}
}

// Catalog returns the catalog this router reads.
func (r *Router) Catalog() *optimizer.Catalog { return r.catalog }

// Route decides where q executes. Absence of a match is not an error:
// the query falls back to the main table. Route only fails for queries
// that cannot be analyzed at all (malformed shape or unsupported
// operator); such failures surface MalformedQueryError or
// UnsupportedPredicateError. Deterministic: the same query and catalog
// always produce the same result.
func (r *Router) Route(q *domain.Query) (*domain.RoutingResult, error) {
	if err := q.Validate(r.mainTable); err != nil {
		return nil, err
	}
	cls, err := optimizer.Classify(q)
	if err != nil {
		return nil, err
	}

	spec := r.bestSpec(q, cls)
	if spec == nil {
		sql, err := sqlgen.Assemble(q, r.mainTable)
		if err != nil {
			return nil, err
		}
		return &domain.RoutingResult{Query: q, Routed: false, Target: r.mainTable, SQL: sql}, nil
	}

	sql, err := rewrite(q, spec)
	if err != nil {
		return nil, err
	}
	return &domain.RoutingResult{Query: q, Routed: true, Target: spec.Table, SQL: sql, Spec: spec}, nil
}

// bestSpec returns the eligible spec with the fewest dimensions beyond
// the query's requirement, breaking ties by catalog insertion order.
// Returns nil when nothing is eligible.
func (r *Router) bestSpec(q *domain.Query, cls *optimizer.Classification) *domain.SummarySpec {
	var best *domain.SummarySpec
	bestExtra := 0

	for _, spec := range r.catalog.Specs() {
		if !eligible(q, cls, spec) {
			continue
		}
		extra := len(spec.Dimensions) - len(cls.Dimensions)
		if best == nil || extra < bestExtra {
			best = spec
			bestExtra = extra
		}
	}
	return best
}

// eligible applies the three match rules: constant filters equal
// exactly, spec dimensions cover the required dimensions, and every
// requested aggregate is satisfiable from the spec's physical columns.
func eligible(q *domain.Query, cls *optimizer.Classification, spec *domain.SummarySpec) bool {
	if !spec.ConstantsEqual(cls.Constants) {
		return false
	}

	have := spec.DimensionSet()
	for _, dim := range cls.Dimensions {
		if _, ok := have[dim]; !ok {
			return false
		}
	}

	for _, item := range q.Aggregates() {
		if !spec.Satisfies(item) {
			return false
		}
	}
	return true
}

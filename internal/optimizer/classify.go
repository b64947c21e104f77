// Package optimizer analyzes a workload of aggregate queries and derives
// the merged summary-table specifications that can answer them.
package optimizer

import (
	"sort"

	"duck-rollup/internal/domain"
)

// Classification is the outcome of classifying one query's predicates
// against its group-by set. Predicates on group-by columns are ignored
// here (the summary keeps those columns at full granularity, so they are
// re-applied at execution); the remaining predicates either bake into
// the summary as constants (eq) or promote their column into the
// summary's dimensions (range and membership operators).
type Classification struct {
	// Dimensions is the query's group_by columns followed by promoted
	// filter columns in where order, deduplicated.
	Dimensions []string
	// Constants are the eq filters baked into the summary, sorted by
	// column.
	Constants []domain.ConstantFilter
}

// Classify classifies every predicate of q. It is a pure function of the
// query: the same input always yields the same classification. An
// operator outside the supported set fails with
// UnsupportedPredicateError naming the operator; the caller records the
// query as unanalyzable and moves on.
func Classify(q *domain.Query) (*Classification, error) {
	groupBy := q.GroupBySet()

	dims := make([]string, 0, len(q.GroupBy)+len(q.Where))
	seen := make(map[string]struct{}, len(q.GroupBy)+len(q.Where))
	for _, col := range q.GroupBy {
		if _, ok := seen[col]; ok {
			continue
		}
		seen[col] = struct{}{}
		dims = append(dims, col)
	}

	var constants []domain.ConstantFilter
	constSeen := make(map[string]string)

	for _, p := range q.Where {
		if !p.Op.Supported() {
			return nil, &domain.UnsupportedPredicateError{Operator: string(p.Op)}
		}
		if _, ok := groupBy[p.Column]; ok {
			continue // already a dimension at full granularity
		}

		if p.Op == domain.OpEq {
			canon, err := domain.CanonicalValue(p.Value)
			if err != nil {
				return nil, domain.ErrMalformedQuery("query %s: eq on %q: %v", q.ID, p.Column, err)
			}
			if prev, ok := constSeen[p.Column]; ok {
				if prev != canon {
					return nil, domain.ErrMalformedQuery("query %s: contradictory equality filters on %q", q.ID, p.Column)
				}
				continue
			}
			constSeen[p.Column] = canon
			constants = append(constants, domain.ConstantFilter{Column: p.Column, Value: p.Value})
			continue
		}

		if _, ok := seen[p.Column]; !ok {
			seen[p.Column] = struct{}{}
			dims = append(dims, p.Column)
		}
	}

	sort.Slice(constants, func(i, j int) bool {
		return constants[i].Column < constants[j].Column
	})
	return &Classification{Dimensions: dims, Constants: constants}, nil
}

package optimizer

import (
	"sort"

	"duck-rollup/internal/domain"
)

// Candidate is one query's summary-table requirement before merging.
// Dimensions and Constants are sorted; Aggregates are in canonical
// order and always include row_count.
type Candidate struct {
	QueryID    string
	Signature  string
	Dimensions []string
	Constants  []domain.ConstantFilter
	Aggregates []domain.AggColumn
}

// BuildCandidate classifies q and derives its summary candidate. The
// guard may veto the candidate: a nil candidate with a non-empty reason
// means the query is analyzable but not worth a summary (it will route
// to the main table). Errors carry MalformedQueryError or
// UnsupportedPredicateError for unanalyzable queries.
func BuildCandidate(q *domain.Query, guard domain.GuardPolicy, stats *domain.TableStats) (*Candidate, string, error) {
	cls, err := Classify(q)
	if err != nil {
		return nil, "", err
	}

	aggs, err := requiredAggregates(q)
	if err != nil {
		return nil, "", err
	}

	if ok, reason := guard.Admit(cls.Dimensions, cls.Constants, stats); !ok {
		return nil, reason, nil
	}

	dims := append([]string(nil), cls.Dimensions...)
	sort.Strings(dims)

	sig, err := domain.BuildSignature(dims, cls.Constants)
	if err != nil {
		return nil, "", domain.ErrMalformedQuery("query %s: %v", q.ID, err)
	}

	return &Candidate{
		QueryID:    q.ID,
		Signature:  sig,
		Dimensions: dims,
		Constants:  cls.Constants,
		Aggregates: aggs,
	}, "", nil
}

// requiredAggregates maps the query's aggregate items to the physical
// columns a summary must carry: SUM/MIN/MAX one-to-one, COUNT and AVG
// via row_count (AVG also needs sum_<col>). row_count is always
// included so later COUNT and AVG requests stay derivable after
// merging.
func requiredAggregates(q *domain.Query) ([]domain.AggColumn, error) {
	set := map[domain.AggColumn]struct{}{
		{Kind: domain.AggColRowCount}: {},
	}

	for _, item := range q.Aggregates() {
		switch item.Agg {
		case domain.AggSum:
			set[domain.AggColumn{Kind: domain.AggColSum, Column: item.Column}] = struct{}{}
		case domain.AggAvg:
			set[domain.AggColumn{Kind: domain.AggColSum, Column: item.Column}] = struct{}{}
		case domain.AggMin:
			set[domain.AggColumn{Kind: domain.AggColMin, Column: item.Column}] = struct{}{}
		case domain.AggMax:
			set[domain.AggColumn{Kind: domain.AggColMax, Column: item.Column}] = struct{}{}
		case domain.AggCount:
			// row_count already present
		default:
			return nil, domain.ErrMalformedQuery("query %s: unknown aggregate %q", q.ID, item.Agg)
		}
	}

	aggs := make([]domain.AggColumn, 0, len(set))
	for a := range set {
		aggs = append(aggs, a)
	}
	domain.SortAggColumns(aggs)
	return aggs, nil
}

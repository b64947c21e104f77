package optimizer

import (
	"fmt"

	"duck-rollup/internal/domain"
)

// Merge folds candidates with byte-equal signatures into single summary
// specs, unioning their aggregate sets. Specs come out in
// first-contribution order, which is also the router's tie-break order.
// Merging is monotonic: an aggregate contributed by any candidate stays
// in the merged spec. Dimension supersets never absorb other specs;
// only exact signature equality merges.
func Merge(candidates []*Candidate) []*domain.SummarySpec {
	var specs []*domain.SummarySpec
	bySig := make(map[string]*domain.SummarySpec)
	aggSets := make(map[string]map[domain.AggColumn]struct{})

	for _, cand := range candidates {
		if cand == nil {
			continue
		}
		spec, ok := bySig[cand.Signature]
		if !ok {
			spec = &domain.SummarySpec{
				Signature:  cand.Signature,
				Dimensions: append([]string(nil), cand.Dimensions...),
				Constants:  append([]domain.ConstantFilter(nil), cand.Constants...),
			}
			bySig[cand.Signature] = spec
			aggSets[cand.Signature] = make(map[domain.AggColumn]struct{})
			specs = append(specs, spec)
		}

		set := aggSets[cand.Signature]
		for _, a := range cand.Aggregates {
			set[a] = struct{}{}
		}
		spec.SourceQueryIDs = append(spec.SourceQueryIDs, cand.QueryID)
	}

	taken := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		aggs := make([]domain.AggColumn, 0, len(aggSets[spec.Signature]))
		for a := range aggSets[spec.Signature] {
			aggs = append(aggs, a)
		}
		domain.SortAggColumns(aggs)
		spec.Aggregates = aggs
		spec.Table = uniqueTableName(spec.Signature, spec.Dimensions, taken)
	}

	return specs
}

// uniqueTableName derives the spec's table name and disambiguates the
// rare hash collision by suffixing an ordinal.
func uniqueTableName(signature string, dims []string, taken map[string]struct{}) string {
	name := domain.TableNameForSignature(signature, dims)
	candidate := name
	for i := 2; ; i++ {
		if _, ok := taken[candidate]; !ok {
			break
		}
		candidate = fmt.Sprintf("%s_%d", name, i)
	}
	taken[candidate] = struct{}{}
	return candidate
}

package domain

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// AggKind enumerates the physical aggregate columns a summary table can
// carry. Requested SUM/MIN/MAX map one-to-one; COUNT and AVG are derived
// from row_count (and sum_<col> for AVG) at rewrite time.
type AggKind string

// Physical aggregate column kinds.
const (
	AggColSum      AggKind = "sum"
	AggColMin      AggKind = "min"
	AggColMax      AggKind = "max"
	AggColRowCount AggKind = "row_count"
)

// AggColumn identifies one physical aggregate column of a summary table.
// Column is empty for row_count.
type AggColumn struct {
	Kind   AggKind `json:"kind"`
	Column string  `json:"column,omitempty"`
}

// Name returns the physical column name: sum_<col>, min_<col>,
// max_<col>, or row_count.
func (a AggColumn) Name() string {
	if a.Kind == AggColRowCount {
		return "row_count"
	}
	return string(a.Kind) + "_" + a.Column
}

// aggKindRank orders aggregate columns deterministically in DDL and
// signatures: sums, then mins, then maxes, row_count last.
func aggKindRank(k AggKind) int {
	switch k {
	case AggColSum:
		return 0
	case AggColMin:
		return 1
	case AggColMax:
		return 2
	default:
		return 3
	}
}

// SortAggColumns sorts a slice of aggregate columns into canonical order.
func SortAggColumns(aggs []AggColumn) {
	sort.Slice(aggs, func(i, j int) bool {
		ri, rj := aggKindRank(aggs[i].Kind), aggKindRank(aggs[j].Kind)
		if ri != rj {
			return ri < rj
		}
		return aggs[i].Column < aggs[j].Column
	})
}

// ConstantFilter is an equality filter baked into a summary table: the
// summary only contains rows where Column equals Value, and the column
// is absent from the summary's output.
type ConstantFilter struct {
	Column string `json:"column"`
	Value  any    `json:"value"`
}

// Signature-building separators. Dimension and constant tokens never
// legitimately contain control bytes, so these keep the rendering
// unambiguous.
const (
	sigSectionSep = "\x1e"
	sigTokenSep   = "\x1f"
)

// BuildSignature renders the canonical merge key for a candidate:
// sorted dimensions plus sorted constant filters. Two candidates merge
// iff their signatures are byte-for-byte equal. Aggregates are
// deliberately excluded so differing aggregate sets union into one spec.
func BuildSignature(dims []string, constants []ConstantFilter) (string, error) {
	sortedDims := append([]string(nil), dims...)
	sort.Strings(sortedDims)

	tokens := make([]string, 0, len(constants))
	for _, c := range constants {
		canon, err := CanonicalValue(c.Value)
		if err != nil {
			return "", fmt.Errorf("constant filter on %q: %w", c.Column, err)
		}
		tokens = append(tokens, c.Column+"="+canon)
	}
	sort.Strings(tokens)

	return strings.Join(sortedDims, sigTokenSep) + sigSectionSep + strings.Join(tokens, sigTokenSep), nil
}

// TableNameForSignature derives the summary table name from a signature
// and its sorted dimensions: up to three dimension names for
// readability, then an 8-hex FNV of the full signature for uniqueness.
// Stable across runs over the same workload.
func TableNameForSignature(signature string, sortedDims []string) string {
	h := fnv.New32a()
	h.Write([]byte(signature))

	label := "global"
	if len(sortedDims) > 0 {
		n := len(sortedDims)
		if n > 3 {
			n = 3
		}
		label = strings.Join(sortedDims[:n], "_")
	}
	return fmt.Sprintf("summary_%s_%08x", label, h.Sum32())
}

// SummarySpec is one merged summary-table specification. Immutable once
// the catalog is built: Dimensions and Constants are sorted, Aggregates
// are in canonical order, and nothing downstream mutates them.
type SummarySpec struct {
	Table          string           `json:"table"`
	Signature      string           `json:"-"`
	Dimensions     []string         `json:"dimensions"`
	Constants      []ConstantFilter `json:"constant_filters,omitempty"`
	Aggregates     []AggColumn      `json:"aggregates"`
	SourceQueryIDs []string         `json:"source_query_ids,omitempty"`
}

// DimensionSet returns the dimensions as a set.
func (s *SummarySpec) DimensionSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Dimensions))
	for _, d := range s.Dimensions {
		set[d] = struct{}{}
	}
	return set
}

// HasAggregate reports whether the spec carries the physical column.
func (s *SummarySpec) HasAggregate(a AggColumn) bool {
	for _, have := range s.Aggregates {
		if have == a {
			return true
		}
	}
	return false
}

// Satisfies reports whether the requested aggregate item can be answered
// from the spec's physical columns, including derivations: COUNT from
// row_count, AVG from sum_<col> plus row_count.
func (s *SummarySpec) Satisfies(item SelectItem) bool {
	switch item.Agg {
	case AggSum:
		return s.HasAggregate(AggColumn{Kind: AggColSum, Column: item.Column})
	case AggCount:
		return s.HasAggregate(AggColumn{Kind: AggColRowCount})
	case AggAvg:
		return s.HasAggregate(AggColumn{Kind: AggColSum, Column: item.Column}) &&
			s.HasAggregate(AggColumn{Kind: AggColRowCount})
	case AggMin:
		return s.HasAggregate(AggColumn{Kind: AggColMin, Column: item.Column})
	case AggMax:
		return s.HasAggregate(AggColumn{Kind: AggColMax, Column: item.Column})
	default:
		return false
	}
}

// ConstantsEqual reports whether the spec's baked filters are exactly
// want: same columns, same values, nothing extra on either side.
func (s *SummarySpec) ConstantsEqual(want []ConstantFilter) bool {
	if len(s.Constants) != len(want) {
		return false
	}
	byCol := make(map[string]any, len(want))
	for _, c := range want {
		byCol[c.Column] = c.Value
	}
	for _, c := range s.Constants {
		v, ok := byCol[c.Column]
		if !ok || !ValuesEqual(c.Value, v) {
			return false
		}
	}
	return true
}

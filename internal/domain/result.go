package domain

import "sync/atomic"

// QueryResult holds the scanned rows of an executed query.
type QueryResult struct {
	Columns  []string        `json:"columns"`
	Rows     [][]interface{} `json:"rows"`
	RowCount int             `json:"row_count"`
}

// RoutingResult is the router's verdict for one query: either routed to
// a summary table (Routed true, Spec set, SQL rewritten) or falling back
// to the main table (Routed false, Spec nil, SQL the original form).
type RoutingResult struct {
	Query  *Query       `json:"-"`
	Routed bool         `json:"routed"`
	Target string       `json:"target"`
	SQL    string       `json:"sql"`
	Spec   *SummarySpec `json:"spec,omitempty"`
}

// RoutingStats counts routing outcomes across a run. Safe for concurrent
// use.
type RoutingStats struct {
	total     atomic.Int64
	hits      atomic.Int64
	fallbacks atomic.Int64
}

// Record tallies one routing decision.
func (s *RoutingStats) Record(routed bool) {
	s.total.Add(1)
	if routed {
		s.hits.Add(1)
	} else {
		s.fallbacks.Add(1)
	}
}

// Snapshot returns the current counters.
func (s *RoutingStats) Snapshot() RoutingStatsSnapshot {
	snap := RoutingStatsSnapshot{
		QueryCount:       s.total.Load(),
		SummaryTableHits: s.hits.Load(),
		MainTableQueries: s.fallbacks.Load(),
	}
	if snap.QueryCount > 0 {
		snap.HitRatePercent = 100 * float64(snap.SummaryTableHits) / float64(snap.QueryCount)
	}
	return snap
}

// RoutingStatsSnapshot is a point-in-time copy of RoutingStats.
type RoutingStatsSnapshot struct {
	QueryCount       int64   `json:"query_count"`
	SummaryTableHits int64   `json:"summary_table_hits"`
	MainTableQueries int64   `json:"main_table_queries"`
	HitRatePercent   float64 `json:"hit_rate_percent"`
}

// TableStats carries loader-computed statistics for the main table:
// total row count and approximate distinct counts per column. The
// cardinality guard consumes them.
type TableStats struct {
	Table    string           `json:"table"`
	Rows     int64            `json:"rows"`
	Distinct map[string]int64 `json:"distinct"`
}

// DistinctCount returns the approximate distinct count for a column.
func (s *TableStats) DistinctCount(col string) (int64, bool) {
	if s == nil || s.Distinct == nil {
		return 0, false
	}
	n, ok := s.Distinct[col]
	return n, ok
}

package optimizer

import (
	"fmt"

	"duck-rollup/internal/domain"
)

// Guard defaults: a column counts as high-cardinality when its distinct
// count reaches rows/defaultHighCardinalityRatio, and a rejected
// dimension set is admitted anyway when constant filters narrow the
// scanned fraction to defaultMaxScanFraction or less.
const (
	defaultHighCardinalityRatio = 10.0
	defaultMaxScanFraction      = 0.05
)

// GuardConfig tunes the stats-driven cardinality guard. Zero values fall
// back to the defaults above.
type GuardConfig struct {
	// HighCardinalityRatio: a column is high-cardinality when
	// distinct >= rows / ratio.
	HighCardinalityRatio float64
	// MaxScanFraction: with a high-cardinality dimension present, the
	// candidate is still admitted when the constant filters narrow the
	// estimated scanned fraction to this value or below.
	MaxScanFraction float64
	// HighCardinalityColumns are always treated as high-cardinality,
	// regardless of statistics.
	HighCardinalityColumns []string
}

// StatsGuard is the default GuardPolicy: it rejects candidates whose
// dimensions include a high-cardinality column unless the constant
// filters narrow the scan, estimating selectivity as 1/distinct per
// constant column under a uniform-distribution assumption.
type StatsGuard struct {
	ratio       float64
	maxFraction float64
	overrides   map[string]struct{}
}

var _ domain.GuardPolicy = (*StatsGuard)(nil)

// NewStatsGuard builds a StatsGuard from config, applying defaults for
// zero values.
func NewStatsGuard(cfg GuardConfig) *StatsGuard {
	g := &StatsGuard{
		ratio:       cfg.HighCardinalityRatio,
		maxFraction: cfg.MaxScanFraction,
		overrides:   make(map[string]struct{}, len(cfg.HighCardinalityColumns)),
	}
	if g.ratio <= 0 {
		g.ratio = defaultHighCardinalityRatio
	}
	if g.maxFraction <= 0 {
		g.maxFraction = defaultMaxScanFraction
	}
	for _, col := range cfg.HighCardinalityColumns {
		g.overrides[col] = struct{}{}
	}
	return g
}

// Admit implements domain.GuardPolicy.
func (g *StatsGuard) Admit(dims []string, constants []domain.ConstantFilter, stats *domain.TableStats) (bool, string) {
	highCard := ""
	for _, dim := range dims {
		if g.isHighCardinality(dim, stats) {
			highCard = dim
			break
		}
	}
	if highCard == "" {
		return true, ""
	}

	fraction := g.scanFraction(constants, stats)
	if fraction <= g.maxFraction {
		return true, ""
	}
	return false, fmt.Sprintf(
		"dimension %q is high-cardinality and constant filters narrow the scan to %.4f (limit %.4f)",
		highCard, fraction, g.maxFraction)
}

func (g *StatsGuard) isHighCardinality(col string, stats *domain.TableStats) bool {
	if _, ok := g.overrides[col]; ok {
		return true
	}
	if stats == nil || stats.Rows <= 0 {
		return false
	}
	distinct, ok := stats.DistinctCount(col)
	if !ok {
		return false
	}
	return float64(distinct) >= float64(stats.Rows)/g.ratio
}

// scanFraction estimates the fraction of the table surviving the
// constant filters: the product of 1/distinct over constant columns.
// Columns without statistics contribute nothing.
func (g *StatsGuard) scanFraction(constants []domain.ConstantFilter, stats *domain.TableStats) float64 {
	fraction := 1.0
	for _, c := range constants {
		distinct, ok := stats.DistinctCount(c.Column)
		if !ok || distinct <= 0 {
			continue
		}
		fraction /= float64(distinct)
	}
	return fraction
}

// AdmitAll is a GuardPolicy that never rejects; tests and explain-only
// analysis use it.
type AdmitAll struct{}

var _ domain.GuardPolicy = AdmitAll{}

// Admit implements domain.GuardPolicy.
func (AdmitAll) Admit([]string, []domain.ConstantFilter, *domain.TableStats) (bool, string) {
	return true, ""
}

package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Operator is a where-clause comparison operator. The set is closed;
// the classifier rejects anything else with UnsupportedPredicateError.
type Operator string

// Supported predicate operators.
const (
	OpEq      Operator = "eq"
	OpLt      Operator = "lt"
	OpLte     Operator = "lte"
	OpGt      Operator = "gt"
	OpGte     Operator = "gte"
	OpBetween Operator = "between"
	OpIn      Operator = "in"
)

// Supported reports whether op is one of the closed operator set.
func (op Operator) Supported() bool {
	switch op {
	case OpEq, OpLt, OpLte, OpGt, OpGte, OpBetween, OpIn:
		return true
	default:
		return false
	}
}

// AggFunc is an aggregate function in a select item. AggNone marks a
// bare column.
type AggFunc string

// Aggregate functions accepted in select items.
const (
	AggNone  AggFunc = ""
	AggSum   AggFunc = "SUM"
	AggAvg   AggFunc = "AVG"
	AggCount AggFunc = "COUNT"
	AggMin   AggFunc = "MIN"
	AggMax   AggFunc = "MAX"
)

// ParseAggFunc maps a function name (any case) to an AggFunc.
func ParseAggFunc(name string) (AggFunc, bool) {
	switch strings.ToUpper(name) {
	case "SUM":
		return AggSum, true
	case "AVG":
		return AggAvg, true
	case "COUNT":
		return AggCount, true
	case "MIN":
		return AggMin, true
	case "MAX":
		return AggMax, true
	default:
		return AggNone, false
	}
}

// SelectItem is one entry of a query's select list: either a bare column
// (Agg == AggNone) or an aggregate over a column. COUNT uses "*" as its
// column.
type SelectItem struct {
	Agg    AggFunc
	Column string
}

// IsAggregate reports whether the item is an aggregate function call.
func (s SelectItem) IsAggregate() bool { return s.Agg != AggNone }

// Alias returns the canonical output column name for the item:
// the column itself for bare columns, "FUNC(col)" for aggregates.
// Routed and fallback executions both label result columns with it, so
// downstream consumers see identical headers on either path.
func (s SelectItem) Alias() string {
	if s.Agg == AggNone {
		return s.Column
	}
	return fmt.Sprintf("%s(%s)", s.Agg, s.Column)
}

// UnmarshalJSON accepts either a bare column name ("day") or a
// single-key object ({"SUM": "bid_price"}). Unknown function names are
// kept as-is and rejected per query by Validate, so one bad query never
// sinks its batch.
func (s *SelectItem) UnmarshalJSON(data []byte) error {
	var col string
	if err := json.Unmarshal(data, &col); err == nil {
		*s = SelectItem{Agg: AggNone, Column: col}
		return nil
	}

	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("select item must be a column name or {FUNC: column}: %w", err)
	}
	if len(obj) != 1 {
		return fmt.Errorf("aggregate select item must have exactly one function key, got %d", len(obj))
	}
	for name, col := range obj {
		*s = SelectItem{Agg: AggFunc(strings.ToUpper(name)), Column: col}
	}
	return nil
}

// MarshalJSON renders the wire form accepted by UnmarshalJSON.
func (s SelectItem) MarshalJSON() ([]byte, error) {
	if s.Agg == AggNone {
		return json.Marshal(s.Column)
	}
	return json.Marshal(map[string]string{string(s.Agg): s.Column})
}

// Predicate is one where-clause condition. Value holds a scalar for
// comparison operators, a two-element slice for between, and a non-empty
// slice for in. Scalars decoded from JSON keep exact numeric text
// (json.Number), never float64.
type Predicate struct {
	Column string
	Op     Operator
	Value  any
}

// UnmarshalJSON decodes {"col": ..., "op": ..., "val": ...} with exact
// numeric capture for the value.
func (p *Predicate) UnmarshalJSON(data []byte) error {
	var raw struct {
		Column string          `json:"col"`
		Op     string          `json:"op"`
		Value  json.RawMessage `json:"val"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var val any
	if len(raw.Value) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw.Value))
		dec.UseNumber()
		if err := dec.Decode(&val); err != nil {
			return fmt.Errorf("predicate value for column %q: %w", raw.Column, err)
		}
	}

	*p = Predicate{Column: raw.Column, Op: Operator(strings.ToLower(raw.Op)), Value: val}
	return nil
}

// MarshalJSON renders the wire form accepted by UnmarshalJSON.
func (p Predicate) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"col": p.Column,
		"op":  string(p.Op),
		"val": p.Value,
	})
}

// Values returns the predicate value as a slice (the natural shape for
// between and in). Scalar values yield a one-element slice.
func (p Predicate) Values() []any {
	if vs, ok := p.Value.([]any); ok {
		return vs
	}
	return []any{p.Value}
}

// Direction is an order-by sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// OrderBy is one order-by entry. Expr is either a column name or the
// canonical alias of a selected aggregate (e.g. "SUM(bid_price)").
type OrderBy struct {
	Expr string
	Dir  Direction
}

// UnmarshalJSON accepts {"col": ..., "dir": ...} or a bare column name
// (ascending). Directions are normalized to lower case; anything besides
// asc/desc is rejected per query by Validate.
func (o *OrderBy) UnmarshalJSON(data []byte) error {
	var col string
	if err := json.Unmarshal(data, &col); err == nil {
		*o = OrderBy{Expr: col, Dir: Asc}
		return nil
	}

	var raw struct {
		Col string `json:"col"`
		Dir string `json:"dir"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("order_by entry must be a column name or {col, dir}: %w", err)
	}
	dir := Direction(strings.ToLower(raw.Dir))
	if dir == "" {
		dir = Asc
	}
	*o = OrderBy{Expr: raw.Col, Dir: dir}
	return nil
}

// MarshalJSON renders the object wire form.
func (o OrderBy) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"col": o.Expr, "dir": string(o.Dir)})
}

// Query is one analytical query from a workload. Queries are immutable
// once decoded: nothing in the optimizer or router mutates them, and the
// same value is shared freely across goroutines.
type Query struct {
	ID      string       `json:"id,omitempty"`
	Select  []SelectItem `json:"select"`
	From    string       `json:"from,omitempty"`
	Where   []Predicate  `json:"where,omitempty"`
	GroupBy []string     `json:"group_by,omitempty"`
	OrderBy []OrderBy    `json:"order_by,omitempty"`
	Limit   *int         `json:"limit,omitempty"`
}

// GroupBySet returns the group-by columns as a set.
func (q *Query) GroupBySet() map[string]struct{} {
	set := make(map[string]struct{}, len(q.GroupBy))
	for _, col := range q.GroupBy {
		set[col] = struct{}{}
	}
	return set
}

// Aggregates returns the aggregate select items in select order.
func (q *Query) Aggregates() []SelectItem {
	var out []SelectItem
	for _, item := range q.Select {
		if item.IsAggregate() {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks the query's shape against the model rules. mainTable
// is the only table queries may name in from (empty from defaults to it
// at decode time). All violations are MalformedQueryError.
func (q *Query) Validate(mainTable string) error {
	if len(q.Select) == 0 {
		return ErrMalformedQuery("query %s: empty select list", q.ID)
	}
	if q.From != "" && q.From != mainTable {
		return ErrMalformedQuery("query %s: unknown source table %q", q.ID, q.From)
	}

	groupBy := q.GroupBySet()
	for _, item := range q.Select {
		switch {
		case item.Column == "":
			return ErrMalformedQuery("query %s: select item with empty column", q.ID)
		case item.Agg == AggNone:
			if _, ok := groupBy[item.Column]; !ok {
				return ErrMalformedQuery("query %s: non-aggregated column %q must appear in group_by", q.ID, item.Column)
			}
		case item.Agg == AggCount:
			if item.Column != "*" {
				return ErrMalformedQuery("query %s: COUNT takes *, got %q", q.ID, item.Column)
			}
		default:
			if _, ok := ParseAggFunc(string(item.Agg)); !ok {
				return ErrMalformedQuery("query %s: unknown aggregate function %q", q.ID, item.Agg)
			}
			if item.Column == "*" {
				return ErrMalformedQuery("query %s: %s cannot take *", q.ID, item.Agg)
			}
		}
	}

	for _, col := range q.GroupBy {
		if col == "" {
			return ErrMalformedQuery("query %s: empty group_by column", q.ID)
		}
	}

	for _, o := range q.OrderBy {
		if o.Expr == "" {
			return ErrMalformedQuery("query %s: empty order_by expression", q.ID)
		}
		if o.Dir != Asc && o.Dir != Desc {
			return ErrMalformedQuery("query %s: order_by direction must be asc or desc, got %q", q.ID, o.Dir)
		}
	}

	if err := q.validatePredicates(); err != nil {
		return err
	}

	if q.Limit != nil && *q.Limit < 0 {
		return ErrMalformedQuery("query %s: negative limit %d", q.ID, *q.Limit)
	}
	return nil
}

func (q *Query) validatePredicates() error {
	eqValues := make(map[string]string)
	for _, p := range q.Where {
		if p.Column == "" {
			return ErrMalformedQuery("query %s: predicate with empty column", q.ID)
		}
		switch p.Op {
		case OpBetween:
			vs, ok := p.Value.([]any)
			if !ok || len(vs) != 2 {
				return ErrMalformedQuery("query %s: between on %q needs a two-element value", q.ID, p.Column)
			}
		case OpIn:
			vs, ok := p.Value.([]any)
			if !ok || len(vs) == 0 {
				return ErrMalformedQuery("query %s: in on %q needs a non-empty list value", q.ID, p.Column)
			}
		case OpEq, OpLt, OpLte, OpGt, OpGte:
			if _, ok := p.Value.([]any); ok {
				return ErrMalformedQuery("query %s: %s on %q takes a scalar value", q.ID, p.Op, p.Column)
			}
			if p.Op != OpEq {
				break
			}
			canon, err := CanonicalValue(p.Value)
			if err != nil {
				return ErrMalformedQuery("query %s: eq on %q: %v", q.ID, p.Column, err)
			}
			if prev, ok := eqValues[p.Column]; ok && prev != canon {
				return ErrMalformedQuery("query %s: contradictory equality filters on %q", q.ID, p.Column)
			}
			eqValues[p.Column] = canon
		}
		// Unknown operators pass here; the classifier rejects them with
		// UnsupportedPredicateError so the error names the operator.
	}
	return nil
}

package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// CanonicalValue renders a workload value as a type-prefixed canonical
// string. The rendering defines value identity: signature construction
// and constant-filter matching both compare these strings byte-for-byte,
// so string "10" and number 10 never collide, and 10 vs 10.0 normalize
// to the same number.
func CanonicalValue(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		return "s:" + val, nil
	case bool:
		return "b:" + strconv.FormatBool(val), nil
	case json.Number:
		return "n:" + normalizeNumber(val), nil
	case int:
		return "n:" + strconv.Itoa(val), nil
	case int64:
		return "n:" + strconv.FormatInt(val, 10), nil
	case float64:
		return "n:" + strconv.FormatFloat(val, 'g', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// normalizeNumber collapses equivalent numeric texts (10 vs 10.0) to one
// canonical form.
func normalizeNumber(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := n.Float64(); err == nil {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return n.String()
}

// ValuesEqual reports whether two workload values are identical under
// CanonicalValue. Values of unsupported types are never equal.
func ValuesEqual(a, b any) bool {
	ca, err := CanonicalValue(a)
	if err != nil {
		return false
	}
	cb, err := CanonicalValue(b)
	if err != nil {
		return false
	}
	return ca == cb
}

package sweep

import "math"

// Value is the closed variant of a document entry: either a single scalar, or
// a list of scalar alternatives. A list with one element is still a list; the
// distinction follows the value type in the source document, not the number
// of alternatives.
type Value struct {
	scalars []any
	list    bool
}

// Scalar creates a fixed single-valued [Value].
func Scalar(v any) Value {
	return Value{scalars: []any{normalizeScalar(v)}}
}

// List creates a [Value] holding a set of scalar alternatives.
// An empty list is valid and yields zero branches during expansion.
func List(vs ...any) Value {
	scalars := make([]any, len(vs))
	for i, v := range vs {
		scalars[i] = normalizeScalar(v)
	}

	return Value{scalars: scalars, list: true}
}

// IsList reports whether the value was an array in the source document.
func (v Value) IsList() bool {
	return v.list
}

// Scalars returns the candidate values. For a scalar [Value] this is a
// single-element slice.
func (v Value) Scalars() []any {
	return v.scalars
}

// Scalar returns the first candidate value, or nil if the value is an empty
// list.
func (v Value) Scalar() any {
	if len(v.scalars) == 0 {
		return nil
	}

	return v.scalars[0]
}

// normalizeScalar collapses equivalent numeric representations so that values
// decoded from YAML, CSV, and CEL all compare equal.
func normalizeScalar(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return normalizeScalar(uint64(t))
	case uint32:
		return int64(t)
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t)
		}

		return t
	case float32:
		return float64(t)
	}

	return v
}

// scalarsEqual compares two scalar values, treating numeric types as
// interchangeable (8 == 8.0 regardless of how either side was decoded).
func scalarsEqual(a, b any) bool {
	a, b = normalizeScalar(a), normalizeScalar(b)
	if a == b {
		return true
	}

	af, aOK := toFloat(a)
	bf, bOK := toFloat(b)
	if aOK && bOK {
		return af == bf
	}

	return false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int64:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float64:
		return t, true
	}

	return 0, false
}

package analysis

import (
	"fmt"
	"math"
)

// Row values arrive from the executor already normalized to a small set of
// Go types (nil, bool, int64, float64, string, time.Time, []any). The
// helpers below coerce them into the shapes the statistics need; a nil or
// unexpected value coerces to the zero value rather than panicking.

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(math.Round(n))
	default:
		return 0
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

func intPtr(v any) *int64 {
	switch n := v.(type) {
	case int64:
		return &n
	case int:
		x := int64(n)
		return &x
	case float64:
		x := int64(math.Round(n))
		return &x
	default:
		return nil
	}
}

func floatPtr(v any) *float64 {
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	return &f
}

// roundPtr rounds a nullable aggregate to the given number of decimals.
// SQL NULL stays nil; a zero aggregate stays 0.
func roundPtr(v any, decimals int) *float64 {
	f, ok := asFloat(v)
	if !ok {
		return nil
	}
	r := roundTo(f, decimals)
	return &r
}

// roundTo rounds half away from zero, matching the rounding the database
// applies to its own numeric output.
func roundTo(f float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(f*p) / p
}

func toStringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			out = append(out, asString(item))
		}
		return out
	default:
		return []string{}
	}
}

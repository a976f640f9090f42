package postgres

import (
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// normalizeValue converts driver-specific values into plain Go types so
// callers see a stable set: nil, bool, int64, float64, string, time.Time,
// []any and map[string]any. Integer widths are widened to int64 and
// arbitrary-precision numerics are converted to float64, which is the
// precision the statistics layer works at anyway.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case uint32:
		return int64(val)
	case float32:
		return float64(val)
	case []byte:
		return string(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		return numericToFloat(val)
	case pgtype.Float8:
		if !val.Valid {
			return nil
		}
		return val.Float64
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

// numericToFloat converts a pgtype.Numeric to float64. NaN and infinities
// are not representable in JSON, so they map to nil like SQL NULL.
func numericToFloat(n pgtype.Numeric) any {
	if !n.Valid {
		return nil
	}
	f8, err := n.Float64Value()
	if err != nil || !f8.Valid {
		return nil
	}
	if math.IsNaN(f8.Float64) || math.IsInf(f8.Float64, 0) {
		return nil
	}
	return f8.Float64
}

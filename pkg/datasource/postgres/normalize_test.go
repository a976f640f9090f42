package postgres

import (
	"math/big"
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

func TestNormalizeValue(t *testing.T) {
	u := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name string
		in   any
		want any
	}{
		{name: "nil", in: nil, want: nil},
		{name: "int16 widened", in: int16(3), want: int64(3)},
		{name: "int32 widened", in: int32(7), want: int64(7)},
		{name: "int widened", in: int(42), want: int64(42)},
		{name: "uint32 widened", in: uint32(9), want: int64(9)},
		{name: "int64 passthrough", in: int64(100), want: int64(100)},
		{name: "float32 widened", in: float32(1.5), want: float64(1.5)},
		{name: "float64 passthrough", in: 2.25, want: 2.25},
		{name: "bool passthrough", in: true, want: true},
		{name: "string passthrough", in: "hello", want: "hello"},
		{name: "bytes to string", in: []byte("abc"), want: "abc"},
		{name: "uuid bytes to string", in: [16]byte(u), want: u.String()},
		{
			name: "numeric to float",
			in:   pgtype.Numeric{Int: big.NewInt(1234), Exp: -2, Valid: true},
			want: 12.34,
		},
		{
			name: "null numeric",
			in:   pgtype.Numeric{Valid: false},
			want: nil,
		},
		{
			name: "nan numeric",
			in:   pgtype.Numeric{NaN: true, Valid: true},
			want: nil,
		},
		{
			name: "float8 to float",
			in:   pgtype.Float8{Float64: 2.5, Valid: true},
			want: 2.5,
		},
		{
			name: "null float8",
			in:   pgtype.Float8{Valid: false},
			want: nil,
		},
		{
			name: "slice elements normalized",
			in:   []any{int32(1), []byte("x"), nil},
			want: []any{int64(1), "x", nil},
		},
		{
			name: "map values normalized",
			in:   map[string]any{"count": int32(2), "label": "a"},
			want: map[string]any{"count": int64(2), "label": "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeValue(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("normalizeValue(%#v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

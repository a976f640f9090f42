package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsInt64(t *testing.T) {
	assert.Equal(t, int64(42), asInt64(int64(42)))
	assert.Equal(t, int64(42), asInt64(42))
	assert.Equal(t, int64(42), asInt64(42.4))
	assert.Equal(t, int64(43), asInt64(42.5))
	assert.Equal(t, int64(0), asInt64(nil))
	assert.Equal(t, int64(0), asInt64("42"))
}

func TestAsFloat(t *testing.T) {
	f, ok := asFloat(1.5)
	require.True(t, ok)
	assert.Equal(t, 1.5, f)

	f, ok = asFloat(int64(3))
	require.True(t, ok)
	assert.Equal(t, 3.0, f)

	_, ok = asFloat(nil)
	assert.False(t, ok)

	_, ok = asFloat("1.5")
	assert.False(t, ok)
}

func TestAsString(t *testing.T) {
	assert.Equal(t, "hello", asString("hello"))
	assert.Equal(t, "", asString(nil))
	assert.Equal(t, "42", asString(int64(42)))
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 1.2346, roundTo(1.23456, 4))
	assert.Equal(t, 3.33, roundTo(10.0/3, 2))
	// Halves round away from zero.
	assert.Equal(t, 0.13, roundTo(0.125, 2))
	assert.Equal(t, 3.0, roundTo(2.5, 0))
	assert.Equal(t, -3.0, roundTo(-2.5, 0))
	assert.Equal(t, 0.0, roundTo(0, 2))
}

func TestRoundPtr(t *testing.T) {
	got := roundPtr(42.65432, 4)
	require.NotNil(t, got)
	assert.Equal(t, 42.6543, *got)

	// A zero aggregate is a value, not absence.
	got = roundPtr(0.0, 2)
	require.NotNil(t, got)
	assert.Equal(t, 0.0, *got)

	assert.Nil(t, roundPtr(nil, 2))
}

func TestIntPtr(t *testing.T) {
	got := intPtr(int64(7))
	require.NotNil(t, got)
	assert.Equal(t, int64(7), *got)

	got = intPtr(7.6)
	require.NotNil(t, got)
	assert.Equal(t, int64(8), *got)

	assert.Nil(t, intPtr(nil))
	assert.Nil(t, intPtr("7"))
}

func TestToStringSlice(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, toStringSlice([]string{"a", "b"}))
	assert.Equal(t, []string{"(0,1)", "(0,2)"}, toStringSlice([]any{"(0,1)", "(0,2)"}))
	assert.Equal(t, []string{}, toStringSlice(nil))
	assert.Equal(t, []string{}, toStringSlice(42))
}

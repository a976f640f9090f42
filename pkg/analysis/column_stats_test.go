package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statlens/statlens-engine/pkg/apperrors"
)

func TestAnalyzeColumnNumeric(t *testing.T) {
	svc, executor := newTestService(
		queryRule{contains: "column_name = $2", row: schemaRow("age", "integer", "YES", 3)},
		queryRule{contains: `COUNT("age") as non_null_count`, row: map[string]any{
			"total_rows":     int64(100),
			"non_null_count": int64(90),
			"null_count":     int64(10),
			"distinct_count": int64(50),
		}},
		queryRule{contains: "PERCENTILE_CONT", row: map[string]any{
			"min_value": int64(18),
			"max_value": int64(95),
			"avg_value": 42.65432,
			"std_dev":   12.34567,
			"q1":        30.5,
			"median":    41.0,
			"q3":        55.25,
		}},
		queryRule{contains: "as frequency", rows: []map[string]any{
			{"value": int64(18), "frequency": int64(12)},
			{"value": int64(30), "frequency": int64(9)},
		}},
	)

	result, err := svc.AnalyzeColumn(context.Background(), "users", "age")
	require.NoError(t, err)

	assert.Equal(t, "age", result.ColumnInfo.Name)
	assert.Equal(t, "integer", result.ColumnInfo.DataType)
	assert.True(t, result.ColumnInfo.IsNullable)

	assert.Equal(t, int64(100), result.BasicStats.TotalRows)
	assert.Equal(t, int64(90), result.BasicStats.NonNullCount)
	assert.Equal(t, int64(10), result.BasicStats.NullCount)
	assert.Equal(t, int64(50), result.BasicStats.DistinctCount)
	assert.Equal(t, 10.0, result.BasicStats.NullPercentage)
	assert.Equal(t, 0.5556, result.BasicStats.UniquenessRatio)

	require.NotNil(t, result.NumericStats)
	assert.Nil(t, result.TextStats)
	assert.Equal(t, int64(18), result.NumericStats.MinValue)
	assert.Equal(t, int64(95), result.NumericStats.MaxValue)
	require.NotNil(t, result.NumericStats.AvgValue)
	assert.Equal(t, 42.6543, *result.NumericStats.AvgValue)
	require.NotNil(t, result.NumericStats.StdDev)
	assert.Equal(t, 12.3457, *result.NumericStats.StdDev)
	require.NotNil(t, result.NumericStats.Median)
	assert.Equal(t, 41.0, *result.NumericStats.Median)

	require.Len(t, result.FrequentValues, 2)
	assert.Equal(t, int64(18), result.FrequentValues[0].Value)
	assert.Equal(t, int64(12), result.FrequentValues[0].Frequency)
	assert.Equal(t, 13.33, result.FrequentValues[0].Percentage)
	assert.Equal(t, 10.0, result.FrequentValues[1].Percentage)

	assert.NotEmpty(t, executor.queryMatching("PERCENTILE_CONT"))
	assert.Empty(t, executor.queryMatching("LENGTH("))
}

func TestAnalyzeColumnText(t *testing.T) {
	svc, executor := newTestService(
		queryRule{contains: "column_name = $2", row: schemaRow("bio", "text", "YES", 2)},
		queryRule{contains: `COUNT("bio") as non_null_count`, row: map[string]any{
			"total_rows":     int64(10),
			"non_null_count": int64(8),
			"null_count":     int64(2),
			"distinct_count": int64(8),
		}},
		queryRule{contains: "LENGTH(", row: map[string]any{
			"min_length": int64(3),
			"max_length": int64(120),
			"avg_length": 47.125,
		}},
		queryRule{contains: "as frequency", rows: []map[string]any{
			{"value": "hello", "frequency": int64(1)},
		}},
	)

	result, err := svc.AnalyzeColumn(context.Background(), "users", "bio")
	require.NoError(t, err)

	assert.Equal(t, 20.0, result.BasicStats.NullPercentage)
	assert.Equal(t, 1.0, result.BasicStats.UniquenessRatio)

	assert.Nil(t, result.NumericStats)
	require.NotNil(t, result.TextStats)
	assert.Equal(t, int64(3), *result.TextStats.MinLength)
	assert.Equal(t, int64(120), *result.TextStats.MaxLength)
	assert.Equal(t, 47.13, *result.TextStats.AvgLength)

	assert.Empty(t, executor.queryMatching("PERCENTILE_CONT"))
}

func TestAnalyzeColumnHighCardinalitySkipsFrequentValues(t *testing.T) {
	svc, executor := newTestService(
		queryRule{contains: "column_name = $2", row: schemaRow("id", "uuid", "NO", 1)},
		queryRule{contains: `COUNT("id") as non_null_count`, row: map[string]any{
			"total_rows":     int64(5000),
			"non_null_count": int64(5000),
			"null_count":     int64(0),
			"distinct_count": int64(5000),
		}},
	)

	result, err := svc.AnalyzeColumn(context.Background(), "users", "id")
	require.NoError(t, err)

	assert.Nil(t, result.FrequentValues)
	assert.Empty(t, executor.queryMatching("as frequency"))
}

func TestAnalyzeColumnEmptyTable(t *testing.T) {
	svc, _ := newTestService(
		queryRule{contains: "column_name = $2", row: schemaRow("age", "integer", "YES", 1)},
		queryRule{contains: `COUNT("age") as non_null_count`, row: map[string]any{
			"total_rows":     int64(0),
			"non_null_count": int64(0),
			"null_count":     int64(0),
			"distinct_count": int64(0),
		}},
		// MIN over zero rows is NULL; no numeric block is emitted.
		queryRule{contains: "PERCENTILE_CONT", row: map[string]any{
			"min_value": nil,
			"max_value": nil,
			"avg_value": nil,
		}},
		queryRule{contains: "as frequency", rows: nil},
	)

	result, err := svc.AnalyzeColumn(context.Background(), "users", "age")
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.BasicStats.NullPercentage)
	assert.Equal(t, 0.0, result.BasicStats.UniquenessRatio)
	assert.Nil(t, result.NumericStats)
	assert.Empty(t, result.FrequentValues)
}

func TestAnalyzeColumnRedactsSensitiveValues(t *testing.T) {
	svc, _ := newTestService(
		queryRule{contains: "column_name = $2", row: schemaRow("password", "text", "NO", 4)},
		queryRule{contains: `COUNT("password") as non_null_count`, row: map[string]any{
			"total_rows":     int64(3),
			"non_null_count": int64(3),
			"null_count":     int64(0),
			"distinct_count": int64(2),
		}},
		queryRule{contains: "LENGTH(", row: map[string]any{
			"min_length": int64(8),
			"max_length": int64(12),
			"avg_length": 10.0,
		}},
		queryRule{contains: "as frequency", rows: []map[string]any{
			{"value": "hunter2!", "frequency": int64(2)},
			{"value": "s3cr3tpw", "frequency": int64(1)},
		}},
	)

	result, err := svc.AnalyzeColumn(context.Background(), "users", "password")
	require.NoError(t, err)

	require.Len(t, result.FrequentValues, 2)
	for _, fv := range result.FrequentValues {
		assert.Equal(t, RedactedValue, fv.Value)
	}
	// Frequencies survive redaction.
	assert.Equal(t, int64(2), result.FrequentValues[0].Frequency)
}

func TestAnalyzeColumnInvalidNames(t *testing.T) {
	svc, executor := newTestService()

	_, err := svc.AnalyzeColumn(context.Background(), "users; DROP TABLE users", "age")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))

	_, err = svc.AnalyzeColumn(context.Background(), "users", "1age")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidArgument))

	// Nothing reaches the database on validation failures.
	assert.Empty(t, executor.queries)
}

func TestAnalyzeColumnNotFound(t *testing.T) {
	svc, _ := newTestService(
		queryRule{contains: "column_name = $2", row: nil},
	)

	_, err := svc.AnalyzeColumn(context.Background(), "users", "ghost")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestAnalyzeColumnQueryFailure(t *testing.T) {
	svc, _ := newTestService(
		queryRule{contains: "column_name = $2", row: schemaRow("age", "integer", "YES", 1)},
		queryRule{contains: `COUNT("age") as non_null_count`, err: errors.New("connection reset")},
	)

	_, err := svc.AnalyzeColumn(context.Background(), "users", "age")
	require.Error(t, err)
	assert.ErrorContains(t, err, "basic stats:")
	assert.ErrorContains(t, err, "connection reset")
}

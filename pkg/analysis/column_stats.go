package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/statlens/statlens-engine/pkg/apperrors"
	"github.com/statlens/statlens-engine/pkg/sql"
)

const (
	// frequentValueCardinalityCap guards the frequency query against
	// unbounded result sets on high-cardinality columns.
	frequentValueCardinalityCap = 1000
	// topValueLimit caps how many frequent values are returned.
	topValueLimit = 10
)

// ColumnInfo echoes the resolved schema metadata of the analyzed column.
type ColumnInfo struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	IsNullable bool   `json:"is_nullable"`
}

// BasicStats holds the counts every column analysis starts from.
// NullPercentage and UniquenessRatio are derived fields, 0 when their
// denominator is 0.
type BasicStats struct {
	TotalRows       int64   `json:"total_rows"`
	NonNullCount    int64   `json:"non_null_count"`
	NullCount       int64   `json:"null_count"`
	DistinctCount   int64   `json:"distinct_count"`
	NullPercentage  float64 `json:"null_percentage"`
	UniquenessRatio float64 `json:"uniqueness_ratio"`
}

// NumericStats is present only for numeric-family columns with at least
// one non-null value.
type NumericStats struct {
	MinValue any      `json:"min_value"`
	MaxValue any      `json:"max_value"`
	AvgValue *float64 `json:"avg_value"`
	StdDev   *float64 `json:"std_dev"`
	Q1       *float64 `json:"q1"`
	Median   *float64 `json:"median"`
	Q3       *float64 `json:"q3"`
}

// TextStats is present for text-family columns; the fields are NULL when
// the column has no non-null values.
type TextStats struct {
	MinLength *int64   `json:"min_length"`
	MaxLength *int64   `json:"max_length"`
	AvgLength *float64 `json:"avg_length"`
}

// FrequentValue is one entry of the top-value distribution. Percentage is
// relative to the column's non-null count.
type FrequentValue struct {
	Value      any     `json:"value"`
	Frequency  int64   `json:"frequency"`
	Percentage float64 `json:"percentage"`
}

// ColumnAnalysis is the payload of a single-column analysis.
type ColumnAnalysis struct {
	ColumnInfo     ColumnInfo      `json:"column_info"`
	BasicStats     BasicStats      `json:"basic_stats"`
	NumericStats   *NumericStats   `json:"numeric_stats,omitempty"`
	TextStats      *TextStats      `json:"text_stats,omitempty"`
	FrequentValues []FrequentValue `json:"frequent_values,omitempty"`
}

// AnalyzeColumn computes basic, type-specific and distribution statistics
// for one column. A failure in any of the aggregate queries fails the
// whole operation; there is nothing to isolate at this granularity.
func (s *Service) AnalyzeColumn(ctx context.Context, tableName, columnName string) (*ColumnAnalysis, error) {
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}
	if err := validateColumnName(columnName); err != nil {
		return nil, err
	}

	s.logger.Info("Analyzing column",
		zap.String("table", tableName),
		zap.String("column", columnName))

	column, err := s.resolver.ResolveColumn(ctx, tableName, columnName)
	if err != nil {
		return nil, err
	}

	row, err := s.executor.QueryOne(ctx, s.builder.BasicStats(tableName, columnName))
	if err != nil {
		return nil, fmt.Errorf("basic stats: %w", err)
	}
	basic := basicStatsFromRow(row)

	result := &ColumnAnalysis{
		ColumnInfo: ColumnInfo{
			Name:       column.Name,
			DataType:   column.DataType,
			IsNullable: column.Nullable,
		},
		BasicStats: basic,
	}

	switch column.Family {
	case FamilyNumeric:
		stats, err := s.numericStats(ctx, tableName, columnName)
		if err != nil {
			return nil, err
		}
		result.NumericStats = stats
	case FamilyText:
		stats, err := s.textStats(ctx, tableName, columnName, "")
		if err != nil {
			return nil, err
		}
		result.TextStats = stats
	}

	if basic.DistinctCount <= frequentValueCardinalityCap {
		values, err := s.frequentValues(ctx, tableName, columnName, basic.NonNullCount)
		if err != nil {
			return nil, err
		}
		result.FrequentValues = values
	}

	return result, nil
}

func basicStatsFromRow(row map[string]any) BasicStats {
	stats := BasicStats{
		TotalRows:     asInt64(row["total_rows"]),
		NonNullCount:  asInt64(row["non_null_count"]),
		NullCount:     asInt64(row["null_count"]),
		DistinctCount: asInt64(row["distinct_count"]),
	}
	if stats.TotalRows > 0 {
		stats.NullPercentage = roundTo(float64(stats.NullCount)/float64(stats.TotalRows)*100, 2)
	}
	if stats.NonNullCount > 0 {
		stats.UniquenessRatio = roundTo(float64(stats.DistinctCount)/float64(stats.NonNullCount), 4)
	}
	return stats
}

// numericStats returns nil without error when the column has no non-null
// values (MIN comes back NULL).
func (s *Service) numericStats(ctx context.Context, table, column string) (*NumericStats, error) {
	row, err := s.executor.QueryOne(ctx, s.builder.NumericStats(table, column))
	if err != nil {
		return nil, fmt.Errorf("numeric stats: %w", err)
	}
	if row == nil || row["min_value"] == nil {
		return nil, nil
	}
	return &NumericStats{
		MinValue: row["min_value"],
		MaxValue: row["max_value"],
		AvgValue: roundPtr(row["avg_value"], 4),
		StdDev:   roundPtr(row["std_dev"], 4),
		Q1:       floatPtr(row["q1"]),
		Median:   floatPtr(row["median"]),
		Q3:       floatPtr(row["q3"]),
	}, nil
}

func (s *Service) textStats(ctx context.Context, table, column, sampleClause string) (*TextStats, error) {
	row, err := s.executor.QueryOne(ctx, s.builder.TextStats(table, column, sampleClause))
	if err != nil {
		return nil, fmt.Errorf("text stats: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	return &TextStats{
		MinLength: intPtr(row["min_length"]),
		MaxLength: intPtr(row["max_length"]),
		AvgLength: roundPtr(row["avg_length"], 2),
	}, nil
}

func (s *Service) frequentValues(ctx context.Context, table, column string, nonNullCount int64) ([]FrequentValue, error) {
	rows, err := s.executor.QueryAll(ctx, s.builder.FrequentValues(table, column, "", topValueLimit))
	if err != nil {
		return nil, fmt.Errorf("frequent values: %w", err)
	}

	redact := s.detector.IsSensitiveColumn(column)
	values := make([]FrequentValue, 0, len(rows))
	for _, row := range rows {
		value := row["value"]
		if redact {
			value = RedactedValue
		}
		fv := FrequentValue{Value: value, Frequency: asInt64(row["frequency"])}
		if nonNullCount > 0 {
			fv.Percentage = roundTo(float64(fv.Frequency)/float64(nonNullCount)*100, 2)
		}
		values = append(values, fv)
	}
	return values, nil
}

func validateTableName(name string) error {
	if err := sql.ValidateTableName(name); err != nil {
		return apperrors.InvalidArgumentf("%s", err)
	}
	return nil
}

func validateColumnName(name string) error {
	if err := sql.ValidateColumnName(name); err != nil {
		return apperrors.InvalidArgumentf("%s", err)
	}
	return nil
}

package analysis

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/statlens/statlens-engine/pkg/apperrors"
)

// sampleValueCardinalityCap gates the per-column sample-value query in the
// profiler; only low-cardinality columns get their values listed.
const sampleValueCardinalityCap = 20

// ProfileNumericStats is the reduced numeric block the profiler computes
// per column.
type ProfileNumericStats struct {
	MinValue any      `json:"min_value"`
	MaxValue any      `json:"max_value"`
	AvgValue *float64 `json:"avg_value"`
}

// SampleValue is one entry of a low-cardinality column's value listing.
type SampleValue struct {
	Value     any   `json:"value"`
	Frequency int64 `json:"frequency"`
}

// ColumnProfile is the per-column result of a table profile. Counts refer
// to the sampled row set when sampling is in effect.
type ColumnProfile struct {
	ColumnName             string               `json:"column_name"`
	DataType               string               `json:"data_type"`
	IsNullable             bool                 `json:"is_nullable"`
	ColumnDefault          *string              `json:"column_default"`
	CharacterMaximumLength *int64               `json:"character_maximum_length"`
	NumericPrecision       *int64               `json:"numeric_precision"`
	NumericScale           *int64               `json:"numeric_scale"`
	SampleRows             int64                `json:"sample_rows"`
	NonNullCount           int64                `json:"non_null_count"`
	NullCount              int64                `json:"null_count"`
	DistinctCount          int64                `json:"distinct_count"`
	NullPercentage         float64              `json:"null_percentage"`
	UniquenessRatio        float64              `json:"uniqueness_ratio"`
	NumericStats           *ProfileNumericStats `json:"numeric_stats,omitempty"`
	TextStats              *TextStats           `json:"text_stats,omitempty"`
	SampleValues           []SampleValue        `json:"sample_values,omitempty"`
}

// ColumnProfileError stands in for a column whose profiling failed. The
// rest of the profile proceeds regardless.
type ColumnProfileError struct {
	ColumnName string `json:"column_name"`
	DataType   string `json:"data_type"`
	IsNullable bool   `json:"is_nullable"`
	Error      string `json:"error"`
}

// ProfileSummary rolls up table-level counts across all column profiles.
type ProfileSummary struct {
	NullableColumns  int `json:"nullable_columns"`
	NumericColumns   int `json:"numeric_columns"`
	TextColumns      int `json:"text_columns"`
	ColumnsWithNulls int `json:"columns_with_nulls"`
	UniqueColumns    int `json:"unique_columns"`
}

// TableProfile is the payload of a whole-table profile. Columns holds
// ColumnProfile entries, with ColumnProfileError in place of columns that
// failed.
type TableProfile struct {
	TableName   string         `json:"table_name"`
	TotalRows   int64          `json:"total_rows"`
	ColumnCount int            `json:"column_count"`
	Sampled     bool           `json:"sampled"`
	SampleSize  int64          `json:"sample_size"`
	Columns     []any          `json:"columns"`
	Summary     ProfileSummary `json:"summary"`
}

// ProfileTable runs column statistics over every column of the table.
// When sampleSize is given and smaller than the table, per-column queries
// run over a probabilistic sample of roughly that many rows. Per-column
// failures are isolated; they never abort the profile.
func (s *Service) ProfileTable(ctx context.Context, tableName string, sampleSize *int64) (*TableProfile, error) {
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}
	if sampleSize != nil && *sampleSize <= 0 {
		return nil, apperrors.InvalidArgumentf("Sample size must be a positive integer")
	}

	s.logger.Info("Profiling table", zap.String("table", tableName))

	columns, err := s.resolver.ResolveTableColumns(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, apperrors.NotFoundf("Table '%s' not found", tableName)
	}

	countRow, err := s.executor.QueryOne(ctx, s.builder.RowCount(tableName))
	if err != nil {
		return nil, fmt.Errorf("row count: %w", err)
	}
	totalRows := asInt64(countRow["total_rows"])

	sampleClause := ""
	sampled := sampleSize != nil && totalRows > *sampleSize
	if sampled {
		percentage := math.Min(100, float64(*sampleSize)/float64(totalRows)*100)
		sampleClause = s.builder.SampleClause(percentage)
	}

	profiles := make([]any, 0, len(columns))
	var summary ProfileSummary
	for i := range columns {
		column := &columns[i]
		if column.Nullable {
			summary.NullableColumns++
		}
		switch column.Family {
		case FamilyNumeric:
			summary.NumericColumns++
		case FamilyText:
			summary.TextColumns++
		}

		profile, err := s.profileColumn(ctx, tableName, column, sampleClause)
		if err != nil {
			s.logger.Warn("Error profiling column",
				zap.String("table", tableName),
				zap.String("column", column.Name),
				zap.Error(err))
			profiles = append(profiles, ColumnProfileError{
				ColumnName: column.Name,
				DataType:   column.DataType,
				IsNullable: column.Nullable,
				Error:      err.Error(),
			})
			continue
		}

		if profile.NullCount > 0 {
			summary.ColumnsWithNulls++
		}
		if profile.UniquenessRatio == 1.0 {
			summary.UniqueColumns++
		}
		profiles = append(profiles, *profile)
	}

	size := totalRows
	if sampled {
		size = *sampleSize
	}

	return &TableProfile{
		TableName:   tableName,
		TotalRows:   totalRows,
		ColumnCount: len(columns),
		Sampled:     sampled,
		SampleSize:  size,
		Columns:     profiles,
		Summary:     summary,
	}, nil
}

func (s *Service) profileColumn(ctx context.Context, table string, column *ColumnDescriptor, sampleClause string) (*ColumnProfile, error) {
	row, err := s.executor.QueryOne(ctx, s.builder.ProfileBasicStats(table, column.Name, sampleClause))
	if err != nil {
		return nil, err
	}

	profile := &ColumnProfile{
		ColumnName:             column.Name,
		DataType:               column.DataType,
		IsNullable:             column.Nullable,
		ColumnDefault:          column.Default,
		CharacterMaximumLength: column.CharMaxLength,
		NumericPrecision:       column.NumericPrecision,
		NumericScale:           column.NumericScale,
		SampleRows:             asInt64(row["sample_rows"]),
		NonNullCount:           asInt64(row["non_null_count"]),
		NullCount:              asInt64(row["null_count"]),
		DistinctCount:          asInt64(row["distinct_count"]),
	}
	if profile.SampleRows > 0 {
		profile.NullPercentage = roundTo(float64(profile.NullCount)/float64(profile.SampleRows)*100, 2)
	}
	if profile.NonNullCount > 0 {
		profile.UniquenessRatio = roundTo(float64(profile.DistinctCount)/float64(profile.NonNullCount), 4)
	}

	switch column.Family {
	case FamilyNumeric:
		numericRow, err := s.executor.QueryOne(ctx, s.builder.ProfileNumericStats(table, column.Name, sampleClause))
		if err != nil {
			return nil, err
		}
		if numericRow != nil && numericRow["min_value"] != nil {
			profile.NumericStats = &ProfileNumericStats{
				MinValue: numericRow["min_value"],
				MaxValue: numericRow["max_value"],
				AvgValue: roundPtr(numericRow["avg_value"], 4),
			}
		}
	case FamilyText:
		stats, err := s.textStats(ctx, table, column.Name, sampleClause)
		if err != nil {
			return nil, err
		}
		profile.TextStats = stats
	}

	if profile.DistinctCount > 0 && profile.DistinctCount <= sampleValueCardinalityCap {
		rows, err := s.executor.QueryAll(ctx, s.builder.FrequentValues(table, column.Name, sampleClause, topValueLimit))
		if err != nil {
			return nil, err
		}
		redact := s.detector.IsSensitiveColumn(column.Name)
		values := make([]SampleValue, 0, len(rows))
		for _, r := range rows {
			value := r["value"]
			if redact {
				value = RedactedValue
			}
			values = append(values, SampleValue{Value: value, Frequency: asInt64(r["frequency"])})
		}
		profile.SampleValues = values
	}

	return profile, nil
}

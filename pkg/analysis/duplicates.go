package analysis

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/statlens/statlens-engine/pkg/apperrors"
)

// TableInfo identifies the analyzed table and column set in table-level
// payloads.
type TableInfo struct {
	TableName       string   `json:"table_name"`
	AnalyzedColumns []string `json:"analyzed_columns"`
	ColumnCount     int      `json:"column_count"`
}

// DuplicateSummary reflects the whole duplicate population, not just the
// returned page.
type DuplicateSummary struct {
	TotalDuplicateGroups int64 `json:"total_duplicate_groups"`
	TotalDuplicateRows   int64 `json:"total_duplicate_rows"`
	GroupsReturned       int   `json:"groups_returned"`
}

// DuplicateGroup is one set of rows sharing the same values across the
// analyzed columns. RowIDs carries the physical row identifiers of the
// group members.
type DuplicateGroup struct {
	DuplicateValues map[string]any `json:"duplicate_values"`
	DuplicateCount  int64          `json:"duplicate_count"`
	RowIDs          []string       `json:"row_ids"`
}

// DuplicateReport is the payload of a duplicate analysis.
type DuplicateReport struct {
	TableInfo        TableInfo        `json:"table_info"`
	DuplicateSummary DuplicateSummary `json:"duplicate_summary"`
	DuplicateGroups  []DuplicateGroup `json:"duplicate_groups"`
}

// FindDuplicates groups rows by the given columns (every table column when
// none are given) and reports groups occurring more than once, largest
// first, capped at limit groups. Summary totals are computed without the
// cap.
func (s *Service) FindDuplicates(ctx context.Context, tableName string, columns []string, limit int) (*DuplicateReport, error) {
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, apperrors.InvalidArgumentf("LIMIT must be a positive integer")
	}
	if limit > s.limits.MaxDuplicateLimit {
		return nil, apperrors.InvalidArgumentf("LIMIT too large (max %d)", s.limits.MaxDuplicateLimit)
	}

	s.logger.Info("Finding duplicates",
		zap.String("table", tableName),
		zap.Int("requested_columns", len(columns)))

	if len(columns) == 0 {
		resolved, err := s.resolver.ResolveTableColumns(ctx, tableName)
		if err != nil {
			return nil, err
		}
		if len(resolved) == 0 {
			return nil, apperrors.NotFoundf("Table '%s' not found or has no columns", tableName)
		}
		columns = columnNames(resolved)
	} else {
		for _, column := range columns {
			if err := validateColumnName(column); err != nil {
				return nil, err
			}
		}
		if _, err := s.resolver.ResolveRequestedColumns(ctx, tableName, columns); err != nil {
			return nil, err
		}
	}

	groupRows, err := s.executor.QueryAll(ctx, s.builder.DuplicateGroups(tableName, columns, limit))
	if err != nil {
		return nil, fmt.Errorf("duplicate groups: %w", err)
	}

	totals, err := s.executor.QueryOne(ctx, s.builder.DuplicateTotals(tableName, columns))
	if err != nil {
		return nil, fmt.Errorf("duplicate totals: %w", err)
	}

	groups := make([]DuplicateGroup, 0, len(groupRows))
	for _, row := range groupRows {
		values := make(map[string]any, len(columns))
		for _, column := range columns {
			values[column] = row[column]
		}
		groups = append(groups, DuplicateGroup{
			DuplicateValues: values,
			DuplicateCount:  asInt64(row["duplicate_count"]),
			RowIDs:          toStringSlice(row["row_ids"]),
		})
	}

	return &DuplicateReport{
		TableInfo: TableInfo{
			TableName:       tableName,
			AnalyzedColumns: columns,
			ColumnCount:     len(columns),
		},
		DuplicateSummary: DuplicateSummary{
			TotalDuplicateGroups: asInt64(totals["total_duplicate_groups"]),
			TotalDuplicateRows:   asInt64(totals["total_duplicate_rows"]),
			GroupsReturned:       len(groups),
		},
		DuplicateGroups: groups,
	}, nil
}

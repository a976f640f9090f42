package analysis

import (
	"context"
	"slices"
	"strings"

	"github.com/statlens/statlens-engine/pkg/apperrors"
	"github.com/statlens/statlens-engine/pkg/datasource"
)

// TypeFamily groups declared column types into the branches the analysis
// operations dispatch on.
type TypeFamily int

const (
	FamilyOther TypeFamily = iota
	FamilyNumeric
	FamilyText
)

var (
	numericTypes = []string{"integer", "bigint", "smallint", "numeric", "decimal", "real", "double precision"}
	textTypes    = []string{"text", "varchar", "char", "character varying"}
)

func familyForDataType(dataType string) TypeFamily {
	switch {
	case slices.Contains(numericTypes, dataType):
		return FamilyNumeric
	case slices.Contains(textTypes, dataType):
		return FamilyText
	default:
		return FamilyOther
	}
}

// ColumnDescriptor holds the schema metadata for one column. Descriptors
// are resolved once per request and read-only thereafter.
type ColumnDescriptor struct {
	Name             string
	DataType         string
	Family           TypeFamily
	Nullable         bool
	Position         int
	Default          *string
	CharMaxLength    *int64
	NumericPrecision *int64
	NumericScale     *int64
}

// TableSummary describes one table or view in a schema, with physical
// size stats when the catalog exposes them.
type TableSummary struct {
	Name          string  `json:"table_name"`
	Type          string  `json:"table_type"`
	Schema        string  `json:"table_schema"`
	SizeBytes     *int64  `json:"size_bytes"`
	SizeHuman     *string `json:"size_human"`
	EstimatedRows *int64  `json:"estimated_rows"`
}

// Resolver answers column-existence and column-type questions from
// information_schema. Each Resolve* call is a single round trip.
type Resolver struct {
	executor datasource.QueryExecutor
}

// NewResolver creates a schema resolver backed by the given executor.
func NewResolver(executor datasource.QueryExecutor) *Resolver {
	return &Resolver{executor: executor}
}

const resolveColumnQuery = `
SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_name = $1 AND column_name = $2
`

const resolveTableColumnsQuery = `
SELECT
    column_name,
    data_type,
    is_nullable,
    column_default,
    character_maximum_length,
    numeric_precision,
    numeric_scale,
    ordinal_position
FROM information_schema.columns
WHERE table_name = $1
ORDER BY ordinal_position
`

const resolveRequestedColumnsQuery = `
SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_name = $1 AND column_name = ANY($2)
`

const resolveNumericColumnsQuery = `
SELECT column_name, data_type, is_nullable, ordinal_position
FROM information_schema.columns
WHERE table_name = $1 AND data_type = ANY($2)
ORDER BY ordinal_position
`

// listTablesQuery joins pg_class for physical stats. The LEFT JOINs keep
// tables visible even when the catalog rows are missing (foreign tables,
// restricted catalogs).
const listTablesQuery = `
SELECT
    t.table_name,
    t.table_type,
    t.table_schema,
    pg_total_relation_size(c.oid) AS size_bytes,
    pg_size_pretty(pg_total_relation_size(c.oid)) AS size_human,
    c.reltuples::bigint AS estimated_rows
FROM information_schema.tables t
LEFT JOIN pg_namespace n ON n.nspname = t.table_schema
LEFT JOIN pg_class c ON c.relname = t.table_name AND c.relnamespace = n.oid
WHERE t.table_schema = $1
  AND t.table_type IN ('BASE TABLE', 'VIEW')
ORDER BY t.table_name
`

// ResolveColumn returns the descriptor for a single column.
func (r *Resolver) ResolveColumn(ctx context.Context, table, column string) (*ColumnDescriptor, error) {
	row, err := r.executor.QueryOne(ctx, resolveColumnQuery, table, column)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, apperrors.NotFoundf("Column '%s' not found in table '%s'", column, table)
	}
	desc := descriptorFromRow(row)
	return &desc, nil
}

// ResolveTableColumns returns every column of the table with full metadata,
// ordered by ordinal position. An empty result means the table does not
// exist; callers decide how to report that.
func (r *Resolver) ResolveTableColumns(ctx context.Context, table string) ([]ColumnDescriptor, error) {
	rows, err := r.executor.QueryAll(ctx, resolveTableColumnsQuery, table)
	if err != nil {
		return nil, err
	}
	columns := make([]ColumnDescriptor, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, descriptorFromRow(row))
	}
	return columns, nil
}

// ResolveRequestedColumns verifies that every requested column exists and
// returns the descriptors in the requested order. When any are missing it
// fails naming every missing column, not just the first.
func (r *Resolver) ResolveRequestedColumns(ctx context.Context, table string, columns []string) ([]ColumnDescriptor, error) {
	rows, err := r.executor.QueryAll(ctx, resolveRequestedColumnsQuery, table, columns)
	if err != nil {
		return nil, err
	}

	found := make(map[string]ColumnDescriptor, len(rows))
	for _, row := range rows {
		desc := descriptorFromRow(row)
		found[desc.Name] = desc
	}

	var missing []string
	resolved := make([]ColumnDescriptor, 0, len(columns))
	for _, name := range columns {
		desc, ok := found[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		resolved = append(resolved, desc)
	}
	if len(missing) > 0 {
		return nil, apperrors.NotFoundf("Columns not found in table '%s': %s", table, strings.Join(missing, ", "))
	}
	return resolved, nil
}

// ListTables returns every base table and view in the schema, sorted by
// name. An empty schema is a valid, empty result.
func (r *Resolver) ListTables(ctx context.Context, schema string) ([]TableSummary, error) {
	rows, err := r.executor.QueryAll(ctx, listTablesQuery, schema)
	if err != nil {
		return nil, err
	}
	tables := make([]TableSummary, 0, len(rows))
	for _, row := range rows {
		summary := TableSummary{
			Name:          asString(row["table_name"]),
			Type:          asString(row["table_type"]),
			Schema:        asString(row["table_schema"]),
			SizeBytes:     intPtr(row["size_bytes"]),
			EstimatedRows: intPtr(row["estimated_rows"]),
		}
		if v := row["size_human"]; v != nil {
			s := asString(v)
			summary.SizeHuman = &s
		}
		tables = append(tables, summary)
	}
	return tables, nil
}

// ResolveNumericColumns returns every numeric-family column of the table
// ordered by ordinal position.
func (r *Resolver) ResolveNumericColumns(ctx context.Context, table string) ([]ColumnDescriptor, error) {
	rows, err := r.executor.QueryAll(ctx, resolveNumericColumnsQuery, table, numericTypes)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NotFoundf("No numeric columns found in table '%s'", table)
	}
	columns := make([]ColumnDescriptor, 0, len(rows))
	for _, row := range rows {
		columns = append(columns, descriptorFromRow(row))
	}
	return columns, nil
}

func descriptorFromRow(row map[string]any) ColumnDescriptor {
	desc := ColumnDescriptor{
		Name:     asString(row["column_name"]),
		DataType: asString(row["data_type"]),
		Nullable: asString(row["is_nullable"]) == "YES",
	}
	desc.Family = familyForDataType(desc.DataType)
	if v := row["column_default"]; v != nil {
		s := asString(v)
		desc.Default = &s
	}
	desc.CharMaxLength = intPtr(row["character_maximum_length"])
	desc.NumericPrecision = intPtr(row["numeric_precision"])
	desc.NumericScale = intPtr(row["numeric_scale"])
	desc.Position = int(asInt64(row["ordinal_position"]))
	return desc
}

func columnNames(columns []ColumnDescriptor) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

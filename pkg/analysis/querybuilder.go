package analysis

import (
	"fmt"
	"strconv"
	"strings"
)

// QueryBuilder assembles the aggregate SQL issued by the analysis
// operations. It is the only place identifiers are interpolated into query
// text; every name passed in must already be validated, and quoting goes
// through the executor's dialect quoting. Values never travel through the
// builder, only identifiers.
type QueryBuilder struct {
	quote func(name string) string
}

// NewQueryBuilder creates a builder that quotes identifiers with the given
// function, typically the executor's QuoteIdentifier.
func NewQueryBuilder(quote func(name string) string) *QueryBuilder {
	return &QueryBuilder{quote: quote}
}

// from returns the quoted table reference with an optional sampling clause.
func (b *QueryBuilder) from(table, sampleClause string) string {
	ref := b.quote(table)
	if sampleClause != "" {
		ref += " " + sampleClause
	}
	return ref
}

// SampleClause renders a probabilistic sampling clause for the given
// percentage of rows.
func (b *QueryBuilder) SampleClause(percentage float64) string {
	return fmt.Sprintf("TABLESAMPLE SYSTEM (%s)", strconv.FormatFloat(percentage, 'f', -1, 64))
}

// RowCount counts all rows in the table.
func (b *QueryBuilder) RowCount(table string) string {
	return fmt.Sprintf(`SELECT COUNT(*) as total_rows FROM %s`, b.quote(table))
}

// BasicStats computes row, null and distinct counts for one column.
func (b *QueryBuilder) BasicStats(table, column string) string {
	col := b.quote(column)
	return fmt.Sprintf(`
SELECT
    COUNT(*) as total_rows,
    COUNT(%s) as non_null_count,
    COUNT(*) - COUNT(%s) as null_count,
    COUNT(DISTINCT %s) as distinct_count
FROM %s`, col, col, col, b.quote(table))
}

// ProfileBasicStats is the sampling-aware variant of BasicStats used by the
// table profiler; the row count is aliased sample_rows because it counts
// the sampled set, not the table.
func (b *QueryBuilder) ProfileBasicStats(table, column, sampleClause string) string {
	col := b.quote(column)
	return fmt.Sprintf(`
SELECT
    COUNT(*) as sample_rows,
    COUNT(%s) as non_null_count,
    COUNT(*) - COUNT(%s) as null_count,
    COUNT(DISTINCT %s) as distinct_count
FROM %s`, col, col, col, b.from(table, sampleClause))
}

// NumericStats computes the full numeric block for single-column analysis:
// extrema, mean, sample standard deviation and continuous-interpolation
// quartiles over non-null values.
func (b *QueryBuilder) NumericStats(table, column string) string {
	col := b.quote(column)
	return fmt.Sprintf(`
SELECT
    MIN(%s) as min_value,
    MAX(%s) as max_value,
    AVG(%s) as avg_value,
    STDDEV(%s) as std_dev,
    PERCENTILE_CONT(0.25) WITHIN GROUP (ORDER BY %s) as q1,
    PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY %s) as median,
    PERCENTILE_CONT(0.75) WITHIN GROUP (ORDER BY %s) as q3
FROM %s
WHERE %s IS NOT NULL`, col, col, col, col, col, col, col, b.quote(table), col)
}

// ProfileNumericStats is the reduced numeric block used per column by the
// table profiler.
func (b *QueryBuilder) ProfileNumericStats(table, column, sampleClause string) string {
	col := b.quote(column)
	return fmt.Sprintf(`
SELECT
    MIN(%s) as min_value,
    MAX(%s) as max_value,
    AVG(%s) as avg_value
FROM %s
WHERE %s IS NOT NULL`, col, col, col, b.from(table, sampleClause), col)
}

// TextStats computes length statistics over non-null values.
func (b *QueryBuilder) TextStats(table, column, sampleClause string) string {
	col := b.quote(column)
	return fmt.Sprintf(`
SELECT
    MIN(LENGTH(%s)) as min_length,
    MAX(LENGTH(%s)) as max_length,
    AVG(LENGTH(%s)) as avg_length
FROM %s
WHERE %s IS NOT NULL`, col, col, col, b.from(table, sampleClause), col)
}

// FrequentValues returns the top values of a column by descending
// frequency. Ties are broken by the store's natural ordering, which is not
// deterministic.
func (b *QueryBuilder) FrequentValues(table, column, sampleClause string, limit int) string {
	col := b.quote(column)
	return fmt.Sprintf(`
SELECT %s as value, COUNT(*) as frequency
FROM %s
WHERE %s IS NOT NULL
GROUP BY %s
ORDER BY COUNT(*) DESC
LIMIT %d`, col, b.from(table, sampleClause), col, col, limit)
}

// DuplicateGroups finds groups of rows sharing the same values across the
// given columns, capped at limit groups, and joins back to collect the
// physical row identifiers of each group's members. Groups whose key
// contains NULL survive the grouping but drop out of the equality join.
func (b *QueryBuilder) DuplicateGroups(table string, columns []string, limit int) string {
	quoted := make([]string, len(columns))
	joinConds := make([]string, len(columns))
	dgColumns := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = b.quote(c)
		joinConds[i] = fmt.Sprintf("t.%s = dg.%s", quoted[i], quoted[i])
		dgColumns[i] = "dg." + quoted[i]
	}
	columnList := strings.Join(quoted, ", ")

	return fmt.Sprintf(`
WITH duplicate_groups AS (
    SELECT %s, COUNT(*) as duplicate_count
    FROM %s
    GROUP BY %s
    HAVING COUNT(*) > 1
    ORDER BY COUNT(*) DESC
    LIMIT %d
),
duplicate_details AS (
    SELECT
        dg.*,
        array_agg(t.ctid::text) as row_ids
    FROM duplicate_groups dg
    JOIN %s t ON (%s)
    GROUP BY %s, dg.duplicate_count
)
SELECT * FROM duplicate_details
ORDER BY duplicate_count DESC`,
		columnList, b.quote(table), columnList, limit,
		b.quote(table), strings.Join(joinConds, " AND "),
		strings.Join(dgColumns, ", "))
}

// DuplicateTotals computes the whole-population duplicate summary without
// the group cap, so the summary reflects the true totals rather than the
// returned page.
func (b *QueryBuilder) DuplicateTotals(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = b.quote(c)
	}
	columnList := strings.Join(quoted, ", ")

	return fmt.Sprintf(`
SELECT
    COUNT(*) as total_duplicate_groups,
    SUM(cnt - 1) as total_duplicate_rows
FROM (
    SELECT COUNT(*) as cnt
    FROM %s
    GROUP BY %s
    HAVING COUNT(*) > 1
) duplicate_counts`, b.quote(table), columnList)
}

// CorrelationPair computes the Pearson coefficient for one column pair
// over rows where both values are non-null. The coefficient is NULL when
// either column has zero variance or fewer than two rows overlap; the
// whole query returns no row when no rows overlap at all.
func (b *QueryBuilder) CorrelationPair(table, column1, column2 string) string {
	c1 := b.quote(column1)
	c2 := b.quote(column2)
	tbl := b.quote(table)

	return fmt.Sprintf(`
WITH stats AS (
    SELECT
        COUNT(*) as n,
        AVG(%s) as mean1,
        AVG(%s) as mean2,
        STDDEV(%s) as std1,
        STDDEV(%s) as std2
    FROM %s
    WHERE %s IS NOT NULL AND %s IS NOT NULL
),
correlation AS (
    SELECT
        s.n,
        s.mean1,
        s.mean2,
        s.std1,
        s.std2,
        CASE
            WHEN s.std1 = 0 OR s.std2 = 0 OR s.n <= 1 THEN NULL
            ELSE (
                SUM((t.%s - s.mean1) * (t.%s - s.mean2)) / (s.n - 1)
            ) / (s.std1 * s.std2)
        END as correlation_coefficient
    FROM %s t
    CROSS JOIN stats s
    WHERE t.%s IS NOT NULL AND t.%s IS NOT NULL
    GROUP BY s.n, s.mean1, s.mean2, s.std1, s.std2
)
SELECT * FROM correlation`,
		c1, c2, c1, c2, tbl, c1, c2,
		c1, c2, tbl, c1, c2)
}

package analysis

import (
	"context"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/statlens/statlens-engine/pkg/apperrors"
)

// MethodPearson is the only supported correlation method.
const MethodPearson = "pearson"

const undefinedCorrelationReason = "Cannot calculate (zero variance or insufficient data)"

// CorrelationPair is the coefficient for one unordered column pair.
// Coefficient is nil when undefined (zero variance, fewer than two
// overlapping rows, or no overlap at all) and when the pair's query
// failed; the Error field distinguishes the latter.
type CorrelationPair struct {
	Column1        string   `json:"column1"`
	Column2        string   `json:"column2"`
	Coefficient    *float64 `json:"correlation_coefficient"`
	SampleSize     *int64   `json:"sample_size,omitempty"`
	Strength       string   `json:"strength,omitempty"`
	Interpretation string   `json:"interpretation,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// CorrelationSummary aggregates the pair results. The strongest/average
// fields are present only when at least one pair produced a defined
// coefficient.
type CorrelationSummary struct {
	TotalPairs           int      `json:"total_pairs"`
	ValidCorrelations    int      `json:"valid_correlations"`
	Method               string   `json:"method"`
	AnalyzedColumns      []string `json:"analyzed_columns"`
	ColumnCount          int      `json:"column_count"`
	StrongestPositive    *float64 `json:"strongest_positive,omitempty"`
	StrongestNegative    *float64 `json:"strongest_negative,omitempty"`
	AverageCorrelation   *float64 `json:"average_correlation,omitempty"`
	StrongCorrelations   *int     `json:"strong_correlations,omitempty"`
	ModerateCorrelations *int     `json:"moderate_correlations,omitempty"`
}

// CorrelationReport is the payload of a correlation analysis.
type CorrelationReport struct {
	TableInfo          TableInfo          `json:"table_info"`
	CorrelationSummary CorrelationSummary `json:"correlation_summary"`
	Correlations       []CorrelationPair  `json:"correlations"`
}

// AnalyzeCorrelations computes the Pearson coefficient for every unordered
// pair in the column set (all numeric columns when none are given).
// Exactly C(n,2) pairs are emitted; a failure computing one pair is
// captured on that pair and does not abort the others.
func (s *Service) AnalyzeCorrelations(ctx context.Context, tableName string, columns []string, method string) (*CorrelationReport, error) {
	if err := validateTableName(tableName); err != nil {
		return nil, err
	}
	if method != MethodPearson {
		return nil, apperrors.InvalidArgumentf("Unsupported correlation method: %s. Only 'pearson' is supported.", method)
	}

	s.logger.Info("Analyzing correlations", zap.String("table", tableName))

	if len(columns) == 0 {
		resolved, err := s.resolver.ResolveNumericColumns(ctx, tableName)
		if err != nil {
			return nil, err
		}
		columns = columnNames(resolved)
	} else {
		for _, column := range columns {
			if err := validateColumnName(column); err != nil {
				return nil, err
			}
		}
		resolved, err := s.resolver.ResolveRequestedColumns(ctx, tableName, columns)
		if err != nil {
			return nil, err
		}
		var nonNumeric []string
		for _, column := range resolved {
			if column.Family != FamilyNumeric {
				nonNumeric = append(nonNumeric, column.Name)
			}
		}
		if len(nonNumeric) > 0 {
			return nil, apperrors.InvalidArgumentf("Non-numeric columns specified: %s", strings.Join(nonNumeric, ", "))
		}
	}

	if len(columns) < 2 {
		return nil, apperrors.InvalidArgumentf("At least 2 numeric columns are required for correlation analysis")
	}

	pairs := make([]CorrelationPair, 0, len(columns)*(len(columns)-1)/2)
	for i := 0; i < len(columns); i++ {
		for j := i + 1; j < len(columns); j++ {
			pairs = append(pairs, s.correlatePair(ctx, tableName, columns[i], columns[j]))
		}
	}

	// Strongest first; undefined coefficients rank as -1 so they sort last.
	sort.SliceStable(pairs, func(a, b int) bool {
		return pairSortKey(pairs[a]) > pairSortKey(pairs[b])
	})

	return &CorrelationReport{
		TableInfo: TableInfo{
			TableName:       tableName,
			AnalyzedColumns: columns,
			ColumnCount:     len(columns),
		},
		CorrelationSummary: buildCorrelationSummary(pairs, method, columns),
		Correlations:       pairs,
	}, nil
}

func (s *Service) correlatePair(ctx context.Context, table, column1, column2 string) CorrelationPair {
	pair := CorrelationPair{Column1: column1, Column2: column2}

	row, err := s.executor.QueryOne(ctx, s.builder.CorrelationPair(table, column1, column2))
	if err != nil {
		s.logger.Warn("Error calculating correlation",
			zap.String("table", table),
			zap.String("column1", column1),
			zap.String("column2", column2),
			zap.Error(err))
		pair.Error = err.Error()
		return pair
	}

	// No row means no overlapping non-null rows at all.
	if row == nil {
		zero := int64(0)
		pair.SampleSize = &zero
		pair.Strength = "undefined"
		pair.Interpretation = undefinedCorrelationReason
		return pair
	}

	n := asInt64(row["n"])
	pair.SampleSize = &n

	coefficient, ok := asFloat(row["correlation_coefficient"])
	if !ok {
		pair.Strength = "undefined"
		pair.Interpretation = undefinedCorrelationReason
		return pair
	}

	rounded := roundTo(coefficient, 4)
	pair.Coefficient = &rounded
	pair.Strength = classifyStrength(math.Abs(coefficient))
	direction := "negative"
	if coefficient > 0 {
		direction = "positive"
	}
	pair.Interpretation = pair.Strength + " " + direction + " correlation"
	return pair
}

func classifyStrength(abs float64) string {
	switch {
	case abs >= 0.8:
		return "very strong"
	case abs >= 0.6:
		return "strong"
	case abs >= 0.4:
		return "moderate"
	case abs >= 0.2:
		return "weak"
	default:
		return "very weak"
	}
}

func pairSortKey(pair CorrelationPair) float64 {
	if pair.Coefficient == nil {
		return -1
	}
	return math.Abs(*pair.Coefficient)
}

func buildCorrelationSummary(pairs []CorrelationPair, method string, columns []string) CorrelationSummary {
	summary := CorrelationSummary{
		TotalPairs:      len(pairs),
		Method:          method,
		AnalyzedColumns: columns,
		ColumnCount:     len(columns),
	}

	var values []float64
	for _, pair := range pairs {
		if pair.Coefficient != nil {
			values = append(values, *pair.Coefficient)
		}
	}
	summary.ValidCorrelations = len(values)
	if len(values) == 0 {
		return summary
	}

	strongest, weakest := values[0], values[0]
	var absSum float64
	strong, moderate := 0, 0
	for _, v := range values {
		if v > strongest {
			strongest = v
		}
		if v < weakest {
			weakest = v
		}
		abs := math.Abs(v)
		absSum += abs
		switch {
		case abs >= 0.6:
			strong++
		case abs >= 0.4:
			moderate++
		}
	}
	average := roundTo(absSum/float64(len(values)), 4)

	summary.StrongestPositive = &strongest
	summary.StrongestNegative = &weakest
	summary.AverageCorrelation = &average
	summary.StrongCorrelations = &strong
	summary.ModerateCorrelations = &moderate
	return summary
}

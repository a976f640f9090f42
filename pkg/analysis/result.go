package analysis

import "time"

// Analysis type tags carried in the result envelope.
const (
	TypeColumnAnalysis      = "column_analysis"
	TypeDuplicateAnalysis   = "duplicate_analysis"
	TypeTableProfile        = "table_profile"
	TypeCorrelationAnalysis = "correlation_analysis"
)

// Result is the normalized envelope every analysis operation produces.
// ColumnName is nil for table-level operations.
type Result struct {
	AnalysisType string    `json:"analysis_type"`
	TableName    string    `json:"table_name"`
	ColumnName   *string   `json:"column_name"`
	Timestamp    time.Time `json:"timestamp"`
	Results      any       `json:"results"`
}

// NewResult wraps an operation payload in the result envelope, stamped
// with the current UTC time.
func NewResult(analysisType, tableName string, columnName *string, results any) *Result {
	return &Result{
		AnalysisType: analysisType,
		TableName:    tableName,
		ColumnName:   columnName,
		Timestamp:    time.Now().UTC(),
		Results:      results,
	}
}

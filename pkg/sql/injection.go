package sql

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a parameter value flagged by libinjection.
type InjectionCheckResult struct {
	IsSQLi      bool   // true when a SQL injection pattern was detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	ParamName   string // positional name of the offending parameter ($1, $2, ...)
	ParamValue  any    // the value that was checked
}

// CheckParameterForInjection runs libinjection over a single parameter value.
// Only strings are inspected; other types cannot carry injection payloads.
// Returns nil when the value is clean.
func CheckParameterForInjection(paramName string, value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if !isSQLi {
		return nil
	}

	return &InjectionCheckResult{
		IsSQLi:      true,
		Fingerprint: string(fingerprint),
		ParamName:   paramName,
		ParamValue:  value,
	}
}

// CheckPositionalParameters screens an ordered parameter list, naming hits
// by their PostgreSQL placeholder position. An empty result means all
// parameters are clean.
func CheckPositionalParameters(params []any) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for i, value := range params {
		name := fmt.Sprintf("$%d", i+1)
		if result := CheckParameterForInjection(name, value); result != nil {
			results = append(results, result)
		}
	}
	return results
}

// ValidateParameterTypes rejects parameter values the wire protocol cannot
// bind safely. Allowed: nil, strings, bools, integer and float types, and
// byte slices.
func ValidateParameterTypes(params []any) error {
	for i, param := range params {
		switch param.(type) {
		case nil, string, bool, int, int32, int64, float32, float64, []byte:
		default:
			return fmt.Errorf("invalid parameter type at index %d: %T", i, param)
		}
	}
	return nil
}

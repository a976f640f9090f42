package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit event types.
const (
	AuditEventToolCall            = "tool_call"
	AuditEventToolError           = "tool_error"
	AuditEventAuthFailure         = "auth_failure"
	AuditEventSQLInjectionAttempt = "sql_injection_attempt"
	AuditEventRateLimitHit        = "rate_limit_hit"
)

// Audit security levels.
const (
	AuditSecurityNormal   = "normal"
	AuditSecurityWarning  = "warning"
	AuditSecurityCritical = "critical"
)

// AuditEvent represents a single entry in the tool audit log.
type AuditEvent struct {
	ID uuid.UUID `json:"id"`

	// Who
	Actor      string  `json:"actor"`
	ActorEmail *string `json:"actor_email,omitempty"`

	// What
	EventType string  `json:"event_type"`
	ToolName  *string `json:"tool_name,omitempty"`

	// Request details
	RequestParams map[string]any `json:"request_params,omitempty"`

	// Response details
	WasSuccessful bool           `json:"was_successful"`
	ErrorMessage  *string        `json:"error_message,omitempty"`
	ResultSummary map[string]any `json:"result_summary,omitempty"`

	// Performance
	DurationMs *int `json:"duration_ms,omitempty"`

	// Security classification
	SecurityLevel string   `json:"security_level"`
	SecurityFlags []string `json:"security_flags,omitempty"`

	// Context
	ClientInfo map[string]any `json:"client_info,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AuditEventFilters contains filters for querying audit events.
type AuditEventFilters struct {
	Actor         string
	EventType     string
	ToolName      string
	SecurityLevel string
	Since         *time.Time
	Until         *time.Time
	Limit         int
	Offset        int
}

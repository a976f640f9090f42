package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/statlens/statlens-engine/pkg/database"
	"github.com/statlens/statlens-engine/pkg/models"
)

// AuditRepository provides data access for the tool audit log.
type AuditRepository interface {
	Create(ctx context.Context, event *models.AuditEvent) error
	List(ctx context.Context, filters models.AuditEventFilters) ([]*models.AuditEvent, int, error)
}

type auditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) AuditRepository {
	return &auditRepository{db: db}
}

var _ AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) Create(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	requestParamsJSON, err := marshalJSONB(event.RequestParams)
	if err != nil {
		return fmt.Errorf("failed to marshal request_params: %w", err)
	}
	resultSummaryJSON, err := marshalJSONB(event.ResultSummary)
	if err != nil {
		return fmt.Errorf("failed to marshal result_summary: %w", err)
	}
	clientInfoJSON, err := marshalJSONB(event.ClientInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal client_info: %w", err)
	}

	query := `
		INSERT INTO statlens_audit_log (
			id, actor, actor_email,
			event_type, tool_name,
			request_params,
			was_successful, error_message, result_summary,
			duration_ms, security_level, security_flags,
			client_info
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.Exec(ctx, query,
		event.ID,
		event.Actor,
		event.ActorEmail,
		event.EventType,
		event.ToolName,
		requestParamsJSON,
		event.WasSuccessful,
		event.ErrorMessage,
		resultSummaryJSON,
		event.DurationMs,
		event.SecurityLevel,
		event.SecurityFlags,
		clientInfoJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}

	return nil
}

func (r *auditRepository) List(ctx context.Context, filters models.AuditEventFilters) ([]*models.AuditEvent, int, error) {
	limit, offset := normalizePageParams(filters.Limit, filters.Offset)

	conditions := []string{}
	args := []any{}
	argIdx := 1

	if filters.Actor != "" {
		conditions = append(conditions, fmt.Sprintf("actor = $%d", argIdx))
		args = append(args, filters.Actor)
		argIdx++
	}
	if filters.Since != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *filters.Since)
		argIdx++
	}
	if filters.Until != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *filters.Until)
		argIdx++
	}
	if filters.EventType != "" {
		conditions = append(conditions, fmt.Sprintf("event_type = $%d", argIdx))
		args = append(args, filters.EventType)
		argIdx++
	}
	if filters.ToolName != "" {
		conditions = append(conditions, fmt.Sprintf("tool_name = $%d", argIdx))
		args = append(args, filters.ToolName)
		argIdx++
	}
	if filters.SecurityLevel != "" {
		conditions = append(conditions, fmt.Sprintf("security_level = $%d", argIdx))
		args = append(args, filters.SecurityLevel)
		argIdx++
	}

	where := "TRUE"
	if len(conditions) > 0 {
		where = strings.Join(conditions, " AND ")
	}

	// Count
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM statlens_audit_log WHERE %s`, where)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	// Data
	dataQuery := fmt.Sprintf(`
		SELECT id, actor, actor_email,
		       event_type, tool_name,
		       request_params,
		       was_successful, error_message, result_summary,
		       duration_ms, security_level, security_flags,
		       client_info, created_at
		FROM statlens_audit_log
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		event, err := scanAuditEvent(rows)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating audit events: %w", err)
	}

	return events, total, nil
}

func scanAuditEvent(row pgx.Row) (*models.AuditEvent, error) {
	var event models.AuditEvent
	var requestParamsJSON, resultSummaryJSON, clientInfoJSON []byte

	err := row.Scan(
		&event.ID,
		&event.Actor,
		&event.ActorEmail,
		&event.EventType,
		&event.ToolName,
		&requestParamsJSON,
		&event.WasSuccessful,
		&event.ErrorMessage,
		&resultSummaryJSON,
		&event.DurationMs,
		&event.SecurityLevel,
		&event.SecurityFlags,
		&clientInfoJSON,
		&event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan audit event: %w", err)
	}

	unmarshalJSONB(requestParamsJSON, &event.RequestParams)
	unmarshalJSONB(resultSummaryJSON, &event.ResultSummary)
	unmarshalJSONB(clientInfoJSON, &event.ClientInfo)

	return &event, nil
}

func normalizePageParams(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// marshalJSONB marshals a map to JSON bytes, returning nil for empty/nil maps.
func marshalJSONB(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

// unmarshalJSONB unmarshals JSON bytes into a map, silently ignoring nil/empty input.
func unmarshalJSONB(data []byte, target *map[string]any) {
	if len(data) > 0 && string(data) != "null" {
		_ = json.Unmarshal(data, target)
	}
}

package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AuditLogEvent struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	EventType string
	EventData json.RawMessage
	CreatedAt time.Time
}

type CreateAuditLogEventParams struct {
	OwnerID   uuid.UUID
	EventType string
	EventData json.RawMessage
}

func (db *Database) CreateAuditLogEvent(ctx context.Context, params CreateAuditLogEventParams) (AuditLogEvent, error) {
	event := AuditLogEvent{
		ID:        uuid.New(),
		OwnerID:   params.OwnerID,
		EventType: params.EventType,
		EventData: params.EventData,
		CreatedAt: time.Now(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_audit_log (id, owner_id, event_type, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.OwnerID, event.EventType, event.EventData, event.CreatedAt); err != nil {
		return event, fmt.Errorf("failed to insert audit log event: %w", err)
	}
	return event, nil
}

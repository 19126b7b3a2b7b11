package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"amora/internal/database"

	"github.com/google/uuid"
)

const (
	EventUserRegister      = "user.register"
	EventUserRegisterOAuth = "user.register_oauth"
	EventUserConfirm       = "user.confirm"
)

type Auditor struct {
	logger *slog.Logger
	db     *database.Database
}

func NewAuditor(logger *slog.Logger, db *database.Database) Auditor {
	return Auditor{logger: logger, db: db}
}

func (a *Auditor) LogEvent(ctx context.Context, ownerID uuid.UUID, eventType string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event data: %w", err)
	}

	if _, err := a.db.CreateAuditLogEvent(ctx, database.CreateAuditLogEventParams{
		OwnerID:   ownerID,
		EventType: eventType,
		EventData: payload,
	}); err != nil {
		return fmt.Errorf("failed to create audit log event: %w", err)
	}
	return nil
}

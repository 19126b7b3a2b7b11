package notifications

import (
	"context"
	"fmt"
	"log/slog"

	"amora/internal/database"

	"github.com/google/uuid"
)

const TypeInfo = "info"

// Manager persists in-app notifications.
type Manager struct {
	logger *slog.Logger
	db     *database.Database
}

func NewManager(logger *slog.Logger, db *database.Database) Manager {
	return Manager{logger: logger, db: db}
}

func (m *Manager) Notify(ctx context.Context, userID uuid.UUID, title, message string) error {
	if _, err := m.db.CreateNotification(ctx, database.CreateNotificationParams{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    TypeInfo,
	}); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

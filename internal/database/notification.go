package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Message   string
	Type      string
	IsRead    bool
	CreatedAt time.Time
}

type CreateNotificationParams struct {
	UserID  uuid.UUID
	Title   string
	Message string
	Type    string
}

func (db *Database) CreateNotification(ctx context.Context, params CreateNotificationParams) (Notification, error) {
	notification := Notification{
		ID:        uuid.New(),
		UserID:    params.UserID,
		Title:     params.Title,
		Message:   params.Message,
		Type:      params.Type,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	if _, err := db.Pool.Exec(ctx, `INSERT INTO tbl_notification (id, user_id, title, message, type, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		notification.ID, notification.UserID, notification.Title, notification.Message,
		notification.Type, notification.IsRead, notification.CreatedAt); err != nil {
		return notification, fmt.Errorf("failed to insert notification: %w", err)
	}
	return notification, nil
}

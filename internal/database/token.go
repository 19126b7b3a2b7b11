package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RegistrationToken is the single-use credential that confirms an account.
// Both content and user_id carry unique indexes: a token resolves to exactly
// one user, and a user holds at most one live token.
type RegistrationToken struct {
	ID        uuid.UUID
	Content   string
	UserID    uuid.UUID
	CreatedAt time.Time
}

type CreateRegistrationTokenParams struct {
	ID      uuid.UUID
	Content string
	UserID  uuid.UUID
	Now     time.Time
}

func (db *Database) CreateRegistrationToken(ctx context.Context, params CreateRegistrationTokenParams) (RegistrationToken, error) {
	var token RegistrationToken
	err := db.Pool.QueryRow(ctx, `INSERT INTO tbl_registration_token
		(id, content, user_id, created_at) VALUES ($1, $2, $3, $4)
		RETURNING id, content, user_id, created_at`,
		params.ID, params.Content, params.UserID, params.Now).Scan(
		&token.ID, &token.Content, &token.UserID, &token.CreatedAt)
	if err != nil {
		if isUniqueViolation(err, "tbl_registration_token_content_key") {
			return token, ErrDuplicateToken
		}
		return token, fmt.Errorf("failed to insert registration token: %w", err)
	}
	return token, nil
}

func (db *Database) GetRegistrationTokenByContent(ctx context.Context, content string) (RegistrationToken, error) {
	var token RegistrationToken
	err := db.Pool.QueryRow(ctx, `SELECT id, content, user_id, created_at
		FROM tbl_registration_token WHERE content = $1`, content).Scan(
		&token.ID, &token.Content, &token.UserID, &token.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return token, ErrTokenNotFound
		}
		return token, err
	}
	return token, nil
}

func (db *Database) DeleteRegistrationToken(ctx context.Context, id uuid.UUID) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM tbl_registration_token WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete registration token: %w", err)
	}
	return nil
}

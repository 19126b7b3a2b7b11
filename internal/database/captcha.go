package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type Captcha struct {
	ID        uuid.UUID
	Answer    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type CreateCaptchaParams struct {
	ID        uuid.UUID
	Answer    string
	ExpiresAt time.Time
	Now       time.Time
}

func (db *Database) CreateCaptcha(ctx context.Context, params CreateCaptchaParams) (Captcha, error) {
	var captcha Captcha
	err := db.Pool.QueryRow(ctx, `INSERT INTO tbl_captcha (id, answer, expires_at, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id, answer, expires_at, created_at`,
		params.ID, params.Answer, params.ExpiresAt, params.Now).Scan(
		&captcha.ID, &captcha.Answer, &captcha.ExpiresAt, &captcha.CreatedAt)
	if err != nil {
		return captcha, fmt.Errorf("failed to insert captcha: %w", err)
	}
	return captcha, nil
}

func (db *Database) GetCaptchaByID(ctx context.Context, id uuid.UUID) (Captcha, error) {
	var captcha Captcha
	err := db.Pool.QueryRow(ctx, `SELECT id, answer, expires_at, created_at
		FROM tbl_captcha WHERE id = $1`, id).Scan(
		&captcha.ID, &captcha.Answer, &captcha.ExpiresAt, &captcha.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return captcha, ErrCaptchaNotFound
		}
		return captcha, err
	}
	return captcha, nil
}

func (db *Database) DeleteCaptcha(ctx context.Context, id uuid.UUID) error {
	if _, err := db.Pool.Exec(ctx, `DELETE FROM tbl_captcha WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete captcha: %w", err)
	}
	return nil
}

func (db *Database) DeleteExpiredCaptchas(ctx context.Context, now time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM tbl_captcha WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired captchas: %w", err)
	}
	return tag.RowsAffected(), nil
}

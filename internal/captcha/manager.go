package captcha

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"amora/internal/database"

	"github.com/google/uuid"
)

// Store is the subset of database methods the captcha manager needs.
type Store interface {
	CreateCaptcha(ctx context.Context, params database.CreateCaptchaParams) (database.Captcha, error)
	GetCaptchaByID(ctx context.Context, id uuid.UUID) (database.Captcha, error)
	DeleteCaptcha(ctx context.Context, id uuid.UUID) error
}

// Challenge is what the client sees: an id plus an arithmetic question. The
// answer stays server-side.
type Challenge struct {
	ID       uuid.UUID
	Question string
}

// Manager issues expiring arithmetic challenges and verifies answers. A
// challenge is single-use: verification deletes it whatever the outcome.
type Manager struct {
	logger *slog.Logger
	store  Store
	ttl    time.Duration
}

func NewManager(logger *slog.Logger, store Store, ttl time.Duration) Manager {
	return Manager{logger: logger, store: store, ttl: ttl}
}

func (m *Manager) Generate(ctx context.Context) (Challenge, error) {
	a, err := randomInt(20)
	if err != nil {
		return Challenge{}, err
	}
	b, err := randomInt(20)
	if err != nil {
		return Challenge{}, err
	}

	now := time.Now()
	captcha, err := m.store.CreateCaptcha(ctx, database.CreateCaptchaParams{
		ID:        uuid.New(),
		Answer:    fmt.Sprintf("%d", a+b),
		ExpiresAt: now.Add(m.ttl),
		Now:       now,
	})
	if err != nil {
		return Challenge{}, fmt.Errorf("failed to store captcha: %w", err)
	}

	return Challenge{
		ID:       captcha.ID,
		Question: fmt.Sprintf("%d + %d", a, b),
	}, nil
}

// Verify checks answer against the stored challenge. An unknown or expired
// id simply fails; only infrastructure trouble is an error.
func (m *Manager) Verify(ctx context.Context, id uuid.UUID, answer string) (bool, error) {
	captcha, err := m.store.GetCaptchaByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrCaptchaNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up captcha: %w", err)
	}

	// Single-use: gone after the first attempt, right or wrong.
	if err := m.store.DeleteCaptcha(ctx, id); err != nil {
		m.logger.Error("Failed to delete used captcha", "error", err, "captcha_id", id)
	}

	if time.Now().After(captcha.ExpiresAt) {
		return false, nil
	}
	return strings.EqualFold(strings.TrimSpace(answer), captcha.Answer), nil
}

func randomInt(max int64) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return int(n.Int64()) + 1, nil
}

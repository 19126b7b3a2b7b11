package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"amora/internal/config"
	"amora/internal/database"
	"amora/internal/util"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Store is the persistence collaborator. The concrete implementation lives
// in internal/database; tests substitute mocks.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (database.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	CreateAccount(ctx context.Context, params database.CreateAccountParams) (database.User, error)
	ConfirmUser(ctx context.Context, id uuid.UUID, now time.Time) (database.User, bool, error)
	CreateRegistrationToken(ctx context.Context, params database.CreateRegistrationTokenParams) (database.RegistrationToken, error)
	GetRegistrationTokenByContent(ctx context.Context, content string) (database.RegistrationToken, error)
	DeleteRegistrationToken(ctx context.Context, id uuid.UUID) error
	GetGenderByID(ctx context.Context, id int) (database.Gender, error)
	GetIntentionByID(ctx context.Context, id int) (database.Intention, error)
}

type CaptchaVerifier interface {
	Verify(ctx context.Context, id uuid.UUID, answer string) (bool, error)
}

type Mailer interface {
	SendRegistrationMail(ctx context.Context, user database.User, tokenContent string) error
	SendAccountConfirmed(ctx context.Context, user database.User) error
}

type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message string) error
}

type Auditor interface {
	LogEvent(ctx context.Context, ownerID uuid.UUID, eventType string, data map[string]any) error
}

// RegisterRequest is the validated sign-up input. It is never persisted
// directly; the workflow derives the durable records from it.
type RegisterRequest struct {
	Email       string
	Password    string
	FirstName   string
	DateOfBirth time.Time
	GenderID    int
	IntentionID int
	CaptchaID   uuid.UUID
	CaptchaText string
}

// Manager drives sign-up submissions through to confirmed accounts. It is
// stateless between calls; all durable state lives behind Store.
type Manager struct {
	logger   *slog.Logger
	store    Store
	captcha  CaptchaVerifier
	mailer   Mailer
	notifier Notifier
	auditor  Auditor
	spam     *SpamDomainFilter
	cfg      config.RegistrationConfig
}

func NewManager(logger *slog.Logger, store Store, captcha CaptchaVerifier, mailer Mailer,
	notifier Notifier, auditor Auditor, spam *SpamDomainFilter, cfg config.RegistrationConfig) Manager {
	return Manager{
		logger:   logger,
		store:    store,
		captcha:  captcha,
		mailer:   mailer,
		notifier: notifier,
		auditor:  auditor,
		spam:     spam,
		cfg:      cfg,
	}
}

// Register runs the direct sign-up path and returns the confirmation token
// content for the caller to turn into a confirmation link. The account it
// creates is unconfirmed until Confirm consumes that token.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (string, error) {
	ok, err := m.captcha.Verify(ctx, req.CaptchaID, req.CaptchaText)
	if err != nil {
		return "", fmt.Errorf("failed to verify captcha: %w", err)
	}
	if !ok {
		return "", ErrCaptchaInvalid
	}

	account, err := m.registerBase(ctx, req, false)
	if err != nil {
		return "", err
	}
	user := account.User

	// Commit point B: the token row. A content collision trips the unique
	// index and surfaces as an error instead of overwriting someone's token.
	content, err := GenerateTokenContent(m.cfg.TokenLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate registration token: %w", err)
	}
	token, err := m.store.CreateRegistrationToken(ctx, database.CreateRegistrationTokenParams{
		ID:      uuid.New(),
		Content: content,
		UserID:  user.ID,
		Now:     time.Now(),
	})
	if err != nil {
		// The account exists and stays; an unconfirmed-but-existing account
		// beats data loss. The stale-account cleanup picks it up if the
		// user never retries.
		return "", fmt.Errorf("failed to store registration token: %w", err)
	}

	// Mail is best-effort past this point: the account is committed.
	if err := m.mailer.SendRegistrationMail(ctx, user, token.Content); err != nil {
		m.logger.Error("Failed to send registration mail", "error", err, "user_id", user.ID)
	}

	m.audit(ctx, user.ID, "user.register", map[string]any{"email": user.Email})

	return token.Content, nil
}

// RegisterOAuth runs the identity-provider sign-up path. The email comes
// from the provider's assertion, not the request, so captcha and password
// do not apply. The account is created already confirmed and no token is
// issued.
func (m *Manager) RegisterOAuth(ctx context.Context, req RegisterRequest, verifiedEmail string) (Account, error) {
	req.Email = verifiedEmail
	req.Password = ""

	account, err := m.registerBase(ctx, req, true)
	if err != nil {
		return Account{}, err
	}
	user := account.User

	if err := m.mailer.SendAccountConfirmed(ctx, user); err != nil {
		m.logger.Error("Failed to send account confirmed mail", "error", err, "user_id", user.ID)
	}
	if err := m.notifier.Notify(ctx, user.ID, "Welcome", "Your account is ready."); err != nil {
		m.logger.Error("Failed to create welcome notification", "error", err, "user_id", user.ID)
	}

	m.audit(ctx, user.ID, "user.register_oauth", map[string]any{"email": user.Email})

	return account, nil
}

// Confirm consumes a registration token and transitions its account to
// confirmed. The token is single-use: under concurrent submission of the
// same link exactly one caller wins, the rest observe ErrAlreadyConfirmed
// or ErrTokenNotFound.
func (m *Manager) Confirm(ctx context.Context, tokenContent string) (database.User, error) {
	token, err := m.store.GetRegistrationTokenByContent(ctx, tokenContent)
	if err != nil {
		if errors.Is(err, database.ErrTokenNotFound) {
			return database.User{}, ErrTokenNotFound
		}
		return database.User{}, fmt.Errorf("failed to look up registration token: %w", err)
	}

	user, confirmed, err := m.store.ConfirmUser(ctx, token.UserID, time.Now())
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			// Data-integrity fault: the token points at nothing.
			return database.User{}, ErrTokenOrphaned
		}
		return database.User{}, fmt.Errorf("failed to confirm user: %w", err)
	}
	if !confirmed {
		return database.User{}, ErrAlreadyConfirmed
	}

	// The confirmed flag already blocks replay; a leftover token row only
	// costs a round trip, so a delete failure is logged, not fatal.
	if err := m.store.DeleteRegistrationToken(ctx, token.ID); err != nil {
		m.logger.Error("Failed to delete consumed registration token", "error", err, "token_id", token.ID)
	}

	if err := m.mailer.SendAccountConfirmed(ctx, user); err != nil {
		m.logger.Error("Failed to send account confirmed mail", "error", err, "user_id", user.ID)
	}
	if err := m.notifier.Notify(ctx, user.ID, "Welcome", "Your account is ready."); err != nil {
		m.logger.Error("Failed to create welcome notification", "error", err, "user_id", user.ID)
	}

	m.audit(ctx, user.ID, "user.confirm", nil)

	return user, nil
}

// registerBase holds the checks and derivations shared by both entry
// points. The duplicate check runs against the normalized address; checking
// the raw input instead would let alias variants slip past dedup.
func (m *Manager) registerBase(ctx context.Context, req RegisterRequest, confirmed bool) (Account, error) {
	if !ValidateEmail(req.Email) {
		return Account{}, ErrEmailInvalid
	}
	email := NormalizeEmail(req.Email)

	if _, err := m.store.GetUserByEmail(ctx, email); err == nil {
		return Account{}, ErrEmailTaken
	} else if !errors.Is(err, database.ErrUserNotFound) {
		return Account{}, fmt.Errorf("failed to check existing user: %w", err)
	}

	if m.spam.IsDisposable(email) {
		return Account{}, ErrEmailSpam
	}

	now := time.Now()
	age := Age(req.DateOfBirth, now)
	if age < m.cfg.MinAge {
		return Account{}, ErrAgeTooLow
	}

	gender, err := m.store.GetGenderByID(ctx, req.GenderID)
	if err != nil {
		return Account{}, fmt.Errorf("failed to resolve gender %d: %w", req.GenderID, err)
	}
	intention, err := m.store.GetIntentionByID(ctx, req.IntentionID)
	if err != nil {
		return Account{}, fmt.Errorf("failed to resolve intention %d: %w", req.IntentionID, err)
	}

	passwordHash := util.None[string]()
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return Account{}, fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = util.Some(string(hash))
	}

	minAge, maxAge := PreferredRange(age, m.cfg.AgeRange, m.cfg.MinAge, m.cfg.MaxAge)

	// Commit point A: user, dates and settings land in one transaction. The
	// unique index on email settles races the pre-check above cannot see.
	user, err := m.store.CreateAccount(ctx, database.CreateAccountParams{
		ID:              uuid.New(),
		Email:           email,
		PasswordHash:    passwordHash,
		FirstName:       req.FirstName,
		GenderID:        gender.ID,
		IntentionID:     intention.ID,
		IsConfirmed:     confirmed,
		PreferredMinAge: minAge,
		PreferredMaxAge: maxAge,
		DateOfBirth:     req.DateOfBirth,
		Now:             now,
	})
	if err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return Account{}, ErrEmailTaken
		}
		return Account{}, fmt.Errorf("failed to create account: %w", err)
	}

	m.logger.Info("Account created", "user_id", user.ID, "confirmed", confirmed)

	dates := database.UserDates{
		UserID:                  user.ID,
		CreationDate:            now,
		DateOfBirth:             req.DateOfBirth,
		ActiveDate:              now,
		MessageDate:             now,
		MessageCheckedDate:      now,
		NotificationDate:        now,
		NotificationCheckedDate: now,
		IntentionChangeDate:     now,
	}
	settings := database.UserSettings{UserID: user.ID}

	return NewAccount(user, dates, settings), nil
}

// audit records a registration event; audit failures never fail the
// operation that already committed.
func (m *Manager) audit(ctx context.Context, ownerID uuid.UUID, eventType string, data map[string]any) {
	if err := m.auditor.LogEvent(ctx, ownerID, eventType, data); err != nil {
		m.logger.Error("Failed to log audit event", "error", err, "event_type", eventType, "user_id", ownerID)
	}
}

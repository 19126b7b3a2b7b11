package web

import (
	"errors"
	"log/slog"
	"time"

	"amora/internal/captcha"
	"amora/internal/i18n"
	"amora/internal/ratelimit"
	"amora/internal/registration"
	"amora/internal/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
)

type Handler struct {
	logger       *slog.Logger
	registration *registration.Manager
	captcha      *captcha.Manager
	limiter      *ratelimit.Limiter
	validator    *validator.Validator
	translator   *i18n.Translator
	store        *session.Store
}

func NewHandler(logger *slog.Logger, registrationManager *registration.Manager, captchaManager *captcha.Manager,
	limiter *ratelimit.Limiter, v *validator.Validator, translator *i18n.Translator, store *session.Store) *Handler {
	return &Handler{
		logger:       logger,
		registration: registrationManager,
		captcha:      captchaManager,
		limiter:      limiter,
		validator:    v,
		translator:   translator,
		store:        store,
	}
}

type registerRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,password_strength"`
	FirstName   string `json:"first_name" validate:"required,max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	GenderID    int    `json:"gender_id" validate:"required"`
	IntentionID int    `json:"intention_id" validate:"required"`
	CaptchaID   string `json:"captcha_id" validate:"required,uuid"`
	CaptchaText string `json:"captcha_text" validate:"required"`
}

type oauthRegisterRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=100"`
	DateOfBirth string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	GenderID    int    `json:"gender_id" validate:"required"`
	IntentionID int    `json:"intention_id" validate:"required"`
}

// NewCaptcha issues a fresh challenge for the sign-up form.
func (h *Handler) NewCaptcha(c *fiber.Ctx) error {
	challenge, err := h.captcha.Generate(c.Context())
	if err != nil {
		h.logger.Error("Failed to generate captcha", "error", err)
		return h.internalError(c)
	}

	return c.JSON(fiber.Map{
		"id":       challenge.ID,
		"question": challenge.Question,
	})
}

// Register handles the direct sign-up path. The confirmation token itself
// never leaves the server; it travels by mail.
func (h *Handler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return h.validationError(c)
	}
	if err := h.validator.Validate(req); err != nil {
		return h.validationError(c)
	}

	if err := h.limiter.CheckRegister(c.Context(), req.Email); err != nil {
		if errors.Is(err, ratelimit.ErrTooManyAttempts) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": h.translate(c, "register.error.too-many-attempts"),
			})
		}
		// A broken limiter must never block sign-ups.
		h.logger.Error("Rate limiter unavailable", "error", err)
	}

	dateOfBirth, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return h.validationError(c)
	}
	captchaID, err := uuid.Parse(req.CaptchaID)
	if err != nil {
		return h.validationError(c)
	}

	if _, err := h.registration.Register(c.Context(), registration.RegisterRequest{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		DateOfBirth: dateOfBirth,
		GenderID:    req.GenderID,
		IntentionID: req.IntentionID,
		CaptchaID:   captchaID,
		CaptchaText: req.CaptchaText,
	}); err != nil {
		return h.registrationError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": h.translate(c, "register.success.check-inbox"),
	})
}

// Confirm consumes a confirmation link token.
func (h *Handler) Confirm(c *fiber.Ctx) error {
	if err := h.limiter.CheckConfirm(c.Context(), c.IP()); err != nil {
		if errors.Is(err, ratelimit.ErrTooManyAttempts) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": h.translate(c, "register.error.too-many-attempts"),
			})
		}
		h.logger.Error("Rate limiter unavailable", "error", err)
	}

	user, err := h.registration.Confirm(c.Context(), c.Params("token"))
	if err != nil {
		return h.registrationError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": h.translate(c, "register.success.confirmed"),
		"user_id": user.ID,
	})
}

// RegisterOAuth creates an account for an identity-provider session. The
// provider-verified email was placed in the session by the OAuth callback;
// it is never taken from the request body.
func (h *Handler) RegisterOAuth(c *fiber.Ctx) error {
	sess, err := h.store.Get(c)
	if err != nil {
		h.logger.Error("Failed to get session", "error", err)
		return h.internalError(c)
	}
	email, ok := sess.Get("oauth_email").(string)
	if !ok || email == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": h.translate(c, "register.error.validation"),
		})
	}

	var req oauthRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return h.validationError(c)
	}
	if err := h.validator.Validate(req); err != nil {
		return h.validationError(c)
	}
	dateOfBirth, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		return h.validationError(c)
	}

	account, err := h.registration.RegisterOAuth(c.Context(), registration.RegisterRequest{
		FirstName:   req.FirstName,
		DateOfBirth: dateOfBirth,
		GenderID:    req.GenderID,
		IntentionID: req.IntentionID,
	}, email)
	if err != nil {
		return h.registrationError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": h.translate(c, "register.success.confirmed"),
		"user_id": account.User.ID,
	})
}

// registrationError maps workflow error kinds onto status codes and
// localized texts.
func (h *Handler) registrationError(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadRequest
	var key string

	switch {
	case errors.Is(err, registration.ErrCaptchaInvalid):
		key = "register.error.captcha-invalid"
	case errors.Is(err, registration.ErrEmailInvalid):
		key = "register.error.email-invalid"
	case errors.Is(err, registration.ErrEmailTaken):
		status = fiber.StatusConflict
		key = "register.error.email-exists"
	case errors.Is(err, registration.ErrEmailSpam):
		key = "register.error.email-spam"
	case errors.Is(err, registration.ErrAgeTooLow):
		key = "register.error.min-age"
	case errors.Is(err, registration.ErrTokenNotFound):
		status = fiber.StatusNotFound
		key = "register.error.token-not-found"
	case errors.Is(err, registration.ErrAlreadyConfirmed):
		status = fiber.StatusConflict
		key = "register.error.already-confirmed"
	default:
		h.logger.Error("Registration failed", "error", err)
		return h.internalError(c)
	}

	return c.Status(status).JSON(fiber.Map{
		"error": h.translate(c, key),
	})
}

func (h *Handler) validationError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": h.translate(c, "register.error.validation"),
	})
}

func (h *Handler) internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": h.translate(c, "register.error.internal"),
	})
}

func (h *Handler) translate(c *fiber.Ctx, key string) string {
	return h.translator.Translate(Language(c), key)
}

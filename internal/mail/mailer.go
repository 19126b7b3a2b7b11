package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"amora/internal/config"
	"amora/internal/database"
)

// Mailer delivers the two registration notifications. Implementations
// report delivery failure for observability; callers decide whether that
// failure matters.
type Mailer interface {
	SendRegistrationMail(ctx context.Context, user database.User, tokenContent string) error
	SendAccountConfirmed(ctx context.Context, user database.User) error
}

// SMTPMailer sends through a plain SMTP relay.
type SMTPMailer struct {
	logger  *slog.Logger
	cfg     config.MailConfig
	baseURL string
}

func NewSMTPMailer(logger *slog.Logger, cfg config.MailConfig, baseURL string) *SMTPMailer {
	return &SMTPMailer{logger: logger, cfg: cfg, baseURL: baseURL}
}

func (m *SMTPMailer) SendRegistrationMail(ctx context.Context, user database.User, tokenContent string) error {
	link := fmt.Sprintf("%s/auth/register/confirm/%s", strings.TrimRight(m.baseURL, "/"), tokenContent)
	body := fmt.Sprintf("Hi %s,\r\n\r\nConfirm your registration:\r\n%s\r\n", user.FirstName, link)
	return m.send(user.Email, "Confirm your registration", body)
}

func (m *SMTPMailer) SendAccountConfirmed(ctx context.Context, user database.User) error {
	body := fmt.Sprintf("Hi %s,\r\n\r\nYour account is confirmed. Welcome!\r\n", user.FirstName)
	return m.send(user.Email, "Account confirmed", body)
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=utf-8",
		"",
		body,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}
	m.logger.Info("Mail sent", "to", to, "subject", subject)
	return nil
}

// LogMailer writes mails to the log instead of a relay; the default outside
// production.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendRegistrationMail(ctx context.Context, user database.User, tokenContent string) error {
	m.logger.Info("Registration mail (not sent)", "to", user.Email, "token", tokenContent)
	return nil
}

func (m *LogMailer) SendAccountConfirmed(ctx context.Context, user database.User) error {
	m.logger.Info("Account confirmed mail (not sent)", "to", user.Email)
	return nil
}

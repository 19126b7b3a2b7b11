package registration

import "errors"

// Caller-facing registration failures. The HTTP layer maps these onto
// status codes and localized message texts; the workflow only reports the
// kind of failure.
var (
	ErrCaptchaInvalid   = errors.New("captcha invalid")
	ErrEmailInvalid     = errors.New("email malformed")
	ErrEmailTaken       = errors.New("email already in use")
	ErrEmailSpam        = errors.New("email domain denylisted")
	ErrAgeTooLow        = errors.New("below minimum age")
	ErrTokenNotFound    = errors.New("registration token not found")
	ErrTokenOrphaned    = errors.New("registration token has no user")
	ErrAlreadyConfirmed = errors.New("account already confirmed")
)

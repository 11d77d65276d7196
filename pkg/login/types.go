package login

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// State is a step of the login flow.
type State string

const (
	StateStart                State = "start"
	StateEmailEntered         State = "email-entered"
	StatePasswordEntered      State = "password-entered"
	StateAwaitingVerification State = "awaiting-verification"
	StateSuccess              State = "success"
	StateFailed               State = "failed"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}

// Credentials are the account email and password. They are never logged;
// String redacts both fields.
type Credentials struct {
	Email    string
	Password string
}

// Validate checks both fields are set.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" {
		return errors.New("login: email is required")
	}
	if c.Password == "" {
		return errors.New("login: password is required")
	}
	return nil
}

func (c Credentials) String() string {
	return "Credentials{Email: <redacted>, Password: <redacted>}"
}

func (c Credentials) GoString() string {
	return c.String()
}

// Options controls the timings of the flow.
type Options struct {
	// EmailTimeout bounds the wait for the email field.
	EmailTimeout time.Duration

	// PasswordTimeout bounds the wait for the password field. Sites that
	// hand off to SSO never show one.
	PasswordTimeout time.Duration

	// VerificationWindow is how long a human has to clear any CAPTCHA or
	// 2FA prompt before the attempt fails.
	VerificationWindow time.Duration

	// PollInterval caps the delay between verification checks.
	PollInterval time.Duration

	// StepPause is slept after each submitted step.
	StepPause time.Duration
}

// DefaultOptions returns the stock timings.
func DefaultOptions() Options {
	return Options{
		EmailTimeout:       30 * time.Second,
		PasswordTimeout:    30 * time.Second,
		VerificationWindow: 30 * time.Second,
		PollInterval:       500 * time.Millisecond,
		StepPause:          time.Second,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.EmailTimeout <= 0 {
		o.EmailTimeout = d.EmailTimeout
	}
	if o.PasswordTimeout <= 0 {
		o.PasswordTimeout = d.PasswordTimeout
	}
	if o.VerificationWindow <= 0 {
		o.VerificationWindow = d.VerificationWindow
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.StepPause < 0 {
		o.StepPause = 0
	}
	return o
}

// Verification methods reported in Result.VerifiedBy.
const (
	VerifiedByIndicator = "profile indicator"
	VerifiedByURL       = "authenticated url"
)

// Result describes a finished login attempt.
type Result struct {
	State State

	// Trace lists every state entered, in order.
	Trace []State

	// VerifiedBy says which signal proved the login on success.
	VerifiedBy string

	// URL is the page URL when the flow ended.
	URL string

	// StatePath is where the session state was written on success.
	StatePath string

	// EvidencePath is the screenshot taken on failure, if any.
	EvidencePath string
}

// ErrAuthenticationFailed matches every AuthenticationFailedError.
var ErrAuthenticationFailed = errors.New("authentication failed")

// AuthenticationFailedError is returned when the flow ends in StateFailed
// because the site never accepted the credentials.
type AuthenticationFailedError struct {
	Reason       string
	EvidencePath string
}

func (e *AuthenticationFailedError) Error() string {
	msg := fmt.Sprintf("login: authentication failed: %s", e.Reason)
	if e.EvidencePath != "" {
		msg += fmt.Sprintf(" (evidence: %s)", e.EvidencePath)
	}
	return msg
}

func (e *AuthenticationFailedError) Is(target error) bool {
	return target == ErrAuthenticationFailed
}

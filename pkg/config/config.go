// Package config loads quickapply settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/entrhq/quickapply/pkg/apply"
	"github.com/entrhq/quickapply/pkg/browser"
	"github.com/entrhq/quickapply/pkg/login"
)

// ErrMissingCredentials is returned when a command that signs in has no
// email or password configured.
var ErrMissingCredentials = errors.New("credentials.email and credentials.password are required")

// Config is the full set of settings.
type Config struct {
	// Site names a built-in site profile.
	Site string `yaml:"site"`

	// SiteFile optionally points at a YAML site profile that extends or
	// replaces the built-in one.
	SiteFile string `yaml:"site_file,omitempty"`

	Credentials Credentials `yaml:"credentials"`

	SessionStoragePath string `yaml:"session_storage_path"`
	EvidenceOutputDir  string `yaml:"evidence_output_dir"`
	HistoryDBPath      string `yaml:"history_db_path"`

	// LogDir defaults to ~/.quickapply/logs when empty.
	LogDir string `yaml:"log_dir,omitempty"`

	Browser BrowserConfig `yaml:"browser"`
	Login   LoginConfig   `yaml:"login"`
	Apply   ApplyConfig   `yaml:"apply"`
}

// Credentials are the account used to sign in.
type Credentials struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

func (c Credentials) String() string {
	email := "<unset>"
	if c.Email != "" {
		email = "<redacted>"
	}
	password := "<unset>"
	if c.Password != "" {
		password = "<redacted>"
	}
	return fmt.Sprintf("Credentials{Email: %s, Password: %s}", email, password)
}

func (c Credentials) GoString() string {
	return c.String()
}

// BrowserConfig controls the browser launch.
type BrowserConfig struct {
	Headless    bool             `yaml:"headless"`
	SlowMoMS    int              `yaml:"slow_mo_ms"`
	TimeoutMS   int              `yaml:"timeout_ms"`
	Viewport    browser.Viewport `yaml:"viewport"`
	SkipInstall bool             `yaml:"skip_install,omitempty"`
}

// LoginConfig holds the login flow timings.
type LoginConfig struct {
	EmailTimeout       time.Duration `yaml:"email_timeout"`
	PasswordTimeout    time.Duration `yaml:"password_timeout"`
	VerificationWindow time.Duration `yaml:"verification_window"`
	PollInterval       time.Duration `yaml:"poll_interval"`
	StepPause          time.Duration `yaml:"step_pause"`
}

// ApplyConfig holds the apply flow timings and bounds.
type ApplyConfig struct {
	EntryTimeout      time.Duration `yaml:"entry_timeout"`
	ModalTimeout      time.Duration `yaml:"modal_timeout"`
	StepTimeout       time.Duration `yaml:"step_timeout"`
	MaxSteps          int           `yaml:"max_steps"`
	ScrollDelta       float64       `yaml:"scroll_delta"`
	ScrollPause       time.Duration `yaml:"scroll_pause"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	SubmitSettleDelay time.Duration `yaml:"submit_settle_delay"`
	PollInterval      time.Duration `yaml:"poll_interval"`

	// InvocationTimeout bounds one apply run, cleanup excluded.
	InvocationTimeout time.Duration `yaml:"invocation_timeout"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	lo := login.DefaultOptions()
	ap := apply.DefaultOptions()
	return &Config{
		Site:               "dice",
		SessionStoragePath: ".storage/dice.json",
		EvidenceOutputDir:  ".out",
		HistoryDBPath:      ".data/dice.sqlite",
		Browser: BrowserConfig{
			SlowMoMS:  int(browser.DefaultSlowMo),
			TimeoutMS: int(browser.DefaultTimeout),
			Viewport: browser.Viewport{
				Width:  browser.DefaultViewportWidth,
				Height: browser.DefaultViewportHeight,
			},
		},
		Login: LoginConfig{
			EmailTimeout:       lo.EmailTimeout,
			PasswordTimeout:    lo.PasswordTimeout,
			VerificationWindow: lo.VerificationWindow,
			PollInterval:       lo.PollInterval,
			StepPause:          lo.StepPause,
		},
		Apply: ApplyConfig{
			EntryTimeout:      ap.EntryTimeout,
			ModalTimeout:      ap.ModalTimeout,
			StepTimeout:       ap.StepTimeout,
			MaxSteps:          ap.MaxSteps,
			ScrollDelta:       ap.ScrollDelta,
			ScrollPause:       ap.ScrollPause,
			SettleDelay:       ap.SettleDelay,
			SubmitSettleDelay: ap.SubmitSettleDelay,
			PollInterval:      ap.PollInterval,
			InvocationTimeout: 5 * time.Minute,
		},
	}
}

// Validate checks that paths are set and timings are usable. Credentials
// are checked separately by RequireCredentials since only login needs them.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Site == "" && c.SiteFile == "" {
		add("site or site_file is required")
	}
	if c.SessionStoragePath == "" {
		add("session_storage_path is required")
	}
	if c.EvidenceOutputDir == "" {
		add("evidence_output_dir is required")
	}
	if c.HistoryDBPath == "" {
		add("history_db_path is required")
	}

	if c.Browser.SlowMoMS < 0 {
		add("browser.slow_mo_ms must not be negative")
	}
	if c.Browser.TimeoutMS < 0 {
		add("browser.timeout_ms must not be negative")
	}
	if c.Browser.Viewport.Width < 0 || c.Browser.Viewport.Height < 0 {
		add("browser.viewport must not be negative")
	}

	positive := map[string]time.Duration{
		"login.email_timeout":       c.Login.EmailTimeout,
		"login.password_timeout":    c.Login.PasswordTimeout,
		"login.verification_window": c.Login.VerificationWindow,
		"login.poll_interval":       c.Login.PollInterval,
		"apply.entry_timeout":       c.Apply.EntryTimeout,
		"apply.modal_timeout":       c.Apply.ModalTimeout,
		"apply.step_timeout":        c.Apply.StepTimeout,
		"apply.poll_interval":       c.Apply.PollInterval,
		"apply.invocation_timeout":  c.Apply.InvocationTimeout,
	}
	for _, key := range slices.Sorted(maps.Keys(positive)) {
		if positive[key] <= 0 {
			add("%s must be positive", key)
		}
	}

	nonNegative := map[string]time.Duration{
		"login.step_pause":          c.Login.StepPause,
		"apply.scroll_pause":        c.Apply.ScrollPause,
		"apply.settle_delay":        c.Apply.SettleDelay,
		"apply.submit_settle_delay": c.Apply.SubmitSettleDelay,
	}
	for _, key := range slices.Sorted(maps.Keys(nonNegative)) {
		if nonNegative[key] < 0 {
			add("%s must not be negative", key)
		}
	}

	if c.Apply.MaxSteps <= 0 {
		add("apply.max_steps must be positive")
	}
	if c.Apply.ScrollDelta < 0 {
		add("apply.scroll_delta must not be negative")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// RequireCredentials returns ErrMissingCredentials unless both the email
// and password are set.
func (c *Config) RequireCredentials() error {
	if strings.TrimSpace(c.Credentials.Email) == "" || c.Credentials.Password == "" {
		return ErrMissingCredentials
	}
	return nil
}

// BrowserOptions converts the browser section for the launcher.
func (c *Config) BrowserOptions() browser.Options {
	vp := c.Browser.Viewport
	return browser.Options{
		Headless:    c.Browser.Headless,
		SlowMo:      float64(c.Browser.SlowMoMS),
		Timeout:     float64(c.Browser.TimeoutMS),
		Viewport:    &vp,
		SkipInstall: c.Browser.SkipInstall,
	}
}

// LoginOptions converts the login section for the login flow.
func (c *Config) LoginOptions() login.Options {
	return login.Options{
		EmailTimeout:       c.Login.EmailTimeout,
		PasswordTimeout:    c.Login.PasswordTimeout,
		VerificationWindow: c.Login.VerificationWindow,
		PollInterval:       c.Login.PollInterval,
		StepPause:          c.Login.StepPause,
	}
}

// LoginCredentials converts the credentials for the login flow.
func (c *Config) LoginCredentials() login.Credentials {
	return login.Credentials{
		Email:    strings.TrimSpace(c.Credentials.Email),
		Password: c.Credentials.Password,
	}
}

// ApplyOptions converts the apply section for the apply flow.
func (c *Config) ApplyOptions() apply.Options {
	return apply.Options{
		EntryTimeout:      c.Apply.EntryTimeout,
		ModalTimeout:      c.Apply.ModalTimeout,
		StepTimeout:       c.Apply.StepTimeout,
		MaxSteps:          c.Apply.MaxSteps,
		ScrollDelta:       c.Apply.ScrollDelta,
		ScrollPause:       c.Apply.ScrollPause,
		SettleDelay:       c.Apply.SettleDelay,
		SubmitSettleDelay: c.Apply.SubmitSettleDelay,
		PollInterval:      c.Apply.PollInterval,
	}
}

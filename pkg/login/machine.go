// Package login drives a job board's multi-step sign-in form and persists
// the authenticated session for later apply runs.
//
// The flow is a small state machine:
//
//	Start -> EmailEntered -> [PasswordEntered] -> AwaitingVerification -> Success | Failed
//
// The password step is skipped when no password field shows up, which is
// what SSO hand-offs and already signed-in sessions look like. Verification
// accepts either the profile indicator or an authenticated-area URL, and
// leaves time for a human to clear a CAPTCHA or 2FA prompt.
package login

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/quickapply/pkg/browser"
	"github.com/entrhq/quickapply/pkg/evidence"
	"github.com/entrhq/quickapply/pkg/locator"
	"github.com/entrhq/quickapply/pkg/logging"
	"github.com/entrhq/quickapply/pkg/site"
	"github.com/entrhq/quickapply/pkg/wait"
)

const (
	flowName        = "login"
	evidenceTimeout = 10 * time.Second
)

// Machine runs the login flow for one site profile. A Machine holds no
// per-run state and may be reused.
type Machine struct {
	profile  *site.Profile
	resolver *locator.Resolver
	evidence *evidence.Recorder
	logger   *logging.Logger
	opts     Options
	backoff  wait.Backoff
}

// NewMachine creates a login machine. Zero option fields take their
// defaults.
func NewMachine(profile *site.Profile, rec *evidence.Recorder, logger *logging.Logger, opts Options) *Machine {
	opts = opts.withDefaults()
	backoff := wait.Backoff{Initial: opts.PollInterval / 5, Max: opts.PollInterval}
	return &Machine{
		profile:  profile,
		resolver: locator.NewResolver(profile.Locators(), locator.WithBackoff(backoff)),
		evidence: rec,
		logger:   logger,
		opts:     opts,
		backoff:  backoff,
	}
}

// Run signs in on sess's page. On success the session state is saved via
// sess and the result is in StateSuccess.
//
// Any other ending leaves the result in StateFailed with a screenshot in
// EvidencePath. A site that never accepts the credentials yields an
// *AuthenticationFailedError; driver faults and cancellation are returned
// wrapped as they are.
func (m *Machine) Run(ctx context.Context, sess *browser.Session, creds Credentials) (*Result, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errors.New("login: session is required")
	}

	page := sess.Page()
	res := &Result{State: StateStart, Trace: []State{StateStart}}

	err := m.run(ctx, sess, page, creds, res)
	res.URL = page.URL()
	if err == nil {
		return res, nil
	}

	outcome := "error"
	var authErr *AuthenticationFailedError
	if errors.As(err, &authErr) {
		outcome = "failed"
	}
	m.advance(res, StateFailed)
	res.EvidencePath = m.capture(ctx, page, outcome)
	if authErr != nil {
		authErr.EvidencePath = res.EvidencePath
	}
	m.logger.Errorf("Login failed: %v", err)
	return res, err
}

func (m *Machine) run(ctx context.Context, sess *browser.Session, page browser.Page, creds Credentials, res *Result) error {
	m.logger.Infof("Opening %s login page %s", m.profile.Name(), m.profile.LoginURL())
	if err := page.Goto(ctx, m.profile.LoginURL()); err != nil {
		return fmt.Errorf("login: open login page: %w", err)
	}
	if err := page.WaitForLoad(ctx); err != nil {
		return fmt.Errorf("login: wait for login page: %w", err)
	}

	email, err := m.resolver.Resolve(ctx, page, locator.RoleEmailField, m.opts.EmailTimeout)
	if err != nil {
		return fmt.Errorf("login: resolve %s: %w", locator.RoleEmailField, err)
	}
	if email == nil {
		return &AuthenticationFailedError{Reason: fmt.Sprintf("%s not found within %s", locator.RoleEmailField, m.opts.EmailTimeout)}
	}
	m.logger.Debugf("Filling %s via %s", locator.RoleEmailField, email.Selector)
	if err := email.Element.Fill(ctx, creds.Email); err != nil {
		return fmt.Errorf("login: fill email: %w", err)
	}
	m.advance(res, StateEmailEntered)

	if err := m.submit(ctx, page, locator.RoleLoginContinue); err != nil {
		return err
	}
	if err := wait.Sleep(ctx, m.opts.StepPause); err != nil {
		return err
	}

	password, err := m.resolver.Resolve(ctx, page, locator.RolePasswordField, m.opts.PasswordTimeout)
	if err != nil {
		return fmt.Errorf("login: resolve %s: %w", locator.RolePasswordField, err)
	}
	if password == nil {
		m.logger.Infof("No password field appeared; assuming SSO or an existing session")
	} else {
		m.logger.Debugf("Filling %s via %s", locator.RolePasswordField, password.Selector)
		if err := password.Element.Fill(ctx, creds.Password); err != nil {
			return fmt.Errorf("login: fill password: %w", err)
		}
		m.advance(res, StatePasswordEntered)
	}

	if err := m.submit(ctx, page, locator.RoleSignInButton); err != nil {
		return err
	}
	m.advance(res, StateAwaitingVerification)

	m.logger.Infof("Waiting up to %s for sign-in to complete; finish any CAPTCHA or 2FA in the browser", m.opts.VerificationWindow)
	by, err := m.verify(ctx, page)
	if err != nil {
		return fmt.Errorf("login: verification: %w", err)
	}
	if by == "" {
		return &AuthenticationFailedError{Reason: fmt.Sprintf("not signed in within %s", m.opts.VerificationWindow)}
	}
	res.VerifiedBy = by
	m.logger.Infof("Signed in (verified by %s)", by)

	if err := sess.SaveState(ctx); err != nil {
		return fmt.Errorf("login: persist session: %w", err)
	}
	res.StatePath = sess.StatePath()
	m.logger.Infof("Session state saved to %s", res.StatePath)
	m.advance(res, StateSuccess)
	return nil
}

// submit clicks role when it is visible and presses Enter otherwise.
func (m *Machine) submit(ctx context.Context, page browser.Page, role locator.Role) error {
	match, err := m.resolver.Probe(ctx, page, role)
	if err != nil {
		return fmt.Errorf("login: resolve %s: %w", role, err)
	}
	if match == nil {
		m.logger.Debugf("No %s visible, pressing Enter", role)
		if err := page.PressEnter(ctx); err != nil {
			return fmt.Errorf("login: press enter: %w", err)
		}
		return nil
	}
	m.logger.Debugf("Clicking %s via %s", role, match.Selector)
	if err := match.Element.Click(ctx); err != nil {
		return fmt.Errorf("login: click %s: %w", role, err)
	}
	return nil
}

// verify polls for either success signal and returns which one matched,
// or "" when the window closed first.
func (m *Machine) verify(ctx context.Context, page browser.Page) (string, error) {
	var by string
	_, err := wait.Poll(ctx, m.opts.VerificationWindow, m.backoff, func(ctx context.Context) (bool, error) {
		match, err := m.resolver.Probe(ctx, page, locator.RoleProfileIndicator)
		if err != nil {
			return false, err
		}
		if match != nil {
			by = VerifiedByIndicator
			return true, nil
		}
		if m.profile.IsAuthenticatedURL(page.URL()) {
			by = VerifiedByURL
			return true, nil
		}
		return false, nil
	})
	return by, err
}

func (m *Machine) advance(res *Result, s State) {
	m.logger.Debugf("%s -> %s", res.State, s)
	res.State = s
	res.Trace = append(res.Trace, s)
}

// capture takes a screenshot even when ctx is already cancelled.
func (m *Machine) capture(ctx context.Context, page browser.Page, outcome string) string {
	if m.evidence == nil {
		return ""
	}
	ctx, cancel := wait.Detached(ctx, evidenceTimeout)
	defer cancel()

	path, err := m.evidence.Capture(ctx, page, flowName, outcome)
	if err != nil {
		m.logger.Warnf("Failed to capture evidence: %v", err)
		return ""
	}
	m.logger.Infof("Evidence saved to %s", path)
	return path
}

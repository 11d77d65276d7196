// Package apply drives a job board's quick-apply flow for a single job URL.
//
// The flow is a state machine:
//
//	Start -> EntryFound -> ModalDetected -> Stepping(n) -> Submitted | Skipped | Aborted
//
// A job page without a quick-apply button ends Skipped. Once the form is
// open, each step prefers a submit-class control over a progress-class one,
// and the number of steps is bounded so a form that keeps asking to
// continue is eventually abandoned. Every terminal state takes a
// screenshot and re-saves the session state.
package apply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/entrhq/quickapply/pkg/browser"
	"github.com/entrhq/quickapply/pkg/evidence"
	"github.com/entrhq/quickapply/pkg/locator"
	"github.com/entrhq/quickapply/pkg/logging"
	"github.com/entrhq/quickapply/pkg/site"
	"github.com/entrhq/quickapply/pkg/wait"
)

const (
	flowName       = "apply"
	cleanupTimeout = 15 * time.Second
)

// stepRoles are checked in priority order on every step.
var stepRoles = append(append([]locator.Role(nil), locator.SubmitClass...), locator.ProgressClass...)

// Machine runs the apply flow for one site profile. A Machine holds no
// per-run state; every Run starts again from StateStart.
type Machine struct {
	profile  *site.Profile
	resolver *locator.Resolver
	evidence *evidence.Recorder
	logger   *logging.Logger
	opts     Options
	history  Recorder
	now      func() time.Time
}

// Option customises a Machine.
type Option func(*Machine)

// WithRecorder stores every finished attempt in r.
func WithRecorder(r Recorder) Option { return func(m *Machine) { m.history = r } }

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(m *Machine) { m.now = now } }

// NewMachine creates an apply machine. Zero option fields take their
// defaults.
func NewMachine(profile *site.Profile, rec *evidence.Recorder, logger *logging.Logger, opts Options, options ...Option) *Machine {
	opts = opts.withDefaults()
	backoff := wait.Backoff{Initial: opts.PollInterval / 5, Max: opts.PollInterval}
	m := &Machine{
		profile:  profile,
		resolver: locator.NewResolver(profile.Locators(), locator.WithBackoff(backoff)),
		evidence: rec,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Run applies to jobURL on sess's page and always returns the attempt once
// it has started. Skipped and Aborted are outcomes, not errors; the error is
// non-nil only for driver faults and cancellation, in which case the
// attempt is Aborted.
func (m *Machine) Run(ctx context.Context, sess *browser.Session, jobURL string) (*Attempt, error) {
	if jobURL == "" {
		return nil, errors.New("apply: job URL is required")
	}
	if sess == nil {
		return nil, errors.New("apply: session is required")
	}

	started := m.now()
	a := &Attempt{
		ID:        ulid.MustNew(ulid.Timestamp(started), ulid.DefaultEntropy()),
		JobURL:    jobURL,
		State:     StateStart,
		Trace:     []State{StateStart},
		StartedAt: started,
	}
	page := sess.Page()

	state, reason, err := m.run(ctx, page, a)
	if err != nil {
		state, reason = StateAborted, ReasonDriverFault
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			reason = ReasonCancelled
		}
		m.logger.Errorf("Apply to %s failed: %v", jobURL, err)
	}
	m.finish(ctx, sess, page, a, state, reason)
	return a, err
}

func (m *Machine) run(ctx context.Context, page browser.Page, a *Attempt) (State, Reason, error) {
	m.logger.Infof("Opening job page %s", a.JobURL)
	if err := page.Goto(ctx, a.JobURL); err != nil {
		return "", "", fmt.Errorf("apply: open job page: %w", err)
	}
	if err := page.WaitForLoad(ctx); err != nil {
		return "", "", fmt.Errorf("apply: wait for job page: %w", err)
	}

	if m.opts.ScrollDelta > 0 {
		if err := page.Scroll(ctx, m.opts.ScrollDelta); err != nil {
			return "", "", fmt.Errorf("apply: scroll: %w", err)
		}
		if err := wait.Sleep(ctx, m.opts.ScrollPause); err != nil {
			return "", "", err
		}
	}

	entry, err := m.resolver.Resolve(ctx, page, locator.RoleApplyEntry, m.opts.EntryTimeout)
	if err != nil {
		return "", "", fmt.Errorf("apply: resolve %s: %w", locator.RoleApplyEntry, err)
	}
	if entry == nil {
		m.logger.Warnf("No quick-apply button on %s", a.JobURL)
		return StateSkipped, ReasonNoEntryPoint, nil
	}
	m.advance(a, StateEntryFound)
	m.logger.Infof("Quick-apply button found via %s, clicking", entry.Selector)
	if err := entry.Element.Click(ctx); err != nil {
		return "", "", fmt.Errorf("apply: click %s: %w", locator.RoleApplyEntry, err)
	}

	first, err := m.resolver.ResolveFirst(ctx, page, stepRoles, m.opts.ModalTimeout)
	if err != nil {
		return "", "", fmt.Errorf("apply: wait for application steps: %w", err)
	}
	if first == nil {
		m.logger.Warnf("No application steps appeared within %s", m.opts.ModalTimeout)
		return StateAborted, ReasonNoModal, nil
	}
	m.advance(a, StateModalDetected)

	if err := m.selectResume(ctx, page); err != nil {
		return "", "", err
	}

	m.advance(a, StateStepping)
	for i := 0; i < m.opts.MaxSteps; i++ {
		match, err := m.resolver.ResolveFirst(ctx, page, stepRoles, m.opts.StepTimeout)
		if err != nil {
			return "", "", fmt.Errorf("apply: resolve step controls: %w", err)
		}
		if match == nil {
			m.logger.Infof("No progress controls appeared within %s", m.opts.StepTimeout)
			return StateAborted, ReasonNoProgress, nil
		}

		if match.Role.IsSubmit() {
			m.logger.Infof("Submitting application (%s)", match.Role)
			if err := match.Element.Click(ctx); err != nil {
				return "", "", fmt.Errorf("apply: click %s: %w", match.Role, err)
			}
			if err := wait.Sleep(ctx, m.opts.SubmitSettleDelay); err != nil {
				return "", "", err
			}
			return StateSubmitted, ReasonSubmitted, nil
		}

		m.logger.Infof("Step %d: clicking %s", i+1, match.Role)
		if err := match.Element.Click(ctx); err != nil {
			return "", "", fmt.Errorf("apply: click %s: %w", match.Role, err)
		}
		a.Steps++
		if err := wait.Sleep(ctx, m.opts.SettleDelay); err != nil {
			return "", "", err
		}
	}

	m.logger.Warnf("Gave up after %d steps without reaching submit", m.opts.MaxSteps)
	return StateAborted, ReasonStepsExhausted, nil
}

// selectResume picks the first resume when the form offers a choice. Any
// failure other than cancellation is logged and ignored.
func (m *Machine) selectResume(ctx context.Context, page browser.Page) error {
	match, err := m.resolver.Probe(ctx, page, locator.RoleResumeSelect)
	if err == nil && match != nil {
		m.logger.Infof("Selecting default resume")
		err = match.Element.SelectFirstOption(ctx)
		if err == nil {
			return wait.Sleep(ctx, m.opts.SettleDelay)
		}
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		m.logger.Warnf("Resume selection skipped: %v", err)
	}
	return nil
}

func (m *Machine) advance(a *Attempt, s State) {
	m.logger.Debugf("%s -> %s", a.State, s)
	a.State = s
	a.Trace = append(a.Trace, s)
}

// finish moves a into its terminal state and runs cleanup that must happen
// even after ctx is cancelled: evidence, session state and history.
func (m *Machine) finish(ctx context.Context, sess *browser.Session, page browser.Page, a *Attempt, state State, reason Reason) {
	m.advance(a, state)
	a.Reason = reason
	switch state {
	case StateSubmitted:
		a.Outcome = OutcomeSubmitted
	case StateSkipped:
		a.Outcome = OutcomeSkipped
	default:
		a.Outcome = OutcomeAborted
	}

	ctx, cancel := wait.Detached(ctx, cleanupTimeout)
	defer cancel()

	if m.evidence != nil {
		path, err := m.evidence.Capture(ctx, page, flowName, string(a.Outcome))
		if err != nil {
			m.logger.Warnf("Failed to capture evidence: %v", err)
		} else {
			a.EvidencePath = path
			m.logger.Infof("Evidence saved to %s", path)
		}
	}

	if sess.StatePath() != "" {
		if err := sess.SaveState(ctx); err != nil {
			m.logger.Warnf("Failed to save session state: %v", err)
		}
	}

	a.FinishedAt = m.now()
	if m.history != nil {
		if err := m.history.Record(ctx, a); err != nil {
			m.logger.Warnf("Failed to record attempt %s: %v", a.ID, err)
		}
	}

	m.logger.Infof("Apply %s: %s (%s) after %d steps in %s", a.ID, a.Outcome, a.Reason, a.Steps, a.Duration().Round(time.Millisecond))
}

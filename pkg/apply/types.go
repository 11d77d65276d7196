package apply

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// State is a step of the apply flow.
type State string

const (
	StateStart         State = "start"
	StateEntryFound    State = "entry-found"
	StateModalDetected State = "modal-detected"
	StateStepping      State = "stepping"
	StateSubmitted     State = "submitted"
	StateSkipped       State = "skipped"
	StateAborted       State = "aborted"
)

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	switch s {
	case StateSubmitted, StateSkipped, StateAborted:
		return true
	}
	return false
}

// Outcome is the result of an attempt. None of them is an error: a job
// without a quick-apply button is simply skipped.
type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeAborted   Outcome = "aborted"
)

// OK reports whether the outcome should exit successfully.
func (o Outcome) OK() bool {
	return o == OutcomeSubmitted || o == OutcomeSkipped
}

// Reason explains why an attempt ended where it did.
type Reason string

const (
	ReasonSubmitted      Reason = "submitted"
	ReasonNoEntryPoint   Reason = "no entry point"
	ReasonNoModal        Reason = "no application steps detected"
	ReasonNoProgress     Reason = "no progress possible"
	ReasonStepsExhausted Reason = "step budget exhausted"
	ReasonCancelled      Reason = "cancelled"
	ReasonDriverFault    Reason = "driver fault"
)

// Attempt records one run of the flow against one job URL.
type Attempt struct {
	ID     ulid.ULID
	JobURL string

	State   State
	Outcome Outcome
	Reason  Reason

	// Trace lists every state entered, in order.
	Trace []State

	// Steps counts progress clicks made inside the application form.
	Steps int

	// EvidencePath is the screenshot taken at the terminal state.
	EvidencePath string

	StartedAt  time.Time
	FinishedAt time.Time
}

// Duration is how long the attempt took.
func (a *Attempt) Duration() time.Duration {
	if a.FinishedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// Recorder stores finished attempts.
type Recorder interface {
	Record(ctx context.Context, a *Attempt) error
}

// Options controls the timings and bounds of the flow.
type Options struct {
	// EntryTimeout bounds the wait for the quick-apply button.
	EntryTimeout time.Duration

	// ModalTimeout bounds the wait for the first application step after
	// the entry button is clicked.
	ModalTimeout time.Duration

	// StepTimeout bounds the wait for the next submit or progress control
	// once a step has settled.
	StepTimeout time.Duration

	// MaxSteps caps the number of step iterations.
	MaxSteps int

	// ScrollDelta is how far the job page is scrolled to wake lazy UI.
	ScrollDelta float64

	// ScrollPause is slept after scrolling.
	ScrollPause time.Duration

	// SettleDelay is slept after a progress click or resume selection.
	SettleDelay time.Duration

	// SubmitSettleDelay is slept after the submit click.
	SubmitSettleDelay time.Duration

	// PollInterval caps the delay between element checks.
	PollInterval time.Duration
}

// DefaultOptions returns the stock timings.
func DefaultOptions() Options {
	return Options{
		EntryTimeout:      3 * time.Second,
		ModalTimeout:      20 * time.Second,
		StepTimeout:       5 * time.Second,
		MaxSteps:          6,
		ScrollDelta:       800,
		ScrollPause:       600 * time.Millisecond,
		SettleDelay:       1500 * time.Millisecond,
		SubmitSettleDelay: 2500 * time.Millisecond,
		PollInterval:      500 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.EntryTimeout <= 0 {
		o.EntryTimeout = d.EntryTimeout
	}
	if o.ModalTimeout <= 0 {
		o.ModalTimeout = d.ModalTimeout
	}
	if o.StepTimeout <= 0 {
		o.StepTimeout = d.StepTimeout
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = d.MaxSteps
	}
	if o.PollInterval <= 0 {
		o.PollInterval = d.PollInterval
	}
	if o.ScrollDelta < 0 {
		o.ScrollDelta = 0
	}
	if o.ScrollPause < 0 {
		o.ScrollPause = 0
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if o.SubmitSettleDelay < 0 {
		o.SubmitSettleDelay = 0
	}
	return o
}

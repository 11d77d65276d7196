package login

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/entrhq/quickapply/pkg/browser"
	"github.com/entrhq/quickapply/pkg/browser/browsertest"
	"github.com/entrhq/quickapply/pkg/evidence"
	"github.com/entrhq/quickapply/pkg/logging"
	"github.com/entrhq/quickapply/pkg/site"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	loginURL  = "https://www.dice.com/dashboard/login"
	statePath = ".storage/dice.json"
)

var (
	emailSel    = browser.CSS{Pattern: "input#email"}
	continueSel = browser.Text{Tag: "button", Text: "Continue"}
	passwordSel = browser.CSS{Pattern: "input#password"}
	signInSel   = browser.CSS{Pattern: "button[data-testid='sign-in-button']"}
	avatarSel   = browser.CSS{Pattern: "[data-testid='user-avatar']"}

	creds = Credentials{Email: "a@b.com", Password: "secret"}

	fastOptions = Options{
		EmailTimeout:       50 * time.Millisecond,
		PasswordTimeout:    30 * time.Millisecond,
		VerificationWindow: 80 * time.Millisecond,
		PollInterval:       5 * time.Millisecond,
	}
)

type fixture struct {
	fs      afero.Fs
	page    *browsertest.Page
	session *browser.Session
	machine *Machine
	logs    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	page := browsertest.NewPage()
	logs := &bytes.Buffer{}
	return &fixture{
		fs:      fs,
		page:    page,
		session: browser.NewSession("test", page, browser.NewStateStore(fs, statePath), nil),
		machine: NewMachine(site.Dice(), evidence.NewRecorder(fs, ".out"), logging.New("login", logs), fastOptions),
		logs:    logs,
	}
}

func (f *fixture) evidenceExists(t *testing.T, path string) {
	t.Helper()
	require.NotEmpty(t, path)
	data, err := afero.ReadFile(f.fs, path)
	require.NoError(t, err)
	assert.Equal(t, browsertest.PNG, data)
}

func TestRun_EmailOnlyThenProfileIndicator(t *testing.T) {
	f := newFixture(t)
	email := &browsertest.Element{Name: "email", Selector: emailSel}
	cont := &browsertest.Element{
		Name:     "continue",
		Selector: continueSel,
		OnClick: func(p *browsertest.Page) {
			p.Clear()
			p.Add(&browsertest.Element{Name: "avatar", Selector: avatarSel})
		},
	}
	f.page.Route(loginURL, func(p *browsertest.Page) { p.Add(email, cont) })

	res, err := f.machine.Run(context.Background(), f.session, creds)
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, res.State)
	assert.Equal(t, []State{StateStart, StateEmailEntered, StateAwaitingVerification, StateSuccess}, res.Trace)
	assert.Equal(t, VerifiedByIndicator, res.VerifiedBy)
	assert.Equal(t, statePath, res.StatePath)
	assert.Empty(t, res.EvidencePath)

	assert.Equal(t, "a@b.com", email.Value())
	assert.Equal(t, 1, cont.Clicks())
	assert.Equal(t, 1, f.page.Enters(), "sign-in button absent, Enter expected")
	assert.Equal(t, []string{loginURL}, f.page.Visited())

	stored, err := afero.ReadFile(f.fs, statePath)
	require.NoError(t, err)
	assert.Equal(t, f.page.State, stored)
}

func TestRun_FullFlowVerifiedByURL(t *testing.T) {
	f := newFixture(t)
	password := &browsertest.Element{Name: "password", Selector: passwordSel}
	signIn := &browsertest.Element{
		Name:     "sign-in",
		Selector: signInSel,
		OnClick: func(p *browsertest.Page) {
			p.Clear()
			p.SetURL("https://www.dice.com/home-feed")
		},
	}
	f.page.Route(loginURL, func(p *browsertest.Page) {
		p.Add(&browsertest.Element{Name: "email", Selector: emailSel})
	})
	f.page.OnEnter = func(p *browsertest.Page) {
		p.Remove("email")
		p.Add(password, signIn)
	}

	res, err := f.machine.Run(context.Background(), f.session, creds)
	require.NoError(t, err)

	assert.Equal(t, StateSuccess, res.State)
	assert.Equal(t, []State{
		StateStart,
		StateEmailEntered,
		StatePasswordEntered,
		StateAwaitingVerification,
		StateSuccess,
	}, res.Trace)
	assert.Equal(t, VerifiedByURL, res.VerifiedBy)
	assert.Equal(t, "https://www.dice.com/home-feed", res.URL)
	assert.Equal(t, "secret", password.Value())
	assert.Equal(t, 1, signIn.Clicks())
	assert.Equal(t, []string{"email", "password"}, f.page.Fills())
}

func TestRun_PasswordNeverAppears(t *testing.T) {
	f := newFixture(t)
	f.page.Route(loginURL, func(p *browsertest.Page) {
		p.Add(&browsertest.Element{Name: "email", Selector: emailSel})
	})

	res, err := f.machine.Run(context.Background(), f.session, creds)
	require.Error(t, err)
	assert.Contains(t, res.Trace, StateAwaitingVerification)
	assert.NotContains(t, res.Trace, StatePasswordEntered)
}

func TestRun_EmailFieldMissing(t *testing.T) {
	f := newFixture(t)

	res, err := f.machine.Run(context.Background(), f.session, creds)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, []State{StateStart, StateFailed}, res.Trace)
	assert.Empty(t, f.page.Fills())
	f.evidenceExists(t, res.EvidencePath)
	assert.Contains(t, res.EvidencePath, "login-failed-")
}

func TestRun_NeverVerified(t *testing.T) {
	f := newFixture(t)
	// The login page itself lives under /dashboard and must not count.
	f.page.Route(loginURL, func(p *browsertest.Page) {
		p.Add(
			&browsertest.Element{Name: "email", Selector: emailSel},
			&browsertest.Element{Name: "password", Selector: passwordSel},
			&browsertest.Element{Name: "avatar", Selector: avatarSel, Hidden: true},
		)
	})

	res, err := f.machine.Run(context.Background(), f.session, creds)
	require.Error(t, err)

	var authErr *AuthenticationFailedError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, res.EvidencePath, authErr.EvidencePath)
	assert.Contains(t, err.Error(), res.EvidencePath)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, loginURL, res.URL)
	f.evidenceExists(t, res.EvidencePath)

	exists, err := afero.Exists(f.fs, statePath)
	require.NoError(t, err)
	assert.False(t, exists, "no session state on failure")
}

func TestRun_DriverFault(t *testing.T) {
	f := newFixture(t)
	f.page.Faults["find"] = errors.New("target closed")

	res, err := f.machine.Run(context.Background(), f.session, creds)
	require.Error(t, err)
	assert.True(t, browser.IsDriverFault(err))
	assert.NotErrorIs(t, err, ErrAuthenticationFailed)
	assert.Equal(t, StateFailed, res.State)
	assert.Contains(t, res.EvidencePath, "login-error-")
}

func TestRun_SaveStateFault(t *testing.T) {
	f := newFixture(t)
	f.page.Faults["storage"] = errors.New("context closed")
	f.page.Route(loginURL, func(p *browsertest.Page) {
		p.Add(
			&browsertest.Element{Name: "email", Selector: emailSel},
			&browsertest.Element{Name: "avatar", Selector: avatarSel},
		)
	})

	res, err := f.machine.Run(context.Background(), f.session, creds)
	require.Error(t, err)
	assert.True(t, browser.IsDriverFault(err))
	assert.Equal(t, StateFailed, res.State)
	assert.NotContains(t, res.Trace, StateSuccess)
}

func TestRun_CancelledDuringVerification(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.page.Route(loginURL, func(p *browsertest.Page) {
		p.Add(&browsertest.Element{Name: "email", Selector: emailSel})
	})
	f.page.OnEnter = func(*browsertest.Page) { cancel() }

	res, err := f.machine.Run(ctx, f.session, creds)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, res.State)
	f.evidenceExists(t, res.EvidencePath)
}

func TestRun_InvalidCredentials(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
	}{
		{"missing email", Credentials{Password: "secret"}},
		{"blank email", Credentials{Email: "  ", Password: "secret"}},
		{"missing password", Credentials{Email: "a@b.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			res, err := f.machine.Run(context.Background(), f.session, tt.creds)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Empty(t, f.page.Visited())
		})
	}
}

func TestRun_NeverLogsCredentials(t *testing.T) {
	f := newFixture(t)
	f.page.Route(loginURL, func(p *browsertest.Page) {
		p.Add(
			&browsertest.Element{Name: "email", Selector: emailSel},
			&browsertest.Element{Name: "password", Selector: passwordSel},
		)
	})

	_, _ = f.machine.Run(context.Background(), f.session, creds)
	require.NotEmpty(t, f.logs.String())
	assert.NotContains(t, f.logs.String(), creds.Email)
	assert.NotContains(t, f.logs.String(), creds.Password)
}

func TestCredentials_Redacted(t *testing.T) {
	for _, s := range []string{
		creds.String(),
		fmt.Sprintf("%v", creds),
		fmt.Sprintf("%+v", creds),
		fmt.Sprintf("%#v", creds),
	} {
		assert.NotContains(t, s, "a@b.com")
		assert.NotContains(t, s, "secret")
	}
}

func TestOptions_WithDefaults(t *testing.T) {
	got := Options{StepPause: -1}.withDefaults()
	want := DefaultOptions()
	want.StepPause = 0
	assert.Equal(t, want, got)

	custom := fastOptions.withDefaults()
	assert.Equal(t, fastOptions, custom)
}

func TestState_Terminal(t *testing.T) {
	assert.True(t, StateSuccess.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateAwaitingVerification.Terminal())
}

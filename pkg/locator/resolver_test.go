package locator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/entrhq/quickapply/pkg/browser"
	"github.com/entrhq/quickapply/pkg/browser/browsertest"
	"github.com/entrhq/quickapply/pkg/wait"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var (
	emailByID    = browser.CSS{Pattern: "input#email"}
	emailByType  = browser.CSS{Pattern: "input[type='email']"}
	emailByLabel = browser.Role{Role: "textbox", Name: "Email"}
	submitText   = browser.Text{Tag: "button", Text: "Submit"}
	nextText     = browser.Text{Tag: "button", Text: "Next"}
)

func testResolver() *Resolver {
	return NewResolver(Specs{
		RoleEmailField: {emailByID, emailByType, emailByLabel},
		RoleSubmit:     {submitText},
		RoleNext:       {nextText},
	}, WithBackoff(wait.Backoff{Initial: time.Millisecond, Max: 5 * time.Millisecond}))
}

func TestResolve_FirstVisibleStrategyWins(t *testing.T) {
	page := browsertest.NewPage()
	page.Add(
		&browsertest.Element{Name: "by-type", Selector: emailByType},
		&browsertest.Element{Name: "by-label", Selector: emailByLabel},
	)

	m, err := testResolver().Resolve(context.Background(), page, RoleEmailField, 0)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, RoleEmailField, m.Role)
	assert.Equal(t, emailByType, m.Selector)
}

func TestResolve_SkipsHiddenMatches(t *testing.T) {
	page := browsertest.NewPage()
	page.Add(
		&browsertest.Element{Name: "offscreen", Selector: emailByID, Hidden: true},
		&browsertest.Element{Name: "real", Selector: emailByLabel},
	)

	m, err := testResolver().Resolve(context.Background(), page, RoleEmailField, 0)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, emailByLabel, m.Selector)
}

func TestResolve_HiddenDuplicateDoesNotShadowVisible(t *testing.T) {
	page := browsertest.NewPage()
	hidden := &browsertest.Element{Name: "offscreen-submit", Selector: submitText, Hidden: true}
	shown := &browsertest.Element{Name: "submit", Selector: submitText}
	page.Add(hidden, shown)

	m, err := testResolver().Resolve(context.Background(), page, RoleSubmit, 0)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, submitText, m.Selector)

	require.NoError(t, m.Element.Click(context.Background()))
	assert.Equal(t, []string{"submit"}, page.Clicks())
}

func TestResolve_NotFoundIsNotAnError(t *testing.T) {
	tests := []struct {
		name     string
		elements []*browsertest.Element
	}{
		{name: "empty page"},
		{
			name: "only hidden matches",
			elements: []*browsertest.Element{
				{Name: "a", Selector: emailByID, Hidden: true},
				{Name: "b", Selector: emailByType, Hidden: true},
				{Name: "c", Selector: emailByLabel, Hidden: true},
			},
		},
		{
			name: "unrelated controls",
			elements: []*browsertest.Element{
				{Name: "submit", Selector: submitText},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := browsertest.NewPage()
			page.Add(tt.elements...)

			m, err := testResolver().Resolve(context.Background(), page, RoleEmailField, 20*time.Millisecond)
			assert.NoError(t, err)
			assert.Nil(t, m)
		})
	}
}

func TestResolve_WaitsForLateElement(t *testing.T) {
	page := browsertest.NewPage()
	page.Add(&browsertest.Element{Name: "late", Selector: emailByID, AppearAfter: 15 * time.Millisecond})

	m, err := testResolver().Resolve(context.Background(), page, RoleEmailField, time.Second)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, emailByID, m.Selector)
	assert.Greater(t, page.Finds(), 3)
}

func TestResolve_ElementAppearingAfterTimeout(t *testing.T) {
	page := browsertest.NewPage()
	page.Add(&browsertest.Element{Name: "late", Selector: emailByID, AppearAfter: time.Hour})

	m, err := testResolver().Resolve(context.Background(), page, RoleEmailField, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestResolve_DriverFaultPropagates(t *testing.T) {
	page := browsertest.NewPage()
	page.Faults["find"] = errors.New("browser disconnected")

	m, err := testResolver().Resolve(context.Background(), page, RoleEmailField, time.Second)
	assert.Nil(t, m)
	require.Error(t, err)
	assert.True(t, browser.IsDriverFault(err))
}

func TestResolve_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, err := testResolver().Resolve(ctx, browsertest.NewPage(), RoleEmailField, time.Second)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolve_UnknownRole(t *testing.T) {
	m, err := testResolver().Resolve(context.Background(), browsertest.NewPage(), RoleProfileIndicator, 0)
	assert.Nil(t, m)
	assert.Error(t, err)
}

func TestResolveFirst_PriorityOrder(t *testing.T) {
	page := browsertest.NewPage()
	page.Add(
		&browsertest.Element{Name: "next", Selector: nextText},
		&browsertest.Element{Name: "submit", Selector: submitText},
	)
	r := testResolver()

	m, err := r.ResolveFirst(context.Background(), page, []Role{RoleSubmit, RoleNext}, 0)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, RoleSubmit, m.Role)

	m, err = r.Probe(context.Background(), page, RoleNext, RoleSubmit)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, RoleNext, m.Role)
}

func TestNewResolver_CopiesSpecs(t *testing.T) {
	specs := Specs{RoleSubmit: {submitText}}
	r := NewResolver(specs)
	specs[RoleSubmit][0] = nextText
	delete(specs, RoleSubmit)

	assert.True(t, r.Has(RoleSubmit))
	assert.Equal(t, submitText, r.specs[RoleSubmit][0])
}

func TestSpecs_Require(t *testing.T) {
	specs := Specs{RoleSubmit: {submitText}, RoleNext: {}}
	assert.NoError(t, specs.Require(RoleSubmit))
	assert.Error(t, specs.Require(RoleSubmit, RoleNext))
	assert.Error(t, specs.Require(RoleEmailField))
}

func TestRoleIsSubmit(t *testing.T) {
	assert.True(t, RoleSubmitFinal.IsSubmit())
	assert.True(t, RoleSubmit.IsSubmit())
	assert.False(t, RoleContinue.IsSubmit())
	assert.False(t, RoleNext.IsSubmit())
}

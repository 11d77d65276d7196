package site

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/quickapply/pkg/browser"
	"github.com/entrhq/quickapply/pkg/locator"
)

func TestDice_IsValid(t *testing.T) {
	p := Dice()
	assert.Equal(t, "dice", p.Name())
	assert.Equal(t, "https://www.dice.com/dashboard/login", p.LoginURL())

	specs := p.Locators()
	assert.NoError(t, specs.Require(locator.LoginRoles...))
	assert.NoError(t, specs.Require(locator.ApplyRoles...))
	assert.Equal(t, browser.CSS{Pattern: "input#email"}, specs[locator.RoleEmailField][0])
}

func TestProfile_IsAuthenticatedURL(t *testing.T) {
	p := Dice()

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.dice.com/home-feed", true},
		{"https://www.dice.com/dashboard/profile", true},
		{"https://www.dice.com/dashboard/login", false},
		{"https://www.dice.com/dashboard/login?redirect=/home-feed", false},
		{"https://www.dice.com/jobs/detail/abc", false},
		{"about:blank", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, p.IsAuthenticatedURL(tt.url))
		})
	}
}

func TestProfile_LocatorsAreCopies(t *testing.T) {
	p := Dice()
	specs := p.Locators()
	specs[locator.RoleEmailField][0] = browser.CSS{Pattern: "mutated"}
	delete(specs, locator.RoleSubmit)

	fresh := p.Locators()
	assert.Equal(t, browser.CSS{Pattern: "input#email"}, fresh[locator.RoleEmailField][0])
	assert.NotEmpty(t, fresh[locator.RoleSubmit])
}

func TestNew_Validation(t *testing.T) {
	valid := DiceDefinition

	tests := []struct {
		name   string
		mutate func(d *Definition)
	}{
		{"missing name", func(d *Definition) { d.Name = "" }},
		{"missing login url", func(d *Definition) { d.LoginURL = "" }},
		{"no authenticated patterns", func(d *Definition) { d.AuthenticatedURLs = nil }},
		{"bad glob", func(d *Definition) { d.AuthenticatedURLs = []string{"[unterminated"} }},
		{"missing login role", func(d *Definition) { delete(d.Locators, locator.RolePasswordField) }},
		{"missing apply role", func(d *Definition) { delete(d.Locators, locator.RoleNext) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := valid()
			tt.mutate(&def)
			_, err := New(def)
			assert.Error(t, err)
		})
	}
}

func TestBuiltin(t *testing.T) {
	p, ok := Builtin("dice")
	require.True(t, ok)
	assert.Equal(t, "dice", p.Name())

	p, ok = Builtin("")
	require.True(t, ok)
	assert.Equal(t, "dice", p.Name())

	_, ok = Builtin("monster")
	assert.False(t, ok)
}

func TestParse_OverridesAndInherits(t *testing.T) {
	data := []byte(`
name: dice-staging
login_url: https://staging.dice.com/dashboard/login
authenticated_urls: ["*staging.dice.com/home-feed*"]
locators:
  apply entry button:
    - text: Quick Apply
      tag: button
    - role: button
      name: Quick Apply
  email field:
    - css: "#username"
`)

	p, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "dice-staging", p.Name())
	assert.Equal(t, "https://staging.dice.com/dashboard/login", p.LoginURL())
	assert.True(t, p.IsAuthenticatedURL("https://staging.dice.com/home-feed"))
	assert.False(t, p.IsAuthenticatedURL("https://www.dice.com/dashboard"))

	specs := p.Locators()
	assert.Equal(t, locator.Spec{
		browser.Text{Tag: "button", Text: "Quick Apply"},
		browser.Role{Role: "button", Name: "Quick Apply"},
	}, specs[locator.RoleApplyEntry])
	assert.Equal(t, locator.Spec{browser.CSS{Pattern: "#username"}}, specs[locator.RoleEmailField])

	// Untouched roles come from the base profile
	assert.Equal(t, Dice().Locators()[locator.RoleNext], specs[locator.RoleNext])
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "nmae: x\n"},
		{"unknown base", "extends: monster\n"},
		{"two strategies in one entry", "locators:\n  next:\n    - css: a\n      text: b\n"},
		{"empty strategy", "locators:\n  next:\n    - tag: button\n"},
		{"emptied role", "locators:\n  next: []\n"},
		{"not yaml", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "sites/dice.yaml", []byte("name: mine\n"), 0o600))

	p, err := Load(fs, "sites/dice.yaml")
	require.NoError(t, err)
	assert.Equal(t, "mine", p.Name())

	_, err = Load(fs, "sites/missing.yaml")
	assert.Error(t, err)
}

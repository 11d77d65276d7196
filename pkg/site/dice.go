package site

import (
	"github.com/entrhq/quickapply/pkg/browser"
	"github.com/entrhq/quickapply/pkg/locator"
)

// DiceName is the name of the built-in Dice profile.
const DiceName = "dice"

func button(text string) browser.Selector {
	return browser.Text{Tag: "button", Text: text}
}

// DiceDefinition returns the built-in definition for dice.com.
func DiceDefinition() Definition {
	return Definition{
		Name:     DiceName,
		LoginURL: "https://www.dice.com/dashboard/login",
		AuthenticatedURLs: []string{
			"*home-feed*",
			"*dashboard*",
		},
		AnonymousURLs: []string{
			"*/login*",
		},
		Locators: locator.Specs{
			locator.RoleEmailField: {
				browser.CSS{Pattern: "input#email"},
				browser.CSS{Pattern: "input[name='email']"},
				browser.CSS{Pattern: "input[type='email']"},
				browser.CSS{Pattern: "input[autocomplete='username']"},
				browser.CSS{Pattern: "input[aria-label*='Email' i]"},
			},
			locator.RoleLoginContinue: {
				button("Continue"),
				browser.CSS{Pattern: "button[data-testid='continue']"},
			},
			locator.RolePasswordField: {
				browser.CSS{Pattern: "input#password"},
				browser.CSS{Pattern: "input[name='password']"},
				browser.CSS{Pattern: "input[type='password']"},
				browser.CSS{Pattern: "input[autocomplete='current-password']"},
				browser.CSS{Pattern: "input[aria-label*='Password' i]"},
			},
			locator.RoleSignInButton: {
				browser.CSS{Pattern: "button[data-testid='sign-in-button']"},
				browser.Text{Tag: "form button[type='submit']", Text: "Sign In"},
				browser.Text{Tag: "form button", Text: "Log In"},
				browser.Text{Tag: "form button", Text: "Login"},
				browser.CSS{Pattern: "form input[type='submit']"},
			},
			locator.RoleProfileIndicator: {
				browser.CSS{Pattern: "[data-testid='user-avatar']"},
				browser.CSS{Pattern: "a[href*='profile']"},
				browser.CSS{Pattern: "a[aria-label*='Profile' i]"},
			},
			locator.RoleApplyEntry: {
				button("Easy apply"),
				browser.Role{Role: "button", Name: "Easy apply"},
			},
			locator.RoleSubmitFinal: {
				button("Submit Application"),
			},
			locator.RoleSubmit: {
				button("Submit"),
				browser.CSS{Pattern: "button[aria-label*='Submit' i]"},
			},
			locator.RoleContinue: {
				button("Continue"),
			},
			locator.RoleNext: {
				button("Next"),
			},
			locator.RoleResumeSelect: {
				browser.CSS{Pattern: "select[name*='resume' i]"},
			},
		},
	}
}

// Dice returns the compiled built-in Dice profile.
func Dice() *Profile {
	p, err := New(DiceDefinition())
	if err != nil {
		panic("site: built-in dice profile is invalid: " + err.Error())
	}
	return p
}

// Builtin returns the built-in profile called name.
func Builtin(name string) (*Profile, bool) {
	switch name {
	case DiceName, "":
		return Dice(), true
	default:
		return nil, false
	}
}

package locator

import (
	"fmt"

	"github.com/entrhq/quickapply/pkg/browser"
)

// Role names a logical control, independent of how a given site renders it.
type Role string

// Login roles
const (
	RoleEmailField       Role = "email field"
	RoleLoginContinue    Role = "continue button"
	RolePasswordField    Role = "password field"
	RoleSignInButton     Role = "sign-in button"
	RoleProfileIndicator Role = "profile indicator"
)

// Apply roles
const (
	RoleApplyEntry   Role = "apply entry button"
	RoleSubmitFinal  Role = "submit-final"
	RoleSubmit       Role = "submit"
	RoleContinue     Role = "continue"
	RoleNext         Role = "next"
	RoleResumeSelect Role = "resume selector"
)

// LoginRoles are the roles a site profile must define to log in.
var LoginRoles = []Role{
	RoleEmailField,
	RoleLoginContinue,
	RolePasswordField,
	RoleSignInButton,
	RoleProfileIndicator,
}

// ApplyRoles are the roles a site profile must define to apply.
var ApplyRoles = []Role{
	RoleApplyEntry,
	RoleSubmitFinal,
	RoleSubmit,
	RoleContinue,
	RoleNext,
	RoleResumeSelect,
}

// SubmitClass controls finalise an application, in priority order.
var SubmitClass = []Role{RoleSubmitFinal, RoleSubmit}

// ProgressClass controls advance a multi-step form without finalising it.
var ProgressClass = []Role{RoleContinue, RoleNext}

// IsSubmit reports whether r is a submit-class role.
func (r Role) IsSubmit() bool {
	for _, s := range SubmitClass {
		if r == s {
			return true
		}
	}
	return false
}

// Spec is the ordered list of strategies for one role; the first visible
// match wins.
type Spec []browser.Selector

// Specs maps every role a site supports to its strategies.
type Specs map[Role]Spec

// Require returns an error naming the first role in roles that has no
// strategies.
func (s Specs) Require(roles ...Role) error {
	for _, r := range roles {
		if len(s[r]) == 0 {
			return fmt.Errorf("locator: no strategies for role %q", r)
		}
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate shared profile data.
func (s Specs) Clone() Specs {
	out := make(Specs, len(s))
	for role, spec := range s {
		out[role] = append(Spec(nil), spec...)
	}
	return out
}

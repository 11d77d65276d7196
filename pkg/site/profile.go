// Package site holds per-job-board data: URLs, the URL patterns of the
// authenticated area, and the locator strategies for every role. Profiles
// are immutable once built and are injected into the flows.
package site

import (
	"fmt"

	"github.com/gobwas/glob"

	"github.com/entrhq/quickapply/pkg/locator"
)

// Profile describes one job board.
type Profile struct {
	name     string
	loginURL string
	specs    locator.Specs

	authPatterns []string
	authGlobs    []glob.Glob
	anonPatterns []string
	anonGlobs    []glob.Glob
}

// Definition is the raw data a Profile is compiled from.
type Definition struct {
	Name     string
	LoginURL string

	// AuthenticatedURLs are glob patterns; a URL matching any of them
	// counts as being inside the signed-in area.
	AuthenticatedURLs []string

	// AnonymousURLs are glob patterns that override AuthenticatedURLs,
	// e.g. a login page that lives under the dashboard path.
	AnonymousURLs []string

	Locators locator.Specs
}

// New compiles def into a Profile.
func New(def Definition) (*Profile, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("site: name is required")
	}
	if def.LoginURL == "" {
		return nil, fmt.Errorf("site %s: login URL is required", def.Name)
	}
	if len(def.AuthenticatedURLs) == 0 {
		return nil, fmt.Errorf("site %s: at least one authenticated URL pattern is required", def.Name)
	}

	authGlobs, err := compileAll(def.AuthenticatedURLs)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", def.Name, err)
	}
	anonGlobs, err := compileAll(def.AnonymousURLs)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", def.Name, err)
	}

	if err := def.Locators.Require(locator.LoginRoles...); err != nil {
		return nil, fmt.Errorf("site %s: %w", def.Name, err)
	}
	if err := def.Locators.Require(locator.ApplyRoles...); err != nil {
		return nil, fmt.Errorf("site %s: %w", def.Name, err)
	}

	return &Profile{
		name:         def.Name,
		loginURL:     def.LoginURL,
		specs:        def.Locators.Clone(),
		authPatterns: append([]string(nil), def.AuthenticatedURLs...),
		authGlobs:    authGlobs,
		anonPatterns: append([]string(nil), def.AnonymousURLs...),
		anonGlobs:    anonGlobs,
	}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid URL pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// Name returns the profile name.
func (p *Profile) Name() string { return p.name }

// LoginURL returns the page the login flow starts from.
func (p *Profile) LoginURL() string { return p.loginURL }

// Locators returns a copy of the role strategies.
func (p *Profile) Locators() locator.Specs { return p.specs.Clone() }

// AuthenticatedURLs returns the authenticated-area patterns.
func (p *Profile) AuthenticatedURLs() []string {
	return append([]string(nil), p.authPatterns...)
}

// IsAuthenticatedURL reports whether url lies inside the signed-in area.
func (p *Profile) IsAuthenticatedURL(url string) bool {
	if url == "" {
		return false
	}
	for _, g := range p.anonGlobs {
		if g.Match(url) {
			return false
		}
	}
	for _, g := range p.authGlobs {
		if g.Match(url) {
			return true
		}
	}
	return false
}

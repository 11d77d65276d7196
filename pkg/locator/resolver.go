// Package locator resolves logical roles ("email field", "submit") to
// elements on a page using ordered fallback strategies.
//
// Resolution rules:
//
//   - strategies are tried in declared order on every poll attempt
//   - a match must be present and visible; hidden duplicates are skipped
//   - "not found" within the timeout is a normal result, never an error
//   - errors are reserved for driver faults and cancellation
package locator

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/quickapply/pkg/browser"
	"github.com/entrhq/quickapply/pkg/wait"
)

// Match is a resolved role.
type Match struct {
	Role     Role
	Selector browser.Selector
	Element  browser.Element
}

// Resolver holds the immutable strategy table for one site.
type Resolver struct {
	specs   Specs
	backoff wait.Backoff
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithBackoff sets the polling backoff.
func WithBackoff(b wait.Backoff) Option { return func(r *Resolver) { r.backoff = b } }

// NewResolver creates a resolver over a private copy of specs.
func NewResolver(specs Specs, opts ...Option) *Resolver {
	r := &Resolver{
		specs:   specs.Clone(),
		backoff: wait.DefaultBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Has reports whether the resolver knows role.
func (r *Resolver) Has(role Role) bool {
	return len(r.specs[role]) > 0
}

// Resolve waits up to timeout for role to have a visible match. It returns
// (nil, nil) when nothing matched in time.
func (r *Resolver) Resolve(ctx context.Context, page browser.Page, role Role, timeout time.Duration) (*Match, error) {
	return r.ResolveFirst(ctx, page, []Role{role}, timeout)
}

// ResolveFirst waits up to timeout for any of roles to have a visible
// match. On each attempt roles are checked in the given order, so earlier
// roles win when several are visible at once. It returns (nil, nil) when
// nothing matched in time.
func (r *Resolver) ResolveFirst(ctx context.Context, page browser.Page, roles []Role, timeout time.Duration) (*Match, error) {
	for _, role := range roles {
		if !r.Has(role) {
			return nil, fmt.Errorf("locator: no strategies for role %q", role)
		}
	}

	var found *Match
	_, err := wait.Poll(ctx, timeout, r.backoff, func(ctx context.Context) (bool, error) {
		m, err := r.probe(ctx, page, roles)
		if err != nil {
			return false, err
		}
		found = m
		return m != nil, nil
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// Probe checks roles once without waiting.
func (r *Resolver) Probe(ctx context.Context, page browser.Page, roles ...Role) (*Match, error) {
	return r.ResolveFirst(ctx, page, roles, 0)
}

func (r *Resolver) probe(ctx context.Context, page browser.Page, roles []Role) (*Match, error) {
	for _, role := range roles {
		for _, sel := range r.specs[role] {
			el, visible, err := page.Find(ctx, sel)
			if err != nil {
				return nil, err
			}
			if el != nil && visible {
				return &Match{Role: role, Selector: sel, Element: el}, nil
			}
		}
	}
	return nil, nil
}

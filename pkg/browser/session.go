package browser

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Session pairs a page with the store its state is persisted to, plus the
// function that releases the underlying browser. A Session is owned by one
// invocation for its whole lifetime.
type Session struct {
	// Name identifies the session in logs
	Name string

	// CreatedAt is when the session was opened
	CreatedAt time.Time

	page    Page
	store   *StateStore
	release func() error

	mu         sync.Mutex
	lastUsedAt time.Time
	closeOnce  sync.Once
	closeErr   error
}

// NewSession wraps page. release may be nil when there is nothing to free.
func NewSession(name string, page Page, store *StateStore, release func() error) *Session {
	now := time.Now()
	return &Session{
		Name:       name,
		CreatedAt:  now,
		page:       page,
		store:      store,
		release:    release,
		lastUsedAt: now,
	}
}

// Page returns the session's page and marks the session as used.
func (s *Session) Page() Page {
	s.mu.Lock()
	s.lastUsedAt = time.Now()
	s.mu.Unlock()
	return s.page
}

// LastUsedAt is the time Page was last called.
func (s *Session) LastUsedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsedAt
}

// StatePath returns where SaveState writes, or "" without a store.
func (s *Session) StatePath() string {
	if s.store == nil {
		return ""
	}
	return s.store.Path()
}

// SaveState snapshots the page's cookies and storage and persists them.
func (s *Session) SaveState(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("session %q has no state store", s.Name)
	}
	data, err := s.page.StorageState(ctx)
	if err != nil {
		return Fault("storage state", err)
	}
	if err := s.store.Save(data); err != nil {
		return fmt.Errorf("save session state: %w", err)
	}
	return nil
}

// Close releases the browser. Safe to call multiple times.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.release != nil {
			s.closeErr = s.release()
		}
	})
	return s.closeErr
}

package browser

import (
	"context"
	"errors"
	"fmt"
)

// Element is a control found on a page.
type Element interface {
	Click(ctx context.Context) error
	Fill(ctx context.Context, value string) error
	// SelectFirstOption picks the first option of a <select> element.
	SelectFirstOption(ctx context.Context) error
}

// Page is the driver capability the login and apply flows run against.
// A Page belongs to exactly one invocation; it is never shared between
// concurrently running flows.
type Page interface {
	Goto(ctx context.Context, url string) error
	WaitForLoad(ctx context.Context) error
	URL() string

	// Find returns the first element matching sel. A nil Element means
	// nothing matched; visible reports whether the match is currently shown.
	// Find does not wait.
	Find(ctx context.Context, sel Selector) (el Element, visible bool, err error)

	PressEnter(ctx context.Context) error
	Scroll(ctx context.Context, deltaY float64) error

	// Screenshot returns a full-page PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// Content returns the current serialised DOM.
	Content(ctx context.Context) (string, error)

	// StorageState serialises cookies and storage of the page's context.
	StorageState(ctx context.Context) ([]byte, error)
}

// DriverError is a fault in the browser driver itself: a crashed or
// disconnected browser, a failed navigation, a click that never landed.
// Flows propagate these instead of turning them into outcomes.
type DriverError struct {
	Op  string
	Err error
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("browser: %s: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// Fault wraps err as a DriverError for op. It returns nil for a nil err.
func Fault(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DriverError
	if errors.As(err, &de) {
		return err
	}
	return &DriverError{Op: op, Err: err}
}

// IsDriverFault reports whether err originates from the browser driver.
func IsDriverFault(err error) bool {
	var de *DriverError
	return errors.As(err, &de)
}

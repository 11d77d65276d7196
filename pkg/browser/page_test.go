package browser

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFault(t *testing.T) {
	assert.NoError(t, Fault("click", nil))

	base := errors.New("target closed")
	err := Fault("click", base)
	assert.True(t, IsDriverFault(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, "browser: click: target closed", err.Error())

	// Already-wrapped faults keep their original operation
	again := Fault("outer", fmt.Errorf("ctx: %w", err))
	var de *DriverError
	assert.True(t, errors.As(again, &de))
	assert.Equal(t, "click", de.Op)
}

func TestIsDriverFault(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"context", context.Canceled, false},
		{"driver", &DriverError{Op: "goto", Err: errors.New("net::ERR")}, true},
		{"wrapped driver", fmt.Errorf("apply: %w", &DriverError{Op: "goto"}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDriverFault(tt.err))
		})
	}
}

func TestSelectorString(t *testing.T) {
	tests := []struct {
		sel  Selector
		want string
	}{
		{CSS{Pattern: "input#email"}, "css=input#email"},
		{Text{Tag: "button", Text: "Easy Apply"}, `text=button:"Easy Apply"`},
		{Text{Text: "Next"}, `text=*:"Next"`},
		{Role{Role: "button", Name: "Submit"}, `role=button[name="Submit"]`},
		{Role{Role: "combobox"}, "role=combobox"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sel.String())
		})
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{SlowMo: -5}
	opts.defaults()

	assert.Equal(t, DefaultTimeout, opts.Timeout)
	assert.Equal(t, 0.0, opts.SlowMo)
	if assert.NotNil(t, opts.Viewport) {
		assert.Equal(t, DefaultViewportWidth, opts.Viewport.Width)
		assert.Equal(t, DefaultViewportHeight, opts.Viewport.Height)
	}
}

func TestPlaywrightLauncher_LaunchBeforeInitialize(t *testing.T) {
	l := NewPlaywrightLauncher(Options{})
	_, err := l.Launch(context.Background(), "login", nil)
	assert.Error(t, err)
	assert.NoError(t, l.Shutdown())
}

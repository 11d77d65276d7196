package browser

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Launcher opens a fresh, isolated browser session. Each call gets its own
// browser context; sessions are never shared between invocations.
type Launcher interface {
	// Launch opens a session. When store holds saved state it is loaded
	// into the new context.
	Launch(ctx context.Context, name string, store *StateStore) (*Session, error)
}

// PlaywrightLauncher launches Chromium through Playwright.
//
// The state store passed to Launch must be backed by the OS filesystem,
// since Playwright reads saved state from a real path.
type PlaywrightLauncher struct {
	mu          sync.Mutex
	playwright  *playwright.Playwright
	opts        Options
	initialized bool
}

// NewPlaywrightLauncher creates a launcher. Call Initialize before Launch.
func NewPlaywrightLauncher(opts Options) *PlaywrightLauncher {
	opts.defaults()
	return &PlaywrightLauncher{opts: opts}
}

// Initialize installs (unless skipped) and starts the Playwright driver.
func (l *PlaywrightLauncher) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return nil
	}

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}

	if !l.opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return Fault("install playwright", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return Fault("start playwright", err)
	}

	l.playwright = pw
	l.initialized = true
	return nil
}

// Launch starts a browser, creates a context (loading saved state when
// present) and opens one page.
func (l *PlaywrightLauncher) Launch(ctx context.Context, name string, store *StateStore) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	pw := l.playwright
	l.mu.Unlock()
	if pw == nil {
		return nil, fmt.Errorf("browser: launcher not initialized")
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(l.opts.Headless),
		SlowMo:   playwright.Float(l.opts.SlowMo),
	})
	if err != nil {
		return nil, Fault("launch browser", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  l.opts.Viewport.Width,
			Height: l.opts.Viewport.Height,
		},
	}
	if store != nil && store.Exists() {
		contextOpts.StorageStatePath = playwright.String(store.Path())
	}

	bc, err := browser.NewContext(contextOpts)
	if err != nil {
		browser.Close()
		return nil, Fault("create context", err)
	}

	page, err := bc.NewPage()
	if err != nil {
		bc.Close()
		browser.Close()
		return nil, Fault("create page", err)
	}
	page.SetDefaultTimeout(l.opts.Timeout)

	release := func() error {
		_ = page.Close() // Ignore errors, continue cleanup
		_ = bc.Close()   // Ignore errors, continue cleanup
		if err := browser.Close(); err != nil {
			return Fault("close browser", err)
		}
		return nil
	}

	p := &playwrightPage{page: page, context: bc, timeout: l.opts.Timeout}
	return NewSession(name, p, store, release), nil
}

// Shutdown stops the Playwright driver. Sessions must be closed first.
func (l *PlaywrightLauncher) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized && l.playwright != nil {
		if err := l.playwright.Stop(); err != nil {
			return Fault("stop playwright", err)
		}
		l.playwright = nil
		l.initialized = false
	}
	return nil
}

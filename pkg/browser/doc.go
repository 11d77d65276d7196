// Package browser provides the browser sessions the login and apply flows
// drive, backed by Playwright.
//
// # Architecture
//
// The package is built around four pieces:
//
//  1. Page and Element: the small driver surface the flows need, so flows can
//     run against the scripted fake in browsertest
//  2. Selector: a CSS, text or role query that a Page resolves
//  3. Session: a Page bound to the StateStore its cookies are persisted to
//  4. Launcher: opens a fresh, isolated Session per invocation
//
// # Session Lifecycle
//
//  1. Launch: a new browser context is created, preloaded with saved state
//     when the store has any
//  2. Use: exactly one flow drives the session's page
//  3. SaveState: the context's storage is written back atomically
//  4. Close: the context and browser are released; closing twice is a no-op
//
// Driver failures surface as *DriverError so callers can tell a crashed
// browser apart from a page that simply lacks an element.
//
// # Example Usage
//
//	l := browser.NewPlaywrightLauncher(browser.Options{Headless: true})
//	if err := l.Initialize(); err != nil {
//	    return err
//	}
//	defer l.Shutdown()
//
//	sess, err := l.Launch(ctx, "login", browser.NewStateStore(afero.NewOsFs(), ".storage/dice.json"))
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
package browser

package browser

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// playwrightPage adapts a Playwright page to Page.
type playwrightPage struct {
	page    playwright.Page
	context playwright.BrowserContext
	timeout float64
}

func (p *playwrightPage) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(p.timeout),
	})
	return Fault("navigate to "+url, err)
}

func (p *playwrightPage) WaitForLoad(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(p.timeout),
	})
	return Fault("wait for load", err)
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) locator(sel Selector) (playwright.Locator, error) {
	switch s := sel.(type) {
	case CSS:
		return p.page.Locator(s.Pattern), nil
	case Text:
		tag := s.Tag
		if tag == "" {
			tag = "*"
		}
		return p.page.Locator(tag).Filter(playwright.LocatorFilterOptions{
			HasText: s.Text,
		}), nil
	case Role:
		if s.Name == "" {
			return p.page.GetByRole(playwright.AriaRole(s.Role)), nil
		}
		return p.page.GetByRole(playwright.AriaRole(s.Role), playwright.PageGetByRoleOptions{
			Name: s.Name,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported selector %T", sel)
	}
}

func (p *playwrightPage) Find(ctx context.Context, sel Selector) (Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	loc, err := p.locator(sel)
	if err != nil {
		return nil, false, err
	}
	visibleLoc := loc.Filter(playwright.LocatorFilterOptions{Visible: playwright.Bool(true)}).First()
	count, err := visibleLoc.Count()
	if err != nil {
		return nil, false, Fault("count "+sel.String(), err)
	}
	if count > 0 {
		return &playwrightElement{loc: visibleLoc, desc: sel.String(), timeout: p.timeout}, true, nil
	}

	// Nothing visible; report whether a hidden match exists at all.
	loc = loc.First()
	count, err = loc.Count()
	if err != nil {
		return nil, false, Fault("count "+sel.String(), err)
	}
	if count == 0 {
		return nil, false, nil
	}
	return &playwrightElement{loc: loc, desc: sel.String(), timeout: p.timeout}, false, nil
}

func (p *playwrightPage) PressEnter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return Fault("press Enter", p.page.Keyboard().Press("Enter"))
}

func (p *playwrightPage) Scroll(ctx context.Context, deltaY float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return Fault("scroll", p.page.Mouse().Wheel(0, deltaY))
}

func (p *playwrightPage) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		return nil, Fault("screenshot", err)
	}
	return data, nil
}

func (p *playwrightPage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	html, err := p.page.Content()
	if err != nil {
		return "", Fault("content", err)
	}
	return html, nil
}

func (p *playwrightPage) StorageState(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state, err := p.context.StorageState()
	if err != nil {
		return nil, Fault("storage state", err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode storage state: %w", err)
	}
	return data, nil
}

// playwrightElement adapts a Playwright locator (already narrowed to its
// first match) to Element.
type playwrightElement struct {
	loc     playwright.Locator
	desc    string
	timeout float64
}

func (e *playwrightElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := e.loc.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(e.timeout),
	})
	return Fault("click "+e.desc, err)
}

func (e *playwrightElement) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := e.loc.Fill(value, playwright.LocatorFillOptions{
		Timeout: playwright.Float(e.timeout),
	})
	return Fault("fill "+e.desc, err)
}

func (e *playwrightElement) SelectFirstOption(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := e.loc.SelectOption(playwright.SelectOptionValues{
		Indexes: &[]int{0},
	}, playwright.LocatorSelectOptionOptions{
		Timeout: playwright.Float(e.timeout),
	})
	return Fault("select option of "+e.desc, err)
}

// Package browsertest provides a scripted in-memory browser.Page for
// exercising flows without launching a browser.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/quickapply/pkg/browser"
)

// PNG is the fixed screenshot payload returned by Page.Screenshot.
var PNG = []byte("\x89PNG\r\n\x1a\nfake")

// Element is a scripted control. It matches a Find call when its Selector
// equals the requested selector.
type Element struct {
	Name     string
	Selector browser.Selector

	// Hidden elements are present in the DOM but not visible.
	Hidden bool

	// AppearAfter delays presence, measured from when the element was added.
	AppearAfter time.Duration

	// OnClick runs after a successful click, typically to add or remove
	// elements or change the URL.
	OnClick func(p *Page)

	// ClickErr, FillErr and SelectErr are returned by the matching action.
	ClickErr  error
	FillErr   error
	SelectErr error

	page    *Page
	addedAt time.Time
	removed bool
	value   string
	clicks  int
	picked  bool
}

// Value is the last value filled into the element.
func (e *Element) Value() string {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.value
}

// Clicks is how many times the element was clicked.
func (e *Element) Clicks() int {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.clicks
}

// Selected reports whether SelectFirstOption was called successfully.
func (e *Element) Selected() bool {
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	return e.picked
}

func (e *Element) present(now time.Time) bool {
	return !e.removed && !now.Before(e.addedAt.Add(e.AppearAfter))
}

// Click records the click and runs OnClick.
func (e *Element) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p := e.page
	p.mu.Lock()
	if e.ClickErr != nil {
		p.mu.Unlock()
		return e.ClickErr
	}
	e.clicks++
	p.clicks = append(p.clicks, e.Name)
	onClick := e.OnClick
	p.mu.Unlock()

	if onClick != nil {
		onClick(p)
	}
	return nil
}

// Fill stores value on the element.
func (e *Element) Fill(ctx context.Context, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if e.FillErr != nil {
		return e.FillErr
	}
	e.value = value
	e.page.fills = append(e.page.fills, e.Name)
	return nil
}

// SelectFirstOption marks the element as selected.
func (e *Element) SelectFirstOption(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.page.mu.Lock()
	defer e.page.mu.Unlock()
	if e.SelectErr != nil {
		return e.SelectErr
	}
	e.picked = true
	return nil
}

// Page is an in-memory browser.Page. Navigation replaces nothing on its
// own; use Routes to script what a URL loads.
type Page struct {
	mu sync.Mutex

	url      string
	elements []*Element
	routes   map[string]func(p *Page)

	clicks      []string
	fills       []string
	visited     []string
	enters      int
	scrolls     int
	screenshots int
	finds       int

	// State is returned by StorageState.
	State []byte

	// HTML is returned by Content.
	HTML string

	// Faults, keyed by operation name ("goto", "find", "screenshot",
	// "content", "storage"), make the operation fail with a driver fault.
	Faults map[string]error

	// OnEnter runs after PressEnter.
	OnEnter func(p *Page)
}

// NewPage returns an empty page at about:blank.
func NewPage() *Page {
	return &Page{
		url:    "about:blank",
		routes: make(map[string]func(p *Page)),
		State:  []byte(`{"cookies":[],"origins":[]}`),
		HTML:   "<html><head><title>blank</title></head><body></body></html>",
		Faults: make(map[string]error),
	}
}

// Route scripts what navigating to url loads.
func (p *Page) Route(url string, load func(p *Page)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routes[url] = load
}

// Add puts elements on the page. AppearAfter counts from now.
func (p *Page) Add(els ...*Element) {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for _, el := range els {
		el.page = p
		el.addedAt = now
		el.removed = false
		p.elements = append(p.elements, el)
	}
}

// Remove takes the named elements off the page.
func (p *Page) Remove(names ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, el := range p.elements {
		for _, name := range names {
			if el.Name == name {
				el.removed = true
			}
		}
	}
}

// Clear removes every element.
func (p *Page) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, el := range p.elements {
		el.removed = true
	}
}

// SetURL changes the current URL without loading a route.
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

func (p *Page) fault(op string) error {
	if err, ok := p.Faults[op]; ok && err != nil {
		return browser.Fault(op, err)
	}
	return nil
}

// Goto records the visit, sets the URL and runs the matching route.
func (p *Page) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	if err := p.fault("goto"); err != nil {
		p.mu.Unlock()
		return err
	}
	p.url = url
	p.visited = append(p.visited, url)
	load := p.routes[url]
	p.mu.Unlock()

	if load != nil {
		load(p)
	}
	return nil
}

func (p *Page) WaitForLoad(ctx context.Context) error {
	return ctx.Err()
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Find returns the first visible element whose selector equals sel, or
// the first hidden one when none is visible.
func (p *Page) Find(ctx context.Context, sel browser.Selector) (browser.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fault("find"); err != nil {
		return nil, false, err
	}
	p.finds++
	now := time.Now()
	var hidden *Element
	for _, el := range p.elements {
		if el.Selector != sel || !el.present(now) {
			continue
		}
		if !el.Hidden {
			return el, true, nil
		}
		if hidden == nil {
			hidden = el
		}
	}
	if hidden != nil {
		return hidden, false, nil
	}
	return nil, false, nil
}

func (p *Page) PressEnter(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.enters++
	onEnter := p.OnEnter
	p.mu.Unlock()
	if onEnter != nil {
		onEnter(p)
	}
	return nil
}

func (p *Page) Scroll(ctx context.Context, deltaY float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolls++
	return nil
}

func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fault("screenshot"); err != nil {
		return nil, err
	}
	p.screenshots++
	return PNG, nil
}

func (p *Page) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fault("content"); err != nil {
		return "", err
	}
	return p.HTML, nil
}

func (p *Page) StorageState(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.fault("storage"); err != nil {
		return nil, err
	}
	if p.State == nil {
		return nil, errors.New("no state")
	}
	return append([]byte(nil), p.State...), nil
}

// Clicks returns the names of clicked elements in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Fills returns the names of filled elements in order.
func (p *Page) Fills() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.fills...)
}

// Visited returns every URL passed to Goto.
func (p *Page) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visited...)
}

// Enters is how many times Enter was pressed.
func (p *Page) Enters() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enters
}

// Scrolls is how many times the page was scrolled.
func (p *Page) Scrolls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scrolls
}

// Screenshots is how many screenshots were taken.
func (p *Page) Screenshots() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.screenshots
}

// Finds is how many Find calls were served.
func (p *Page) Finds() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finds
}

// String summarises the page for test failure messages.
func (p *Page) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("page{url=%s elements=%d clicks=%v}", p.url, len(p.elements), p.clicks)
}

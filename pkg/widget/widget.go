package widget

import (
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/widgetry/pkg/locator"
)

// Widget is a materialized element wrapper bound to a parent.
//
// Widgets never hold element handles. They keep a pointer to their parent
// and enough state to recompute their locator on every access. Custom
// widgets embed Base to satisfy the interface.
type Widget interface {
	Parent() Widget
	Browser() *Browser
	Path() string
	Displayed() (bool, error)
	core() *Base
}

// Reader is implemented by widgets whose state can be read.
type Reader interface {
	Read() (any, error)
}

// Filler is implemented by widgets whose state can be set. Fill reports
// whether anything changed.
type Filler interface {
	Fill(value any) (bool, error)
}

// Builder creates a widget bound to parent. Declarations hold builders;
// materialization is always an explicit Build call.
type Builder interface {
	Build(parent Widget) (Widget, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(parent Widget) (Widget, error)

// Build calls f(parent).
func (f BuilderFunc) Build(parent Widget) (Widget, error) {
	return f(parent)
}

var errNoParent = errors.New("widget requires a parent")

// Base carries the binding state shared by every widget: its parent, its
// own anchor locator (ROOT), an optional frame locator (FRAME) and its
// parameter context.
type Base struct {
	parent  Widget
	browser *Browser
	name    string
	kind    string
	root    locator.Locator
	frame   locator.Locator
	params  map[string]any

	// nth selects which match of root anchors the widget; table rows
	// and cells are addressed this way.
	nth int
}

// NewBase binds a base to parent. loc becomes the widget's anchor; a zero
// locator makes the widget transparent, sharing the parent's scope.
func NewBase(parent Widget, loc locator.Locator) Base {
	b := Base{parent: parent, root: loc}
	if parent != nil {
		b.browser = parent.Browser()
	}
	return b
}

func (b *Base) core() *Base {
	return b
}

// Parent returns the widget this one is bound to, nil for top-level views.
func (b *Base) Parent() Widget {
	return b.parent
}

// Browser returns the root collaborator owning this widget tree.
func (b *Base) Browser() *Browser {
	return b.browser
}

// Name returns the field name the widget was declared under.
func (b *Base) Name() string {
	return b.name
}

// Path returns the dotted declaration path, e.g. "LoginView.username".
func (b *Base) Path() string {
	name := b.name
	if name == "" {
		name = b.kind
	}
	if b.parent == nil {
		return name
	}
	return b.parent.Path() + "." + name
}

// Context returns the parameters visible to this widget: the parent's
// context merged with its own parameters.
func (b *Base) Context() map[string]any {
	merged := make(map[string]any)
	if b.parent != nil {
		for k, v := range b.parent.core().Context() {
			merged[k] = v
		}
	}
	for k, v := range b.params {
		merged[k] = v
	}
	return merged
}

// Locator returns the widget's anchor locator rendered against its context.
// The boolean is false for transparent widgets.
func (b *Base) Locator() (locator.Locator, bool, error) {
	if b.root.IsZero() {
		return locator.Locator{}, false, nil
	}
	loc, err := b.root.Render(b.Context())
	if err != nil {
		return locator.Locator{}, true, err
	}
	return loc, true, nil
}

func (b *Base) render(loc locator.Locator) (locator.Locator, error) {
	return loc.Render(b.Context())
}

func (b *Base) driverOrErr() (*Browser, error) {
	if b.browser == nil {
		return nil, fmt.Errorf("%s: %w", b.Path(), errNoParent)
	}
	return b.browser, nil
}

// Do resolves the widget's scope and calls fn with the driver and the
// widget's anchor element. The anchor is nil for transparent widgets with
// no fenced ancestor, meaning the active document. The handle must not
// escape fn.
func (b *Base) Do(fn func(d Driver, el Element) error) error {
	browser, err := b.driverOrErr()
	if err != nil {
		return err
	}
	return browser.withScope(b, fn)
}

// FindAll locates every element matching loc inside this widget's scope.
// The handles are passed to fn and must not escape it.
func (b *Base) FindAll(loc locator.Locator, fn func(d Driver, els []Element) error) error {
	return b.Do(func(d Driver, scope Element) error {
		rendered, err := b.render(loc)
		if err != nil {
			return err
		}
		els, err := d.Locate(rendered, scope)
		if err != nil {
			return fmt.Errorf("locate %s in %s: %w", rendered, b.Path(), err)
		}
		return fn(d, els)
	})
}

// Exists reports whether the widget's anchor can be resolved.
func (b *Base) Exists() (bool, error) {
	err := b.Do(func(Driver, Element) error { return nil })
	if IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// Displayed reports whether the widget's anchor exists and is visible.
// A missing element is not an error.
func (b *Base) Displayed() (bool, error) {
	var displayed bool
	err := b.Do(func(d Driver, el Element) error {
		if el == nil {
			displayed = true
			return nil
		}
		var err error
		displayed, err = d.IsDisplayed(el)
		return err
	})
	if IsNotFound(err) {
		return false, nil
	}
	return displayed, err
}

// Enabled reports whether the widget's anchor is enabled.
func (b *Base) Enabled() (bool, error) {
	var enabled bool
	err := b.Do(func(d Driver, el Element) error {
		if el == nil {
			enabled = true
			return nil
		}
		var err error
		enabled, err = d.IsEnabled(el)
		return err
	})
	return enabled, err
}

// Text returns the text of the widget's anchor element.
func (b *Base) Text() (string, error) {
	var text string
	err := b.Do(func(d Driver, el Element) error {
		if el == nil {
			return fmt.Errorf("%s has no element of its own", b.Path())
		}
		var err error
		text, err = d.Text(el)
		return err
	})
	return text, err
}

// Attribute returns an attribute of the widget's anchor element.
func (b *Base) Attribute(name string) (string, bool, error) {
	var (
		value   string
		present bool
	)
	err := b.Do(func(d Driver, el Element) error {
		if el == nil {
			return fmt.Errorf("%s has no element of its own", b.Path())
		}
		var err error
		value, present, err = d.Attribute(el, name)
		return err
	})
	return value, present, err
}

// WaitDisplayed blocks until the widget is displayed or timeout elapses.
// A zero timeout uses the browser default.
func (b *Base) WaitDisplayed(timeout time.Duration) error {
	return b.waitFor("displayed", timeout, b.Displayed)
}

// WaitEnabled blocks until the widget is enabled or timeout elapses.
func (b *Base) WaitEnabled(timeout time.Duration) error {
	return b.waitFor("enabled", timeout, func() (bool, error) {
		enabled, err := b.Enabled()
		if IsNotFound(err) {
			return false, nil
		}
		return enabled, err
	})
}

// WaitStable blocks until the widget's text stays the same across two
// consecutive polls or timeout elapses.
func (b *Base) WaitStable(timeout time.Duration) error {
	var (
		last string
		seen bool
	)
	return b.waitFor("stable", timeout, func() (bool, error) {
		text, err := b.Text()
		if IsNotFound(err) {
			seen = false
			return false, nil
		}
		if err != nil {
			return false, err
		}
		stable := seen && text == last
		last, seen = text, true
		return stable, nil
	})
}

func (b *Base) waitFor(condition string, timeout time.Duration, check func() (bool, error)) error {
	browser, err := b.driverOrErr()
	if err != nil {
		return err
	}
	return browser.poll(b.Path(), condition, timeout, check)
}

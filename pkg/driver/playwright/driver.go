package playwright

import (
	"errors"
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/widgetry/pkg/locator"
	"github.com/entrhq/widgetry/pkg/widget"
)

var _ widget.Driver = (*Session)(nil)
var _ widget.VersionProvider = (*Session)(nil)

const (
	scriptAttribute = `(e, name) => e.getAttribute(name)`
	scriptValue     = `e => ("value" in e) ? String(e.value) : (e.textContent || "")`
	scriptSelected  = `e => e.tagName === "OPTION" ? e.selected : !!e.checked`
	scriptTag       = `e => e.tagName.toLowerCase()`
	scriptOption    = `(e, v) => {
		const o = Array.from(e.options).find(o => o.value === v || o.text.trim() === v);
		return o ? o.value : null;
	}`
)

func handle(el widget.Element) (playwright.ElementHandle, error) {
	h, ok := el.(playwright.ElementHandle)
	if !ok || h == nil {
		return nil, fmt.Errorf("playwright: unexpected element %T", el)
	}
	return h, nil
}

func (s *Session) activeFrame() playwright.Frame {
	if s.frame != nil {
		return s.frame
	}
	return s.Page.MainFrame()
}

// Locate implements widget.Driver.
func (s *Session) Locate(loc locator.Locator, scope widget.Element) ([]widget.Element, error) {
	s.UpdateLastUsed()

	sel, err := Selector(loc)
	if err != nil {
		return nil, err
	}

	var handles []playwright.ElementHandle
	if scope != nil {
		h, err := handle(scope)
		if err != nil {
			return nil, err
		}
		handles, err = h.QuerySelectorAll(sel)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", sel, err)
		}
	} else {
		handles, err = s.activeFrame().QuerySelectorAll(sel)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", sel, err)
		}
	}

	out := make([]widget.Element, len(handles))
	for i, h := range handles {
		out[i] = h
	}
	return out, nil
}

// Text implements widget.Driver.
func (s *Session) Text(el widget.Element) (string, error) {
	h, err := handle(el)
	if err != nil {
		return "", err
	}
	text, err := h.InnerText()
	if err != nil {
		return "", fmt.Errorf("inner text: %w", err)
	}
	// Options and other unrendered elements report no inner text
	if strings.TrimSpace(text) == "" {
		if text, err = h.TextContent(); err != nil {
			return "", fmt.Errorf("text content: %w", err)
		}
	}
	return strings.Join(strings.Fields(text), " "), nil
}

// Attribute implements widget.Driver.
func (s *Session) Attribute(el widget.Element, name string) (string, bool, error) {
	h, err := handle(el)
	if err != nil {
		return "", false, err
	}
	result, err := h.Evaluate(scriptAttribute, name)
	if err != nil {
		return "", false, fmt.Errorf("attribute %q: %w", name, err)
	}
	value, ok := result.(string)
	return value, ok, nil
}

// Value implements widget.Driver.
func (s *Session) Value(el widget.Element) (string, error) {
	h, err := handle(el)
	if err != nil {
		return "", err
	}
	result, err := h.Evaluate(scriptValue)
	if err != nil {
		return "", fmt.Errorf("value: %w", err)
	}
	value, _ := result.(string)
	return value, nil
}

// IsDisplayed implements widget.Driver.
func (s *Session) IsDisplayed(el widget.Element) (bool, error) {
	h, err := handle(el)
	if err != nil {
		return false, err
	}
	return h.IsVisible()
}

// IsEnabled implements widget.Driver.
func (s *Session) IsEnabled(el widget.Element) (bool, error) {
	h, err := handle(el)
	if err != nil {
		return false, err
	}
	return h.IsEnabled()
}

// IsSelected implements widget.Driver.
func (s *Session) IsSelected(el widget.Element) (bool, error) {
	h, err := handle(el)
	if err != nil {
		return false, err
	}
	result, err := h.Evaluate(scriptSelected)
	if err != nil {
		return false, fmt.Errorf("selected state: %w", err)
	}
	selected, _ := result.(bool)
	return selected, nil
}

// Click implements widget.Driver.
func (s *Session) Click(el widget.Element) error {
	s.UpdateLastUsed()

	h, err := handle(el)
	if err != nil {
		return err
	}
	if err := h.Click(); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	// Clicks may navigate
	s.CurrentURL = s.Page.URL()
	return nil
}

// SetValue implements widget.Driver.
func (s *Session) SetValue(el widget.Element, value string) error {
	s.UpdateLastUsed()

	h, err := handle(el)
	if err != nil {
		return err
	}
	tag, err := h.Evaluate(scriptTag)
	if err != nil {
		return fmt.Errorf("tag name: %w", err)
	}

	if tag != "select" {
		if err := h.Fill(value); err != nil {
			return fmt.Errorf("fill failed: %w", err)
		}
		return nil
	}

	// Resolve the option first; SelectOption would wait for a missing one
	result, err := h.Evaluate(scriptOption, value)
	if err != nil {
		return fmt.Errorf("option lookup: %w", err)
	}
	optionValue, ok := result.(string)
	if !ok {
		return fmt.Errorf("no option %q", value)
	}
	if _, err := h.SelectOption(playwright.SelectOptionValues{Values: &[]string{optionValue}}); err != nil {
		return fmt.Errorf("select failed: %w", err)
	}
	return nil
}

// SwitchToFrame implements widget.Driver.
func (s *Session) SwitchToFrame(el widget.Element) error {
	h, err := handle(el)
	if err != nil {
		return err
	}
	frame, err := h.ContentFrame()
	if err != nil {
		return fmt.Errorf("content frame: %w", err)
	}
	if frame == nil {
		return errors.New("element is not a frame")
	}
	s.frame = frame
	return nil
}

// SwitchToTopContext implements widget.Driver.
func (s *Session) SwitchToTopContext() error {
	s.frame = nil
	return nil
}

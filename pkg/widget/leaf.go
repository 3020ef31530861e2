package widget

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/entrhq/widgetry/pkg/locator"
)

// leafBuilder builds simple widgets anchored by a single locator.
type leafBuilder struct {
	kind      string
	loc       locator.Locator
	err       error
	newWidget func(base Base) Widget
}

func newLeafBuilder(kind string, loc any, newWidget func(base Base) Widget) *leafBuilder {
	resolved, err := locator.Resolve(loc)
	return &leafBuilder{kind: kind, loc: resolved, err: err, newWidget: newWidget}
}

func (l *leafBuilder) Build(parent Widget) (Widget, error) {
	if l.err != nil {
		return nil, l.err
	}
	if parent == nil {
		return nil, fmt.Errorf("%s: %w", l.kind, errNoParent)
	}
	base := NewBase(parent, l.loc)
	base.kind = l.kind
	return l.newWidget(base), nil
}

// TextWidget reads the text of an element.
type TextWidget struct {
	Base
}

// Text declares a read-only text widget.
func Text(loc any) Builder {
	return newLeafBuilder("Text", loc, func(base Base) Widget {
		return &TextWidget{Base: base}
	})
}

// Read returns the element's text.
func (t *TextWidget) Read() (any, error) {
	return t.Text()
}

// InputWidget is a text input or textarea.
type InputWidget struct {
	Base
}

// Input declares a text input widget.
func Input(loc any) Builder {
	return newLeafBuilder("Input", loc, func(base Base) Widget {
		return &InputWidget{Base: base}
	})
}

// Read returns the current value of the input.
func (i *InputWidget) Read() (any, error) {
	var value string
	err := i.Do(func(d Driver, el Element) error {
		var err error
		value, err = d.Value(el)
		return err
	})
	return value, err
}

// Fill sets the input's value. Nothing happens when it already holds value.
func (i *InputWidget) Fill(value any) (bool, error) {
	text := stringify(value)
	changed := false
	err := i.Do(func(d Driver, el Element) error {
		current, err := d.Value(el)
		if err != nil {
			return err
		}
		if current == text {
			return nil
		}
		changed = true
		return d.SetValue(el, text)
	})
	return changed, err
}

// CheckboxWidget is a checkbox or radio button.
type CheckboxWidget struct {
	Base
}

// Checkbox declares a checkbox widget.
func Checkbox(loc any) Builder {
	return newLeafBuilder("Checkbox", loc, func(base Base) Widget {
		return &CheckboxWidget{Base: base}
	})
}

// Read returns whether the checkbox is checked.
func (c *CheckboxWidget) Read() (any, error) {
	var checked bool
	err := c.Do(func(d Driver, el Element) error {
		var err error
		checked, err = d.IsSelected(el)
		return err
	})
	return checked, err
}

// Fill clicks the checkbox when its state differs from value.
func (c *CheckboxWidget) Fill(value any) (bool, error) {
	want, err := toBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", c.Path(), err)
	}
	changed := false
	err = c.Do(func(d Driver, el Element) error {
		checked, err := d.IsSelected(el)
		if err != nil {
			return err
		}
		if checked == want {
			return nil
		}
		changed = true
		return d.Click(el)
	})
	return changed, err
}

// ButtonWidget is clickable but neither readable nor fillable.
type ButtonWidget struct {
	Base
}

// Button declares a button widget.
func Button(loc any) Builder {
	return newLeafBuilder("Button", loc, func(base Base) Widget {
		return &ButtonWidget{Base: base}
	})
}

// Click clicks the button.
func (b *ButtonWidget) Click() error {
	return b.Do(func(d Driver, el Element) error {
		return d.Click(el)
	})
}

// SelectWidget is a single-choice select element. Its value is the text of
// the selected option.
type SelectWidget struct {
	Base
}

// Select declares a select widget.
func Select(loc any) Builder {
	return newLeafBuilder("Select", loc, func(base Base) Widget {
		return &SelectWidget{Base: base}
	})
}

var optionLocator = locator.CSS("option")

// Options returns the text of every option in document order.
func (s *SelectWidget) Options() ([]string, error) {
	var options []string
	err := s.FindAll(optionLocator, func(d Driver, els []Element) error {
		for _, el := range els {
			text, err := d.Text(el)
			if err != nil {
				return err
			}
			options = append(options, text)
		}
		return nil
	})
	return options, err
}

// Read returns the text of the selected option, or an empty string.
func (s *SelectWidget) Read() (any, error) {
	var selected string
	err := s.FindAll(optionLocator, func(d Driver, els []Element) error {
		for _, el := range els {
			ok, err := d.IsSelected(el)
			if err != nil {
				return err
			}
			if ok {
				selected, err = d.Text(el)
				return err
			}
		}
		return nil
	})
	return selected, err
}

// Fill selects the option whose text or value equals value.
func (s *SelectWidget) Fill(value any) (bool, error) {
	current, err := s.Read()
	if err != nil {
		return false, err
	}
	text := stringify(value)
	if current == text {
		return false, nil
	}
	err = s.Do(func(d Driver, el Element) error {
		return d.SetValue(el, text)
	})
	return err == nil, err
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func toBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("cannot use %q as a checkbox state", v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("cannot use %T as a checkbox state", value)
	}
}

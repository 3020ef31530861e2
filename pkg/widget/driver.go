package widget

import "github.com/entrhq/widgetry/pkg/locator"

// Element is an opaque handle produced by a Driver. Handles are only valid
// for the operation that produced them; widgets never keep them.
type Element interface{}

// Driver is the DOM collaborator the engine drives. A nil scope means the
// document of the currently active browsing context.
type Driver interface {
	// Locate returns every element matching loc inside scope, in document order.
	Locate(loc locator.Locator, scope Element) ([]Element, error)

	// Text returns the normalized visible text of the element.
	Text(el Element) (string, error)

	// Attribute returns the attribute value and whether it is present.
	Attribute(el Element, name string) (string, bool, error)

	// Value returns the current value of a form control.
	Value(el Element) (string, error)

	IsDisplayed(el Element) (bool, error)
	IsEnabled(el Element) (bool, error)

	// IsSelected reports checked state for checkboxes and radios and
	// selected state for options.
	IsSelected(el Element) (bool, error)

	Click(el Element) error

	// SetValue replaces the value of a form control. For select elements
	// value matches an option by its value or its text.
	SetValue(el Element, value string) error

	// SwitchToFrame makes the document of the frame element the active context.
	SwitchToFrame(el Element) error

	// SwitchToTopContext makes the top-level document the active context.
	SwitchToTopContext() error
}

// VersionProvider is implemented by drivers that know the version of the
// application under test.
type VersionProvider interface {
	CurrentVersion() (string, error)
}

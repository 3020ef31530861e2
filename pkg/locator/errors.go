package locator

import "fmt"

// LocatorError reports a malformed or unsupported locator input.
type LocatorError struct {
	Input  any
	Reason string
}

func (e *LocatorError) Error() string {
	return fmt.Sprintf("invalid locator %v: %s", e.Input, e.Reason)
}

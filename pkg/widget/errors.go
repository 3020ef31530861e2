package widget

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/widgetry/pkg/locator"
)

// ErrSkip is returned by Read to ask the enclosing view to omit the key.
// View.Read consumes it; callers of View.Read never see it.
var ErrSkip = errors.New("widget: skip this value")

// ElementNotFoundError reports that a locator matched nothing within its scope.
type ElementNotFoundError struct {
	Path    string
	Locator locator.Locator
	Err     error
}

func (e *ElementNotFoundError) Error() string {
	msg := fmt.Sprintf("element not found for %s (%s)", e.Path, e.Locator)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ElementNotFoundError) Unwrap() error {
	return e.Err
}

// FrameNotFoundError reports that the FRAME anchor of a view could not be
// resolved. It is kept distinct from ElementNotFoundError so broken iframe
// wiring can be special-cased.
type FrameNotFoundError struct {
	Path    string
	Locator locator.Locator
	Err     error
}

func (e *FrameNotFoundError) Error() string {
	msg := fmt.Sprintf("frame not found for %s (%s)", e.Path, e.Locator)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FrameNotFoundError) Unwrap() error {
	return e.Err
}

// RowNotFoundError reports that no table row matched the given filters.
type RowNotFoundError struct {
	Table   string
	Filters []string
}

func (e *RowNotFoundError) Error() string {
	if len(e.Filters) == 0 {
		return fmt.Sprintf("row not found in %s", e.Table)
	}
	return fmt.Sprintf("row not found in %s matching %s", e.Table, strings.Join(e.Filters, " and "))
}

// VersionPickUnresolvedError reports that no version variant applies and no
// lowest variant was declared.
type VersionPickUnresolvedError struct {
	Path    string
	Version string
	Keys    []string
}

func (e *VersionPickUnresolvedError) Error() string {
	return fmt.Sprintf("no variant of %s matches version %q (declared: %s)", e.Path, e.Version, strings.Join(e.Keys, ", "))
}

// ConditionalUnresolvedError reports that no conditional case matched and no
// default case was registered.
type ConditionalUnresolvedError struct {
	Path   string
	Values []any
}

func (e *ConditionalUnresolvedError) Error() string {
	return fmt.Sprintf("no case of %s matches reference values %v", e.Path, e.Values)
}

// FillTypeMismatchError reports a fill targeting a widget that cannot be filled.
type FillTypeMismatchError struct {
	Path   string
	Widget string
}

func (e *FillTypeMismatchError) Error() string {
	return fmt.Sprintf("%s (%s) cannot be filled", e.Path, e.Widget)
}

// IsNotFound reports whether err means an element or frame was absent.
func IsNotFound(err error) bool {
	var elErr *ElementNotFoundError
	var frameErr *FrameNotFoundError
	return errors.As(err, &elErr) || errors.As(err, &frameErr)
}

// WaitTimeoutError reports that a wait condition did not hold within its timeout.
type WaitTimeoutError struct {
	Path      string
	Condition string
	Timeout   time.Duration
}

func (e *WaitTimeoutError) Error() string {
	return fmt.Sprintf("%s not %s after %s", e.Path, e.Condition, e.Timeout)
}

package widget

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/entrhq/widgetry/pkg/locator"
	"github.com/entrhq/widgetry/pkg/logging"
)

// Default values for browser operations
const (
	DefaultTimeout      = 10 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
)

// Browser is the root of every widget tree. It owns the driver for one
// browsing context and serializes every lookup against it.
//
// Independent windows or tabs are modeled as independent Browsers, each
// with its own widgets.
type Browser struct {
	driver       Driver
	logger       *logging.Logger
	timeout      time.Duration
	pollInterval time.Duration
	version      string

	// mu serializes context switches with the lookups that depend on them
	mu sync.Mutex
}

// BrowserOption configures a Browser.
type BrowserOption func(*Browser)

// WithLogger sets the logger used for warnings emitted by bulk operations.
func WithLogger(logger *logging.Logger) BrowserOption {
	return func(b *Browser) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithTimeout sets the default timeout for wait operations.
func WithTimeout(timeout time.Duration) BrowserOption {
	return func(b *Browser) {
		if timeout > 0 {
			b.timeout = timeout
		}
	}
}

// WithPollInterval sets the interval between wait checks.
func WithPollInterval(interval time.Duration) BrowserOption {
	return func(b *Browser) {
		if interval > 0 {
			b.pollInterval = interval
		}
	}
}

// WithVersion fixes the application version used by VersionPick. It takes
// precedence over a driver implementing VersionProvider.
func WithVersion(version string) BrowserOption {
	return func(b *Browser) {
		b.version = version
	}
}

// NewBrowser creates the root collaborator for driver.
func NewBrowser(driver Driver, opts ...BrowserOption) *Browser {
	b := &Browser{
		driver:       driver,
		logger:       logging.Discard(),
		timeout:      DefaultTimeout,
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Driver returns the underlying driver.
func (b *Browser) Driver() Driver {
	return b.driver
}

// Logger returns the browser's logger.
func (b *Browser) Logger() *logging.Logger {
	return b.logger
}

// Version returns the current application version, asked fresh on every call.
func (b *Browser) Version() (string, error) {
	if b.version != "" {
		return b.version, nil
	}
	if vp, ok := b.driver.(VersionProvider); ok {
		b.mu.Lock()
		defer b.mu.Unlock()
		return vp.CurrentVersion()
	}
	return "", errors.New("no application version available: use WithVersion or a VersionProvider driver")
}

// View instantiates a top-level view of class bound to this browser.
func (b *Browser) View(class *ViewClass) (*View, error) {
	return class.instantiate(nil, b, nil)
}

// Parametrized returns the top-level entry point of a parametrized view class.
func (b *Browser) Parametrized(class *ViewClass) *ParametrizedField {
	return newParametrizedField(Base{browser: b, kind: class.name}, class)
}

// withScope re-asserts the full context chain of w, from the top-level
// document down through every ancestor FRAME and ROOT, and calls fn with
// the resulting anchor. The chain is resolved fresh on every call.
func (b *Browser) withScope(w Widget, fn func(d Driver, el Element) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	scope, err := b.scope(w)
	if err != nil {
		return err
	}
	return fn(b.driver, scope)
}

func (b *Browser) scope(w Widget) (Element, error) {
	if w == nil {
		if err := b.driver.SwitchToTopContext(); err != nil {
			return nil, fmt.Errorf("switch to top context: %w", err)
		}
		return nil, nil
	}

	base := w.core()
	scope, err := b.scope(base.parent)
	if err != nil {
		return nil, err
	}

	if !base.frame.IsZero() {
		loc, err := base.render(base.frame)
		if err != nil {
			return nil, err
		}
		els, err := b.driver.Locate(loc, scope)
		if err != nil || len(els) == 0 {
			return nil, &FrameNotFoundError{Path: base.Path(), Locator: loc, Err: err}
		}
		if err := b.driver.SwitchToFrame(els[0]); err != nil {
			return nil, &FrameNotFoundError{Path: base.Path(), Locator: loc, Err: err}
		}
		b.logger.Debugf("switched into frame %s for %s", loc, base.Path())
		scope = nil
	}

	if !base.root.IsZero() {
		loc, err := base.render(base.root)
		if err != nil {
			return nil, err
		}
		el, err := b.locateOne(base.Path(), loc, scope, base.nth)
		if err != nil {
			return nil, err
		}
		scope = el
	}

	return scope, nil
}

// locateOne resolves the nth match of loc. Anchors use the first match.
func (b *Browser) locateOne(path string, loc locator.Locator, scope Element, nth int) (Element, error) {
	els, err := b.driver.Locate(loc, scope)
	if err != nil {
		return nil, &ElementNotFoundError{Path: path, Locator: loc, Err: err}
	}
	if len(els) <= nth {
		return nil, &ElementNotFoundError{Path: path, Locator: loc}
	}
	if nth == 0 && len(els) > 1 {
		b.logger.Debugf("%s matched %d elements for %s, using the first", path, len(els), loc)
	}
	return els[nth], nil
}

// poll calls check until it reports true or timeout elapses. This is the
// only place the engine blocks.
func (b *Browser) poll(path, condition string, timeout time.Duration, check func() (bool, error)) error {
	if timeout <= 0 {
		timeout = b.timeout
	}
	deadline := time.Now().Add(timeout)
	for {
		ok, err := check()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return &WaitTimeoutError{Path: path, Condition: condition, Timeout: timeout}
		}
		time.Sleep(b.pollInterval)
	}
}

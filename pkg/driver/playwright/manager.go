package playwright

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/widgetry/pkg/logging"
)

// SessionManager owns the Playwright runtime and every session started
// from it. Browser launches and closes run outside the manager lock; only
// the session table is guarded.
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	starting    map[string]struct{}
	playwright  *playwright.Playwright
	logger      *logging.Logger
	maxSessions int
	idleTimeout time.Duration
	install     bool
}

// ManagerOption configures a SessionManager.
type ManagerOption func(*SessionManager)

// WithLogger sets the manager's logger.
func WithLogger(logger *logging.Logger) ManagerOption {
	return func(m *SessionManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithInstall controls whether Initialize downloads the driver and browsers.
func WithInstall(install bool) ManagerOption {
	return func(m *SessionManager) {
		m.install = install
	}
}

// WithMaxSessions caps the number of open and starting sessions.
func WithMaxSessions(n int) ManagerOption {
	return func(m *SessionManager) {
		m.maxSessions = n
	}
}

// WithIdleTimeout sets how long a session may go unused before
// CleanupIdleSessions closes it.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *SessionManager) {
		m.idleTimeout = d
	}
}

// NewSessionManager creates a session manager. Call Initialize before
// starting sessions.
func NewSessionManager(opts ...ManagerOption) *SessionManager {
	m := &SessionManager{
		sessions:    make(map[string]*Session),
		starting:    make(map[string]struct{}),
		logger:      logging.Discard(),
		maxSessions: DefaultMaxSessions,
		idleTimeout: time.Duration(DefaultIdleTimeout) * time.Second,
		install:     true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize starts the Playwright runtime, installing it first unless
// WithInstall(false) was given. Calling it again is a no-op.
func (m *SessionManager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.playwright != nil {
		return nil
	}

	// Playwright's own progress output would interleave with ours
	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if m.install {
		if err := playwright.Install(opts); err != nil {
			return fmt.Errorf("failed to install playwright: %w", err)
		}
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	m.playwright = pw
	m.logger.Debugf("playwright started")
	return nil
}

// StartSession launches a browser and opens a page. An empty name gets a
// generated one. The name is reserved while the browser launches, so a
// concurrent start with the same name fails fast.
func (m *SessionManager) StartSession(name string, opts SessionOptions) (*Session, error) {
	if name == "" {
		name = uuid.New().String()
	}

	engine, err := m.reserve(name, opts.Engine)
	if err != nil {
		return nil, err
	}

	session, err := launch(engine, name, opts)

	m.mu.Lock()
	delete(m.starting, name)
	if err == nil {
		m.sessions[name] = session
	}
	m.mu.Unlock()

	if err != nil {
		return nil, err
	}
	m.logger.Infof("started %s session %q (headless=%t)", engineName(opts.Engine), name, opts.Headless)
	return session, nil
}

func (m *SessionManager) reserve(name, engine string) (playwright.BrowserType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[name]; exists {
		return nil, fmt.Errorf("session %q already exists", name)
	}
	if _, exists := m.starting[name]; exists {
		return nil, fmt.Errorf("session %q is already starting", name)
	}
	if len(m.sessions)+len(m.starting) >= m.maxSessions {
		return nil, fmt.Errorf("maximum number of sessions (%d) reached", m.maxSessions)
	}
	if m.playwright == nil {
		return nil, errors.New("session manager not initialized")
	}

	bt, err := m.engine(engine)
	if err != nil {
		return nil, err
	}
	m.starting[name] = struct{}{}
	return bt, nil
}

// launch opens browser, context and page, releasing what was opened when
// a later step fails.
func launch(engine playwright.BrowserType, name string, opts SessionOptions) (*Session, error) {
	viewport := opts.Viewport
	if viewport == nil {
		viewport = &Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	browser, err := engine.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	context, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: viewport.Width, Height: viewport.Height},
	})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	page, err := context.NewPage()
	if err != nil {
		_ = context.Close()
		_ = browser.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(timeout)

	now := time.Now()
	return &Session{
		Name:        name,
		Browser:     browser,
		Context:     context,
		Page:        page,
		Headless:    opts.Headless,
		CreatedAt:   now,
		CurrentURL:  "about:blank",
		version:     opts.Version,
		versionExpr: opts.VersionExpression,
		lastUsedAt:  now,
	}, nil
}

func engineName(engine string) string {
	if engine == "" {
		return "chromium"
	}
	return engine
}

func (m *SessionManager) engine(name string) (playwright.BrowserType, error) {
	switch engineName(name) {
	case "chromium":
		return m.playwright.Chromium, nil
	case "firefox":
		return m.playwright.Firefox, nil
	case "webkit":
		return m.playwright.WebKit, nil
	}
	return nil, fmt.Errorf("unknown browser engine %q", name)
}

// CloseSession closes and removes a session. Close failures are logged;
// the session is gone either way.
func (m *SessionManager) CloseSession(name string) error {
	m.mu.Lock()
	session, exists := m.sessions[name]
	delete(m.sessions, name)
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("session %q not found", name)
	}
	if err := session.close(); err != nil {
		m.logger.Warnf("closing session %q: %v", name, err)
	}
	m.logger.Debugf("closed session %q", name)
	return nil
}

// GetSession retrieves an open session by name.
func (m *SessionManager) GetSession(name string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[name]
	if !exists {
		return nil, fmt.Errorf("session %q not found", name)
	}
	return session, nil
}

// ListSessions describes the open sessions, oldest first.
func (m *SessionManager) ListSessions() []SessionInfo {
	m.mu.RLock()
	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, session := range m.sessions {
		infos = append(infos, SessionInfo{
			Name:       session.Name,
			CurrentURL: session.CurrentURL,
			Headless:   session.Headless,
			CreatedAt:  session.CreatedAt,
			LastUsedAt: session.LastUsed(),
		})
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.Before(infos[j].CreatedAt)
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// HasSessions reports whether any session is open.
func (m *SessionManager) HasSessions() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions) > 0
}

// detach removes the sessions selected by keep from the table and returns
// them, so they can be closed without holding the lock.
func (m *SessionManager) detach(keep func(*Session) bool) map[string]*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	detached := make(map[string]*Session)
	for name, session := range m.sessions {
		if keep(session) {
			continue
		}
		detached[name] = session
		delete(m.sessions, name)
	}
	return detached
}

func closeAll(sessions map[string]*Session) error {
	var errs []error
	for name, session := range sessions {
		if err := session.close(); err != nil {
			errs = append(errs, fmt.Errorf("session %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// CloseAll closes every open session.
func (m *SessionManager) CloseAll() error {
	if err := closeAll(m.detach(func(*Session) bool { return false })); err != nil {
		return fmt.Errorf("errors closing sessions: %w", err)
	}
	return nil
}

// CleanupIdleSessions closes the sessions unused for longer than the idle
// timeout and returns their names in order.
func (m *SessionManager) CleanupIdleSessions() ([]string, error) {
	m.mu.RLock()
	cutoff := time.Now().Add(-m.idleTimeout)
	m.mu.RUnlock()

	idle := m.detach(func(s *Session) bool { return !s.LastUsed().Before(cutoff) })
	names := make([]string, 0, len(idle))
	for name := range idle {
		names = append(names, name)
		m.logger.Infof("closing idle session %q", name)
	}
	sort.Strings(names)

	if err := closeAll(idle); err != nil {
		return names, fmt.Errorf("errors during cleanup: %w", err)
	}
	return names, nil
}

// Shutdown closes every session and stops Playwright.
func (m *SessionManager) Shutdown() error {
	if err := m.CloseAll(); err != nil {
		m.logger.Warnf("%v", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playwright == nil {
		return nil
	}
	if err := m.playwright.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	m.playwright = nil
	m.logger.Debugf("playwright stopped")
	return nil
}

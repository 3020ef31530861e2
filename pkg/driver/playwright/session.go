package playwright

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// UpdateLastUsed marks the session as used now.
func (s *Session) UpdateLastUsed() {
	s.mu.Lock()
	s.lastUsedAt = time.Now()
	s.mu.Unlock()
}

// LastUsed returns the time of the last operation on this session.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsedAt
}

// Navigate navigates the session's page to the specified URL. The active
// context returns to the main frame.
func (s *Session) Navigate(url string, opts NavigateOptions) error {
	s.UpdateLastUsed()

	gotoOpts := playwright.PageGotoOptions{}
	if opts.WaitUntil != "" {
		waitUntil := playwright.WaitUntilState(opts.WaitUntil)
		gotoOpts.WaitUntil = &waitUntil
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = &opts.Timeout
	}

	if _, err := s.Page.Goto(url, gotoOpts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	s.frame = nil
	s.CurrentURL = s.Page.URL()
	return nil
}

// SetContent replaces the page document with markup.
func (s *Session) SetContent(markup string) error {
	s.UpdateLastUsed()

	if err := s.Page.SetContent(markup); err != nil {
		return fmt.Errorf("set content failed: %w", err)
	}
	s.frame = nil
	s.CurrentURL = s.Page.URL()
	return nil
}

// CurrentVersion implements widget.VersionProvider. A fixed version wins
// over the version expression.
func (s *Session) CurrentVersion() (string, error) {
	if s.version != "" {
		return s.version, nil
	}
	if s.versionExpr == "" {
		return "", errors.New("playwright: no version or version expression configured")
	}

	s.UpdateLastUsed()
	result, err := s.Page.Evaluate(s.versionExpr)
	if err != nil {
		return "", fmt.Errorf("evaluate version expression: %w", err)
	}
	version, ok := result.(string)
	if !ok || strings.TrimSpace(version) == "" {
		return "", fmt.Errorf("version expression returned %v", result)
	}
	return strings.TrimSpace(version), nil
}

func (s *Session) close() error {
	var errs []error
	if err := s.Page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Context.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.Browser.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

package playwright

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/widgetry/pkg/widget"
)

func TestSessionManagerWithoutRuntime(t *testing.T) {
	m := NewSessionManager()

	_, err := m.StartSession("a", SessionOptions{Headless: true})
	assert.ErrorContains(t, err, "not initialized")

	_, err = m.GetSession("a")
	assert.Error(t, err)
	assert.Error(t, m.CloseSession("a"))

	assert.Empty(t, m.ListSessions())
	assert.False(t, m.HasSessions())
	assert.NoError(t, m.CloseAll())
	closed, err := m.CleanupIdleSessions()
	assert.NoError(t, err)
	assert.Empty(t, closed)
	assert.NoError(t, m.Shutdown())

	capped := NewSessionManager(WithMaxSessions(0))
	_, err = capped.StartSession("b", SessionOptions{})
	assert.ErrorContains(t, err, "maximum number of sessions")
}

// newManager starts a Playwright runtime; it is skipped in short mode and
// when the runtime cannot be installed.
func newManager(t *testing.T, opts ...ManagerOption) *SessionManager {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser integration test in short mode")
	}

	m := NewSessionManager(opts...)
	if err := m.Initialize(); err != nil {
		t.Skipf("playwright unavailable: %v", err)
	}
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
}

func TestSessionManagerLifecycle(t *testing.T) {
	m := newManager(t, WithIdleTimeout(50*time.Millisecond), WithMaxSessions(2))

	_, err := m.StartSession("a", SessionOptions{Headless: true})
	require.NoError(t, err)
	b, err := m.StartSession("b", SessionOptions{Headless: true})
	require.NoError(t, err)

	_, err = m.StartSession("a", SessionOptions{Headless: true})
	assert.ErrorContains(t, err, "already exists")
	_, err = m.StartSession("c", SessionOptions{Headless: true})
	assert.ErrorContains(t, err, "maximum number of sessions")

	infos := m.ListSessions()
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, "b", infos[1].Name)
	assert.Equal(t, "about:blank", infos[0].CurrentURL)

	time.Sleep(100 * time.Millisecond)
	b.UpdateLastUsed()

	closed, err := m.CleanupIdleSessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, closed)

	_, err = m.GetSession("a")
	assert.Error(t, err)
	got, err := m.GetSession("b")
	require.NoError(t, err)
	assert.Same(t, b, got)

	require.NoError(t, m.CloseSession("b"))
	assert.False(t, m.HasSessions())
}

const formPage = `<html><body>
<form id="login">
  <input id="username" value="">
  <input id="remember" type="checkbox">
  <select id="plan"><option value="f">Free</option><option value="p">Pro</option></select>
  <span class="status">ready</span>
</form>
<iframe id="embedded" srcdoc="<p id='inner'>inside the frame</p>"></iframe>
<meta name="app-version" content="2.1.0">
</body></html>`

// startSession launches a real browser showing formPage.
func startSession(t *testing.T) *Session {
	t.Helper()
	m := newManager(t)
	session, err := m.StartSession("", SessionOptions{
		Headless:          true,
		VersionExpression: `document.querySelector('meta[name="app-version"]').content`,
	})
	require.NoError(t, err)
	require.NoError(t, session.SetContent(formPage))
	return session
}

func TestSessionDrivesViews(t *testing.T) {
	session := startSession(t)

	login := widget.DefineView("Login",
		widget.Root("#login"),
		widget.Field("username", widget.Input("#username")),
		widget.Field("remember", widget.Checkbox("#remember")),
		widget.Field("plan", widget.Select("#plan")),
		widget.Field("status", widget.Text(".status")),
	)

	browser := widget.NewBrowser(session, widget.WithTimeout(2*time.Second))
	view, err := browser.View(login)
	require.NoError(t, err)

	changed, err := view.Fill(map[string]any{"username": "bob", "remember": true, "plan": "Pro"})
	require.NoError(t, err)
	assert.True(t, changed)

	values, err := view.ReadValues()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"username": "bob",
		"remember": true,
		"plan":     "Pro",
		"status":   "ready",
	}, widget.ToMap(values))

	changed, err = view.Fill(values)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestSessionFramesAndVersion(t *testing.T) {
	session := startSession(t)

	framed := widget.DefineView("Framed",
		widget.Frame("#embedded"),
		widget.Field("inner", widget.Text("#inner")),
	)
	browser := widget.NewBrowser(session, widget.WithTimeout(2*time.Second))
	view, err := browser.View(framed)
	require.NoError(t, err)

	inner, err := view.MustChild("inner").(widget.Reader).Read()
	require.NoError(t, err)
	assert.Equal(t, "inside the frame", inner)

	version, err := browser.Version()
	require.NoError(t, err)
	assert.Equal(t, "2.1.0", version)
}

// Package playwright drives a live browser through Playwright and exposes
// each page as a widget.Driver.
//
// A SessionManager owns the Playwright runtime. Every Session it starts is
// an independent browser, context and page; wrap it in its own
// widget.Browser:
//
//	manager := playwright.NewSessionManager()
//	if err := manager.Initialize(); err != nil {
//	    return err
//	}
//	defer manager.Shutdown()
//
//	session, err := manager.StartSession("login", playwright.SessionOptions{Headless: true})
//	if err != nil {
//	    return err
//	}
//	if err := session.Navigate("https://example.com/login", playwright.NavigateOptions{}); err != nil {
//	    return err
//	}
//	view, err := widget.NewBrowser(session).View(LoginView)
//
// Locators map onto Playwright selector engines: css=, xpath=, text=, id=
// and role=, with attribute locators rendered as CSS attribute selectors.
// Frames are entered through the frame element's content frame.
package playwright

// Package widget is a declarative object model for browser UI automation.
//
// A page is described as a tree of view classes whose fields are widgets:
//
//	var LoginView = widget.DefineView("LoginView",
//		widget.Root("#login"),
//		widget.Field("username", widget.Input("#username")),
//		widget.Field("remember", widget.Checkbox("#remember")),
//		widget.Field("submit", widget.Button("button[type=submit]")),
//	)
//
//	view, err := browser.View(LoginView)
//	changed, err := view.Fill(map[string]any{"username": "bob", "remember": true})
//
// Fields keep the order they were declared in, across inheritance and
// nesting. Reading a view returns its values in that order, and filling a
// view sets fields in that order no matter how the input mapping is ordered.
//
// Widgets are bound lazily. A view materializes a field the first time it
// is accessed and caches the instance for the view's lifetime. Widgets never
// keep element handles: every operation resolves the chain of ROOT and
// FRAME anchors from the top-level document down to the widget, so views
// nested inside iframes can be interleaved freely with views outside them.
//
// Polymorphic fields pick their implementation at access time:
// VersionPick by application version, Conditional by the values of sibling
// fields, and Parametrized views by call-time parameters that are
// substituted into their locator templates. Tables expose their cells as a
// grid in which merged cells resolve to a single origin.
//
// The DOM itself is reached through the Driver interface. See the
// playwright and htmldom driver packages.
package widget

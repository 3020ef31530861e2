package htmldom

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/entrhq/widgetry/pkg/locator"
	"github.com/entrhq/widgetry/pkg/widget"
)

// ClickHandler runs after the built-in click behaviour. It stands in for
// page scripts, e.g. appending a table row when an "add" button is clicked.
type ClickHandler func(d *Driver, el *html.Node) error

// Option configures a Driver.
type Option func(*Driver)

// WithVersion sets the version returned by CurrentVersion.
func WithVersion(version string) Option {
	return func(d *Driver) {
		d.version = version
	}
}

// WithClickHandler registers a handler run after every click.
func WithClickHandler(fn ClickHandler) Option {
	return func(d *Driver) {
		d.onClick = append(d.onClick, fn)
	}
}

// Driver implements widget.Driver over a parsed HTML document. Frames are
// iframes carrying a srcdoc attribute; their documents are parsed on first
// use and kept for the driver's lifetime.
//
// A Driver is not safe for concurrent use. widget.Browser serializes every
// call it makes.
type Driver struct {
	top     *html.Node
	current *html.Node
	frames  map[*html.Node]*html.Node
	version string
	onClick []ClickHandler
}

var _ widget.Driver = (*Driver)(nil)
var _ widget.VersionProvider = (*Driver)(nil)

// New creates a driver for doc.
func New(doc *html.Node, opts ...Option) *Driver {
	d := &Driver{
		top:     doc,
		current: doc,
		frames:  make(map[*html.Node]*html.Node),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Parse reads an HTML document from r.
func Parse(r io.Reader, opts ...Option) (*Driver, error) {
	doc, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return New(doc, opts...), nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string, opts ...Option) (*Driver, error) {
	return Parse(strings.NewReader(s), opts...)
}

// Document returns the top-level document.
func (d *Driver) Document() *html.Node {
	return d.top
}

// Render serializes the top-level document with its current state.
func (d *Driver) Render() (string, error) {
	var b strings.Builder
	if err := html.Render(&b, d.top); err != nil {
		return "", err
	}
	return b.String(), nil
}

// CurrentVersion returns the version set with WithVersion.
func (d *Driver) CurrentVersion() (string, error) {
	if d.version == "" {
		return "", errors.New("htmldom: no version configured")
	}
	return d.version, nil
}

// SetVersion changes the version reported from now on.
func (d *Driver) SetVersion(version string) {
	d.version = version
}

func node(el widget.Element) (*html.Node, error) {
	n, ok := el.(*html.Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("htmldom: unexpected element %T", el)
	}
	return n, nil
}

// Locate implements widget.Driver.
func (d *Driver) Locate(loc locator.Locator, scope widget.Element) ([]widget.Element, error) {
	root := d.current
	if scope != nil {
		n, err := node(scope)
		if err != nil {
			return nil, err
		}
		root = n
	}

	nodes, err := d.query(loc, root, scope != nil)
	if err != nil {
		return nil, err
	}
	out := make([]widget.Element, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out, nil
}

func (d *Driver) query(loc locator.Locator, root *html.Node, scoped bool) ([]*html.Node, error) {
	switch loc.Strategy {
	case locator.StrategyCSS:
		group, err := cascadia.ParseGroup(loc.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid css %q: %w", loc.Value, err)
		}
		return cascadia.QueryAll(root, group), nil
	case locator.StrategyXPath:
		expr := loc.Value
		// Absolute expressions stay inside the scope element, the way
		// browser automation tools evaluate them from an element handle.
		if scoped && strings.HasPrefix(expr, "/") {
			expr = "." + expr
		}
		nodes, err := htmlquery.QueryAll(root, expr)
		if err != nil {
			return nil, fmt.Errorf("invalid xpath %q: %w", loc.Value, err)
		}
		return elementsOnly(nodes), nil
	case locator.StrategyID:
		return descendants(root, func(n *html.Node) bool {
			return attr(n, "id") == loc.Value
		}), nil
	case locator.StrategyText:
		return textMatches(root, loc.Value), nil
	case locator.StrategyRole:
		return descendants(root, func(n *html.Node) bool {
			if role(n) != loc.Value {
				return false
			}
			return loc.Name == "" || accessibleName(n) == loc.Name
		}), nil
	case locator.StrategyAttributes:
		return descendants(root, func(n *html.Node) bool {
			for k, v := range loc.Attributes {
				got, ok := lookupAttr(n, k)
				if !ok || got != v {
					return false
				}
			}
			return true
		}), nil
	}
	return nil, fmt.Errorf("htmldom: unsupported locator strategy %q", loc.Strategy)
}

func elementsOnly(nodes []*html.Node) []*html.Node {
	out := nodes[:0]
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, n)
		}
	}
	return out
}

func descendants(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if match(c) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

// textMatches returns the innermost elements whose normalized text equals text.
func textMatches(root *html.Node, text string) []*html.Node {
	want := normalize(text)
	matches := descendants(root, func(n *html.Node) bool {
		return normalize(innerText(n)) == want
	})
	innermost := matches[:0]
	for i, n := range matches {
		hasInner := false
		for _, other := range matches[i+1:] {
			if isAncestor(n, other) {
				hasInner = true
				break
			}
		}
		if !hasInner {
			innermost = append(innermost, n)
		}
	}
	return innermost
}

func isAncestor(ancestor, n *html.Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == ancestor {
			return true
		}
	}
	return false
}

// Text implements widget.Driver.
func (d *Driver) Text(el widget.Element) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	return normalize(innerText(n)), nil
}

// Attribute implements widget.Driver.
func (d *Driver) Attribute(el widget.Element, name string) (string, bool, error) {
	n, err := node(el)
	if err != nil {
		return "", false, err
	}
	value, ok := lookupAttr(n, name)
	return value, ok, nil
}

// Value implements widget.Driver.
func (d *Driver) Value(el widget.Element) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	switch n.Data {
	case "textarea":
		return innerText(n), nil
	case "select":
		if opt := selectedOption(n); opt != nil {
			return optionValue(opt), nil
		}
		return "", nil
	case "option":
		return optionValue(n), nil
	}
	return attr(n, "value"), nil
}

// IsDisplayed implements widget.Driver. An element is hidden when it or an
// ancestor carries the hidden attribute, an inline display:none or
// visibility:hidden style, or is never rendered (head, script, hidden input).
func (d *Driver) IsDisplayed(el widget.Element) (bool, error) {
	n, err := node(el)
	if err != nil {
		return false, err
	}
	if n.Data == "input" && strings.EqualFold(attr(n, "type"), "hidden") {
		return false, nil
	}
	for p := n; p != nil && p.Type == html.ElementNode; p = p.Parent {
		switch p.Data {
		case "head", "script", "style", "template", "noscript":
			return false, nil
		}
		if _, hidden := lookupAttr(p, "hidden"); hidden {
			return false, nil
		}
		style := strings.ReplaceAll(strings.ToLower(attr(p, "style")), " ", "")
		if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
			return false, nil
		}
	}
	return true, nil
}

// IsEnabled implements widget.Driver.
func (d *Driver) IsEnabled(el widget.Element) (bool, error) {
	n, err := node(el)
	if err != nil {
		return false, err
	}
	for p := n; p != nil && p.Type == html.ElementNode; p = p.Parent {
		if _, disabled := lookupAttr(p, "disabled"); disabled {
			if p == n || p.Data == "fieldset" {
				return false, nil
			}
		}
	}
	return true, nil
}

// IsSelected implements widget.Driver.
func (d *Driver) IsSelected(el widget.Element) (bool, error) {
	n, err := node(el)
	if err != nil {
		return false, err
	}
	switch n.Data {
	case "input":
		_, checked := lookupAttr(n, "checked")
		return checked, nil
	case "option":
		sel := enclosingSelect(n)
		if sel == nil {
			_, selected := lookupAttr(n, "selected")
			return selected, nil
		}
		return selectedOption(sel) == n, nil
	}
	return false, nil
}

// Click implements widget.Driver. Checkboxes toggle, radios become the
// checked member of their group and options become selected. Registered
// click handlers run afterwards.
func (d *Driver) Click(el widget.Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	if enabled, _ := d.IsEnabled(n); !enabled {
		return fmt.Errorf("htmldom: element <%s> is disabled", n.Data)
	}
	switch {
	case n.Data == "input" && strings.EqualFold(attr(n, "type"), "checkbox"):
		if _, checked := lookupAttr(n, "checked"); checked {
			removeAttr(n, "checked")
		} else {
			setAttr(n, "checked", "checked")
		}
	case n.Data == "input" && strings.EqualFold(attr(n, "type"), "radio"):
		name := attr(n, "name")
		for _, other := range descendants(documentOf(n), func(c *html.Node) bool {
			return c.Data == "input" && strings.EqualFold(attr(c, "type"), "radio") && attr(c, "name") == name
		}) {
			removeAttr(other, "checked")
		}
		setAttr(n, "checked", "checked")
	case n.Data == "option":
		if sel := enclosingSelect(n); sel != nil {
			selectOption(sel, n)
		}
	}
	for _, fn := range d.onClick {
		if err := fn(d, n); err != nil {
			return err
		}
	}
	return nil
}

// SetValue implements widget.Driver.
func (d *Driver) SetValue(el widget.Element, value string) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	switch n.Data {
	case "textarea":
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
		return nil
	case "select":
		for _, opt := range options(n) {
			if optionValue(opt) == value || normalize(innerText(opt)) == value {
				selectOption(n, opt)
				return nil
			}
		}
		return fmt.Errorf("htmldom: select has no option %q", value)
	case "input":
		setAttr(n, "value", value)
		return nil
	}
	return fmt.Errorf("htmldom: cannot set the value of <%s>", n.Data)
}

// SwitchToFrame implements widget.Driver.
func (d *Driver) SwitchToFrame(el widget.Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	if n.Data != "iframe" && n.Data != "frame" {
		return fmt.Errorf("htmldom: <%s> is not a frame", n.Data)
	}
	doc, ok := d.frames[n]
	if !ok {
		srcdoc, present := lookupAttr(n, "srcdoc")
		if !present {
			return errors.New("htmldom: only srcdoc frames are supported")
		}
		doc, err = htmlquery.Parse(strings.NewReader(srcdoc))
		if err != nil {
			return fmt.Errorf("htmldom: parse frame document: %w", err)
		}
		d.frames[n] = doc
	}
	d.current = doc
	return nil
}

// SwitchToTopContext implements widget.Driver.
func (d *Driver) SwitchToTopContext() error {
	d.current = d.top
	return nil
}

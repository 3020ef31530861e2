package htmldom

import (
	"strings"

	"golang.org/x/net/html"
)

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attr(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			attrs = append(attrs, a)
		}
	}
	n.Attr = attrs
}

func innerText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func documentOf(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

func enclosingSelect(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "select" {
			return p
		}
	}
	return nil
}

func options(sel *html.Node) []*html.Node {
	return descendants(sel, func(n *html.Node) bool {
		return n.Data == "option"
	})
}

// selectedOption returns the option carrying selected, else the first
// option, as browsers do for single selects.
func selectedOption(sel *html.Node) *html.Node {
	opts := options(sel)
	for _, opt := range opts {
		if _, ok := lookupAttr(opt, "selected"); ok {
			return opt
		}
	}
	if len(opts) > 0 {
		return opts[0]
	}
	return nil
}

func selectOption(sel, target *html.Node) {
	for _, opt := range options(sel) {
		removeAttr(opt, "selected")
	}
	setAttr(target, "selected", "selected")
}

func optionValue(opt *html.Node) string {
	if v, ok := lookupAttr(opt, "value"); ok {
		return v
	}
	return normalize(innerText(opt))
}

var implicitRoles = map[string]string{
	"button":   "button",
	"select":   "combobox",
	"textarea": "textbox",
	"table":    "table",
	"tr":       "row",
	"td":       "cell",
	"th":       "columnheader",
	"ul":       "list",
	"ol":       "list",
	"li":       "listitem",
	"nav":      "navigation",
	"form":     "form",
	"h1":       "heading",
	"h2":       "heading",
	"h3":       "heading",
	"h4":       "heading",
	"h5":       "heading",
	"h6":       "heading",
	"dialog":   "dialog",
}

var inputRoles = map[string]string{
	"":         "textbox",
	"text":     "textbox",
	"email":    "textbox",
	"password": "textbox",
	"search":   "searchbox",
	"checkbox": "checkbox",
	"radio":    "radio",
	"button":   "button",
	"submit":   "button",
	"reset":    "button",
}

func role(n *html.Node) string {
	if r, ok := lookupAttr(n, "role"); ok {
		return r
	}
	switch n.Data {
	case "a":
		if _, ok := lookupAttr(n, "href"); ok {
			return "link"
		}
		return ""
	case "input":
		return inputRoles[strings.ToLower(attr(n, "type"))]
	}
	return implicitRoles[n.Data]
}

func accessibleName(n *html.Node) string {
	if label, ok := lookupAttr(n, "aria-label"); ok {
		return normalize(label)
	}
	if n.Data == "input" {
		if v := attr(n, "value"); v != "" {
			return v
		}
		return attr(n, "placeholder")
	}
	return normalize(innerText(n))
}

package widget_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/widgetry/pkg/driver/htmldom"
	"github.com/entrhq/widgetry/pkg/widget"
)

const versionPage = `<html><body>
<span id="old">legacy label</span>
<span id="new">modern label</span>
</body></html>`

func readChild(t *testing.T, v *widget.View, name string) any {
	t.Helper()
	w, err := v.Child(name)
	require.NoError(t, err)
	value, err := w.(widget.Reader).Read()
	require.NoError(t, err)
	return value
}

func TestVersionPickFollowsVersionChanges(t *testing.T) {
	versioned := widget.DefineView("Versioned",
		widget.Field("label", widget.VersionPick(map[string]widget.Builder{
			widget.Lowest: widget.Text("#old"),
			"2.0.0":       widget.Text("#new"),
		})),
	)

	browser, driver := newBrowser(t, versionPage, htmldom.WithVersion("1.9.9"))
	view, err := browser.View(versioned)
	require.NoError(t, err)

	assert.Equal(t, "legacy label", readChild(t, view, "label"))
	first, err := view.Child("label")
	require.NoError(t, err)
	again, err := view.Child("label")
	require.NoError(t, err)
	assert.Same(t, first, again, "the chosen variant is cached per owner")

	driver.SetVersion("2.0.0")
	assert.Equal(t, "modern label", readChild(t, view, "label"))

	driver.SetVersion("2.5.0")
	assert.Equal(t, "modern label", readChild(t, view, "label"))
}

func TestVersionPickBrowserOptionWins(t *testing.T) {
	versioned := widget.DefineView("Pinned",
		widget.Field("label", widget.VersionPick(map[string]widget.Builder{
			widget.Lowest: widget.Text("#old"),
			"2.0":         widget.Text("#new"),
		})),
	)

	d, err := htmldom.ParseString(versionPage, htmldom.WithVersion("1.0"))
	require.NoError(t, err)
	browser := widget.NewBrowser(d, widget.WithVersion("3.0"))

	view, err := browser.View(versioned)
	require.NoError(t, err)
	assert.Equal(t, "modern label", readChild(t, view, "label"))
}

func TestVersionPickUnresolved(t *testing.T) {
	versioned := widget.DefineView("Unresolved",
		widget.Field("label", widget.VersionPick(map[string]widget.Builder{
			"2.0.0": widget.Text("#new"),
		})),
	)

	browser, _ := newBrowser(t, versionPage, htmldom.WithVersion("1.0"))
	view, err := browser.View(versioned)
	require.NoError(t, err)

	_, err = view.Child("label")
	var unresolved *widget.VersionPickUnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "1.0", unresolved.Version)
	assert.Equal(t, "Unresolved.label", unresolved.Path)
}

const orderPage = `<html><body>
<select id="kind"><option>A</option><option>B</option><option>C</option></select>
<div id="b-panel">bank transfer</div>
<div id="c-panel">cash</div>
<div id="default-panel">card</div>
</body></html>`

func TestConditionalDefault(t *testing.T) {
	order := widget.DefineView("Order",
		widget.Field("kind", widget.Select("#kind")),
		widget.Field("details", widget.Conditional([]string{"kind"},
			widget.Default(widget.Text("#default-panel")),
			widget.When(func(values ...any) bool { return values[0] == "B" }, widget.Text("#b-panel")),
			widget.WhenEquals("C", widget.Text("#c-panel")),
		)),
	)

	browser, _ := newBrowser(t, orderPage)
	view, err := browser.View(order)
	require.NoError(t, err)

	assert.Equal(t, "card", readChild(t, view, "details"), "default applies when no predicate matches")

	_, err = view.Fill(map[string]any{"kind": "B"})
	require.NoError(t, err)
	assert.Equal(t, "bank transfer", readChild(t, view, "details"))

	_, err = view.Fill(map[string]any{"kind": "C"})
	require.NoError(t, err)

	values, err := view.ReadValues()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"kind": "C", "details": "cash"}, widget.ToMap(values))
}

func TestConditionalUnresolved(t *testing.T) {
	order := widget.DefineView("StrictOrder",
		widget.Field("kind", widget.Select("#kind")),
		widget.Field("details", widget.Conditional([]string{"kind"},
			widget.WhenEquals("B", widget.Text("#b-panel")),
		)),
	)

	browser, _ := newBrowser(t, orderPage)
	view, err := browser.View(order)
	require.NoError(t, err)

	_, err = view.Child("details")
	var unresolved *widget.ConditionalUnresolvedError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, []any{"A"}, unresolved.Values)
}

func TestConditionalTwoDefaultsPanics(t *testing.T) {
	assert.Panics(t, func() {
		widget.Conditional([]string{"kind"},
			widget.Default(widget.Text("#a")),
			widget.Default(widget.Text("#b")),
		)
	})
}

const itemsPage = `<html><body>
<div class="item" id="foo"><h2>Foo</h2><input value="1"></div>
<div class="item" id="bar"><h2>Bar</h2><input value="2"></div>
</body></html>`

var itemView = widget.DefineView("Item",
	widget.Parameters("id"),
	widget.Root("//div[@id={id|quote}]"),
	widget.AllParameters(widget.ParamsFromAttribute("div.item", "id", "id")),
	widget.Field("title", widget.Text("h2")),
	widget.Field("qty", widget.Input("input")),
)

func TestParametrizedCallForms(t *testing.T) {
	browser, _ := newBrowser(t, itemsPage)
	items := browser.Parametrized(itemView)

	positional, err := items.Call("foo")
	require.NoError(t, err)
	keyword, err := items.Call(widget.Params{"id": "foo"})
	require.NoError(t, err)

	locA, ok, err := positional.Locator()
	require.NoError(t, err)
	require.True(t, ok)
	locB, _, err := keyword.Locator()
	require.NoError(t, err)

	assert.Equal(t, locA, locB)
	assert.Equal(t, "//div[@id='foo']", locA.Value)
	assert.Equal(t, "Foo", readChild(t, positional, "title"))
	assert.Equal(t, "Foo", readChild(t, keyword, "title"))

	_, err = items.Call()
	assert.Error(t, err, "missing parameter")
	_, err = items.Call("foo", "extra")
	assert.Error(t, err)
	_, err = items.Call(map[string]any{"nope": 1})
	assert.Error(t, err)
}

func TestParametrizedPlainPlaceholder(t *testing.T) {
	browser, _ := newBrowser(t, itemsPage)

	raw := browser.Parametrized(widget.DefineView("RawItem",
		widget.Parameters("id"),
		widget.Root("//div[@id={id}]"),
	))
	positional, err := raw.Call("foo")
	require.NoError(t, err)
	keyword, err := raw.Call(map[string]any{"id": "foo"})
	require.NoError(t, err)

	locA, ok, err := positional.Locator()
	require.NoError(t, err)
	require.True(t, ok)
	locB, _, err := keyword.Locator()
	require.NoError(t, err)
	assert.Equal(t, locA, locB)
	assert.Equal(t, "//div[@id=foo]", locA.Value, "plain placeholders substitute the value verbatim")

	quotedInline := browser.Parametrized(widget.DefineView("InlineQuotedItem",
		widget.Parameters("id"),
		widget.Root("//div[@id='{id}']"),
		widget.Field("title", widget.Text("h2")),
	))
	bar, err := quotedInline.Call("bar")
	require.NoError(t, err)
	assert.Equal(t, "Bar", readChild(t, bar, "title"))
}

func TestParametrizedEnumeration(t *testing.T) {
	page := widget.DefineView("Page",
		widget.Field("items", widget.Parametrized(itemView)),
	)

	browser, _ := newBrowser(t, itemsPage)
	view, err := browser.View(page)
	require.NoError(t, err)
	items := view.MustChild("items").(*widget.ParametrizedField)

	n, err := items.Len()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	last, err := items.Index(-1)
	require.NoError(t, err)
	assert.Equal(t, "Bar", readChild(t, last, "title"))

	_, err = items.Index(2)
	assert.Error(t, err)

	slice, err := items.Slice(0, 1)
	require.NoError(t, err)
	require.Len(t, slice, 1)
	assert.Equal(t, "Foo", readChild(t, slice[0], "title"))

	var titles []any
	require.NoError(t, items.Each(func(v *widget.View) error {
		titles = append(titles, readChild(t, v, "title"))
		return nil
	}))
	assert.Equal(t, []any{"Foo", "Bar"}, titles)

	values, err := view.ReadValues()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"items": []any{
			map[string]any{"title": "Foo", "qty": "1"},
			map[string]any{"title": "Bar", "qty": "2"},
		},
	}, widget.ToMap(values))

	changed, err := view.Fill(map[string]any{"items": []any{nil, map[string]any{"qty": "7"}}})
	require.NoError(t, err)
	assert.True(t, changed)
	bar, err := items.Call("bar")
	require.NoError(t, err)
	assert.Equal(t, "7", readChild(t, bar, "qty"))

	changed, err = view.Fill(values)
	require.NoError(t, err)
	assert.True(t, changed, "restoring the original value is a change")
}

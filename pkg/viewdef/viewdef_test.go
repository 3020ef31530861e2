package viewdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/widgetry/pkg/driver/htmldom"
	"github.com/entrhq/widgetry/pkg/widget"
)

const page = `<html><body>
<form id="profile">
  <input id="username" value="">
  <input id="remember" type="checkbox">
  <select id="kind"><option>A</option><option>B</option></select>
  <div id="address"><input name="street" value=""><input name="city" value=""></div>
  <span id="b-panel">bank</span>
  <span id="default-panel">card</span>
  <span id="old">legacy</span>
  <span id="new">modern</span>
</form>
<table id="stock">
  <thead><tr><th>Item</th><th>Qty</th></tr></thead>
  <tbody>
    <tr><td>apple</td><td><input value="1"></td></tr>
    <tr><td>pear</td><td><input value="2"></td></tr>
  </tbody>
</table>
<div class="item" id="foo"><h2>Foo</h2></div>
<div class="item" id="bar"><h2>Bar</h2></div>
</body></html>`

const views = `
views:
  - name: Profile
    extends: Base
    fields:
      - {name: address, kind: view, view: Address}
      - name: details
        kind: conditional
        on: [kind]
        cases:
          - equals: B
            widget: {kind: text, locator: "#b-panel"}
          - default: true
            widget: {kind: text, locator: "#default-panel"}
      - name: label
        kind: version_pick
        versions:
          "<lowest>": {kind: text, locator: "#old"}
          "2.0": {kind: text, locator: "#new"}

  - name: Base
    root: "#profile"
    fields:
      - {name: username, kind: input, locator: "#username"}
      - {name: remember, kind: checkbox, locator: {id: remember}}
      - {name: kind, kind: select, locator: [css, "#kind"]}

  - name: Address
    root: "#address"
    fields:
      - {name: street, kind: input, locator: {name: street}}
      - {name: city, kind: input, locator: {name: city}}

  - name: Stock
    fields:
      - name: stock
        kind: table
        locator: "#stock"
        associative: item
        columns:
          - column: qty
            widget: {kind: input, locator: input}

  - name: Item
    parameters: [id]
    root: "//div[@id={id|quote}]"
    all_parameters: {locator: div.item, attribute: id}
    fields:
      - {name: title, kind: text, locator: h2}

  - name: Items
    fields:
      - {name: items, kind: parametrized, view: Item}
`

func browser(t *testing.T, version string) *widget.Browser {
	t.Helper()
	d, err := htmldom.ParseString(page, htmldom.WithVersion(version))
	require.NoError(t, err)
	return widget.NewBrowser(d)
}

func TestParseKeepsDefinitionOrder(t *testing.T) {
	reg, err := Parse([]byte(views))
	require.NoError(t, err)
	assert.Equal(t, []string{"Profile", "Base", "Address", "Stock", "Item", "Items"}, reg.Names())

	profile, ok := reg.Get("Profile")
	require.True(t, ok)
	assert.Equal(t, []string{"username", "remember", "kind", "address", "details", "label"}, profile.FieldNames())

	_, ok = reg.Get("Nope")
	assert.False(t, ok)
}

func TestCompiledViewFillAndRead(t *testing.T) {
	reg, err := Parse([]byte(views))
	require.NoError(t, err)
	profile, _ := reg.Get("Profile")

	view, err := browser(t, "1.0").View(profile)
	require.NoError(t, err)

	changed, err := view.Fill(map[string]any{
		"username":       "amy",
		"remember":       true,
		"address.street": "Main",
	})
	require.NoError(t, err)
	assert.True(t, changed)

	values, err := view.ReadValues()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"username": "amy",
		"remember": true,
		"kind":     "A",
		"address":  map[string]any{"street": "Main", "city": ""},
		"details":  "card",
		"label":    "legacy",
	}, widget.ToMap(values))

	_, err = view.Fill(map[string]any{"kind": "B"})
	require.NoError(t, err)
	details, err := view.MustChild("details").(widget.Reader).Read()
	require.NoError(t, err)
	assert.Equal(t, "bank", details)
}

func TestCompiledVersionPick(t *testing.T) {
	reg, err := Parse([]byte(views))
	require.NoError(t, err)
	profile, _ := reg.Get("Profile")

	view, err := browser(t, "2.3").View(profile)
	require.NoError(t, err)
	label, err := view.MustChild("label").(widget.Reader).Read()
	require.NoError(t, err)
	assert.Equal(t, "modern", label)
}

func TestCompiledTable(t *testing.T) {
	reg, err := Parse([]byte(views))
	require.NoError(t, err)
	stock, _ := reg.Get("Stock")

	view, err := browser(t, "1.0").View(stock)
	require.NoError(t, err)

	values, err := view.ReadValues()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"stock": map[string]any{
			"apple": map[string]any{"Item": "apple", "Qty": "1"},
			"pear":  map[string]any{"Item": "pear", "Qty": "2"},
		},
	}, widget.ToMap(values))
}

func TestCompiledParametrized(t *testing.T) {
	reg, err := Parse([]byte(views))
	require.NoError(t, err)
	items, _ := reg.Get("Items")

	view, err := browser(t, "1.0").View(items)
	require.NoError(t, err)

	values, err := view.ReadValues()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"items": []any{
			map[string]any{"title": "Foo"},
			map[string]any{"title": "Bar"},
		},
	}, widget.ToMap(values))
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing name", `views: [{fields: []}]`, "name is required"},
		{"duplicate view", `views: [{name: A}, {name: A}]`, "defined twice"},
		{"unknown view", `views: [{name: A, fields: [{name: b, kind: view, view: B}]}]`, `unknown view "B"`},
		{"extends cycle", `views: [{name: A, extends: B}, {name: B, extends: A}]`, "references itself"},
		{"missing kind", `views: [{name: A, fields: [{name: b, locator: "#b"}]}]`, "kind is required"},
		{"unknown kind", `views: [{name: A, fields: [{name: b, kind: slider, locator: "#b"}]}]`, "unknown kind"},
		{"missing locator", `views: [{name: A, fields: [{name: b, kind: text}]}]`, "locator is required"},
		{"bad pair", `views: [{name: A, fields: [{name: b, kind: text, locator: [css]}]}]`, "pair"},
		{"bad root", `views: [{name: A, root: 42}]`, "root"},
		{"duplicate field", `views: [{name: A, fields: [{name: b, kind: text, locator: p}, {name: b, kind: text, locator: p}]}]`, "twice"},
		{"two defaults", `views: [{name: A, fields: [{name: b, kind: conditional, on: [x], cases: [
			{default: true, widget: {kind: text, locator: p}},
			{default: true, widget: {kind: text, locator: p}}]}]}]`, "more than one default"},
		{"conditional without refs", `views: [{name: A, fields: [{name: b, kind: conditional}]}]`, "on is required"},
		{"empty version pick", `views: [{name: A, fields: [{name: b, kind: version_pick}]}]`, "versions are required"},
		{"column without key", `views: [{name: A, fields: [{name: t, kind: table, locator: table, columns: [{widget: {kind: input, locator: input}}]}]}]`, "column or index"},
		{"ambiguous all_parameters", `views: [{name: A, parameters: [a, b], all_parameters: {locator: div, attribute: id}}]`, "parameter is required"},
		{"invalid yaml", `views: [`, "failed to parse views"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

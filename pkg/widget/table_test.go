package widget_test

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"github.com/entrhq/widgetry/pkg/driver/htmldom"
	"github.com/entrhq/widgetry/pkg/widget"
)

const peoplePage = `<html><body>
<table id="people">
  <thead><tr><th>#</th><th>Name</th><th>First Name</th></tr></thead>
  <tbody>
    <tr data-id="r1"><td>1</td><td>Alice</td><td rowspan="2">Shared</td></tr>
    <tr data-id="r2"><td>2</td><td>Bob</td></tr>
    <tr data-id="r3"><td colspan="2">Carol wide</td><td>C</td></tr>
  </tbody>
</table>
</body></html>`

var peopleView = widget.DefineView("People",
	widget.Field("people", widget.NewTable("#people")),
)

func peopleTable(t *testing.T) *widget.Table {
	t.Helper()
	browser, _ := newBrowser(t, peoplePage)
	view, err := browser.View(peopleView)
	require.NoError(t, err)
	table, ok := view.MustChild("people").(*widget.Table)
	require.True(t, ok)
	return table
}

func TestTableHeaders(t *testing.T) {
	table := peopleTable(t)

	headers, err := table.Headers()
	require.NoError(t, err)
	assert.Equal(t, []string{"#", "Name", "First Name"}, headers)

	idx, ok, err := table.ColumnIndex("first_name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	_, ok, err = table.ColumnIndex("age")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTableGridSpans(t *testing.T) {
	table := peopleTable(t)

	grid, err := table.Grid()
	require.NoError(t, err)
	assert.Equal(t, 3, grid.Len())
	assert.Equal(t, 3, grid.Width())

	origin := grid.At(0, 2)
	covered := grid.At(1, 2)
	require.NotNil(t, origin)
	require.NotNil(t, covered)
	assert.False(t, origin.IsReference())
	assert.True(t, covered.IsReference())
	assert.Equal(t, origin.ID(), covered.ID())
	assert.Same(t, origin, covered.Origin())

	value, err := covered.Read()
	require.NoError(t, err)
	assert.Equal(t, "Shared", value)

	wide := grid.At(2, 1)
	require.NotNil(t, wide)
	assert.Same(t, grid.At(2, 0), wide.Origin())
	rowspan, colspan := wide.Span()
	assert.Equal(t, 1, rowspan)
	assert.Equal(t, 2, colspan)

	assert.Equal(t, "C", mustRead(t, grid.At(2, 2)))
	assert.Nil(t, grid.At(3, 0))
}

func mustRead(t *testing.T, r widget.Reader) any {
	t.Helper()
	v, err := r.Read()
	require.NoError(t, err)
	return v
}

func TestTableRowFilters(t *testing.T) {
	table := peopleTable(t)

	tests := []struct {
		name    string
		filters []widget.RowFilter
		want    []int
	}{
		{"no filters", nil, []int{0, 1, 2}},
		{"where equals", []widget.RowFilter{widget.Where(map[string]any{"name": "Alice"})}, []int{0}},
		{"raw header", []widget.RowFilter{widget.Column("Name").Equals("Bob")}, []int{1}},
		{"contains through span", []widget.RowFilter{widget.Column("name").Contains("Carol")}, []int{2}},
		{"spanned cell matches every covered row", []widget.RowFilter{widget.Column("first_name").Equals("Shared")}, []int{0, 1}},
		{"by index", []widget.RowFilter{widget.ColumnAt(0).Equals("2")}, []int{1}},
		{"index key", []widget.RowFilter{widget.Where(map[string]any{"#0": 1})}, []int{0}},
		{"startswith", []widget.RowFilter{widget.Where(map[string]any{"name__startswith": "B"})}, []int{1}},
		{"endswith", []widget.RowFilter{widget.Column("name").EndsWith("ice")}, []int{0}},
		{"glob", []widget.RowFilter{widget.Where(map[string]any{"name__glob": "*o*"})}, []int{1, 2}},
		{"row attribute", []widget.RowFilter{widget.RowAttr("data-id").Equals("r2")}, []int{1}},
		{"row attribute glob", []widget.RowFilter{widget.RowAttr("data-id").Matches("r[13]")}, []int{0, 2}},
		{"anded", []widget.RowFilter{
			widget.Where(map[string]any{"first_name": "Shared"}),
			widget.RowAttr("data-id").EndsWith("2"),
		}, []int{1}},
		{"nothing", []widget.RowFilter{widget.Column("name").Equals("Zed")}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := table.RowList(tt.filters...)
			require.NoError(t, err)
			var got []int
			for _, row := range rows {
				got = append(got, row.Index())
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTableRowLookup(t *testing.T) {
	table := peopleTable(t)

	row, err := table.Row(widget.Where(map[string]any{"name": "Alice"}))
	require.NoError(t, err)
	assert.Equal(t, 0, row.Index())

	_, err = table.Row(widget.Where(map[string]any{"name": "Carol"}))
	var notFound *widget.RowNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, notFound.Error(), "Carol")

	_, err = table.Row(widget.Where(map[string]any{"age": "3"}))
	assert.Error(t, err)

	_, err = table.Row(widget.Where(map[string]any{"name__near": "x"}))
	assert.Error(t, err)

	last, err := table.RowAt(-1)
	require.NoError(t, err)
	assert.Equal(t, 2, last.Index())

	_, err = table.RowAt(5)
	assert.ErrorAs(t, err, &notFound)
}

func TestTableRowRead(t *testing.T) {
	table := peopleTable(t)

	row, err := table.RowAt(1)
	require.NoError(t, err)
	values, err := row.ReadValues()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"#": "2", "Name": "Bob", "First Name": "Shared"}, widget.ToMap(values))

	cell, err := row.Cell("first_name")
	require.NoError(t, err)
	assert.True(t, cell.IsReference())

	read, err := table.Read()
	require.NoError(t, err)
	list, ok := read.([]*widget.Values)
	require.True(t, ok)
	assert.Len(t, list, 3)
}

func TestTableRowsAreRestartable(t *testing.T) {
	browser, driver := newBrowser(t, peoplePage)
	view, err := browser.View(peopleView)
	require.NoError(t, err)
	table := view.MustChild("people").(*widget.Table)

	seq := table.Rows()
	count := func() int {
		n := 0
		for _, err := range seq {
			require.NoError(t, err)
			n++
		}
		return n
	}
	assert.Equal(t, 3, count())

	appendRow(t, driver, "#people", `<tr data-id="r4"><td>4</td><td>Dan</td><td>D</td></tr>`)
	assert.Equal(t, 4, count(), "each traversal re-reads the table")
}

// appendRow parses markup in the context of the table body and appends it.
func appendRow(t *testing.T, driver *htmldom.Driver, table, markup string) {
	t.Helper()
	id := strings.TrimPrefix(table, "#")
	tbody := htmlquery.FindOne(driver.Document(), "//table[@id='"+id+"']/tbody")
	require.NotNil(t, tbody)
	nodes, err := html.ParseFragment(strings.NewReader(markup), tbody)
	require.NoError(t, err)
	for _, n := range nodes {
		tbody.AppendChild(n)
	}
}

const rankedPage = `<html><body>
<table id="with-head">
  <thead><tr><th>#</th><th>Name</th></tr></thead>
  <tbody>
    <tr><th scope="row">1</th><td>Alice</td></tr>
    <tr><th scope="row">2</th><td>Bob</td></tr>
  </tbody>
</table>
<table id="no-head">
  <tr><th>#</th><th>Name</th></tr>
  <tr><th scope="row">1</th><td>Alice</td></tr>
  <tr><th scope="row">2</th><td>Bob</td></tr>
</table>
</body></html>`

func TestTableRowHeaderCellsAreData(t *testing.T) {
	ranked := widget.DefineView("Ranked",
		widget.Field("with_head", widget.NewTable("#with-head")),
		widget.Field("no_head", widget.NewTable("#no-head")),
	)
	browser, _ := newBrowser(t, rankedPage)
	view, err := browser.View(ranked)
	require.NoError(t, err)

	for _, name := range []string{"with_head", "no_head"} {
		t.Run(name, func(t *testing.T) {
			table := view.MustChild(name).(*widget.Table)

			headers, err := table.Headers()
			require.NoError(t, err)
			assert.Equal(t, []string{"#", "Name"}, headers)

			count, err := table.RowCount()
			require.NoError(t, err)
			assert.Equal(t, 2, count)

			row, err := table.Row(widget.Where(map[string]any{"name": "Alice"}))
			require.NoError(t, err)
			assert.Equal(t, 0, row.Index())

			read, err := table.Read()
			require.NoError(t, err)
			list := read.([]*widget.Values)
			require.Len(t, list, 2)
			assert.Equal(t, map[string]any{"#": "2", "Name": "Bob"}, widget.ToMap(list[1]))
		})
	}
}

const contactsPage = `<html><body>
<table id="contacts">
  <thead>
    <tr><th rowspan="2">Name</th><th colspan="2">Contact</th></tr>
    <tr><th>Email</th><th>Phone</th></tr>
  </thead>
  <tbody><tr><td>Alice</td><td>a@example.com</td><td>555</td></tr></tbody>
</table>
</body></html>`

func TestTableStackedHeaderRows(t *testing.T) {
	contacts := widget.DefineView("Contacts",
		widget.Field("contacts", widget.NewTable("#contacts")),
	)
	browser, _ := newBrowser(t, contactsPage)
	view, err := browser.View(contacts)
	require.NoError(t, err)
	table := view.MustChild("contacts").(*widget.Table)

	headers, err := table.Headers()
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "Email", "Phone"}, headers)

	row, err := table.Row(widget.Column("phone").Equals("555"))
	require.NoError(t, err)
	values, err := row.ReadValues()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Name": "Alice", "Email": "a@example.com", "Phone": "555"}, widget.ToMap(values))
}

const stockPage = `<html><body>
<table id="stock">
  <thead><tr><th>Item</th><th>Qty</th></tr></thead>
  <tbody>
    <tr><td>apple</td><td><input value="1"></td></tr>
    <tr><td>pear</td><td><input value="2"></td></tr>
  </tbody>
</table>
<button id="add">add</button>
</body></html>`

func TestTableAssociative(t *testing.T) {
	stock := widget.DefineView("Stock",
		widget.Field("stock", widget.NewTable("#stock",
			widget.ColumnWidget("qty", widget.Input("input")),
			widget.Associative("item"),
		)),
	)

	browser, _ := newBrowser(t, stockPage)
	view, err := browser.View(stock)
	require.NoError(t, err)

	values, err := view.ReadValues()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"stock": map[string]any{
			"apple": map[string]any{"Item": "apple", "Qty": "1"},
			"pear":  map[string]any{"Item": "pear", "Qty": "2"},
		},
	}, widget.ToMap(values))

	changed, err := view.Fill(map[string]any{"stock": map[string]any{"pear": map[string]any{"Qty": "5", "Item": "ignored"}}})
	require.NoError(t, err)
	assert.True(t, changed)

	table := view.MustChild("stock").(*widget.Table)
	row, err := table.Row(widget.Column("item").Equals("pear"))
	require.NoError(t, err)
	qty, err := row.Cell("qty")
	require.NoError(t, err)
	assert.Equal(t, "5", mustRead(t, qty))

	changed, err = view.Fill(map[string]any{"stock": map[string]any{"pear": map[string]any{"qty": "5"}}})
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = table.Fill(map[string]any{"banana": map[string]any{"qty": "1"}})
	var notFound *widget.RowNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestTablePositionalFillWithRowAdder(t *testing.T) {
	stock := widget.DefineView("Stock",
		widget.Field("stock", widget.NewTable("#stock",
			widget.ColumnWidgetAt(1, widget.Input("input")),
			widget.RowAdder(func(table *widget.Table) error {
				view := table.Parent().(*widget.View)
				return view.MustChild("add").(*widget.ButtonWidget).Click()
			}),
		)),
		widget.Field("add", widget.Button("#add")),
	)

	browser, _ := newBrowser(t, stockPage, htmldom.WithClickHandler(func(d *htmldom.Driver, el *html.Node) error {
		if htmlquery.SelectAttr(el, "id") != "add" {
			return nil
		}
		appendRow(t, d, "#stock", `<tr><td>new</td><td><input value=""></td></tr>`)
		return nil
	}))

	view, err := browser.View(stock)
	require.NoError(t, err)
	table := view.MustChild("stock").(*widget.Table)

	changed, err := table.Fill([]any{
		map[string]any{"Qty": "1"},
		map[string]any{"#1": "2"},
	})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = table.Fill([]any{nil, nil, map[string]any{"qty": "9"}})
	require.NoError(t, err)
	assert.True(t, changed)

	count, err := table.RowCount()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	row, err := table.RowAt(2)
	require.NoError(t, err)
	values, err := row.ReadValues()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Item": "new", "Qty": "9"}, widget.ToMap(values))

	plain := widget.DefineView("Plain", widget.Field("stock", widget.NewTable("#stock")))
	view, err = browser.View(plain)
	require.NoError(t, err)
	_, err = view.MustChild("stock").(*widget.Table).Fill([]any{nil, nil, nil, nil})
	assert.Error(t, err, "no row adder")
}

func TestAttributize(t *testing.T) {
	tests := map[string]string{
		"First Name":    "first_name",
		"  E-mail  ":    "e_mail",
		"#":             "",
		"Total (USD)":   "total_usd",
		"already_snake": "already_snake",
	}
	for in, want := range tests {
		assert.Equal(t, want, widget.Attributize(in), in)
	}
}

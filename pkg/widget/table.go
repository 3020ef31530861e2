package widget

import (
	"errors"
	"fmt"
	"iter"
	"sort"
	"strconv"

	"github.com/entrhq/widgetry/pkg/locator"
)

// Default table structure locators. The x/net/html parser and browsers both
// insert tbody, but hand-written fixtures sometimes place rows directly
// under the table. Body rows are the rows holding data cells, so a leading
// <th scope="row"> does not turn a row into a header. Without a thead, the
// header is the run of th-only rows before the first data row.
var (
	defaultHeaderRow = locator.XPath("./thead/tr" +
		" | ./tbody/tr[th and not(td)][not(preceding-sibling::tr[td])]" +
		" | ./tr[th and not(td)][not(preceding-sibling::tr[td])]")
	defaultBodyRows = locator.XPath("./tbody/tr[td] | ./tr[td]")
	headerCells      = locator.XPath("./th | ./td")
	bodyCells        = locator.XPath("./td | ./th")
)

// RowAdderFunc adds a new row to the table, for example by clicking an
// "add" button. Positional fills call it when more rows are needed.
type RowAdderFunc func(t *Table) error

// TableOption configures a table declaration.
type TableOption func(*tableConfig)

type tableConfig struct {
	header   locator.Locator
	rows     locator.Locator
	byName   map[string]Builder
	byIndex  map[int]Builder
	assoc    string
	rowAdder RowAdderFunc
	err      error
}

// HeaderRow overrides the locator of the header rows, relative to the table.
// When it matches several rows they are merged column by column.
func HeaderRow(loc any) TableOption {
	return func(c *tableConfig) {
		resolved, err := locator.Resolve(loc)
		if err != nil {
			c.err = err
			return
		}
		c.header = resolved
	}
}

// BodyRows overrides the locator matching body rows, relative to the table.
func BodyRows(loc any) TableOption {
	return func(c *tableConfig) {
		resolved, err := locator.Resolve(loc)
		if err != nil {
			c.err = err
			return
		}
		c.rows = resolved
	}
}

// ColumnWidget embeds a widget in every cell of the named column. The
// widget's locator is relative to the cell.
func ColumnWidget(column string, builder Builder) TableOption {
	return func(c *tableConfig) {
		c.byName[column] = builder
	}
}

// ColumnWidgetAt embeds a widget in every cell of the column at index.
func ColumnWidgetAt(index int, builder Builder) TableOption {
	return func(c *tableConfig) {
		c.byIndex[index] = builder
	}
}

// Associative keys Read and Fill by the text of column.
func Associative(column string) TableOption {
	return func(c *tableConfig) {
		c.assoc = column
	}
}

// RowAdder registers the function positional fills use to add rows.
func RowAdder(fn RowAdderFunc) TableOption {
	return func(c *tableConfig) {
		c.rowAdder = fn
	}
}

type tableBuilder struct {
	loc locator.Locator
	cfg *tableConfig
	err error
}

// NewTable declares a table widget anchored at loc.
func NewTable(loc any, opts ...TableOption) Builder {
	resolved, err := locator.Resolve(loc)
	cfg := &tableConfig{
		header:  defaultHeaderRow,
		rows:    defaultBodyRows,
		byName:  make(map[string]Builder),
		byIndex: make(map[int]Builder),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err == nil {
		err = cfg.err
	}
	return &tableBuilder{loc: resolved, cfg: cfg, err: err}
}

func (tb *tableBuilder) Build(parent Widget) (Widget, error) {
	if tb.err != nil {
		return nil, tb.err
	}
	if parent == nil {
		return nil, fmt.Errorf("table: %w", errNoParent)
	}
	base := NewBase(parent, tb.loc)
	base.kind = "Table"
	return &Table{Base: base, cfg: tb.cfg}, nil
}

// Table is an HTML table. Its grid, headers and rows are rebuilt from the
// live document on every call.
type Table struct {
	Base
	cfg *tableConfig
}

// Headers returns the header texts in column order, duplicates included.
// A table without a header row has no headers.
func (t *Table) Headers() ([]string, error) {
	var headers []string
	err := t.Do(func(d Driver, scope Element) error {
		var err error
		headers, err = t.readHeaders(d, scope)
		return err
	})
	return headers, err
}

func (t *Table) readHeaders(d Driver, scope Element) ([]string, error) {
	header, err := t.render(t.cfg.header)
	if err != nil {
		return nil, err
	}
	rows, err := d.Locate(header, scope)
	if err != nil {
		return nil, fmt.Errorf("locate header row of %s: %w", t.Path(), err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Stacked header rows are merged on a span-aware grid; each column takes
	// the label of the lowest non-empty cell starting there, so group labels
	// give way to the leaf labels below them.
	var headers []string
	var covered []int
	for _, row := range rows {
		cells, err := d.Locate(headerCells, row)
		if err != nil {
			return nil, err
		}
		col := 0
		for _, cell := range cells {
			for col < len(covered) && covered[col] > 0 {
				col++
			}
			text, err := d.Text(cell)
			if err != nil {
				return nil, err
			}
			rowspan := spanAttr(d, cell, "rowspan")
			colspan := spanAttr(d, cell, "colspan")
			for i := 0; i < colspan; i++ {
				c := col + i
				for len(headers) <= c {
					headers = append(headers, "")
					covered = append(covered, 0)
				}
				if i == 0 && text != "" {
					headers[c] = text
				}
				covered[c] = rowspan
			}
			col += colspan
		}
		for c := range covered {
			if covered[c] > 0 {
				covered[c]--
			}
		}
	}
	return headers, nil
}

// ColumnIndex returns the index of the first column whose header, raw or
// attributized, equals name. "#i" keys address columns by index.
func (t *Table) ColumnIndex(name string) (int, bool, error) {
	headers, err := t.Headers()
	if err != nil {
		return 0, false, err
	}
	i, ok := columnIndex(headers, name)
	return i, ok, nil
}

// columnKeys returns the key each column reads under: the header text, or
// "#i" for unnamed and duplicate columns.
func columnKeys(headers []string, width int) []string {
	n := max(width, len(headers))
	keys := make([]string, n)
	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		key := ""
		if i < len(headers) {
			key = headers[i]
		}
		if key == "" || seen[key] {
			key = "#" + strconv.Itoa(i)
		}
		seen[key] = true
		keys[i] = key
	}
	return keys
}

func (t *Table) columnBuilder(headers []string, col int) Builder {
	if b, ok := t.cfg.byIndex[col]; ok {
		return b
	}
	if col >= len(headers) {
		return nil
	}
	header := headers[col]
	if b, ok := t.cfg.byName[header]; ok {
		return b
	}
	if b, ok := t.cfg.byName[Attributize(header)]; ok {
		return b
	}
	return nil
}

// snapshot captures the headers and, for every body row, the cell texts by
// grid column and the requested row attributes, in one pass.
func (t *Table) snapshot(attrs []string) (*tableSnapshot, error) {
	snap := &tableSnapshot{}
	err := t.Do(func(d Driver, scope Element) error {
		headers, err := t.readHeaders(d, scope)
		if err != nil {
			return err
		}
		snap.headers = headers
		layout, err := t.layout(d, scope, true)
		if err != nil {
			return err
		}
		for r, row := range layout.rows {
			rs := &rowSnapshot{cells: make([]string, layout.width), attrs: make(map[string]*string)}
			for c := 0; c < layout.width; c++ {
				if cell := layout.at(r, c); cell != nil {
					rs.cells[c] = cell.text
				}
			}
			for _, name := range attrs {
				value, ok, err := d.Attribute(row, name)
				if err != nil {
					return err
				}
				if ok {
					rs.attrs[name] = &value
				}
			}
			snap.rows = append(snap.rows, rs)
		}
		return nil
	})
	return snap, err
}

// Rows returns a lazy sequence of the body rows matching every filter. The
// table is re-read each time the sequence is ranged over.
func (t *Table) Rows(filters ...RowFilter) iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		snap, err := t.snapshot(attrNames(filters))
		if err != nil {
			yield(nil, err)
			return
		}
		for _, f := range filters {
			if err := f.bind(snap); err != nil {
				yield(nil, fmt.Errorf("filter %s: %w", t.Path(), err))
				return
			}
		}
		for i, rs := range snap.rows {
			matched := true
			for _, f := range filters {
				ok, err := f.match(rs)
				if err != nil {
					yield(nil, err)
					return
				}
				if !ok {
					matched = false
					break
				}
			}
			if matched && !yield(t.newRow(i), nil) {
				return
			}
		}
	}
}

// RowList collects Rows into a slice.
func (t *Table) RowList(filters ...RowFilter) ([]*Row, error) {
	var rows []*Row
	for row, err := range t.Rows(filters...) {
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Row returns the first row matching every filter.
func (t *Table) Row(filters ...RowFilter) (*Row, error) {
	for row, err := range t.Rows(filters...) {
		if err != nil {
			return nil, err
		}
		return row, nil
	}
	return nil, &RowNotFoundError{Table: t.Path(), Filters: filterStrings(filters)}
}

// RowCount returns the number of body rows.
func (t *Table) RowCount() (int, error) {
	count := 0
	err := t.FindAll(t.cfg.rows, func(_ Driver, els []Element) error {
		count = len(els)
		return nil
	})
	return count, err
}

// RowAt returns the body row at index. Negative indexes count from the end.
func (t *Table) RowAt(index int) (*Row, error) {
	count, err := t.RowCount()
	if err != nil {
		return nil, err
	}
	if index < 0 {
		index += count
	}
	if index < 0 || index >= count {
		return nil, &RowNotFoundError{Table: t.Path(), Filters: []string{"index " + strconv.Itoa(index)}}
	}
	return t.newRow(index), nil
}

func (t *Table) newRow(index int) *Row {
	base := NewBase(t, t.cfg.rows)
	base.kind = "Row"
	base.name = "row[" + strconv.Itoa(index) + "]"
	base.nth = index
	return &Row{Base: base, table: t, index: index}
}

// Read returns one Values per row, or in associative mode Values keyed by
// the key column's text.
func (t *Table) Read() (any, error) {
	rows, err := t.RowList()
	if err != nil {
		return nil, err
	}
	if t.cfg.assoc != "" {
		return t.readAssociative(rows)
	}
	out := make([]*Values, 0, len(rows))
	for _, row := range rows {
		values, err := row.ReadValues()
		if err != nil {
			return nil, err
		}
		out = append(out, values)
	}
	return out, nil
}

func (t *Table) readAssociative(rows []*Row) (*Values, error) {
	col, ok, err := t.ColumnIndex(t.cfg.assoc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: no key column %q", t.Path(), t.cfg.assoc)
	}
	out := NewValues()
	for _, row := range rows {
		cell, err := row.CellAt(col)
		if err != nil {
			return nil, err
		}
		key, err := cell.Text()
		if err != nil {
			return nil, err
		}
		if _, dup := out.Get(key); dup {
			return nil, fmt.Errorf("%s: key %q is not unique", t.Path(), key)
		}
		values, err := row.ReadValues()
		if err != nil {
			return nil, err
		}
		out.Set(key, values)
	}
	return out, nil
}

// Fill fills rows positionally from a list of mappings, or in associative
// mode from a mapping of key to row values.
func (t *Table) Fill(value any) (bool, error) {
	if t.cfg.assoc != "" {
		return t.fillAssociative(value)
	}
	items, ok := asList(value)
	if !ok {
		return false, &FillTypeMismatchError{Path: t.Path(), Widget: fmt.Sprintf("table fill with %T", value)}
	}
	count, err := t.RowCount()
	if err != nil {
		return false, err
	}
	changed := false
	for i, item := range items {
		if i >= count {
			if t.cfg.rowAdder == nil {
				return changed, fmt.Errorf("%s: %d rows requested but only %d exist", t.Path(), len(items), count)
			}
			if err := t.cfg.rowAdder(t); err != nil {
				return changed, fmt.Errorf("%s: add row: %w", t.Path(), err)
			}
			changed = true
			if count, err = t.RowCount(); err != nil {
				return changed, err
			}
			if i >= count {
				return changed, fmt.Errorf("%s: row adder did not add a row", t.Path())
			}
		}
		if item == nil {
			continue
		}
		c, err := t.newRow(i).Fill(item)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	return changed, nil
}

func (t *Table) fillAssociative(value any) (bool, error) {
	keys, entries, ok := orderedEntries(value)
	if !ok {
		return false, &FillTypeMismatchError{Path: t.Path(), Widget: fmt.Sprintf("associative fill with %T", value)}
	}
	headers, err := t.Headers()
	if err != nil {
		return false, err
	}
	keyCol, ok := columnIndex(headers, t.cfg.assoc)
	if !ok {
		return false, fmt.Errorf("%s: no key column %q", t.Path(), t.cfg.assoc)
	}
	changed := false
	for _, key := range keys {
		row, err := t.Row(ColumnAt(keyCol).Equals(key))
		if err != nil {
			return changed, err
		}
		rowValues, ok := asMap(entries[key])
		if !ok {
			return changed, fmt.Errorf("%s: values for %q must be a mapping", t.Path(), key)
		}
		rest := make(map[string]any, len(rowValues))
		for k, v := range rowValues {
			if col, ok := columnIndex(headers, k); ok && col == keyCol {
				continue
			}
			rest[k] = v
		}
		c, err := row.Fill(rest)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	return changed, nil
}

// orderedEntries returns the keys of a mapping in its own order when it has
// one, else sorted.
func orderedEntries(value any) ([]string, map[string]any, bool) {
	if v, ok := value.(*Values); ok && v != nil {
		keys := make([]string, 0, v.Len())
		for pair := v.Oldest(); pair != nil; pair = pair.Next() {
			keys = append(keys, pair.Key)
		}
		m, _ := asMap(v)
		return keys, m, true
	}
	m, ok := asMap(value)
	if !ok {
		return nil, nil, false
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, m, true
}

// Row is one body row of a table, addressed by position.
type Row struct {
	Base
	table *Table
	index int
}

// Index returns the row's position among the body rows.
func (r *Row) Index() int {
	return r.index
}

// Table returns the table the row belongs to.
func (r *Row) Table() *Table {
	return r.table
}

// Cells returns the row's grid cells. Positions covered by a span from
// another cell hold reference cells.
func (r *Row) Cells() ([]*Cell, error) {
	grid, err := r.table.Grid()
	if err != nil {
		return nil, err
	}
	if r.index >= len(grid.cells) {
		return nil, &RowNotFoundError{Table: r.table.Path(), Filters: []string{"index " + strconv.Itoa(r.index)}}
	}
	return grid.cells[r.index], nil
}

// CellAt returns the cell in column col.
func (r *Row) CellAt(col int) (*Cell, error) {
	cells, err := r.Cells()
	if err != nil {
		return nil, err
	}
	if col < 0 || col >= len(cells) || cells[col] == nil {
		return nil, fmt.Errorf("%s has no cell in column %d", r.Path(), col)
	}
	return cells[col], nil
}

// Cell returns the cell in the column named name.
func (r *Row) Cell(name string) (*Cell, error) {
	col, ok, err := r.table.ColumnIndex(name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%s: no column %q", r.table.Path(), name)
	}
	return r.CellAt(col)
}

// Read is ReadValues.
func (r *Row) Read() (any, error) {
	return r.ReadValues()
}

// ReadValues returns the row's cells keyed by header name. Unnamed and
// duplicate columns are keyed "#i".
func (r *Row) ReadValues() (*Values, error) {
	headers, err := r.table.Headers()
	if err != nil {
		return nil, err
	}
	cells, err := r.Cells()
	if err != nil {
		return nil, err
	}
	keys := columnKeys(headers, len(cells))
	values := NewValues()
	for col, cell := range cells {
		if cell == nil {
			continue
		}
		value, err := cell.Read()
		if errors.Is(err, ErrSkip) {
			continue
		}
		if err != nil {
			return nil, err
		}
		values.Set(keys[col], value)
	}
	return values, nil
}

// Fill fills cells from a mapping keyed by header name, attributized header
// name or "#i". Cells are filled in column order. Unknown keys and cells
// without a column widget are logged and skipped.
func (r *Row) Fill(value any) (bool, error) {
	m, ok := asMap(value)
	if !ok {
		return false, &FillTypeMismatchError{Path: r.Path(), Widget: fmt.Sprintf("row fill with %T", value)}
	}
	headers, err := r.table.Headers()
	if err != nil {
		return false, err
	}
	cells, err := r.Cells()
	if err != nil {
		return false, err
	}
	keys := columnKeys(headers, len(cells))

	logger := r.browser.logger
	byCol := make(map[int]any, len(m))
	for key, v := range m {
		if v == nil {
			continue
		}
		col, ok := rowColumn(headers, keys, key)
		if !ok || col >= len(cells) || cells[col] == nil {
			logger.Warnf("%s has no column %q, ignoring it", r.Path(), key)
			continue
		}
		byCol[col] = v
	}
	cols := make([]int, 0, len(byCol))
	for col := range byCol {
		cols = append(cols, col)
	}
	sort.Ints(cols)

	changed := false
	for _, col := range cols {
		c, err := cells[col].Fill(byCol[col])
		var mismatch *FillTypeMismatchError
		if errors.As(err, &mismatch) {
			logger.Warnf("skipping fill: %v", mismatch)
			continue
		}
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	return changed, nil
}

func rowColumn(headers, keys []string, key string) (int, bool) {
	for i, k := range keys {
		if k == key {
			return i, true
		}
	}
	return columnIndex(headers, key)
}

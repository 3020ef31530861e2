package widget

import (
	"fmt"
	"strconv"
	"strings"
)

type layoutCell struct {
	row, col         int
	srcRow, srcIndex int
	rowspan, colspan int
	origin           *layoutCell
	text             string
}

// tableLayout places the source cells of every body row on an R×C grid.
// Row element handles are only valid inside the Do call that built it.
type tableLayout struct {
	rows  []Element
	width int
	grid  [][]*layoutCell
}

func (l *tableLayout) at(r, c int) *layoutCell {
	if r < 0 || r >= len(l.grid) || c < 0 || c >= len(l.grid[r]) {
		return nil
	}
	return l.grid[r][c]
}

func (l *tableLayout) set(r, c int, cell *layoutCell) {
	for len(l.grid[r]) <= c {
		l.grid[r] = append(l.grid[r], nil)
	}
	l.grid[r][c] = cell
	l.width = max(l.width, c+1)
}

func spanAttr(d Driver, el Element, name string) int {
	value, ok, err := d.Attribute(el, name)
	if err != nil || !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (t *Table) layout(d Driver, scope Element, withText bool) (*tableLayout, error) {
	rowsLoc, err := t.render(t.cfg.rows)
	if err != nil {
		return nil, err
	}
	rows, err := d.Locate(rowsLoc, scope)
	if err != nil {
		return nil, fmt.Errorf("locate rows of %s: %w", t.Path(), err)
	}
	l := &tableLayout{rows: rows, grid: make([][]*layoutCell, len(rows))}
	for r, row := range rows {
		cells, err := d.Locate(bodyCells, row)
		if err != nil {
			return nil, fmt.Errorf("locate cells of %s row %d: %w", t.Path(), r, err)
		}
		c := 0
		for idx, el := range cells {
			for l.at(r, c) != nil {
				c++
			}
			origin := &layoutCell{
				row: r, col: c,
				srcRow: r, srcIndex: idx,
				rowspan: spanAttr(d, el, "rowspan"),
				colspan: spanAttr(d, el, "colspan"),
			}
			if withText {
				if origin.text, err = d.Text(el); err != nil {
					return nil, err
				}
			}
			for dr := 0; dr < origin.rowspan && r+dr < len(rows); dr++ {
				for dc := 0; dc < origin.colspan; dc++ {
					if dr == 0 && dc == 0 {
						l.set(r, c, origin)
						continue
					}
					l.set(r+dr, c+dc, &layoutCell{
						row: r + dr, col: c + dc,
						srcRow: r, srcIndex: idx,
						rowspan: origin.rowspan, colspan: origin.colspan,
						origin: origin,
						text:   origin.text,
					})
				}
			}
			c += origin.colspan
		}
	}
	return l, nil
}

// Grid is a snapshot of a table's cell layout. Cells keep no element
// handles; reading or filling one locates it afresh.
type Grid struct {
	headers []string
	cells   [][]*Cell
	width   int
}

// Headers returns the header texts the grid was built with.
func (g *Grid) Headers() []string {
	return append([]string(nil), g.headers...)
}

// Len returns the number of rows.
func (g *Grid) Len() int {
	return len(g.cells)
}

// Width returns the number of columns.
func (g *Grid) Width() int {
	return g.width
}

// At returns the cell at (row, col), or nil for positions no cell covers.
func (g *Grid) At(row, col int) *Cell {
	if row < 0 || row >= len(g.cells) || col < 0 || col >= len(g.cells[row]) {
		return nil
	}
	return g.cells[row][col]
}

// Grid builds the R×C cell grid from the live table. Cells spanning more
// than one position are represented at every covered position by
// reference cells resolving to the origin.
func (t *Table) Grid() (*Grid, error) {
	var (
		headers []string
		layout  *tableLayout
	)
	err := t.Do(func(d Driver, scope Element) error {
		var err error
		if headers, err = t.readHeaders(d, scope); err != nil {
			return err
		}
		layout, err = t.layout(d, scope, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	grid := &Grid{headers: headers, width: layout.width, cells: make([][]*Cell, len(layout.grid))}
	rows := make([]*Row, len(layout.grid))
	for r := range rows {
		rows[r] = t.newRow(r)
	}
	origins := make(map[*layoutCell]*Cell)
	for r := range layout.grid {
		grid.cells[r] = make([]*Cell, layout.width)
		for c := 0; c < layout.width; c++ {
			lc := layout.at(r, c)
			if lc == nil || lc.origin != nil {
				continue
			}
			base := NewBase(rows[lc.srcRow], bodyCells)
			base.kind = "Cell"
			base.name = "cell[" + strconv.Itoa(c) + "]"
			base.nth = lc.srcIndex
			cell := &Cell{
				Base:    base,
				table:   t,
				row:     r,
				col:     c,
				rowspan: lc.rowspan,
				colspan: lc.colspan,
				builder: t.columnBuilder(headers, c),
			}
			origins[lc] = cell
			grid.cells[r][c] = cell
		}
	}
	for r := range layout.grid {
		for c := 0; c < layout.width; c++ {
			lc := layout.at(r, c)
			if lc == nil || lc.origin == nil {
				continue
			}
			origin := origins[lc.origin]
			grid.cells[r][c] = &Cell{
				Base:    origin.Base,
				table:   t,
				row:     r,
				col:     c,
				rowspan: origin.rowspan,
				colspan: origin.colspan,
				origin:  origin,
			}
		}
	}
	return grid, nil
}

// Cell is one grid position of a table. A reference cell covers a position
// spanned by another cell and resolves every operation to that origin.
type Cell struct {
	Base
	table            *Table
	row, col         int
	rowspan, colspan int
	origin           *Cell
	builder          Builder
}

// Position returns the cell's grid coordinates.
func (c *Cell) Position() (row, col int) {
	return c.row, c.col
}

// Span returns the origin's rowspan and colspan.
func (c *Cell) Span() (rowspan, colspan int) {
	return c.rowspan, c.colspan
}

// IsReference reports whether the position is covered by another cell's span.
func (c *Cell) IsReference() bool {
	return c.origin != nil
}

// Origin returns the cell that owns the content at this position.
func (c *Cell) Origin() *Cell {
	if c.origin != nil {
		return c.origin
	}
	return c
}

// ID identifies the logical cell: every position covered by a span shares
// the ID of its origin.
func (c *Cell) ID() string {
	o := c.Origin()
	return fmt.Sprintf("%d:%d", o.row, o.col)
}

// Widget returns the column widget embedded in the cell, or nil when its
// column declares none.
func (c *Cell) Widget() (Widget, error) {
	o := c.Origin()
	if o.builder == nil {
		return nil, nil
	}
	w, err := o.builder.Build(o)
	if err != nil {
		return nil, fmt.Errorf("build %s widget: %w", o.Path(), err)
	}
	w.core().name = "widget"
	return w, nil
}

// Read reads through the column widget when declared, else the cell text.
func (c *Cell) Read() (any, error) {
	o := c.Origin()
	w, err := o.Widget()
	if err != nil {
		return nil, err
	}
	if reader, ok := w.(Reader); ok {
		return reader.Read()
	}
	return o.Text()
}

// Fill fills through the column widget. Cells without a fillable widget
// report FillTypeMismatchError.
func (c *Cell) Fill(value any) (bool, error) {
	o := c.Origin()
	w, err := o.Widget()
	if err != nil {
		return false, err
	}
	filler, ok := w.(Filler)
	if !ok {
		return false, &FillTypeMismatchError{Path: o.Path(), Widget: "text cell"}
	}
	return filler.Fill(value)
}

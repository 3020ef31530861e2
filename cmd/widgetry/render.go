package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/entrhq/widgetry/pkg/widget"
)

var (
	salmonPink = lipgloss.Color("#FFB3BA")
	mutedGray  = lipgloss.Color("#6B7280")

	headerStyle = lipgloss.NewStyle().
			Foreground(salmonPink).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().
			Padding(0, 1)
)

// writeJSON prints values as indented JSON in field order.
func writeJSON(w io.Writer, values *widget.Values, color bool) error {
	out, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode values: %w", err)
	}
	if !color {
		_, err = fmt.Fprintln(w, string(out))
		return err
	}
	if err := quick.Highlight(w, string(out)+"\n", "json", "terminal256", "monokai"); err != nil {
		return fmt.Errorf("highlight: %w", err)
	}
	return nil
}

// renderTable reads every body row and lays it out under the table's
// headers. Spanned cells repeat their origin's value. Columns without a
// header are labelled by position, "#0", "#1" and so on.
func renderTable(t *widget.Table) (string, error) {
	headers, err := t.Headers()
	if err != nil {
		return "", err
	}
	rows, err := t.RowList()
	if err != nil {
		return "", err
	}

	width := len(headers)
	cellRows := make([][]*widget.Cell, len(rows))
	for i, row := range rows {
		cells, err := row.Cells()
		if err != nil {
			return "", err
		}
		cellRows[i] = cells
		width = max(width, len(cells))
	}

	labels := make([]string, width)
	for col := range labels {
		if col < len(headers) && headers[col] != "" {
			labels[col] = headers[col]
		} else {
			labels[col] = "#" + strconv.Itoa(col)
		}
	}

	data := make([][]string, 0, len(rows))
	for i, row := range rows {
		line := make([]string, width)
		for col, cell := range cellRows[i] {
			if cell == nil {
				continue
			}
			value, err := cell.Read()
			if err != nil {
				return "", fmt.Errorf("row %d column %d: %w", row.Index(), col, err)
			}
			line[col] = fmt.Sprint(value)
		}
		data = append(data, line)
	}

	out := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(mutedGray)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(labels...).
		Rows(data...)
	return out.String(), nil
}

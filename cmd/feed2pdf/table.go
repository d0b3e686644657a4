// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column is one table column: its header and how its cells align.
type column struct {
	title string
	align text.Align
}

func left(title string) column  { return column{title: title, align: text.AlignLeft} }
func right(title string) column { return column{title: title, align: text.AlignRight} }

// newTable returns a writer with feed2pdf's header and column layout. Cells
// beyond the declared columns are dropped and missing cells render empty.
func newTable(cols []column) *tableWriter {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.title
		configs[i] = table.ColumnConfig{Number: i + 1, Align: c.align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)
	return &tableWriter{tw: tw, width: len(cols)}
}

type tableWriter struct {
	tw    table.Writer
	width int
}

// add appends one row of cells.
func (t *tableWriter) add(cells ...string) {
	row := make(table.Row, t.width)
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	t.tw.AppendRow(row)
}

func (t *tableWriter) render() string {
	return t.tw.Render()
}

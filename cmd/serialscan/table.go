package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableColumn describes one output column. Right-aligned columns are meant
// for counts and percentages.
type tableColumn struct {
	header string
	right  bool
}

func renderTable(columns []tableColumn, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, 0, len(columns))
	configs := make([]table.ColumnConfig, 0, len(columns))
	for i, col := range columns {
		header = append(header, col.header)
		align := text.AlignLeft
		if col.right {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		cells := make(table.Row, len(columns))
		for i := range columns {
			if i < len(row) {
				cells[i] = row[i]
			} else {
				cells[i] = ""
			}
		}
		tw.AppendRow(cells)
	}

	return tw.Render()
}

func countsTable(total, active, locked, abandoned int) string {
	return renderTable(
		[]tableColumn{
			{header: "Total", right: true},
			{header: "Active", right: true},
			{header: "Locked", right: true},
			{header: "Abandoned", right: true},
		},
		[][]string{{
			strconv.Itoa(total),
			strconv.Itoa(active),
			strconv.Itoa(locked),
			strconv.Itoa(abandoned),
		}},
	)
}

package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderTable lays rows out under headers. Columns whose header is listed in
// numeric are right-aligned; short rows are padded with blanks.
func renderTable(headers []string, rows [][]string, numeric ...string) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(tableRow(headers))
	for _, row := range rows {
		cells := make([]string, len(headers))
		copy(cells, row)
		tw.AppendRow(tableRow(cells))
	}

	configs := make([]table.ColumnConfig, 0, len(numeric))
	for _, name := range numeric {
		configs = append(configs, table.ColumnConfig{
			Name:        name,
			Align:       text.AlignRight,
			AlignHeader: text.AlignRight,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func tableRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}
	return row
}

package main

import (
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// newResultTable returns a writer whose headers print exactly as given.
// osquery column names are case-sensitive, and go-pretty upper-cases headers
// by default.
func newResultTable(headers []string) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(headers))
	for i, name := range headers {
		header[i] = name
	}
	tw.AppendHeader(header)
	return tw
}

// renderRows prints result rows under the sorted union of every row's column
// names. A row without a column gets an empty cell. Columns whose values all
// parse as numbers are right-aligned.
func renderRows(rows []map[string]string) string {
	if len(rows) == 0 {
		return "No rows\n"
	}
	headers := columnNames(rows)
	tw := newResultTable(headers)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i, name := range headers {
			r[i] = row[name]
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, len(headers))
	for i, name := range headers {
		align := text.AlignLeft
		if numericColumn(rows, name) {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		}
	}
	tw.SetColumnConfigs(configs)

	return tw.Render() + "\n"
}

func columnNames(rows []map[string]string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, row := range rows {
		for name := range row {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func numericColumn(rows []map[string]string, name string) bool {
	found := false
	for _, row := range rows {
		value := row[name]
		if value == "" {
			continue
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return false
		}
		found = true
	}
	return found
}

type columnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// flattenColumns turns getQueryColumns rows, each mapping a column name to its
// type, into an ordered list.
func flattenColumns(rows []map[string]string) []columnInfo {
	columns := make([]columnInfo, 0, len(rows))
	for _, row := range rows {
		names := make([]string, 0, len(row))
		for name := range row {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			columns = append(columns, columnInfo{Name: name, Type: row[name]})
		}
	}
	return columns
}

func renderColumns(columns []columnInfo) string {
	if len(columns) == 0 {
		return "No columns\n"
	}
	tw := newResultTable([]string{"column", "type"})
	for _, col := range columns {
		tw.AppendRow(table.Row{col.Name, col.Type})
	}
	return tw.Render() + "\n"
}

package main

import (
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"songrank/internal/ranking"
)

// column describes one table column. A zero maxWidth leaves it unbounded.
type column struct {
	title    string
	right    bool
	maxWidth int
}

var (
	entryColumns = []column{
		{title: "#", right: true},
		{title: "Artist", maxWidth: 28},
		{title: "Title", maxWidth: 40},
		{title: "Album", maxWidth: 28},
		{title: "Year", right: true},
		{title: "Video"},
	}
	rankingColumns = []column{
		{title: ""},
		{title: "Slug"},
		{title: "Name", maxWidth: 40},
		{title: "Created"},
	}
	matchColumns = []column{
		{title: "#", right: true},
		{title: "Artist", maxWidth: 28},
		{title: "Title", maxWidth: 40},
		{title: "Video"},
	}
)

// entryRow renders e at its 1-based display position. An entry the backend
// has not created yet shows "+" instead.
func entryRow(position int, e ranking.Entry) []string {
	rank := strconv.Itoa(position)
	if e.Pending() {
		rank = "+"
	}
	year := ""
	if e.Released != nil {
		year = strconv.Itoa(*e.Released)
	}
	return []string{rank, ranking.Value(e.Artist), e.Title, ranking.Value(e.Album), year, e.VideoID}
}

func renderTable(columns []column, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.title
		configs[i] = table.ColumnConfig{
			Number:      i + 1,
			Align:       text.AlignLeft,
			AlignHeader: text.AlignLeft,
			WidthMax:    c.maxWidth,
		}
		if c.right {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(columns))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

package main

import (
	"slices"
	"strings"
	"testing"

	"songrank/internal/ranking"
)

func TestEntryRow(t *testing.T) {
	confirmed := ranking.Entry{ID: 3, VideoID: "dQw4w9WgXcQ", Title: "Song", Artist: ranking.String("Band"), Released: ranking.Int(1987)}
	if got, want := entryRow(2, confirmed), []string{"2", "Band", "Song", "", "1987", "dQw4w9WgXcQ"}; !slices.Equal(got, want) {
		t.Fatalf("entryRow = %q, want %q", got, want)
	}

	pending := ranking.Entry{LocalKey: "tmp", Title: "New"}
	if got := entryRow(6, pending); got[0] != "+" {
		t.Fatalf("pending entry should not show a position, got %q", got[0])
	}
}

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable(rankingColumns, [][]string{{"*", "main"}})
	for _, want := range []string{"Slug", "Name", "Created", "main"} {
		if !strings.Contains(strings.ToLower(out), strings.ToLower(want)) {
			t.Fatalf("table missing %q:\n%s", want, out)
		}
	}
	if renderTable(nil, nil) != "" {
		t.Fatal("no columns should render nothing")
	}
}

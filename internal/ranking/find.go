package ranking

import (
	"cmp"
	"slices"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Match is one fuzzy hit against a list.
type Match struct {
	// Index is the position of the entry in the searched slice.
	Index int
	Entry Entry
	// Distance is the Levenshtein distance between query and label.
	Distance int
}

// Find returns the entries whose "artist title" label fuzzily contains query,
// closest first. Matching ignores case and diacritics. An empty query matches
// nothing.
func Find(entries []Entry, query string) []Match {
	query = strings.TrimSpace(query)
	if query == "" || len(entries) == 0 {
		return nil
	}

	labels := make([]string, len(entries))
	for i, entry := range entries {
		labels[i] = strings.TrimSpace(Value(entry.Artist) + " " + entry.Title)
	}

	ranks := fuzzy.RankFindNormalizedFold(query, labels)
	matches := make([]Match, 0, ranks.Len())
	for _, r := range ranks {
		matches = append(matches, Match{
			Index:    r.OriginalIndex,
			Entry:    entries[r.OriginalIndex],
			Distance: r.Distance,
		})
	}
	slices.SortFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})
	return matches
}

package ranking

import (
	"fmt"
	"slices"
)

// Move returns a new sequence with the element at src lifted out and
// reinserted at dst; elements in between shift by one. The input is returned
// unchanged when src == dst. Out-of-range indices panic.
func Move[E any](seq []E, src, dst int) []E {
	if src < 0 || src >= len(seq) || dst < 0 || dst >= len(seq) {
		panic(fmt.Sprintf("ranking: move %d -> %d out of range for length %d", src, dst, len(seq)))
	}
	if src == dst {
		return seq
	}
	moved := seq[src]
	out := slices.Delete(slices.Clone(seq), src, src+1)
	return slices.Insert(out, dst, moved)
}

// InRange reports whether index addresses an element of a sequence of length n.
func InRange(index, n int) bool {
	return index >= 0 && index < n
}

// CheckDense verifies that entries carry ranks 1..N in sequence order.
func CheckDense(entries []Entry) error {
	for i, entry := range entries {
		if entry.Rank != i+1 {
			return fmt.Errorf("entry %q at position %d has rank %d", entry.Key(), i+1, entry.Rank)
		}
	}
	return nil
}

// Renumbered returns a copy of entries whose ranks match their positions.
func Renumbered(entries []Entry) []Entry {
	out := slices.Clone(entries)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

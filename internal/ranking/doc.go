// Package ranking models a named, strictly ordered list of songs.
//
// Entry carries the song metadata exactly as the backend serialises it, and
// Collection holds the working copy of one list for the active view. The
// display rank of an entry is its index plus one; the Rank field is whatever
// the backend last reported and only changes through reconciliation.
//
// Move is the single reordering primitive: a pure splice that lifts one
// element out and reinserts it elsewhere. Indices must come from the sequence
// being moved; anything else is a programming error and panics.
package ranking

package ranking

import "slices"

// Collection is the working copy of the active list. It is not safe for
// concurrent use; the engine serialises access.
type Collection struct {
	slug    string
	entries []Entry
}

// NewCollection builds a collection for slug seeded with entries.
func NewCollection(slug string, entries []Entry) *Collection {
	return &Collection{slug: slug, entries: slices.Clone(entries)}
}

// Slug returns the list the collection belongs to.
func (c *Collection) Slug() string {
	return c.slug
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	return len(c.entries)
}

// At returns the entry at index.
func (c *Collection) At(index int) Entry {
	return c.entries[index]
}

// Entries returns a copy of the current order.
func (c *Collection) Entries() []Entry {
	return slices.Clone(c.entries)
}

// Move applies the reordering primitive in place.
func (c *Collection) Move(src, dst int) {
	c.entries = Move(c.entries, src, dst)
}

// Replace swaps the whole order for entries, as fetched from the backend.
func (c *Collection) Replace(entries []Entry) {
	c.entries = slices.Clone(entries)
}

// Reset discards every entry and rebinds the collection to slug.
func (c *Collection) Reset(slug string) {
	c.slug = slug
	c.entries = nil
}

// IndexOf returns the index of the entry with the backend id, or -1.
func (c *Collection) IndexOf(id int64) int {
	return slices.IndexFunc(c.entries, func(e Entry) bool { return e.ID == id })
}

// IndexOfKey returns the index of the entry whose Key matches, or -1.
func (c *Collection) IndexOfKey(key string) int {
	return slices.IndexFunc(c.entries, func(e Entry) bool { return e.Key() == key })
}

// Append adds entry at the end of the list.
func (c *Collection) Append(entry Entry) {
	c.entries = append(c.entries, entry)
}

// RemoveLocal drops the entry whose Key matches and reports whether it existed.
func (c *Collection) RemoveLocal(key string) bool {
	index := c.IndexOfKey(key)
	if index < 0 {
		return false
	}
	c.entries = slices.Delete(c.entries, index, index+1)
	return true
}

// Set replaces the entry at index.
func (c *Collection) Set(index int, entry Entry) {
	c.entries[index] = entry
}

package ranking

import (
	"strconv"
	"strings"
	"time"
)

// Entry is one ranked song within a list.
type Entry struct {
	ID int64 `json:"id"`
	// LocalKey identifies an entry that exists only locally; the backend has
	// not assigned an ID yet.
	LocalKey   string    `json:"-"`
	VideoID    string    `json:"s_yt_id"`
	Artist     *string   `json:"s_artist"`
	Title      string    `json:"s_title"`
	Album      *string   `json:"s_album"`
	Released   *int      `json:"s_released"`
	Discovered *string   `json:"s_discovered"`
	Comment    *string   `json:"s_comment"`
	Rank       int       `json:"r_rank"`
	CreatedAt  time.Time `json:"s_created_on"`
	UpdatedAt  time.Time `json:"s_last_updated"`
}

// Key returns a stable identity for the entry, preferring the backend ID.
func (e Entry) Key() string {
	if e.ID != 0 {
		return strconv.FormatInt(e.ID, 10)
	}
	return e.LocalKey
}

// Pending reports whether the entry is still waiting for a backend ID.
func (e Entry) Pending() bool {
	return e.ID == 0
}

// Label renders "Artist - Title", or just the title when no artist is set.
func (e Entry) Label() string {
	artist := strings.TrimSpace(Value(e.Artist))
	if artist == "" {
		return e.Title
	}
	return artist + " - " + e.Title
}

// Draft is the payload for creating an entry.
type Draft struct {
	VideoID    string  `json:"s_yt_id"`
	Artist     *string `json:"s_artist,omitempty"`
	Title      string  `json:"s_title"`
	Album      *string `json:"s_album,omitempty"`
	Released   *int    `json:"s_released,omitempty"`
	Discovered *string `json:"s_discovered,omitempty"`
	Comment    *string `json:"s_comment,omitempty"`
}

// Patch is a partial update; nil fields are left untouched by the backend.
type Patch struct {
	VideoID    *string `json:"s_yt_id,omitempty"`
	Artist     *string `json:"s_artist,omitempty"`
	Title      *string `json:"s_title,omitempty"`
	Album      *string `json:"s_album,omitempty"`
	Released   *int    `json:"s_released,omitempty"`
	Discovered *string `json:"s_discovered,omitempty"`
	Comment    *string `json:"s_comment,omitempty"`
}

// Empty reports whether the patch carries no changes.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Apply returns a copy of e with the patch fields applied.
func (p Patch) Apply(e Entry) Entry {
	if p.VideoID != nil {
		e.VideoID = *p.VideoID
	}
	if p.Artist != nil {
		e.Artist = p.Artist
	}
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Album != nil {
		e.Album = p.Album
	}
	if p.Released != nil {
		e.Released = p.Released
	}
	if p.Discovered != nil {
		e.Discovered = p.Discovered
	}
	if p.Comment != nil {
		e.Comment = p.Comment
	}
	return e
}

// Entry converts the draft into a local, not yet acknowledged entry.
func (d Draft) Entry(localKey string, rank int) Entry {
	return Entry{
		LocalKey:   localKey,
		VideoID:    d.VideoID,
		Artist:     d.Artist,
		Title:      d.Title,
		Album:      d.Album,
		Released:   d.Released,
		Discovered: d.Discovered,
		Comment:    d.Comment,
		Rank:       rank,
	}
}

// List is a named ranking identified by its slug.
type List struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedOn time.Time `json:"created_on"`
}

// String returns a pointer to value, or nil when value is empty after trimming.
func String(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

// Int returns a pointer to value.
func Int(value int) *int {
	return &value
}

// Value dereferences an optional string, treating nil as empty.
func Value(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"songrank/internal/ranking"
	"songrank/internal/services"
	"songrank/internal/snapshot"
	"songrank/internal/ytref"
)

type entryJSON struct {
	Position   int     `json:"position"`
	Rank       int     `json:"rank"`
	ID         int64   `json:"id"`
	VideoID    string  `json:"yt_id"`
	Artist     *string `json:"artist,omitempty"`
	Title      string  `json:"title"`
	Album      *string `json:"album,omitempty"`
	Released   *int    `json:"released,omitempty"`
	Discovered *string `json:"discovered,omitempty"`
	Comment    *string `json:"comment,omitempty"`
	WatchURL   string  `json:"watch_url,omitempty"`
	Thumbnail  string  `json:"thumbnail_url,omitempty"`
}

type listJSON struct {
	Ranking   string      `json:"ranking"`
	Stale     bool        `json:"stale"`
	FetchedAt *time.Time  `json:"fetched_at,omitempty"`
	Entries   []entryJSON `json:"entries"`
}

func toEntryJSON(entries []ranking.Entry) []entryJSON {
	out := make([]entryJSON, 0, len(entries))
	for i, e := range entries {
		item := entryJSON{
			Position:   i + 1,
			Rank:       e.Rank,
			ID:         e.ID,
			VideoID:    e.VideoID,
			Artist:     e.Artist,
			Title:      e.Title,
			Album:      e.Album,
			Released:   e.Released,
			Discovered: e.Discovered,
			Comment:    e.Comment,
		}
		if ytref.IsCanonical(e.VideoID) {
			item.WatchURL = ytref.WatchURL(e.VideoID)
			item.Thumbnail = ytref.ThumbnailURL(e.VideoID)
		}
		out = append(out, item)
	}
	return out
}

// listing is an order ready to print, either fresh or from the cache.
type listing struct {
	slug    string
	entries []ranking.Entry
	stale   bool
	fetched time.Time
}

// loadListing fetches the selected ranking. When offline is set, or the
// backend cannot be reached, the last confirmed copy is used instead.
func loadListing(cmd *cobra.Command, ws *workspace, offline bool) (listing, error) {
	slug := ws.session.Ranking()
	if offline {
		return cachedListing(cmd.Context(), ws, slug)
	}
	err := ws.engine.Load(cmd.Context())
	if err == nil {
		return listing{slug: slug, entries: ws.engine.Entries()}, nil
	}
	if !errors.Is(err, services.ErrNetwork) {
		return listing{}, err
	}
	cached, cacheErr := cachedListing(cmd.Context(), ws, slug)
	if cacheErr != nil {
		return listing{}, err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "warning: backend unreachable, showing copy from %s\n", cached.fetched.Local().Format(time.DateTime))
	return cached, nil
}

func cachedListing(ctx context.Context, ws *workspace, slug string) (listing, error) {
	entries, fetched, err := ws.snapshots.Load(ctx, slug)
	if errors.Is(err, snapshot.ErrNotCached) {
		return listing{}, fmt.Errorf("%w: no cached copy of %q; run list while online first", services.ErrNotFound, slug)
	}
	if err != nil {
		return listing{}, err
	}
	return listing{slug: slug, entries: entries, stale: true, fetched: fetched}, nil
}

func (c *commandContext) printListing(cmd *cobra.Command, l listing) error {
	if c.jsonOutput() {
		payload := listJSON{Ranking: l.slug, Stale: l.stale, Entries: toEntryJSON(l.entries)}
		if !l.fetched.IsZero() {
			fetched := l.fetched
			payload.FetchedAt = &fetched
		}
		return writeJSON(cmd, payload)
	}

	out := cmd.OutOrStdout()
	if len(l.entries) == 0 {
		fmt.Fprintf(out, "Ranking %q is empty\n", l.slug)
		return nil
	}
	rows := make([][]string, 0, len(l.entries))
	for i, e := range l.entries {
		rows = append(rows, entryRow(i+1, e))
	}
	fmt.Fprintln(out, renderTable(entryColumns, rows))
	if l.stale {
		fmt.Fprintln(out, renderStatusLine("Ranking", statusWarn, l.slug+" may be out of date", shouldColorize(out)))
	}
	return nil
}

// resolveEntry turns a rank number or fuzzy query into a 0-based index.
func resolveEntry(entries []ranking.Entry, arg string) (int, error) {
	arg = strings.TrimSpace(arg)
	if rank, err := strconv.Atoi(arg); err == nil {
		if rank < 1 || rank > len(entries) {
			return -1, fmt.Errorf("%w: rank %d out of range (list has %d entries)", services.ErrValidation, rank, len(entries))
		}
		return rank - 1, nil
	}
	matches := ranking.Find(entries, arg)
	switch {
	case len(matches) == 0:
		return -1, fmt.Errorf("%w: no entry matches %q", services.ErrNotFound, arg)
	case len(matches) > 1 && matches[0].Distance == matches[1].Distance:
		return -1, fmt.Errorf("%w: %q matches both #%d %s and #%d %s",
			services.ErrValidation, arg,
			matches[0].Index+1, matches[0].Entry.Label(),
			matches[1].Index+1, matches[1].Entry.Label(),
		)
	}
	return matches[0].Index, nil
}

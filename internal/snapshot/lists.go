package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"songrank/internal/ranking"
)

// Save replaces the cached order of slug with entries.
func (s *Store) Save(ctx context.Context, slug string, entries []ranking.Entry) error {
	fetched := formatTime(s.now())
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM entries WHERE slug = ?", slug); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO lists (slug, fetched_at) VALUES (?, ?) ON CONFLICT(slug) DO UPDATE SET fetched_at = excluded.fetched_at",
			slug, fetched,
		); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries
			(slug, position, id, yt_id, artist, title, album, released, discovered, comment, rank, created_on, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, e := range entries {
			if _, err := stmt.ExecContext(ctx,
				slug, i, e.ID, e.VideoID, nullString(e.Artist), e.Title, nullString(e.Album),
				nullInt(e.Released), nullString(e.Discovered), nullString(e.Comment), e.Rank,
				formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", slug, err)
	}
	return nil
}

// Load returns the cached order of slug and when it was fetched.
func (s *Store) Load(ctx context.Context, slug string) ([]ranking.Entry, time.Time, error) {
	var fetchedRaw string
	err := s.db.QueryRowContext(ctx, "SELECT fetched_at FROM lists WHERE slug = ?", slug).Scan(&fetchedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, fmt.Errorf("%w: %s", ErrNotCached, slug)
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load snapshot %q: %w", slug, err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, yt_id, artist, title, album, released, discovered, comment, rank, created_on, last_updated
		FROM entries WHERE slug = ? ORDER BY position`, slug)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load snapshot %q: %w", slug, err)
	}
	defer rows.Close()

	var entries []ranking.Entry
	for rows.Next() {
		var (
			e                                  ranking.Entry
			artist, album, discovered, comment sql.NullString
			released                           sql.NullInt64
			createdRaw, updatedRaw             sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.VideoID, &artist, &e.Title, &album, &released, &discovered, &comment, &e.Rank, &createdRaw, &updatedRaw); err != nil {
			return nil, time.Time{}, fmt.Errorf("scan snapshot %q: %w", slug, err)
		}
		e.Artist = stringPtr(artist)
		e.Album = stringPtr(album)
		e.Discovered = stringPtr(discovered)
		e.Comment = stringPtr(comment)
		if released.Valid {
			e.Released = ranking.Int(int(released.Int64))
		}
		e.CreatedAt = parseTime(createdRaw.String)
		e.UpdatedAt = parseTime(updatedRaw.String)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, fmt.Errorf("load snapshot %q: %w", slug, err)
	}
	return entries, parseTime(fetchedRaw), nil
}

// SaveRankings replaces the cached ranking catalogue.
func (s *Store) SaveRankings(ctx context.Context, lists []ranking.List) error {
	fetched := formatTime(s.now())
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM rankings"); err != nil {
			return err
		}
		for _, l := range lists {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO rankings (slug, remote_id, name, created_on, fetched_at) VALUES (?, ?, ?, ?, ?)",
				l.Slug, l.ID, l.Name, formatTime(l.CreatedOn), fetched,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save rankings: %w", err)
	}
	return nil
}

// Rankings returns the cached ranking catalogue ordered by name.
func (s *Store) Rankings(ctx context.Context) ([]ranking.List, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT remote_id, name, slug, created_on FROM rankings ORDER BY name, slug")
	if err != nil {
		return nil, fmt.Errorf("load rankings: %w", err)
	}
	defer rows.Close()

	var lists []ranking.List
	for rows.Next() {
		var (
			l       ranking.List
			created sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.Name, &l.Slug, &created); err != nil {
			return nil, fmt.Errorf("scan ranking: %w", err)
		}
		l.CreatedOn = parseTime(created.String)
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// Clear removes every cached list and ranking, for example on logout.
func (s *Store) Clear(ctx context.Context) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"entries", "lists", "rankings"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		return nil
	})
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

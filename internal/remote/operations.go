package remote

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"slices"
	"strings"

	"songrank/internal/ranking"
	"songrank/internal/services"
)

// Tokens is the credential pair issued at login.
type Tokens struct {
	Access  string
	Refresh string
}

// Login exchanges a username and password for tokens. It does not send or
// store any existing credentials.
func (c *Client) Login(ctx context.Context, username, password string) (Tokens, error) {
	req, err := jsonRequest("login", http.MethodPost, "login/", nil, map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return Tokens{}, err
	}
	req.anonymous = true

	var pair tokenPair
	if err := c.do(ctx, req, &pair); err != nil {
		return Tokens{}, err
	}
	if pair.Access == "" {
		return Tokens{}, services.Wrap(services.ErrServer, component, "login", "response carried no access token", nil)
	}
	return Tokens{Access: pair.Access, Refresh: pair.Refresh}, nil
}

// ListEntries fetches a ranking ordered by rank ascending.
func (c *Client) ListEntries(ctx context.Context, slug string) ([]ranking.Entry, error) {
	var entries []ranking.Entry
	req := request{op: "list entries", method: http.MethodGet, path: "songs/", query: rankingQuery(slug)}
	if err := c.do(services.WithRanking(ctx, slug), req, &entries); err != nil {
		return nil, err
	}
	slices.SortStableFunc(entries, func(a, b ranking.Entry) int { return cmp.Compare(a.Rank, b.Rank) })
	return entries, nil
}

// CreateEntry adds an entry at the end of a ranking.
func (c *Client) CreateEntry(ctx context.Context, slug string, draft ranking.Draft) (ranking.Entry, error) {
	req, err := jsonRequest("create entry", http.MethodPost, "songs/add/", rankingQuery(slug), draft)
	if err != nil {
		return ranking.Entry{}, err
	}
	var created ranking.Entry
	if err := c.do(services.WithRanking(ctx, slug), req, &created); err != nil {
		return ranking.Entry{}, err
	}
	return created, nil
}

// UpdateEntry applies a partial update.
func (c *Client) UpdateEntry(ctx context.Context, id int64, patch ranking.Patch) error {
	req, err := jsonRequest("update entry", http.MethodPatch, fmt.Sprintf("songs/update/%d", id), nil, patch)
	if err != nil {
		return err
	}
	return c.do(services.WithEntryID(ctx, id), req, nil)
}

type rankUpdate struct {
	SongID  int64  `json:"songId"`
	NewRank int    `json:"newRank"`
	Ranking string `json:"ranking,omitempty"`
}

// UpdateRank moves an entry to newRank; the backend renumbers the rest.
func (c *Client) UpdateRank(ctx context.Context, id int64, newRank int, slug string) error {
	req, err := jsonRequest("update rank", http.MethodPatch, "update/rank/", nil, rankUpdate{SongID: id, NewRank: newRank, Ranking: slug})
	if err != nil {
		return err
	}
	return c.do(services.WithEntryID(services.WithRanking(ctx, slug), id), req, nil)
}

// DeleteEntry removes an entry; the backend closes the rank gap.
func (c *Client) DeleteEntry(ctx context.Context, id int64, slug string) error {
	req := request{op: "delete entry", method: http.MethodDelete, path: fmt.Sprintf("songs/delete/%d/", id), query: rankingQuery(slug)}
	return c.do(services.WithEntryID(services.WithRanking(ctx, slug), id), req, nil)
}

// ImportTable uploads a CSV file into a ranking.
func (c *Client) ImportTable(ctx context.Context, slug, filename string, data []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if slug != "" {
		if err := writer.WriteField("ranking", slug); err != nil {
			return fmt.Errorf("encode upload: %w", err)
		}
	}
	if strings.TrimSpace(filename) == "" {
		filename = "songs.csv"
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("encode upload: %w", err)
	}

	req := request{
		op:          "import table",
		method:      http.MethodPost,
		path:        "upload-csv/",
		query:       rankingQuery(slug),
		body:        body.Bytes(),
		contentType: writer.FormDataContentType(),
	}
	return c.do(services.WithRanking(ctx, slug), req, nil)
}

// ListRankings returns every named ranking.
func (c *Client) ListRankings(ctx context.Context) ([]ranking.List, error) {
	var lists []ranking.List
	req := request{op: "list rankings", method: http.MethodGet, path: "rankings/"}
	if err := c.do(ctx, req, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

// CreateRanking creates a named ranking.
func (c *Client) CreateRanking(ctx context.Context, name, slug string) (ranking.List, error) {
	req, err := jsonRequest("create ranking", http.MethodPost, "rankings/", nil, map[string]string{"name": name, "slug": slug})
	if err != nil {
		return ranking.List{}, err
	}
	var created ranking.List
	if err := c.do(ctx, req, &created); err != nil {
		return ranking.List{}, err
	}
	return created, nil
}

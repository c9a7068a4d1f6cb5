package testsupport

import (
	"cmp"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"songrank/internal/ranking"
)

// DefaultSlug is the ranking used when a request names none.
const DefaultSlug = "main"

// Call records one request the fake backend received.
type Call struct {
	Method string
	Path   string
	Query  string
	Body   string
	Auth   string
}

// Backend is an in-memory stand-in for the ranking REST API. It keeps ranks
// dense the way the real service does: rank updates clamp and shift the
// range between old and new rank, deletes close the gap, adds append and
// imports replace the list.
type Backend struct {
	server *httptest.Server

	mu        sync.Mutex
	lists     map[string][]ranking.Entry
	rankings  []ranking.List
	users     map[string]string
	nextID    int64
	access    string
	refresh   string
	issued    int
	failNext  map[string]failure
	calls     []Call
	openReads bool
}

// NewBackend starts a fake backend and stops it when the test ends.
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		lists:     map[string][]ranking.Entry{},
		users:     map[string]string{},
		failNext:  map[string]failure{},
		nextID:    1,
		openReads: true,
	}
	b.addRanking("Main", DefaultSlug)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login/", b.handleLogin)
	mux.HandleFunc("POST /api/token/refresh/", b.handleRefresh)
	mux.HandleFunc("GET /api/songs/{$}", b.handleList)
	mux.HandleFunc("POST /api/songs/add/", b.authed(b.handleAdd))
	mux.HandleFunc("PATCH /api/songs/update/{id}", b.authed(b.handleUpdate))
	mux.HandleFunc("PATCH /api/update/rank/", b.authed(b.handleRank))
	mux.HandleFunc("DELETE /api/songs/delete/{id}/", b.authed(b.handleDelete))
	mux.HandleFunc("POST /api/upload-csv/", b.authed(b.handleUpload))
	mux.HandleFunc("GET /api/rankings/", b.handleRankings)
	mux.HandleFunc("POST /api/rankings/", b.authed(b.handleCreateRanking))

	b.server = httptest.NewServer(b.record(mux))
	t.Cleanup(b.server.Close)
	return b
}

// URL is the API root to configure clients with.
func (b *Backend) URL() string {
	return b.server.URL + "/api/"
}

// AddUser registers credentials accepted by login/.
func (b *Backend) AddUser(username, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[username] = password
}

// IssueTokens returns a valid access/refresh pair without a login call.
func (b *Backend) IssueTokens() (string, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issueLocked()
}

// ExpireAccess invalidates the current access token; the refresh token
// still works.
func (b *Backend) ExpireAccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = "expired"
}

// RevokeRefresh invalidates the refresh token.
func (b *Backend) RevokeRefresh() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh = "revoked"
}

type failure struct {
	status int
	skip   int
}

// FailNext makes the next request to method+path answer with status.
func (b *Backend) FailNext(method, path string, status int) {
	b.FailAfter(method, path, 0, status)
}

// FailAfter lets skip requests to method+path through and answers the one
// after them with status.
func (b *Backend) FailAfter(method, path string, skip, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext[method+" "+path] = failure{status: status, skip: skip}
}

// Seed replaces a ranking with titles ranked 1..N and returns the entries.
func (b *Backend) Seed(slug string, titles ...string) []ranking.Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findRanking(slug) < 0 {
		b.addRanking(slug, slug)
	}
	entries := make([]ranking.Entry, len(titles))
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range titles {
		entries[i] = ranking.Entry{
			ID:        b.nextID,
			VideoID:   fmt.Sprintf("vid%08d", b.nextID),
			Title:     title,
			Rank:      i + 1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		b.nextID++
	}
	b.lists[slug] = entries
	return slices.Clone(entries)
}

// Entries returns the server-side order of slug.
func (b *Backend) Entries(slug string) []ranking.Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.lists[slug])
}

// Calls returns the recorded requests, optionally filtered by method and path.
func (b *Backend) Calls(method, path string) []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Call
	for _, c := range b.calls {
		if (method == "" || c.Method == method) && (path == "" || c.Path == path) {
			out = append(out, c)
		}
	}
	return out
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		path := strings.TrimPrefix(r.URL.Path, "/api/")

		b.mu.Lock()
		b.calls = append(b.calls, Call{Method: r.Method, Path: path, Query: r.URL.RawQuery, Body: string(body), Auth: r.Header.Get("Authorization")})
		key := r.Method + " " + path
		injected, fail := b.failNext[key]
		switch {
		case fail && injected.skip > 0:
			injected.skip--
			b.failNext[key] = injected
			fail = false
		case fail:
			delete(b.failNext, key)
		}
		b.mu.Unlock()

		if fail {
			writeJSON(w, injected.status, map[string]string{"status": "error", "message": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) authed(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !b.validAccess(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
			return
		}
		next(w, r)
	}
}

func (b *Backend) validAccess(r *http.Request) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && b.access != "" && token == b.access
}

func (b *Backend) issueLocked() (string, string) {
	b.issued++
	b.access = fmt.Sprintf("access-%d", b.issued)
	b.refresh = fmt.Sprintf("refresh-%d", b.issued)
	return b.access, b.refresh
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	password, ok := b.users[body.Username]
	if !ok || password != body.Password {
		b.mu.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}
	access, refresh := b.issueLocked()
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	b.mu.Lock()
	defer b.mu.Unlock()
	if body.Refresh == "" || body.Refresh != b.refresh {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
		return
	}
	b.issued++
	b.access = fmt.Sprintf("access-%d", b.issued)
	writeJSON(w, http.StatusOK, map[string]string{"access": b.access})
}

func slugOf(r *http.Request) string {
	if slug := strings.TrimSpace(r.URL.Query().Get("ranking")); slug != "" {
		return slug
	}
	return DefaultSlug
}

func (b *Backend) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "" && !b.validAccess(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
		return
	}
	slug := slugOf(r)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findRanking(slug) < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	entries := b.lists[slug]
	if entries == nil {
		entries = []ranking.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (b *Backend) handleAdd(w http.ResponseWriter, r *http.Request) {
	var draft ranking.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {err.Error()}})
		return
	}
	fields := map[string][]string{}
	if strings.TrimSpace(draft.Title) == "" {
		fields["s_title"] = []string{"This field is required."}
	}
	if len(draft.VideoID) != 11 {
		fields["s_yt_id"] = []string{"Ensure this field has exactly 11 characters."}
	}
	slug := slugOf(r)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.lists[slug] {
		if e.VideoID == draft.VideoID {
			fields["s_yt_id"] = []string{"song with this s yt id already exists."}
		}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}
	maxRank := 0
	for _, e := range b.lists[slug] {
		maxRank = max(maxRank, e.Rank)
	}
	now := time.Now().UTC().Truncate(time.Second)
	entry := draft.Entry("", maxRank+1)
	entry.ID = b.nextID
	entry.CreatedAt, entry.UpdatedAt = now, now
	b.nextID++
	b.lists[slug] = append(b.lists[slug], entry)
	writeJSON(w, http.StatusCreated, entry)
}

func (b *Backend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	var patch ranking.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"non_field_errors": {err.Error()}})
		return
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"s_title": {"This field may not be blank."}})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for slug, entries := range b.lists {
		for i, e := range entries {
			if e.ID == id {
				updated := patch.Apply(e)
				updated.UpdatedAt = time.Now().UTC().Truncate(time.Second)
				b.lists[slug][i] = updated
				writeJSON(w, http.StatusOK, updated)
				return
			}
		}
	}
	http.NotFound(w, r)
}

func (b *Backend) handleRank(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SongID  *int64 `json:"songId"`
		NewRank *int   `json:"newRank"`
		Ranking string `json:"ranking"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SongID == nil || body.NewRank == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "Missing key in request"})
		return
	}
	slug := body.Ranking
	if slug == "" {
		slug = DefaultSlug
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.lists[slug]
	index := slices.IndexFunc(entries, func(e ranking.Entry) bool { return e.ID == *body.SongID })
	if index < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "Rank for the specified song does not exist"})
		return
	}
	newRank := min(max(*body.NewRank, 1), len(entries))
	oldRank := entries[index].Rank
	for i := range entries {
		switch {
		case i == index:
			entries[i].Rank = newRank
		case oldRank < newRank && entries[i].Rank > oldRank && entries[i].Rank <= newRank:
			entries[i].Rank--
		case oldRank > newRank && entries[i].Rank >= newRank && entries[i].Rank < oldRank:
			entries[i].Rank++
		}
	}
	sortByRank(entries)
	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "song_id": *body.SongID, "r_rank": newRank})
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	slug := slugOf(r)

	b.mu.Lock()
	defer b.mu.Unlock()
	entries := b.lists[slug]
	index := slices.IndexFunc(entries, func(e ranking.Entry) bool { return e.ID == id })
	if index < 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "message": "Song not found."})
		return
	}
	removed := entries[index].Rank
	entries = slices.Delete(entries, index, index+1)
	for i := range entries {
		if entries[i].Rank > removed {
			entries[i].Rank--
		}
	}
	b.lists[slug] = entries
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "message": "No file provided"})
		return
	}
	defer file.Close()
	slug := r.FormValue("ranking")
	if slug == "" {
		slug = DefaultSlug
	}

	records, err := csv.NewReader(file).ReadAll()
	if err != nil || len(records) == 0 {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "unreadable csv"})
		return
	}
	columns := map[string]int{}
	for i, name := range records[0] {
		columns[name] = i
	}
	col := func(row []string, name string) string {
		if i, ok := columns[name]; ok && i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now().UTC().Truncate(time.Second)
	var imported []ranking.Entry
	for _, row := range records[1:] {
		rank, err := strconv.Atoi(col(row, "rank"))
		if err != nil || rank < 1 {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": "invalid rank"})
			return
		}
		entry := ranking.Entry{
			ID:         b.nextID,
			VideoID:    col(row, "yt_id"),
			Artist:     ranking.String(col(row, "Artist")),
			Title:      col(row, "Title"),
			Album:      ranking.String(col(row, "Album")),
			Discovered: ranking.String(col(row, "discovered")),
			Comment:    ranking.String(col(row, "comment")),
			Rank:       rank,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if released, err := strconv.Atoi(col(row, "released")); err == nil {
			entry.Released = ranking.Int(released)
		}
		b.nextID++
		imported = append(imported, entry)
	}
	sortByRank(imported)
	if b.findRanking(slug) < 0 {
		b.addRanking(slug, slug)
	}
	b.lists[slug] = imported
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (b *Backend) handleRankings(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.rankings)
}

func (b *Backend) handleCreateRanking(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	fields := map[string][]string{}
	if strings.TrimSpace(body.Name) == "" {
		fields["name"] = []string{"This field is required."}
	}
	if strings.TrimSpace(body.Slug) == "" {
		fields["slug"] = []string{"This field is required."}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if body.Slug != "" && b.findRanking(body.Slug) >= 0 {
		fields["slug"] = []string{"ranking with this slug already exists."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}
	writeJSON(w, http.StatusCreated, b.addRanking(body.Name, body.Slug))
}

func (b *Backend) findRanking(slug string) int {
	return slices.IndexFunc(b.rankings, func(l ranking.List) bool { return l.Slug == slug })
}

func (b *Backend) addRanking(name, slug string) ranking.List {
	list := ranking.List{
		ID:        int64(len(b.rankings) + 1),
		Name:      name,
		Slug:      slug,
		CreatedOn: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	b.rankings = append(b.rankings, list)
	return list
}

func sortByRank(entries []ranking.Entry) {
	slices.SortStableFunc(entries, func(a, c ranking.Entry) int { return cmp.Compare(a.Rank, c.Rank) })
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

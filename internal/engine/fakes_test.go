package engine_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"songrank/internal/engine"
	"songrank/internal/logging"
	"songrank/internal/ranking"
)

type rankCall struct {
	ID      int64
	NewRank int
	Slug    string
}

// fakeGateway keeps lists in memory and renumbers them the way the backend
// does.
type fakeGateway struct {
	mu sync.Mutex

	lists    map[string][]ranking.Entry
	rankings []ranking.List
	nextID   int64

	rankErr   error
	listErr   error
	createErr error
	updateErr error
	deleteErr error

	// onRank runs inside UpdateRank before it answers.
	onRank func()
	// afterRank mutates the server list after a successful rank update,
	// standing in for concurrent edits by other clients.
	afterRank func([]ranking.Entry) []ranking.Entry

	rankCalls   []rankCall
	listCalls   int
	created     []ranking.Draft
	updated     []ranking.Patch
	deleted     []int64
	imports     [][]byte
	rankingsReq []string
}

func newFakeGateway(slug string, titles ...string) *fakeGateway {
	g := &fakeGateway{lists: map[string][]ranking.Entry{}, nextID: 1}
	g.seed(slug, titles...)
	return g
}

func (g *fakeGateway) seed(slug string, titles ...string) []ranking.Entry {
	entries := make([]ranking.Entry, len(titles))
	for i, title := range titles {
		entries[i] = ranking.Entry{ID: g.nextID, VideoID: fmt.Sprintf("vid%08d", g.nextID), Title: title, Rank: i + 1}
		g.nextID++
	}
	g.lists[slug] = entries
	return slices.Clone(entries)
}

func (g *fakeGateway) ListEntries(_ context.Context, slug string) ([]ranking.Entry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls++
	if g.listErr != nil {
		return nil, g.listErr
	}
	entries, ok := g.lists[slug]
	if !ok {
		return nil, errors.New("no such ranking")
	}
	return slices.Clone(entries), nil
}

func (g *fakeGateway) CreateEntry(_ context.Context, slug string, draft ranking.Draft) (ranking.Entry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, draft)
	if g.createErr != nil {
		return ranking.Entry{}, g.createErr
	}
	entry := draft.Entry("", len(g.lists[slug])+1)
	entry.ID = g.nextID
	g.nextID++
	g.lists[slug] = append(g.lists[slug], entry)
	return entry, nil
}

func (g *fakeGateway) UpdateEntry(_ context.Context, id int64, patch ranking.Patch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updated = append(g.updated, patch)
	if g.updateErr != nil {
		return g.updateErr
	}
	for slug, entries := range g.lists {
		for i, e := range entries {
			if e.ID == id {
				g.lists[slug][i] = patch.Apply(e)
			}
		}
	}
	return nil
}

func (g *fakeGateway) UpdateRank(_ context.Context, id int64, newRank int, slug string) error {
	g.mu.Lock()
	g.rankCalls = append(g.rankCalls, rankCall{ID: id, NewRank: newRank, Slug: slug})
	hook := g.onRank
	g.mu.Unlock()
	if hook != nil {
		hook()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rankErr != nil {
		return g.rankErr
	}
	entries := g.lists[slug]
	src := slices.IndexFunc(entries, func(e ranking.Entry) bool { return e.ID == id })
	if src < 0 {
		return errors.New("rank for the specified song does not exist")
	}
	dst := min(max(newRank, 1), len(entries)) - 1
	entries = ranking.Move(entries, src, dst)
	entries = renumber(entries)
	if g.afterRank != nil {
		entries = renumber(g.afterRank(entries))
	}
	g.lists[slug] = entries
	return nil
}

func (g *fakeGateway) DeleteEntry(_ context.Context, id int64, slug string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.deleted = append(g.deleted, id)
	if g.deleteErr != nil {
		return g.deleteErr
	}
	g.lists[slug] = renumber(slices.DeleteFunc(g.lists[slug], func(e ranking.Entry) bool { return e.ID == id }))
	return nil
}

func (g *fakeGateway) ImportTable(_ context.Context, slug, _ string, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.imports = append(g.imports, data)
	g.lists[slug] = []ranking.Entry{{ID: 100, Title: "Imported", Rank: 1}}
	return nil
}

func (g *fakeGateway) ListRankings(context.Context) ([]ranking.List, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.rankings), nil
}

func (g *fakeGateway) CreateRanking(_ context.Context, name, slug string) (ranking.List, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rankingsReq = append(g.rankingsReq, slug)
	list := ranking.List{ID: int64(len(g.rankings) + 1), Name: name, Slug: slug}
	g.rankings = append(g.rankings, list)
	g.lists[slug] = nil
	return list, nil
}

func (g *fakeGateway) ranks() []rankCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.rankCalls)
}

func (g *fakeGateway) serverList(slug string) []ranking.Entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.lists[slug])
}

func renumber(entries []ranking.Entry) []ranking.Entry {
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

type fakeSession struct {
	authorized bool
	ranking    string
	setErr     error
}

func (s *fakeSession) Authorized() bool { return s.authorized }

func (s *fakeSession) Ranking() string { return s.ranking }

func (s *fakeSession) SetRanking(slug string) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.ranking = slug
	return nil
}

type fakeRecorder struct {
	saved    map[string][]ranking.Entry
	rankings []ranking.List
	err      error
}

func (r *fakeRecorder) Save(_ context.Context, slug string, entries []ranking.Entry) error {
	if r.err != nil {
		return r.err
	}
	if r.saved == nil {
		r.saved = map[string][]ranking.Entry{}
	}
	r.saved[slug] = slices.Clone(entries)
	return nil
}

func (r *fakeRecorder) SaveRankings(_ context.Context, lists []ranking.List) error {
	r.rankings = slices.Clone(lists)
	return r.err
}

// observed collects every snapshot an engine publishes.
type observed struct {
	mu    sync.Mutex
	snaps []engine.Snapshot
}

func (o *observed) record(s engine.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snaps = append(o.snaps, s)
}

func (o *observed) all() []engine.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return slices.Clone(o.snaps)
}

type fixture struct {
	engine   *engine.Engine
	gateway  *fakeGateway
	session  *fakeSession
	recorder *fakeRecorder
	seen     *observed
}

// newFixture loads a five entry ranking A..E with ids 1..5 and starts
// observing after the initial load.
func newFixture(t *testing.T, authorized bool) *fixture {
	t.Helper()
	f := &fixture{
		gateway:  newFakeGateway("main", "A", "B", "C", "D", "E"),
		session:  &fakeSession{authorized: authorized, ranking: "main"},
		recorder: &fakeRecorder{},
		seen:     &observed{},
	}
	eng, err := engine.New(f.gateway, f.session, logging.NewNop(), engine.WithRecorder(f.recorder))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if err := eng.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	eng.OnChange(f.seen.record)
	f.engine = eng
	return f
}

func ids(entries []ranking.Entry) []int64 {
	out := make([]int64, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func requireIDs(t *testing.T, entries []ranking.Entry, want ...int64) {
	t.Helper()
	if got := ids(entries); !slices.Equal(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

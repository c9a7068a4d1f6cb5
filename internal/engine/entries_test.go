package engine_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"songrank/internal/engine"
	"songrank/internal/logging"
	"songrank/internal/ranking"
	"songrank/internal/services"
	"songrank/internal/tabular"
)

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := engine.New(nil, &fakeSession{}, logging.NewNop()); err == nil {
		t.Fatal("expected error for nil gateway")
	}
	if _, err := engine.New(newFakeGateway("main"), nil, logging.NewNop()); err == nil {
		t.Fatal("expected error for nil session")
	}
}

func TestWithEntriesStartsStale(t *testing.T) {
	cached := []ranking.Entry{{ID: 9, Title: "Cached", Rank: 1}}
	eng, err := engine.New(newFakeGateway("main"), &fakeSession{ranking: "main"}, nil, engine.WithEntries(cached))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	snap := eng.Snapshot()
	if !snap.Stale || snap.Ranking != "main" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	requireIDs(t, snap.Entries, 9)
}

func TestAddShowsPlaceholderThenFetchedEntry(t *testing.T) {
	f := newFixture(t, true)

	var pending []ranking.Entry
	f.engine.OnChange(func(s engine.Snapshot) {
		if s.Cause == engine.CauseOptimistic {
			pending = s.Entries
		}
	})

	created, err := f.engine.Add(context.Background(), ranking.Draft{
		VideoID: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=30s",
		Title:   "  Never Gonna Give You Up ",
		Artist:  ranking.String("Rick Astley"),
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if created.ID != 6 || created.Rank != 6 {
		t.Fatalf("unexpected created entry: %+v", created)
	}

	if len(pending) != 6 || !pending[5].Pending() || pending[5].LocalKey == "" || pending[5].Rank != 6 {
		t.Fatalf("expected placeholder at the end, got %+v", pending)
	}
	draft := f.gateway.created[0]
	if draft.VideoID != "dQw4w9WgXcQ" || draft.Title != "Never Gonna Give You Up" {
		t.Fatalf("draft not normalized: %+v", draft)
	}
	got := f.engine.Entries()
	requireIDs(t, got, 1, 2, 3, 4, 5, 6)
	if got[5].Pending() {
		t.Fatalf("placeholder survived reconciliation")
	}
}

func TestRejectsNonCanonicalReference(t *testing.T) {
	f := newFixture(t, true)

	for _, ref := range []string{"not a url", "https://www.youtube.com/watch?v=short", "https://example.com/dQw4w9WgXcQ"} {
		_, err := f.engine.Add(context.Background(), ranking.Draft{VideoID: ref, Title: "X"})
		if !errors.Is(err, engine.ErrInvalidReference) || !errors.Is(err, services.ErrValidation) {
			t.Fatalf("Add(%q): expected invalid reference, got %v", ref, err)
		}
		patch := ranking.Patch{VideoID: &ref}
		if err := f.engine.Update(context.Background(), 2, patch); !errors.Is(err, engine.ErrInvalidReference) {
			t.Fatalf("Update(%q): expected invalid reference, got %v", ref, err)
		}
	}
	if len(f.gateway.created) != 0 || len(f.gateway.updated) != 0 {
		t.Fatalf("invalid references reached the backend: %+v %+v", f.gateway.created, f.gateway.updated)
	}
	if len(f.seen.all()) != 0 {
		t.Fatalf("invalid reference must not show a placeholder")
	}
	if err := f.engine.BeginDrag(0); err != nil {
		t.Fatalf("slot held after rejected reference: %v", err)
	}
	f.engine.CancelDrag()
}

func TestUpdateAndDeleteRequireListedEntry(t *testing.T) {
	f := newFixture(t, true)
	title := "Renamed"

	if err := f.engine.Update(context.Background(), 99, ranking.Patch{Title: &title}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Update: expected not found, got %v", err)
	}
	if err := f.engine.Delete(context.Background(), 99); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("Delete: expected not found, got %v", err)
	}
	if len(f.gateway.updated) != 0 || len(f.gateway.deleted) != 0 {
		t.Fatalf("unknown entry reached the backend")
	}
}

func TestAddFailureRemovesPlaceholder(t *testing.T) {
	f := newFixture(t, true)
	f.gateway.createErr = services.Wrap(services.ErrValidation, "remote", "create entry", "s_title: required", nil)

	_, err := f.engine.Add(context.Background(), ranking.Draft{VideoID: "dQw4w9WgXcQ"})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	requireIDs(t, f.engine.Entries(), 1, 2, 3, 4, 5)

	snaps := f.seen.all()
	if len(snaps) != 2 || snaps[0].Cause != engine.CauseOptimistic || snaps[1].Cause != engine.CauseRollback {
		t.Fatalf("unexpected notifications: %+v", snaps)
	}
	if len(snaps[0].Entries) != 6 || len(snaps[1].Entries) != 5 {
		t.Fatalf("unexpected snapshot sizes: %d, %d", len(snaps[0].Entries), len(snaps[1].Entries))
	}
}

func TestAddRefreshFailureKeepsCreatedEntry(t *testing.T) {
	f := newFixture(t, true)
	f.gateway.listErr = errors.New("offline")

	created, err := f.engine.Add(context.Background(), ranking.Draft{VideoID: "dQw4w9WgXcQ", Title: "Song"})
	if !errors.Is(err, engine.ErrStale) {
		t.Fatalf("expected ErrStale, got %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected created entry despite refresh failure")
	}
	got := f.engine.Entries()
	if len(got) != 6 || got[5].ID != created.ID {
		t.Fatalf("created entry should replace the placeholder: %+v", got)
	}
}

func TestUpdateNormalizesReferenceAndRefreshes(t *testing.T) {
	f := newFixture(t, true)

	ref := "https://youtu.be/dQw4w9WgXcQ"
	title := "Renamed"
	if err := f.engine.Update(context.Background(), 2, ranking.Patch{VideoID: &ref, Title: &title}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	patch := f.gateway.updated[0]
	if *patch.VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("reference not normalized: %q", *patch.VideoID)
	}
	if got := f.engine.Entries()[1]; got.Title != "Renamed" || got.VideoID != "dQw4w9WgXcQ" {
		t.Fatalf("refresh did not pick up the edit: %+v", got)
	}
}

func TestUpdateEmptyPatchSendsNothing(t *testing.T) {
	f := newFixture(t, true)
	if err := f.engine.Update(context.Background(), 2, ranking.Patch{}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if len(f.gateway.updated) != 0 {
		t.Fatalf("unexpected update calls: %+v", f.gateway.updated)
	}
}

func TestUpdateFailureLeavesModel(t *testing.T) {
	f := newFixture(t, true)
	f.gateway.updateErr = services.Wrap(services.ErrValidation, "remote", "update entry", "", nil)

	title := "x"
	if err := f.engine.Update(context.Background(), 2, ranking.Patch{Title: &title}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.engine.Entries()[1].Title != "B" {
		t.Fatalf("model changed after failed update")
	}
	if f.gateway.listCalls != 1 {
		t.Fatalf("failed update must not refetch")
	}
}

func TestDeleteRefreshesRenumberedList(t *testing.T) {
	f := newFixture(t, true)

	if err := f.engine.Delete(context.Background(), 2); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got := f.engine.Entries()
	requireIDs(t, got, 1, 3, 4, 5)
	if err := ranking.CheckDense(got); err != nil {
		t.Fatalf("expected dense ranks after delete: %v", err)
	}
}

func TestMutationsRequireLogin(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	title := "x"

	checks := map[string]error{}
	_, checks["add"] = f.engine.Add(ctx, ranking.Draft{VideoID: "dQw4w9WgXcQ", Title: "x"})
	checks["update"] = f.engine.Update(ctx, 1, ranking.Patch{Title: &title})
	checks["delete"] = f.engine.Delete(ctx, 1)
	_, checks["import"] = f.engine.Import(ctx, "songs.csv", tabular.Encode(f.engine.Entries()))
	_, checks["create ranking"] = f.engine.CreateRanking(ctx, "New", "")
	for name, err := range checks {
		if !errors.Is(err, engine.ErrReadOnly) {
			t.Fatalf("%s: expected ErrReadOnly, got %v", name, err)
		}
	}
	if len(f.gateway.created)+len(f.gateway.updated)+len(f.gateway.deleted)+len(f.gateway.imports) != 0 {
		t.Fatalf("no request should reach the gateway")
	}

	var buf bytes.Buffer
	if err := f.engine.Export(&buf); err != nil {
		t.Fatalf("Export should work read-only: %v", err)
	}
}

func TestImportChecksFileBeforeUpload(t *testing.T) {
	f := newFixture(t, true)

	bad := []byte("rank,yt_id,Artist,Title,Album,released,discovered,comment\n0,aaaaaaaaaaa,,X,,,,\n")
	_, err := f.engine.Import(context.Background(), "bad.csv", bad)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var rowErr *tabular.RowError
	if !errors.As(err, &rowErr) || rowErr.Row != 1 {
		t.Fatalf("expected row error for row 1, got %v", err)
	}
	if len(f.gateway.imports) != 0 {
		t.Fatalf("invalid file must not be uploaded")
	}

	good := tabular.Encode(f.engine.Entries())
	summary, err := f.engine.Import(context.Background(), "songs.csv", good)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if summary.Rows != 5 || summary.MaxRank != 5 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	requireIDs(t, f.engine.Entries(), 100)
}

func TestExportWritesCurrentOrder(t *testing.T) {
	f := newFixture(t, true)
	if err := f.engine.Move(context.Background(), 4, 0); err != nil {
		t.Fatalf("Move: %v", err)
	}

	var buf bytes.Buffer
	if err := f.engine.Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("expected header plus 5 rows, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], `1,vid00000005,"","E"`) {
		t.Fatalf("unexpected first row %q", lines[1])
	}
}

func TestExportNumbersRowsByPosition(t *testing.T) {
	cached := []ranking.Entry{
		{ID: 7, VideoID: "aaaaaaaaaaa", Title: "Seven", Rank: 3},
		{ID: 8, VideoID: "bbbbbbbbbbb", Title: "Eight", Rank: 9},
	}
	eng, err := engine.New(newFakeGateway("main"), &fakeSession{ranking: "main"}, logging.NewNop(), engine.WithEntries(cached))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if !eng.Snapshot().Stale {
		t.Fatal("seeded copy should be stale")
	}

	var buf bytes.Buffer
	if err := eng.Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if !strings.HasPrefix(lines[1], "1,aaaaaaaaaaa,") || !strings.HasPrefix(lines[2], "2,bbbbbbbbbbb,") {
		t.Fatalf("rows not numbered by position: %q", lines[1:])
	}
	if eng.Entries()[1].Rank != 9 {
		t.Fatal("Export must not change the working copy")
	}
}

func TestSelectRankingDiscardsModel(t *testing.T) {
	f := newFixture(t, true)
	f.gateway.seed("summer", "X", "Y")

	if err := f.engine.SelectRanking(context.Background(), " summer "); err != nil {
		t.Fatalf("SelectRanking: %v", err)
	}
	if f.engine.Ranking() != "summer" || f.session.ranking != "summer" {
		t.Fatalf("selection not applied: engine %q session %q", f.engine.Ranking(), f.session.ranking)
	}
	requireIDs(t, f.engine.Entries(), 6, 7)
	snaps := f.seen.all()
	if len(snaps) != 1 || snaps[0].Cause != engine.CauseSelected || snaps[0].Ranking != "summer" {
		t.Fatalf("unexpected notifications: %+v", snaps)
	}
	requireIDs(t, f.recorder.saved["summer"], 6, 7)
}

func TestSelectRankingFailureKeepsCurrentList(t *testing.T) {
	f := newFixture(t, true)

	if err := f.engine.SelectRanking(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown ranking")
	}
	if f.engine.Ranking() != "main" || f.session.ranking != "main" {
		t.Fatalf("selection changed on failure")
	}
	requireIDs(t, f.engine.Entries(), 1, 2, 3, 4, 5)

	if err := f.engine.SelectRanking(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for blank slug, got %v", err)
	}
}

func TestRankingsAreRecorded(t *testing.T) {
	f := newFixture(t, true)
	f.gateway.rankings = []ranking.List{{ID: 1, Name: "Main", Slug: "main"}}

	lists, err := f.engine.Rankings(context.Background())
	if err != nil {
		t.Fatalf("Rankings: %v", err)
	}
	if len(lists) != 1 || len(f.recorder.rankings) != 1 {
		t.Fatalf("unexpected rankings %+v recorded %+v", lists, f.recorder.rankings)
	}
}

func TestCreateRankingDerivesSlug(t *testing.T) {
	f := newFixture(t, true)

	created, err := f.engine.CreateRanking(context.Background(), "Sommer Hits 2024!", "")
	if err != nil {
		t.Fatalf("CreateRanking: %v", err)
	}
	if created.Slug != "sommer-hits-2024" {
		t.Fatalf("unexpected slug %q", created.Slug)
	}
	if _, err := f.engine.CreateRanking(context.Background(), "   ", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.engine.CreateRanking(context.Background(), "!!!", ""); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unsluggable name, got %v", err)
	}
}

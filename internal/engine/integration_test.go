package engine_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"songrank/internal/engine"
	"songrank/internal/logging"
	"songrank/internal/remote"
	"songrank/internal/services"
	"songrank/internal/session"
	"songrank/internal/testsupport"
)

func newRemoteEngine(t *testing.T, backend *testsupport.Backend, loggedIn bool) (*engine.Engine, *session.Session) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithBaseURL(backend.URL()))
	sess, err := session.Open(session.NewFileStore(cfg.SessionPath()), cfg.Session.DefaultRanking)
	if err != nil {
		t.Fatalf("session.Open: %v", err)
	}
	if loggedIn {
		access, refresh := backend.IssueTokens()
		if err := sess.Login("tester", access, refresh); err != nil {
			t.Fatalf("Login: %v", err)
		}
	}
	client, err := remote.New(cfg, sess, logging.NewNop())
	if err != nil {
		t.Fatalf("remote.New: %v", err)
	}
	store := testsupport.MustOpenSnapshots(t, cfg)
	eng, err := engine.New(client, sess, logging.NewNop(), engine.WithRecorder(store))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if err := eng.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return eng, sess
}

func TestRemoteMoveRoundTrip(t *testing.T) {
	backend := testsupport.NewBackend(t)
	seeded := backend.Seed("main", "A", "B", "C", "D", "E")
	eng, _ := newRemoteEngine(t, backend, true)

	if err := eng.Move(context.Background(), 3, 0); err != nil {
		t.Fatalf("Move: %v", err)
	}
	want := []int64{seeded[3].ID, seeded[0].ID, seeded[1].ID, seeded[2].ID, seeded[4].ID}
	requireIDs(t, eng.Entries(), want...)
	requireIDs(t, backend.Entries("main"), want...)
	for i, e := range eng.Entries() {
		if e.Rank != i+1 {
			t.Fatalf("entry %d carries rank %d after reconcile", i, e.Rank)
		}
	}
}

func TestRemoteMoveServerErrorRollsBack(t *testing.T) {
	backend := testsupport.NewBackend(t)
	seeded := backend.Seed("main", "A", "B", "C", "D", "E")
	eng, _ := newRemoteEngine(t, backend, true)

	backend.FailNext(http.MethodPatch, "update/rank/", http.StatusInternalServerError)
	err := eng.Move(context.Background(), 3, 0)
	if !errors.Is(err, services.ErrServer) {
		t.Fatalf("expected server error, got %v", err)
	}
	want := []int64{seeded[0].ID, seeded[1].ID, seeded[2].ID, seeded[3].ID, seeded[4].ID}
	requireIDs(t, eng.Entries(), want...)
	requireIDs(t, backend.Entries("main"), want...)
	if n := len(backend.Calls(http.MethodGet, "songs/")); n != 1 {
		t.Fatalf("expected only the initial fetch, got %d", n)
	}
}

func TestRemoteAnonymousIsReadOnly(t *testing.T) {
	backend := testsupport.NewBackend(t)
	backend.Seed("main", "A", "B")
	eng, _ := newRemoteEngine(t, backend, false)

	if len(eng.Entries()) != 2 {
		t.Fatalf("anonymous load should still list entries")
	}
	if err := eng.Move(context.Background(), 1, 0); !errors.Is(err, engine.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if n := len(backend.Calls(http.MethodPatch, "update/rank/")); n != 0 {
		t.Fatalf("anonymous drag reached the backend %d times", n)
	}
}

func TestRemoteRejectedRefreshLogsOut(t *testing.T) {
	backend := testsupport.NewBackend(t)
	backend.Seed("main", "A", "B")
	eng, sess := newRemoteEngine(t, backend, true)

	backend.ExpireAccess()
	backend.RevokeRefresh()
	err := eng.Move(context.Background(), 1, 0)
	if !errors.Is(err, services.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if sess.Authorized() {
		t.Fatalf("session should be cleared")
	}
	if !eng.ReadOnly() {
		t.Fatalf("engine should be read-only after logout")
	}
	if eng.Entries()[0].Title != "A" {
		t.Fatalf("order should be rolled back")
	}
}

package main

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"songrank/internal/services"
)

func TestListShowsSelectedRanking(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Seed("main", "Alpha", "Bravo", "Charlie")

	out, stderr, err := env.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v (stderr %q)", err, stderr)
	}
	alpha := strings.Index(out, "Alpha")
	charlie := strings.Index(out, "Charlie")
	if alpha < 0 || charlie < 0 || alpha > charlie {
		t.Fatalf("expected Alpha before Charlie in output:\n%s", out)
	}
	requireContains(t, out, "vid00000002")
	if strings.Contains(out, "out of date") {
		t.Fatalf("fresh list should not be marked stale:\n%s", out)
	}
}

func TestListJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Seed("main", "Alpha", "Bravo")

	out, _, err := env.run(t, "--json", "list")
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	var payload listJSON
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode list json: %v\n%s", err, out)
	}
	if payload.Ranking != "main" || payload.Stale || payload.FetchedAt != nil {
		t.Fatalf("unexpected list header: %+v", payload)
	}
	if len(payload.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(payload.Entries))
	}
	if payload.Entries[1].Position != 2 || payload.Entries[1].Title != "Bravo" || payload.Entries[1].VideoID != "vid00000002" {
		t.Fatalf("unexpected second entry: %+v", payload.Entries[1])
	}
	if got := payload.Entries[1].Thumbnail; got != "https://img.youtube.com/vi/vid00000002/mqdefault.jpg" {
		t.Fatalf("thumbnail_url = %q", got)
	}
	if got := payload.Entries[1].WatchURL; got != "https://www.youtube.com/watch?v=vid00000002" {
		t.Fatalf("watch_url = %q", got)
	}
}

func TestListEmptyRanking(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, `Ranking "main" is empty`)
}

func TestListFallsBackToCachedCopyWhenOffline(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Seed("main", "Alpha", "Bravo", "Charlie")

	offline := env.offlineConfig(t)
	if _, _, err := runCLI(t, []string{"list"}, offline); !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected network error before anything is cached, got %v", err)
	}

	if _, _, err := env.run(t, "list"); err != nil {
		t.Fatalf("online list: %v", err)
	}

	out, stderr, err := runCLI(t, []string{"list"}, offline)
	if err != nil {
		t.Fatalf("offline list: %v", err)
	}
	requireContains(t, stderr, "backend unreachable")
	requireContains(t, out, "Charlie")
	requireContains(t, out, "may be out of date")

	out, _, err = runCLI(t, []string{"--json", "list", "--offline"}, offline)
	if err != nil {
		t.Fatalf("list --offline: %v", err)
	}
	var payload listJSON
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode list json: %v\n%s", err, out)
	}
	if !payload.Stale || payload.FetchedAt == nil || len(payload.Entries) != 3 {
		t.Fatalf("unexpected cached listing: %+v", payload)
	}
}

func TestListOfflineWithoutCache(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "list", "--offline")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found without cache, got %v", err)
	}
}

func TestFindAndPlay(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Seed("main", "Bohemian Rhapsody", "Clocks", "Blinding Lights")

	out, _, err := env.run(t, "find", "clocks")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	requireContains(t, out, "Clocks")
	if strings.Contains(out, "Rhapsody") {
		t.Fatalf("find returned unrelated entries:\n%s", out)
	}

	out, _, err = env.run(t, "find", "zzzz")
	if err != nil {
		t.Fatalf("find without hits: %v", err)
	}
	requireContains(t, out, "No matches")

	out, _, err = env.run(t, "play", "top", "2")
	if err != nil {
		t.Fatalf("play top: %v", err)
	}
	requireContains(t, out, "watch_videos?video_ids=vid00000001,vid00000002\n")

	first, _, err := env.run(t, "play", "random", "2", "--seed", "7")
	if err != nil {
		t.Fatalf("play random: %v", err)
	}
	second, _, err := env.run(t, "play", "random", "2", "--seed", "7")
	if err != nil {
		t.Fatalf("play random again: %v", err)
	}
	if first != second {
		t.Fatalf("same seed produced different playlists: %q vs %q", first, second)
	}
	if strings.Count(first, "vid") != 2 {
		t.Fatalf("expected two videos in %q", first)
	}

	_, _, err = env.run(t, "play", "shuffle")
	if code := services.ExitCode(err); code != services.ExitValidation {
		t.Fatalf("exit code = %d, want %d", code, services.ExitValidation)
	}
}

func TestLogsShowsRecordedChanges(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Seed("main", "Alpha", "Bravo")
	env.login(t)

	out, _, err := env.run(t, "logs")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "No log entries")

	if _, _, err := env.run(t, "move", "2", "1"); err != nil {
		t.Fatalf("move: %v", err)
	}
	out, _, err = env.run(t, "logs", "-n", "5")
	if err != nil {
		t.Fatalf("logs -n: %v", err)
	}
	requireContains(t, out, "entry moved")
}

package main

import (
	"encoding/json"
	"errors"
	"testing"

	"songrank/internal/engine"
	"songrank/internal/services"
)

func TestRankingsCreateUseAndList(t *testing.T) {
	env := setupCLITestEnv(t)
	env.backend.Seed("main", "Alpha")

	_, _, err := env.run(t, "rankings", "create", "Sommer Hits 2024")
	if !errors.Is(err, engine.ErrReadOnly) {
		t.Fatalf("expected anonymous create to be refused, got %v", err)
	}

	env.login(t)
	out, _, err := env.run(t, "rankings", "create", "Sommer Hits 2024", "--use")
	if err != nil {
		t.Fatalf("rankings create: %v", err)
	}
	requireContains(t, out, `Created ranking "Sommer Hits 2024" (sommer-hits-2024)`)

	out, _, err = env.run(t, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	requireContains(t, out, "sommer-hits-2024")

	out, _, err = env.run(t, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	requireContains(t, out, `Ranking "sommer-hits-2024" is empty`)

	out, _, err = env.run(t, "rankings", "list")
	if err != nil {
		t.Fatalf("rankings list: %v", err)
	}
	requireContains(t, out, "Main")
	requireContains(t, out, "Sommer Hits 2024")

	out, _, err = env.run(t, "--json", "rankings", "list")
	if err != nil {
		t.Fatalf("rankings list --json: %v", err)
	}
	var lists []rankingJSON
	if err := json.Unmarshal([]byte(out), &lists); err != nil {
		t.Fatalf("decode rankings json: %v\n%s", err, out)
	}
	if len(lists) != 2 || lists[0].Selected || !lists[1].Selected {
		t.Fatalf("unexpected rankings: %+v", lists)
	}

	out, _, err = env.run(t, "rankings", "use", "main")
	if err != nil {
		t.Fatalf("rankings use: %v", err)
	}
	requireContains(t, out, "Selected ranking main (1 entries)")
}

func TestRankingsDuplicateSlug(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	_, _, err := env.run(t, "rankings", "create", "Main again", "--slug", "main")
	if code := services.ExitCode(err); code != services.ExitValidation {
		t.Fatalf("exit code = %d (%v), want %d", code, err, services.ExitValidation)
	}
}

func TestRankingsUseUnknownKeepsSelection(t *testing.T) {
	env := setupCLITestEnv(t)
	env.login(t)

	_, _, err := env.run(t, "rankings", "use", "missing")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	out, _, err := env.run(t, "whoami")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	requireContains(t, out, "main")
}

func TestRankingsListOfflineUsesCache(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := env.run(t, "rankings", "list"); err != nil {
		t.Fatalf("rankings list: %v", err)
	}

	out, stderr, err := runCLI(t, []string{"rankings", "list"}, env.offlineConfig(t))
	if err != nil {
		t.Fatalf("offline rankings list: %v", err)
	}
	requireContains(t, stderr, "cached rankings")
	requireContains(t, out, "Main")
}

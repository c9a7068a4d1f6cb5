package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"songrank/internal/config"
	"songrank/internal/testsupport"
)

const (
	testUser     = "ana"
	testPassword = "s3cret"
)

type cliTestEnv struct {
	backend    *testsupport.Backend
	configPath string
	stateDir   string
	exportDir  string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv(config.BaseURLEnv, "")

	backend := testsupport.NewBackend(t)
	backend.AddUser(testUser, testPassword)

	env := &cliTestEnv{
		backend:    backend,
		configPath: filepath.Join(homeDir, ".config", "songrank", "config.toml"),
		stateDir:   filepath.Join(base, "state"),
		exportDir:  filepath.Join(base, "export"),
		baseDir:    base,
	}
	env.writeConfig(t, env.configPath, backend.URL())
	return env
}

// writeConfig writes a config at path that shares the env's state directory
// but talks to baseURL.
func (env *cliTestEnv) writeConfig(t *testing.T, path, baseURL string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, path, baseURL, env.stateDir, env.exportDir)
}

// offlineConfig returns a config path whose backend refuses connections.
func (env *cliTestEnv) offlineConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(env.baseDir, "offline.toml")
	env.writeConfig(t, path, "http://127.0.0.1:1/api/")
	return path
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return runCLI(t, args, env.configPath)
}

func (env *cliTestEnv) login(t *testing.T) {
	t.Helper()
	if _, stderr, err := env.run(t, "login", testUser, "--password", testPassword); err != nil {
		t.Fatalf("login: %v (stderr %q)", err, stderr)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	return runCLIWithInput(t, args, configPath, "")
}

func runCLIWithInput(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path, baseURL, stateDir, exportDir string) {
	t.Helper()
	content := fmt.Sprintf(
		"[remote]\nbase_url = %q\ntimeout_seconds = 5\n\n[paths]\nstate_dir = %q\nexport_dir = %q\n\n[logging]\nretention_days = 0\n",
		baseURL,
		stateDir,
		exportDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func requireTitles(t *testing.T, backend *testsupport.Backend, want ...string) {
	t.Helper()
	entries := backend.Entries(testsupport.DefaultSlug)
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = e.Title
		if e.Rank != i+1 {
			t.Fatalf("rank at position %d = %d, want dense ranks: %+v", i, e.Rank, entries)
		}
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("backend order = %v, want %v", got, want)
	}
}

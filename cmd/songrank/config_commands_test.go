package main

import (
	"os"
	"path/filepath"
	"testing"

	"songrank/internal/config"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.backend.URL())

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	requireContains(t, out, config.BaseURLEnv)

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if string(data) != config.SampleConfig() {
		t.Fatalf("init wrote unexpected content")
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatalf("expected init to refuse overwriting without --overwrite")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "bad.toml")
	if err := os.WriteFile(path, []byte("[remote]\nbase_url = \"ftp://nowhere\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "validate"}, path); err == nil {
		t.Fatalf("expected validation error for non-http base url")
	}
}

func TestNormalizeRunsWithoutConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.BaseURLEnv, "")

	out, _, err := runCLI(t, []string{
		"normalize",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42",
		"https://youtu.be/9bZkp7q19f0",
		"not a link",
	}, "")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	requireContains(t, out, "dQw4w9WgXcQ\n")
	requireContains(t, out, "9bZkp7q19f0\n")
	requireContains(t, out, "not a link\t(not a recognised video id)")

	out, _, err = runCLI(t, []string{"--json", "normalize", "dQw4w9WgXcQ"}, "")
	if err != nil {
		t.Fatalf("normalize --json: %v", err)
	}
	requireContains(t, out, `"watch_url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"`)
}

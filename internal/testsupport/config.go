package testsupport

import (
	"path/filepath"
	"testing"

	"songrank/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Remote.BaseURL = "http://127.0.0.1:1/api/"
	cfgVal.Remote.TimeoutSeconds = 5
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.ExportDir = filepath.Join(base, "export")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithBaseURL points the config at a test backend.
func WithBaseURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.BaseURL = url
	}
}

// WithDefaultRanking overrides the ranking selected for fresh sessions.
func WithDefaultRanking(slug string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Session.DefaultRanking = slug
	}
}

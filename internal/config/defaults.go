package config

const (
	defaultConfigPath       = "~/.config/songrank/config.toml"
	defaultStateDir         = "~/.local/share/songrank"
	defaultExportDir        = "."
	defaultTimeoutSeconds   = 15
	defaultUserAgent        = "songrank/dev"
	defaultRanking          = "main"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30

	// BaseURLEnv overrides remote.base_url when the file leaves it empty.
	BaseURLEnv = "SONGRANK_API_URL"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Remote: Remote{
			TimeoutSeconds: defaultTimeoutSeconds,
			UserAgent:      defaultUserAgent,
		},
		Paths: Paths{
			StateDir:  defaultStateDir,
			ExportDir: defaultExportDir,
		},
		Session: Session{
			DefaultRanking: defaultRanking,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

package config

import "time"

// DefaultBranch is used when no branch list is configured.
const DefaultBranch = "master"

// Config represents the complete pushgate configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Hooks   HooksConfig   `yaml:"hooks"`
	GitHub  GitHubConfig  `yaml:"github"`
	State   StateConfig   `yaml:"state,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Listen      string `yaml:"listen"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MaxBodySize int64  `yaml:"max_body_size,omitempty"`
}

// HooksConfig defines hook discovery and execution settings.
type HooksConfig struct {
	// Dir is the directory scanned once at startup for executable hooks.
	Dir string `yaml:"dir"`

	// Timeout bounds a single hook's run time. On expiry the hook is sent
	// SIGTERM, then SIGKILL after a grace period.
	Timeout time.Duration `yaml:"timeout"`
}

// GitHubConfig defines webhook authentication settings.
type GitHubConfig struct {
	// Secret is the shared webhook secret used for HMAC verification.
	// Required; startup fails without it.
	Secret string `yaml:"secret"`

	// Branches is the exact-match set of branches that trigger hooks.
	// Empty falls back to DefaultBranch.
	Branches []string `yaml:"branches,omitempty"`

	// MetaURL overrides the GitHub API base URL used to fetch the
	// trusted hook CIDR ranges. Used in tests.
	MetaURL string `yaml:"meta_url,omitempty"`
}

// StateConfig defines optional last-run persistence.
type StateConfig struct {
	// Path is the SQLite file holding the most recent dispatch record.
	// Empty disables persistence; /logs then resets on restart.
	Path string `yaml:"path,omitempty"`
}

// Defaults returns a Config populated with default values.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Listen:      ":8000",
			LogLevel:    "INFO",
			LogFormat:   "json",
			MaxBodySize: 1 << 20, // 1 MiB
		},
		Hooks: HooksConfig{
			Dir:     "/app/hooks",
			Timeout: 60 * time.Second,
		},
	}
}

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads configuration from an optional YAML file, expands ${ENV_VAR}
// references, applies PUSHGATE_* environment overrides, and validates.
// An empty configPath loads defaults plus environment overrides only, so a
// bare environment-variable deployment works without a config file.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("config file not found: %s\n"+
				"Hint: check the path or run with --config flag", configPath)
		}

		expanded := expandEnvRefs(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.GitHub.Branches = normalizeBranches(cfg.GitHub.Branches)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// expandEnvRefs replaces ${VAR} references with environment values.
// Unset variables expand to the empty string.
func expandEnvRefs(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})
}

// applyEnvOverrides lets environment variables win over file values, so
// container deployments can configure everything without a mounted file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PUSHGATE_LISTEN"); v != "" {
		cfg.Service.Listen = v
	}
	if v := os.Getenv("PUSHGATE_HOOKS_DIR"); v != "" {
		cfg.Hooks.Dir = v
	}
	if v := os.Getenv("PUSHGATE_SECRET"); v != "" {
		cfg.GitHub.Secret = v
	}
	if v, ok := os.LookupEnv("PUSHGATE_BRANCH_LIST"); ok {
		cfg.GitHub.Branches = strings.Split(v, ",")
	}
	if v := os.Getenv("PUSHGATE_STATE_PATH"); v != "" {
		cfg.State.Path = v
	}
	if v := os.Getenv("PUSHGATE_LOG_LEVEL"); v != "" {
		cfg.Service.LogLevel = v
	}
}

// normalizeBranches trims entries and drops empty ones, so an empty
// environment value (which a split turns into [""]) still falls back to the
// default branch instead of silently rejecting everything.
func normalizeBranches(branches []string) []string {
	out := make([]string, 0, len(branches))
	for _, b := range branches {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		return []string{DefaultBranch}
	}
	return out
}

// BranchSet returns the allowed branches as a membership set.
func (c *Config) BranchSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.GitHub.Branches))
	for _, b := range c.GitHub.Branches {
		set[b] = struct{}{}
	}
	return set
}

// validate checks required fields. The secret is a construction-time
// requirement: a listener without one cannot authenticate anything.
func validate(cfg *Config) error {
	var problems []string

	if cfg.GitHub.Secret == "" {
		problems = append(problems, "github.secret is required (or set PUSHGATE_SECRET)")
	}
	if cfg.Hooks.Dir == "" {
		problems = append(problems, "hooks.dir is required")
	}
	if cfg.Hooks.Timeout <= 0 {
		problems = append(problems, "hooks.timeout must be positive")
	}
	if cfg.Service.Listen == "" {
		problems = append(problems, "service.listen is required")
	}
	if cfg.Service.MaxBodySize <= 0 {
		problems = append(problems, "service.max_body_size must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

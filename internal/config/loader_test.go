package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
service:
  listen: ":9000"
  log_level: DEBUG
hooks:
  dir: /srv/hooks
  timeout: 30s
github:
  secret: hunter2
  branches: [release, master]
state:
  path: /var/lib/pushgate/state.db
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Service.Listen)
	assert.Equal(t, "/srv/hooks", cfg.Hooks.Dir)
	assert.Equal(t, 30*time.Second, cfg.Hooks.Timeout)
	assert.Equal(t, []string{"release", "master"}, cfg.GitHub.Branches)
	assert.Equal(t, "/var/lib/pushgate/state.db", cfg.State.Path)
}

func TestLoadMissingSecretFails(t *testing.T) {
	path := writeConfig(t, `
hooks:
  dir: /srv/hooks
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "github.secret")
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("TEST_PUSHGATE_SECRET_REF", "from-env")
	path := writeConfig(t, `
github:
  secret: ${TEST_PUSHGATE_SECRET_REF}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.GitHub.Secret)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PUSHGATE_SECRET", "env-secret")
	t.Setenv("PUSHGATE_HOOKS_DIR", "/env/hooks")
	t.Setenv("PUSHGATE_BRANCH_LIST", "main,release")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.GitHub.Secret)
	assert.Equal(t, "/env/hooks", cfg.Hooks.Dir)
	assert.Equal(t, []string{"main", "release"}, cfg.GitHub.Branches)
}

func TestBranchFallback(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil list", nil, []string{DefaultBranch}},
		{"empty split artifact", []string{""}, []string{DefaultBranch}},
		{"only separators", []string{"", " ", ""}, []string{DefaultBranch}},
		{"explicit list kept verbatim", []string{"release", "master"}, []string{"release", "master"}},
		{"blanks dropped around real entries", []string{"", "main", " "}, []string{"main"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeBranches(tt.in))
		})
	}
}

func TestBranchFallbackViaEnv(t *testing.T) {
	// An empty env value is the case the naive split used to mishandle.
	t.Setenv("PUSHGATE_SECRET", "s")
	t.Setenv("PUSHGATE_BRANCH_LIST", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultBranch}, cfg.GitHub.Branches)
}

func TestDefaults(t *testing.T) {
	t.Setenv("PUSHGATE_SECRET", "s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Service.Listen)
	assert.Equal(t, 60*time.Second, cfg.Hooks.Timeout)
	assert.Equal(t, []string{DefaultBranch}, cfg.GitHub.Branches)
	assert.Empty(t, cfg.State.Path)
}

func TestBranchSet(t *testing.T) {
	cfg := &Config{GitHub: GitHubConfig{Branches: []string{"release", "master"}}}
	set := cfg.BranchSet()

	_, ok := set["release"]
	assert.True(t, ok)
	_, ok = set["develop"]
	assert.False(t, ok)
}

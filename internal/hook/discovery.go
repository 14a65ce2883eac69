// Package hook discovers the executable deploy hooks that run on an
// accepted push. Discovery happens once at startup; the resulting set is
// immutable for the process lifetime.
package hook

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

// Hook is a single discovered executable.
type Hook struct {
	// Name is the file name, used in logs and the /hooks listing.
	Name string

	// Path is the resolved absolute path to the executable.
	Path string

	// Fingerprint is the BLAKE3 hash of the file content at discovery time.
	// It is re-verified before every execution; a hook that changed on disk
	// after discovery is skipped rather than run.
	Fingerprint string
}

// Discover scans dir (non-recursive) for executable regular files and
// returns them sorted by name. The sort order is the dispatch order.
// Zero executable hooks is an error: a listener that accepts pushes but can
// act on none of them should refuse to start instead.
func Discover(dir string, logger func(level, msg string, args ...any)) ([]Hook, error) {
	if logger == nil {
		logger = func(level, msg string, args ...any) {}
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve hooks dir %q: %w", dir, err)
	}

	info, err := os.Stat(absDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("hooks dir does not exist: %s", absDir)
		}
		return nil, fmt.Errorf("stat hooks dir %s: %w", absDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("hooks dir is not a directory: %s", absDir)
	}
	if info.Mode().Perm()&0o002 != 0 {
		return nil, fmt.Errorf("hooks dir is world-writable: %s", absDir)
	}

	entries, err := os.ReadDir(absDir)
	if err != nil {
		return nil, fmt.Errorf("read hooks dir %s: %w", absDir, err)
	}

	var hooks []Hook
	for _, entry := range entries {
		path := filepath.Join(absDir, entry.Name())

		h, err := loadHook(path, absDir)
		if err != nil {
			logger("debug", "skipping non-hook entry", "path", path, "reason", err.Error())
			continue
		}

		hooks = append(hooks, h)
		logger("info", "discovered hook", "hook", h.Name, "fingerprint", h.Fingerprint)
	}

	if len(hooks) == 0 {
		return nil, fmt.Errorf("no executable hooks found in %s; "+
			"did you forget to mount something or chmod +x them?", absDir)
	}

	sort.Slice(hooks, func(i, j int) bool { return hooks[i].Name < hooks[j].Name })
	return hooks, nil
}

// loadHook validates a single directory entry as an executable hook.
func loadHook(path, hooksDir string) (Hook, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return Hook{}, fmt.Errorf("resolve symlink: %w", err)
	}

	// A symlinked hook must still resolve inside the hooks root.
	resolvedDir, err := filepath.EvalSymlinks(hooksDir)
	if err != nil {
		return Hook{}, fmt.Errorf("resolve hooks dir symlink: %w", err)
	}
	if !strings.HasPrefix(resolved, resolvedDir+string(os.PathSeparator)) {
		return Hook{}, fmt.Errorf("hook %s resolves outside hooks dir", path)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return Hook{}, fmt.Errorf("stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Hook{}, fmt.Errorf("not a regular file")
	}
	if info.Mode()&0o111 == 0 {
		return Hook{}, fmt.Errorf("not executable")
	}

	fp, err := fingerprint(resolved)
	if err != nil {
		return Hook{}, fmt.Errorf("fingerprint: %w", err)
	}

	return Hook{
		Name:        filepath.Base(path),
		Path:        resolved,
		Fingerprint: fp,
	}, nil
}

// Verify re-hashes the hook on disk and compares against the discovery-time
// fingerprint.
func (h Hook) Verify() error {
	fp, err := fingerprint(h.Path)
	if err != nil {
		return fmt.Errorf("fingerprint %s: %w", h.Name, err)
	}
	if fp != h.Fingerprint {
		return fmt.Errorf("hook %s changed on disk since discovery (expected %s, got %s)",
			h.Name, h.Fingerprint, fp)
	}
	return nil
}

// fingerprint computes the BLAKE3 hash of a file.
func fingerprint(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

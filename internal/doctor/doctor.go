// Package doctor validates a pushgate installation before it starts
// serving: configuration, hook discovery, and optionally the live
// allowlist fetch.
package doctor

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/mattjoyce/pushgate/internal/allowlist"
	"github.com/mattjoyce/pushgate/internal/config"
	"github.com/mattjoyce/pushgate/internal/hook"
)

// Result holds the outcome of a validation run.
type Result struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors,omitempty"`
	Warnings []Issue `json:"warnings,omitempty"`
}

// Issue describes a single validation error or warning.
type Issue struct {
	Category string `json:"category"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
}

// Options control optional live checks.
type Options struct {
	// CheckAllowlist performs a real meta-endpoint fetch. Off by default so
	// the doctor works offline.
	CheckAllowlist bool
}

// Doctor validates configuration and the hook installation.
type Doctor struct {
	cfg *config.Config
}

// New creates a Doctor from a loaded config.
func New(cfg *config.Config) *Doctor {
	return &Doctor{cfg: cfg}
}

// Validate runs all checks and returns a result.
func (d *Doctor) Validate(ctx context.Context, opts Options) *Result {
	r := &Result{Valid: true}

	d.checkSecret(r)
	d.checkHooks(r)
	d.checkState(r)
	if opts.CheckAllowlist {
		d.checkAllowlist(ctx, r)
	}

	r.Valid = len(r.Errors) == 0
	return r
}

func (d *Doctor) addError(r *Result, category, field, msg string) {
	r.Errors = append(r.Errors, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) addWarning(r *Result, category, field, msg string) {
	r.Warnings = append(r.Warnings, Issue{Category: category, Field: field, Message: msg})
}

func (d *Doctor) checkSecret(r *Result) {
	if d.cfg.GitHub.Secret == "" {
		d.addError(r, "github", "github.secret", "webhook secret is required")
		return
	}
	if len(d.cfg.GitHub.Secret) < 16 {
		d.addWarning(r, "github", "github.secret",
			"webhook secret is shorter than 16 bytes; consider a longer one")
	}
}

// checkHooks performs a discovery dry run against the configured directory.
func (d *Doctor) checkHooks(r *Result) {
	dir := d.cfg.Hooks.Dir
	if dir == "" {
		d.addError(r, "hooks", "hooks.dir", "hooks.dir is required")
		return
	}

	info, err := os.Stat(dir)
	if err != nil {
		d.addError(r, "hooks", "hooks.dir", fmt.Sprintf("cannot stat %s: %v", dir, err))
		return
	}
	if !info.IsDir() {
		d.addError(r, "hooks", "hooks.dir", fmt.Sprintf("%s is not a directory", dir))
		return
	}

	if _, err := hook.Discover(dir, nil); err != nil {
		d.addError(r, "hooks", "hooks.dir", err.Error())
		return
	}

	// Flag entries that look like hooks but would be silently skipped.
	entries, err := os.ReadDir(dir)
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			fi, err := e.Info()
			if err != nil || !fi.Mode().IsRegular() {
				continue
			}
			if fi.Mode()&0o111 == 0 {
				d.addWarning(r, "hooks", e.Name(),
					"not executable; it will be ignored (chmod +x to enable)")
			}
		}
	}

	if d.cfg.Hooks.Timeout <= 0 {
		d.addError(r, "hooks", "hooks.timeout", "timeout must be positive")
	}
}

func (d *Doctor) checkState(r *Result) {
	if d.cfg.State.Path == "" {
		d.addWarning(r, "state", "state.path",
			"no state path configured; /logs resets on restart")
	}
}

// checkAllowlist fetches the live meta endpoint.
func (d *Doctor) checkAllowlist(ctx context.Context, r *Result) {
	set, err := allowlist.Fetch(ctx, http.DefaultClient, d.cfg.GitHub.MetaURL)
	if err != nil {
		d.addError(r, "allowlist", "github.meta_url", err.Error())
		return
	}
	if set.Len() == 0 {
		d.addError(r, "allowlist", "github.meta_url", "meta endpoint returned no ranges")
	}
}

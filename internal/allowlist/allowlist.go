// Package allowlist holds the set of network ranges GitHub publishes as
// webhook sources. Requests from outside the set are rejected before any
// signature work happens.
//
// The set is fetched once at startup from the /meta endpoint and is
// immutable afterwards. Starting without a known-good set is a fatal error:
// a listener that cannot tell GitHub traffic from anything else must not
// accept webhooks at all.
package allowlist

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"

	"github.com/google/go-github/v84/github"
)

// Set is an immutable collection of trusted CIDR ranges.
type Set struct {
	prefixes []netip.Prefix
}

// New builds a Set from CIDR strings. Every entry must parse; a partial
// allowlist is worse than none.
func New(cidrs []string) (Set, error) {
	if len(cidrs) == 0 {
		return Set{}, fmt.Errorf("allowlist is empty")
	}

	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		p, err := netip.ParsePrefix(c)
		if err != nil {
			return Set{}, fmt.Errorf("parse allowlist range %q: %w", c, err)
		}
		prefixes = append(prefixes, p.Masked())
	}
	if len(prefixes) == 0 {
		return Set{}, fmt.Errorf("allowlist is empty")
	}

	return Set{prefixes: prefixes}, nil
}

// Trusted reports whether addr falls within at least one range.
func (s Set) Trusted(addr netip.Addr) bool {
	for _, p := range s.prefixes {
		if p.Contains(addr.Unmap()) {
			return true
		}
	}
	return false
}

// Len returns the number of ranges in the set.
func (s Set) Len() int {
	return len(s.prefixes)
}

// Fetch retrieves GitHub's published webhook source ranges from the meta
// endpoint. baseURL overrides the GitHub API base (for tests); empty means
// api.github.com.
func Fetch(ctx context.Context, httpClient *http.Client, baseURL string) (Set, error) {
	client := github.NewClient(httpClient)
	if baseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/")
		if err != nil {
			return Set{}, fmt.Errorf("parse meta base URL: %w", err)
		}
		client.BaseURL = u
	}

	meta, _, err := client.Meta.Get(ctx)
	if err != nil {
		return Set{}, fmt.Errorf("fetch github meta: %w", err)
	}
	if len(meta.Hooks) == 0 {
		return Set{}, fmt.Errorf("github meta returned no hook ranges")
	}

	return New(meta.Hooks)
}

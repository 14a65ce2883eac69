package webhook

import (
	"encoding/json"
	"strings"
)

// EventKind is the outcome of classifying a delivery.
type EventKind int

const (
	// KindPing is answered with a pong regardless of body content.
	KindPing EventKind = iota
	// KindPush carries a branch extracted from the payload ref.
	KindPush
	// KindUnsupported is any other event value.
	KindUnsupported
	// KindMalformed is a push whose payload or ref could not be parsed.
	KindMalformed
)

// Classification is the result of interpreting a delivery's event header
// and body. Branch is set only for KindPush.
type Classification struct {
	Kind   EventKind
	Branch string
}

// pushPayload is the slice of the push event body we care about.
type pushPayload struct {
	Ref string `json:"ref"`
}

// classify determines the event kind and, for pushes, extracts the target
// branch from the payload's ref ("refs/heads/<branch>"; the branch is
// everything after the second separator).
//
// A missing event header is treated as a ping: GitHub sends a ping on hook
// creation and a benign pong is the safe default.
func classify(event string, body []byte) Classification {
	switch event {
	case "", eventPing:
		return Classification{Kind: KindPing}
	case eventPush:
	default:
		return Classification{Kind: KindUnsupported}
	}

	var payload pushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Classification{Kind: KindMalformed}
	}

	parts := strings.SplitN(payload.Ref, "/", 3)
	if len(parts) != 3 || parts[2] == "" {
		return Classification{Kind: KindMalformed}
	}

	return Classification{Kind: KindPush, Branch: parts[2]}
}

// branchAllowed is an exact-match membership test; no glob or prefix
// matching.
func branchAllowed(branch string, set map[string]struct{}) bool {
	_, ok := set[branch]
	return ok
}

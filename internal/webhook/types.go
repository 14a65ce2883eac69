package webhook

import (
	"context"
	"net/http"

	"github.com/mattjoyce/pushgate/internal/dispatch"
)

// GitHub webhook headers.
const (
	SignatureHeader = "X-Hub-Signature"
	EventHeader     = "X-GitHub-Event"
)

// Event kind values.
const (
	eventPing = "ping"
	eventPush = "push"
)

// RejectReason identifies why a delivery was turned away. The reason is
// logged and counted server-side; the HTTP response stays generic.
type RejectReason string

const (
	RejectOrigin             RejectReason = "origin"
	RejectSignatureMissing   RejectReason = "signature-missing"
	RejectSignatureMalformed RejectReason = "signature-malformed"
	RejectSignatureMismatch  RejectReason = "signature-mismatch"
	RejectEventUnsupported   RejectReason = "event-unsupported"
	RejectPayloadMalformed   RejectReason = "payload-malformed"
	RejectBranchNotAllowed   RejectReason = "branch-not-allowed"
)

// Status maps a reason to its HTTP status. Only payload parse failures are
// the sender's data problem; everything else is forbidden.
func (r RejectReason) Status() int {
	if r == RejectPayloadMalformed {
		return http.StatusBadRequest
	}
	return http.StatusForbidden
}

// Dispatcher runs the discovered hooks for an accepted push. The server
// discards the per-hook results; they exist for callers that dispatch
// synchronously.
type Dispatcher interface {
	Dispatch(ctx context.Context, branch string) []dispatch.ExecutionResult
}

// pongResponse is the ping acknowledgement body.
type pongResponse struct {
	Msg string `json:"msg"`
}

// errorResponse is the JSON body for rejections.
type errorResponse struct {
	Error string `json:"error"`
}

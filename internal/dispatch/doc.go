// Package dispatch runs the discovered hooks for an accepted push.
//
// Hooks run sequentially in discovery order, each as a separate subprocess
// with the branch name as its sole argument. One hook's failure never
// suppresses the rest. Every hook is bounded by a timeout: on expiry it gets
// SIGTERM, then SIGKILL after a grace period, and the run is recorded as
// failed rather than left hanging.
//
// After each hook completes, its captured stdout/stderr overwrites the
// shared execution log as one atomic record; after a full cycle only the
// last hook's output remains, which is what /logs serves.
package dispatch

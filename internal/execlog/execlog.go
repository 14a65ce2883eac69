// Package execlog holds the captured output of the most recent hook
// execution. It is a single-slot record: every write replaces the whole
// record, and readers always get a consistent snapshot, never a torn mix of
// one dispatch's stdout with another's stderr.
package execlog

import (
	"context"
	"sync"
	"time"
)

// Record is one hook execution's captured output.
type Record struct {
	Hook     string
	Branch   string
	ExitCode int
	Stdout   string
	Stderr   string
	At       time.Time
}

// Store persists the most recent record across restarts. Implemented by the
// storage package; optional.
type Store interface {
	SaveLastRun(ctx context.Context, rec Record) error
	LoadLastRun(ctx context.Context) (Record, bool, error)
}

// Log is the process-wide execution log.
type Log struct {
	mu    sync.RWMutex
	last  Record
	store Store
}

// New creates an empty Log. When store is non-nil the previous record is
// loaded from it, so /logs survives a restart.
func New(ctx context.Context, store Store) (*Log, error) {
	l := &Log{store: store}
	if store != nil {
		rec, ok, err := store.LoadLastRun(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			l.last = rec
		}
	}
	return l, nil
}

// Set atomically replaces the record. The persistence write happens outside
// the lock; a failed write never blocks the in-memory log.
func (l *Log) Set(ctx context.Context, rec Record) error {
	l.mu.Lock()
	l.last = rec
	l.mu.Unlock()

	if l.store != nil {
		return l.store.SaveLastRun(ctx, rec)
	}
	return nil
}

// Snapshot returns a copy of the most recent record.
func (l *Log) Snapshot() Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

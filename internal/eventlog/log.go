// Package eventlog is the append-only will journal. Every state change the
// engine commits becomes a batch of events in one block; readers page through
// the journal in cursor order, both for historical backfill and live follow.
package eventlog

import (
	"context"
	"errors"

	"willvault/internal/event"
)

// ErrEmptyAppend is returned when Append is called without events
var ErrEmptyAppend = errors.New("no events to append")

// Store is an ordered, replayable event journal
type Store interface {
	// Append atomically writes a batch of events as the next block and
	// returns them with Block and Index assigned.
	Append(ctx context.Context, events []event.Event) ([]event.Event, error)

	// ListAfter returns up to limit events strictly after the cursor,
	// in ascending cursor order.
	ListAfter(ctx context.Context, after event.Cursor, limit int) ([]event.Event, error)

	// Head returns the cursor of the newest event, ok=false when empty
	Head(ctx context.Context) (event.Cursor, bool, error)

	// Horizon returns the cursor of the oldest retained event, ok=false
	// when empty. Events before the horizon are no longer fetchable.
	Horizon(ctx context.Context) (event.Cursor, bool, error)
}

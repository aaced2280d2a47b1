package eventlog

import (
	"context"
	"sync"

	"willvault/internal/event"
)

// MemoryLog is an in-memory Store for tests and the simulator
type MemoryLog struct {
	mu        sync.RWMutex
	events    []event.Event
	nextBlock uint64
}

// NewMemoryLog creates an empty in-memory journal
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{nextBlock: 1}
}

// Append writes the batch as the next block
func (l *MemoryLog) Append(ctx context.Context, events []event.Event) ([]event.Event, error) {
	if len(events) == 0 {
		return nil, ErrEmptyAppend
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	block := l.nextBlock
	l.nextBlock++

	out := make([]event.Event, len(events))
	for i, ev := range events {
		ev.Block = block
		ev.Index = uint32(i)
		out[i] = ev
		l.events = append(l.events, ev)
	}
	return out, nil
}

// ListAfter returns up to limit events strictly after the cursor
func (l *MemoryLog) ListAfter(ctx context.Context, after event.Cursor, limit int) ([]event.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []event.Event
	for _, ev := range l.events {
		if !after.Before(ev.Cursor()) {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Head returns the newest event's cursor
func (l *MemoryLog) Head(ctx context.Context) (event.Cursor, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.events) == 0 {
		return event.Cursor{}, false, nil
	}
	return l.events[len(l.events)-1].Cursor(), true, nil
}

// Horizon returns the oldest retained event's cursor
func (l *MemoryLog) Horizon(ctx context.Context) (event.Cursor, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.events) == 0 {
		return event.Cursor{}, false, nil
	}
	return l.events[0].Cursor(), true, nil
}

// Prune drops every event at or before the cursor, moving the horizon forward
func (l *MemoryLog) Prune(before event.Cursor) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.events[:0]
	for _, ev := range l.events {
		if before.Before(ev.Cursor()) {
			kept = append(kept, ev)
		}
	}
	l.events = kept
}

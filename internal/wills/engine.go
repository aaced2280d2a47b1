// Package wills holds the authoritative will lifecycle state machine.
// State lives in memory, rebuilt from the journal on startup; every
// successful operation journals its events before memory changes, so a
// restart always restores exactly what was committed.
package wills

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"willvault/internal/event"
	"willvault/internal/eventlog"
	"willvault/internal/identity"
	"willvault/internal/treasury"
)

const restorePageSize = 500

// Engine serializes operations per will and emits the journal events that
// downstream projections consume.
type Engine struct {
	journal eventlog.Store
	bank    treasury.Treasury
	now     func() time.Time
	newID   func() string

	mu    sync.RWMutex
	wills map[common.Address]*willState
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the engine's time source
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides request ID generation
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// NewEngine builds an engine and rebuilds its state from the journal
func NewEngine(ctx context.Context, journal eventlog.Store, bank treasury.Treasury, opts ...Option) (*Engine, error) {
	e := &Engine{
		journal: journal,
		bank:    bank,
		now:     time.Now,
		newID:   uuid.NewString,
		wills:   make(map[common.Address]*willState),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.restore(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// restore folds the whole journal into memory
func (e *Engine) restore(ctx context.Context) error {
	var cur event.Cursor
	count := 0
	for {
		events, err := e.journal.ListAfter(ctx, cur, restorePageSize)
		if err != nil {
			return fmt.Errorf("failed to read journal: %w", err)
		}
		if len(events) == 0 {
			break
		}
		for _, ev := range events {
			cur = ev.Cursor()
			if err := e.fold(ev); err != nil {
				slog.Warn("skipping unreadable journal event",
					"cursor", cur.String(),
					"kind", ev.Kind,
					"error", err,
				)
				continue
			}
			count++
		}
	}
	if count > 0 {
		slog.Info("will state restored", "events", count, "wills", len(e.wills))
	}
	return nil
}

func (e *Engine) fold(ev event.Event) error {
	testator, err := identity.Parse(ev.Will)
	if err != nil {
		return fmt.Errorf("event has bad will identity: %w", err)
	}
	st, ok := e.wills[testator]
	if !ok {
		st = newWillState()
		e.wills[testator] = st
	}
	return st.apply(ev)
}

// lock acquires the per-will mutex and verifies the will exists
func (e *Engine) lock(testator common.Address) (*willState, error) {
	e.mu.RLock()
	st, ok := e.wills[testator]
	e.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	st.mu.Lock()
	if !st.created() {
		st.mu.Unlock()
		return nil, ErrNotFound
	}
	return st, nil
}

// commit journals the events, then folds them into the locked state.
// On journal failure nothing has changed and the error is returned as-is.
func (e *Engine) commit(ctx context.Context, st *willState, events ...event.Event) error {
	appended, err := e.journal.Append(ctx, events)
	if err != nil {
		return fmt.Errorf("failed to journal operation: %w", err)
	}
	for _, ev := range appended {
		if err := st.apply(ev); err != nil {
			return fmt.Errorf("failed to apply journaled %s: %w", ev.Kind, err)
		}
	}
	return nil
}

// CreateWill registers a new will for the testator. Both periods are in
// seconds and must be positive.
func (e *Engine) CreateWill(ctx context.Context, testator common.Address, checkInPeriod, disputePeriod int64) error {
	if identity.IsZero(testator) {
		return fmt.Errorf("%w: zero testator", ErrInvalidInput)
	}
	if checkInPeriod <= 0 {
		return fmt.Errorf("%w: check-in period must be positive", ErrInvalidInput)
	}
	if disputePeriod <= 0 {
		return fmt.Errorf("%w: dispute period must be positive", ErrInvalidInput)
	}

	// A placeholder from a previously failed create is reused, not an error
	e.mu.Lock()
	st, ok := e.wills[testator]
	if !ok {
		st = newWillState()
		e.wills[testator] = st
	}
	e.mu.Unlock()

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.created() {
		return ErrAlreadyExists
	}

	now := e.now().UTC()
	hex := identity.Hex(testator)
	ev, err := event.New(event.KindWillCreated, hex, e.newID(), now, event.WillCreatedPayload{
		Testator:      hex,
		CheckInPeriod: checkInPeriod,
		DisputePeriod: disputePeriod,
		LastCheckIn:   now,
		CreatedAt:     now,
	})
	if err != nil {
		return err
	}
	return e.commit(ctx, st, ev)
}

// CheckIn resets the testator's dead-man's-switch timer
func (e *Engine) CheckIn(ctx context.Context, testator common.Address) error {
	st, err := e.lock(testator)
	if err != nil {
		return err
	}
	defer st.mu.Unlock()
	if st.will.Executed {
		return ErrWillExecuted
	}

	now := e.now().UTC()
	hex := identity.Hex(testator)
	ev, err := event.New(event.KindCheckIn, hex, e.newID(), now, event.CheckInPayload{
		Testator: hex,
		At:       now,
		Deadline: now.Add(time.Duration(st.will.CheckInPeriod) * time.Second),
	})
	if err != nil {
		return err
	}
	return e.commit(ctx, st, ev)
}

// Will returns a snapshot of the testator's will
func (e *Engine) Will(testator common.Address) (Will, error) {
	st, err := e.lock(testator)
	if err != nil {
		return Will{}, err
	}
	defer st.mu.Unlock()
	return st.will.Clone(), nil
}

// Testators lists every identity holding a created will
func (e *Engine) Testators() []common.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]common.Address, 0, len(e.wills))
	for addr, st := range e.wills {
		st.mu.Lock()
		ok := st.created()
		st.mu.Unlock()
		if ok {
			out = append(out, addr)
		}
	}
	return out
}

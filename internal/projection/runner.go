package projection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"willvault/internal/debug"
	"willvault/internal/event"
	"willvault/internal/eventlog"
	"willvault/internal/metrics"
	"willvault/internal/projection/retry"
	"willvault/internal/storage"
)

// Default runner tuning
const (
	DefaultPollInterval = 2 * time.Second
	DefaultPageSize     = 200
)

// Options tune the runner; zero values fall back to the defaults
type Options struct {
	PollInterval   time.Duration
	PageSize       int
	ReplayFromZero bool
}

// Runner drives the applier through the journal: first a backfill of
// everything past the checkpoint, then a live tail polling for new
// blocks. Progress is checkpointed per batch so a restart resumes
// without losing its place.
type Runner struct {
	journal  eventlog.Store
	repo     storage.Repository
	applier  *Applier
	strategy retry.Strategy
	opts     Options
}

// NewRunner creates a projection runner
func NewRunner(journal eventlog.Store, repo storage.Repository, applier *Applier, strategy retry.Strategy, opts Options) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}

	return &Runner{
		journal:  journal,
		repo:     repo,
		applier:  applier,
		strategy: strategy,
		opts:     opts,
	}
}

// Run blocks until the context is cancelled or the projection hits an
// error its retry strategy could not absorb
func (r *Runner) Run(ctx context.Context) error {
	err := r.run(ctx)
	if err != nil && ctx.Err() == nil {
		metrics.ErrorsTotal.WithLabelValues("projection").Inc()
	}
	return err
}

func (r *Runner) run(ctx context.Context) error {
	cursor, err := r.startCursor(ctx)
	if err != nil {
		return err
	}

	r.warnHorizonGap(ctx, cursor)

	cursor, err = r.backfill(ctx, cursor)
	if err != nil {
		return err
	}

	return r.follow(ctx, cursor)
}

// startCursor decides where the projection resumes from
func (r *Runner) startCursor(ctx context.Context) (event.Cursor, error) {
	if r.opts.ReplayFromZero {
		slog.Warn("Replaying the journal from the beginning")
		return event.Cursor{}, nil
	}

	cursor, ok, err := r.repo.LoadCheckpoint(ctx)
	if err != nil {
		return event.Cursor{}, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if !ok {
		slog.Info("No checkpoint found, projecting from the beginning")
		return event.Cursor{}, nil
	}

	slog.Info("Resuming projection", "checkpoint", cursor.String())
	return cursor, nil
}

// warnHorizonGap flags a resume point so old that the journal no longer
// retains the events right after it
func (r *Runner) warnHorizonGap(ctx context.Context, cursor event.Cursor) {
	horizon, ok, err := r.journal.Horizon(ctx)
	if err != nil {
		slog.Warn("Failed to read journal horizon", "error", err)
		return
	}
	if !ok {
		return
	}

	if horizon.Block > cursor.Block+1 {
		slog.Warn("Journal horizon is past the resume point, pruned events are lost to the replica",
			"resume", cursor.String(),
			"horizon", horizon.String())
	}
}

// backfill applies everything the journal already holds past the cursor
func (r *Runner) backfill(ctx context.Context, cursor event.Cursor) (event.Cursor, error) {
	metrics.BackfillActive.Set(1)
	defer metrics.BackfillActive.Set(0)

	slog.Info("Backfilling replica", "from", cursor.String())
	start := time.Now()

	next, applied, err := r.drain(ctx, cursor)
	if err != nil {
		return next, err
	}

	slog.Info("Backfill complete",
		"events", applied,
		"duration_ms", time.Since(start).Milliseconds(),
		"cursor", next.String())
	return next, nil
}

// follow tails the journal until the context ends
func (r *Runner) follow(ctx context.Context, cursor event.Cursor) error {
	slog.Info("Following journal",
		"poll_interval", r.opts.PollInterval,
		"cursor", cursor.String())

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping projection", "cursor", cursor.String())
			return ctx.Err()
		case <-ticker.C:
			next, _, err := r.drain(ctx, cursor)
			if err != nil {
				return err
			}
			cursor = next
			r.observeLag(ctx, cursor)
		}
	}
}

// drain pages through the journal and applies every event past the
// cursor, returning the new cursor and how many events it applied
func (r *Runner) drain(ctx context.Context, cursor event.Cursor) (event.Cursor, int, error) {
	applied := 0

	for {
		select {
		case <-ctx.Done():
			return cursor, applied, ctx.Err()
		default:
		}

		var events []event.Event
		err := r.strategy.Execute(ctx, func() error {
			var listErr error
			events, listErr = r.journal.ListAfter(ctx, cursor, r.opts.PageSize)
			return listErr
		})
		if err != nil {
			return cursor, applied, fmt.Errorf("failed to list events: %w", err)
		}
		if len(events) == 0 {
			return cursor, applied, nil
		}

		cursor, err = r.applyBatch(ctx, cursor, events)
		if err != nil {
			return cursor, applied, err
		}
		applied += len(events)
	}
}

// applyBatch applies one page of events and checkpoints behind it
func (r *Runner) applyBatch(ctx context.Context, cursor event.Cursor, events []event.Event) (event.Cursor, error) {
	start := time.Now()

	for _, ev := range events {
		// Anything at or before the cursor has been applied already
		if !cursor.Before(ev.Cursor()) {
			metrics.EventsSkipped.WithLabelValues(skipStale).Inc()
			continue
		}

		debug.PrintEvent(ev)

		apply := func() error {
			return r.applier.Apply(ctx, ev)
		}
		if err := r.strategy.Execute(ctx, apply); err != nil {
			return cursor, err
		}

		cursor = ev.Cursor()
	}

	checkpoint := func() error {
		return r.repo.SaveCheckpoint(ctx, cursor)
	}
	if err := r.strategy.Execute(ctx, checkpoint); err != nil {
		return cursor, fmt.Errorf("failed to save checkpoint: %w", err)
	}

	metrics.BatchesApplied.Inc()
	metrics.BatchApplyDuration.Observe(time.Since(start).Seconds())
	metrics.LastAppliedBlock.Set(float64(cursor.Block))
	return cursor, nil
}

// observeLag reports how far the replica trails the journal head
func (r *Runner) observeLag(ctx context.Context, cursor event.Cursor) {
	head, ok, err := r.journal.Head(ctx)
	if err != nil || !ok {
		return
	}

	lag := float64(0)
	if head.Block > cursor.Block {
		lag = float64(head.Block - cursor.Block)
	}
	metrics.JournalLag.Set(lag)
}

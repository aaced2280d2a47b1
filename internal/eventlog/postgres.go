package eventlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"willvault/internal/event"
)

// appendLockID serializes block assignment across writers. Appends take this
// advisory lock for the duration of their transaction, so concurrent writers
// cannot mint the same block number.
const appendLockID = 792201

// PostgresLog is a Store backed by the will_events table
type PostgresLog struct {
	pool *pgxpool.Pool
}

// NewPostgresLog creates a journal on an existing connection pool
func NewPostgresLog(pool *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{pool: pool}
}

// Append atomically writes the batch as the next block
func (l *PostgresLog) Append(ctx context.Context, events []event.Event) ([]event.Event, error) {
	if len(events) == 0 {
		return nil, ErrEmptyAppend
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockID); err != nil {
		return nil, fmt.Errorf("failed to acquire journal lock: %w", err)
	}

	var block uint64
	err = tx.QueryRow(ctx, `SELECT COALESCE(MAX(block), 0) + 1 FROM will_events`).Scan(&block)
	if err != nil {
		return nil, fmt.Errorf("failed to assign block: %w", err)
	}

	insertQuery := `
		INSERT INTO will_events (block, idx, kind, will_testator, request_id, emitted_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	out := make([]event.Event, len(events))
	for i, ev := range events {
		ev.Block = block
		ev.Index = uint32(i)
		out[i] = ev

		_, err := tx.Exec(ctx, insertQuery,
			ev.Block,
			ev.Index,
			string(ev.Kind),
			ev.Will,
			ev.RequestID,
			ev.Emitted,
			ev.Payload,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert event %s: %w", ev.Kind, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit append: %w", err)
	}
	return out, nil
}

// ListAfter returns up to limit events strictly after the cursor
func (l *PostgresLog) ListAfter(ctx context.Context, after event.Cursor, limit int) ([]event.Event, error) {
	query := `
		SELECT block, idx, kind, will_testator, request_id, emitted_at, payload
		FROM will_events
		WHERE (block, idx) > ($1, $2)
		ORDER BY block, idx
		LIMIT $3
	`

	rows, err := l.pool.Query(ctx, query, after.Block, after.Index, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var ev event.Event
		var kind string
		if err := rows.Scan(&ev.Block, &ev.Index, &kind, &ev.Will, &ev.RequestID, &ev.Emitted, &ev.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Kind = event.Kind(kind)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	return events, nil
}

// Head returns the newest event's cursor
func (l *PostgresLog) Head(ctx context.Context) (event.Cursor, bool, error) {
	var cur event.Cursor
	err := l.pool.QueryRow(ctx,
		`SELECT block, idx FROM will_events ORDER BY block DESC, idx DESC LIMIT 1`,
	).Scan(&cur.Block, &cur.Index)
	if err == pgx.ErrNoRows {
		return event.Cursor{}, false, nil
	}
	if err != nil {
		return event.Cursor{}, false, fmt.Errorf("failed to read journal head: %w", err)
	}
	return cur, true, nil
}

// Horizon returns the oldest retained event's cursor
func (l *PostgresLog) Horizon(ctx context.Context) (event.Cursor, bool, error) {
	var cur event.Cursor
	err := l.pool.QueryRow(ctx,
		`SELECT block, idx FROM will_events ORDER BY block, idx LIMIT 1`,
	).Scan(&cur.Block, &cur.Index)
	if err == pgx.ErrNoRows {
		return event.Cursor{}, false, nil
	}
	if err != nil {
		return event.Cursor{}, false, fmt.Errorf("failed to read journal horizon: %w", err)
	}
	return cur, true, nil
}

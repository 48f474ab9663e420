// Package repository implements the engine's store interfaces on MySQL.
// Counter adjustments run inside short transactions with
// SELECT ... FOR UPDATE so the bound check and the write share one
// critical section.  All timestamp columns are stored in UTC.
package repository

import (
    "context"
    "database/sql"
    "errors"
    "log"
    "time"

    "github.com/eventloop/capacity-engine/internal/engine"
)

// EventRepo provides capacity reads and the atomic attendee counter for
// the events table.  It implements engine.EventStore.
type EventRepo struct {
    db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the provided database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// DB exposes the underlying handle for transaction scoping by callers
// that coordinate across repositories.
func (r *EventRepo) DB() *sql.DB { return r.db }

const counterAttempts = 3

// GetCapacity returns the event's capacity limit (nil when unbounded) and
// current confirmed attendance.
func (r *EventRepo) GetCapacity(ctx context.Context, eventID uint64) (*uint32, uint32, error) {
    const q = `SELECT max_attendees, attendees_count FROM events WHERE id = ?`
    var max sql.NullInt64
    var current uint32
    err := r.db.QueryRowContext(ctx, q, eventID).Scan(&max, &current)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, 0, engine.ErrEventNotFound
        }
        return nil, 0, err
    }
    if !max.Valid {
        return nil, current, nil
    }
    m := uint32(max.Int64)
    return &m, current, nil
}

// AdjustAttendeeCount atomically applies delta to the event's attendee
// counter.  The row is locked, the bound checked and the new value written
// inside one transaction, so no other writer can interleave between the
// read and the write.  A positive delta that would exceed max_attendees
// fails with engine.ErrEventFull and leaves the row untouched.  A negative
// delta that would drop below zero is clamped to zero and logged; that
// only happens when the counter has drifted, and clamping self-heals it.
//
// Transient failures (deadlock, lost connection) are retried up to three
// times with doubling backoff before the error is surfaced wrapped in
// engine.ErrCounterUpdateFailed.
func (r *EventRepo) AdjustAttendeeCount(ctx context.Context, eventID uint64, delta int32) (uint32, error) {
    var newCount uint32
    backoff := 50 * time.Millisecond
    for attempt := 1; ; attempt++ {
        count, err := r.adjustOnce(ctx, eventID, delta)
        if err == nil {
            newCount = count
            return newCount, nil
        }
        // Bound refusals and missing rows are final, not transient.
        if errors.Is(err, engine.ErrEventFull) || errors.Is(err, engine.ErrEventNotFound) {
            return 0, err
        }
        if attempt >= counterAttempts || ctx.Err() != nil {
            return 0, errors.Join(engine.ErrCounterUpdateFailed, err)
        }
        select {
        case <-ctx.Done():
            return 0, errors.Join(engine.ErrCounterUpdateFailed, ctx.Err())
        case <-time.After(backoff):
        }
        backoff *= 2
    }
}

// adjustOnce performs a single locked read-check-write cycle.
func (r *EventRepo) adjustOnce(ctx context.Context, eventID uint64, delta int32) (uint32, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    const sel = `SELECT max_attendees, attendees_count FROM events WHERE id = ? FOR UPDATE`
    var max sql.NullInt64
    var current int64
    if err := tx.QueryRowContext(ctx, sel, eventID).Scan(&max, &current); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return 0, engine.ErrEventNotFound
        }
        return 0, err
    }

    next := current + int64(delta)
    if delta > 0 && max.Valid && next > max.Int64 {
        return 0, engine.ErrEventFull
    }
    if next < 0 {
        log.Printf("repository: attendee counter underflow for event %d (count=%d delta=%d), clamping to 0", eventID, current, delta)
        next = 0
    }

    const upd = `UPDATE events SET attendees_count = ? WHERE id = ?`
    if _, err := tx.ExecContext(ctx, upd, next, eventID); err != nil {
        return 0, err
    }
    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return uint32(next), nil
}

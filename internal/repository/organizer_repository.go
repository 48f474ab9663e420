package repository

import (
    "context"
    "database/sql"
    "errors"
    "log"
    "time"

    "github.com/eventloop/capacity-engine/internal/engine"
)

// OrganizerRepo owns the denormalized follower counter on the organizers
// table.  It implements engine.OrganizerStore with the same locked
// read-check-write cycle as the attendee counter, minus the upper bound.
type OrganizerRepo struct {
    db *sql.DB
}

// NewOrganizerRepo returns a new OrganizerRepo bound to the provided
// database.
func NewOrganizerRepo(db *sql.DB) *OrganizerRepo { return &OrganizerRepo{db: db} }

// AdjustFollowerCount atomically applies delta to the organizer's follower
// counter and returns the new value.  A decrement below zero is clamped
// and logged; it signals drift between the counter and the follows table
// that clamping self-heals.  Transient failures are retried up to three
// times with doubling backoff.
func (r *OrganizerRepo) AdjustFollowerCount(ctx context.Context, organizerID uint64, delta int32) (uint32, error) {
    backoff := 50 * time.Millisecond
    for attempt := 1; ; attempt++ {
        count, err := r.adjustOnce(ctx, organizerID, delta)
        if err == nil {
            return count, nil
        }
        if errors.Is(err, engine.ErrOrganizerNotFound) {
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

func (r *OrganizerRepo) adjustOnce(ctx context.Context, organizerID uint64, delta int32) (uint32, error) {
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

    const sel = `SELECT follower_count FROM organizers WHERE id = ? FOR UPDATE`
    var current int64
    if err := tx.QueryRowContext(ctx, sel, organizerID).Scan(&current); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return 0, engine.ErrOrganizerNotFound
        }
        return 0, err
    }

    next := current + int64(delta)
    if next < 0 {
        log.Printf("repository: follower counter underflow for organizer %d (count=%d delta=%d), clamping to 0", organizerID, current, delta)
        next = 0
    }

    const upd = `UPDATE organizers SET follower_count = ? WHERE id = ?`
    if _, err := tx.ExecContext(ctx, upd, next, organizerID); err != nil {
        return 0, err
    }
    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return uint32(next), nil
}

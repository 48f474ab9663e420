package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/eventloop/capacity-engine/internal/model"
)

// SubscriptionRepo provides data access to the subscriptions table.  It
// implements engine.SubscriptionStore.  Rows are never deleted; the status
// column records whether a subscription currently counts against the
// event's attendance.
type SubscriptionRepo struct {
    db *sql.DB
}

// NewSubscriptionRepo returns a new SubscriptionRepo bound to the provided
// database.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

// Get returns the subscription for the (user, event) pair, or (nil, nil)
// when none exists.  The unique index on (user_id, event_id) guarantees at
// most one row.
func (r *SubscriptionRepo) Get(ctx context.Context, userID, eventID uint64) (*model.Subscription, error) {
    const q = `SELECT id, user_id, event_id, status, start_time, end_time, price_cents, created_at, updated_at
               FROM subscriptions
               WHERE user_id = ? AND event_id = ?`
    var s model.Subscription
    err := r.db.QueryRowContext(ctx, q, userID, eventID).Scan(
        &s.ID, &s.UserID, &s.EventID, &s.Status,
        &s.StartTime, &s.EndTime, &s.PriceCents, &s.CreatedAt, &s.UpdatedAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, nil
        }
        return nil, err
    }
    return &s, nil
}

// Create inserts a new subscription and populates its ID and timestamps.
func (r *SubscriptionRepo) Create(ctx context.Context, sub *model.Subscription) error {
    const q = `INSERT INTO subscriptions (user_id, event_id, status, start_time, end_time, price_cents)
               VALUES (?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        sub.UserID, sub.EventID, sub.Status,
        sub.StartTime.UTC().Format("2006-01-02 15:04:05"),
        sub.EndTime.UTC().Format("2006-01-02 15:04:05"),
        sub.PriceCents,
    )
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    sub.ID = uint64(id)
    now := time.Now().UTC()
    sub.CreatedAt = now
    sub.UpdatedAt = now
    return nil
}

// SetStatus flips the status of an existing subscription.
func (r *SubscriptionRepo) SetStatus(ctx context.Context, id uint64, status model.SubscriptionStatus) error {
    const q = `UPDATE subscriptions SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q, status, id)
    return err
}

// ListByUser returns all subscriptions for the user ordered newest first,
// including INACTIVE rows so past tickets remain visible.
func (r *SubscriptionRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Subscription, error) {
    const q = `SELECT id, user_id, event_id, status, start_time, end_time, price_cents, created_at, updated_at
               FROM subscriptions
               WHERE user_id = ?
               ORDER BY created_at DESC`
    rows, err := r.db.QueryContext(ctx, q, userID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    subs := make([]model.Subscription, 0)
    for rows.Next() {
        var s model.Subscription
        if err := rows.Scan(
            &s.ID, &s.UserID, &s.EventID, &s.Status,
            &s.StartTime, &s.EndTime, &s.PriceCents, &s.CreatedAt, &s.UpdatedAt,
        ); err != nil {
            return nil, err
        }
        subs = append(subs, s)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return subs, nil
}

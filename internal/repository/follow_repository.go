package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/eventloop/capacity-engine/internal/model"
)

// FollowRepo provides data access to the follows table.  It implements
// engine.FollowStore.  The unique index on (follower_id, organizer_id)
// guarantees at most one row per pair.
type FollowRepo struct {
    db *sql.DB
}

// NewFollowRepo returns a new FollowRepo bound to the provided database.
func NewFollowRepo(db *sql.DB) *FollowRepo { return &FollowRepo{db: db} }

// Get returns the relation for the (follower, organizer) pair, or
// (nil, nil) when none exists.
func (r *FollowRepo) Get(ctx context.Context, followerID, organizerID uint64) (*model.Follow, error) {
    const q = `SELECT id, follower_id, organizer_id, status, follow_date, updated_at
               FROM follows
               WHERE follower_id = ? AND organizer_id = ?`
    var f model.Follow
    err := r.db.QueryRowContext(ctx, q, followerID, organizerID).Scan(
        &f.ID, &f.FollowerID, &f.OrganizerID, &f.Status, &f.FollowDate, &f.UpdatedAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, nil
        }
        return nil, err
    }
    return &f, nil
}

// Create inserts a new relation and populates its ID.  follow_date and
// updated_at are set by the database.
func (r *FollowRepo) Create(ctx context.Context, f *model.Follow) error {
    const q = `INSERT INTO follows (follower_id, organizer_id, status) VALUES (?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q, f.FollowerID, f.OrganizerID, f.Status)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    f.ID = uint64(id)
    return nil
}

// SetStatus flips the status of an existing relation.
func (r *FollowRepo) SetStatus(ctx context.Context, id uint64, status model.FollowStatus) error {
    const q = `UPDATE follows SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
    _, err := r.db.ExecContext(ctx, q, status, id)
    return err
}

// CountActiveByOrganizer counts ACTIVE relations for the organizer.  The
// follower counter on the organizers row must always equal this count; the
// query exists so the invariant can be verified and drift repaired.
func (r *FollowRepo) CountActiveByOrganizer(ctx context.Context, organizerID uint64) (uint32, error) {
    const q = `SELECT COUNT(*) FROM follows WHERE organizer_id = ? AND status = 'ACTIVE'`
    var n uint32
    if err := r.db.QueryRowContext(ctx, q, organizerID).Scan(&n); err != nil {
        return 0, err
    }
    return n, nil
}

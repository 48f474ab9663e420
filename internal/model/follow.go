package model

import "time"

// FollowStatus marks whether a follow relation is currently counted in the
// organizer's follower total.
type FollowStatus string

const (
    FollowActive   FollowStatus = "ACTIVE"
    FollowInactive FollowStatus = "INACTIVE"
)

// Follow is the relation between a user and an organizer.  At most one row
// exists per (follower, organizer) pair; unfollowing flips the status.  The
// organizer's follower_count must equal the number of ACTIVE rows for that
// organizer at all times.
//
// Fields:
//  ID          – primary key identifier.
//  FollowerID  – user following the organizer.
//  OrganizerID – organizer being followed.
//  Status      – ACTIVE while counted in follower_count.
//  FollowDate  – when the relation was first created.
//  UpdatedAt   – last status change.
type Follow struct {
    ID          uint64       // follows.id
    FollowerID  uint64       // follows.follower_id
    OrganizerID uint64       // follows.organizer_id
    Status      FollowStatus // follows.status
    FollowDate  time.Time    // follows.follow_date
    UpdatedAt   time.Time    // follows.updated_at
}

// Organizer carries the denormalized follower counter.  Event management
// beyond this counter is out of scope for the engine.
//
// Fields:
//  ID            – primary key identifier.
//  Name          – display name.
//  FollowerCount – number of ACTIVE follow relations.
type Organizer struct {
    ID            uint64 // organizers.id
    Name          string // organizers.name
    FollowerCount uint32 // organizers.follower_count
}

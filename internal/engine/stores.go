package engine

import (
    "context"

    "github.com/eventloop/capacity-engine/internal/model"
)

// EventStore is the durable capacity ledger.  AdjustAttendeeCount must
// perform the bound check and the write atomically: "read count, check
// bound, write count" may not be split across a window where another writer
// can interleave.  Implementations retry transient failures with bounded
// backoff before giving up; a refusal because the event is full is final
// and reported as ErrEventFull.
type EventStore interface {
    // GetCapacity returns the event's capacity limit (nil when unbounded)
    // and current confirmed attendance.
    GetCapacity(ctx context.Context, eventID uint64) (max *uint32, current uint32, err error)

    // AdjustAttendeeCount atomically applies delta to the event's attendee
    // counter and returns the new count.  A positive delta that would push
    // the counter past max_attendees fails with ErrEventFull and leaves the
    // counter untouched.
    AdjustAttendeeCount(ctx context.Context, eventID uint64, delta int32) (newCount uint32, err error)
}

// SubscriptionStore persists attendance records.  Each (user, event) pair
// has at most one row; rows are never hard-deleted.
type SubscriptionStore interface {
    // Get returns the subscription for the pair, or (nil, nil) when none
    // exists.
    Get(ctx context.Context, userID, eventID uint64) (*model.Subscription, error)

    // Create inserts a new subscription and populates its ID.
    Create(ctx context.Context, sub *model.Subscription) error

    // SetStatus flips the status of an existing subscription.
    SetStatus(ctx context.Context, id uint64, status model.SubscriptionStatus) error

    // ListByUser returns all subscriptions for the user, newest first,
    // including INACTIVE rows for past-ticket views.
    ListByUser(ctx context.Context, userID uint64) ([]model.Subscription, error)
}

// FollowStore persists follow relations.  Each (follower, organizer) pair
// has at most one row.
type FollowStore interface {
    // Get returns the relation for the pair, or (nil, nil) when none
    // exists.
    Get(ctx context.Context, followerID, organizerID uint64) (*model.Follow, error)

    // Create inserts a new relation and populates its ID.
    Create(ctx context.Context, f *model.Follow) error

    // SetStatus flips the status of an existing relation.
    SetStatus(ctx context.Context, id uint64, status model.FollowStatus) error

    // CountActiveByOrganizer counts ACTIVE relations for the organizer.
    // Exposed so the follower-counter invariant is checkable.
    CountActiveByOrganizer(ctx context.Context, organizerID uint64) (uint32, error)
}

// OrganizerStore owns the denormalized follower counter.  The same
// atomicity rules as EventStore.AdjustAttendeeCount apply, except the
// counter has no upper bound; a decrement below zero is clamped and logged
// rather than failed, since it indicates drift the engine should heal.
type OrganizerStore interface {
    // AdjustFollowerCount atomically applies delta to the organizer's
    // follower counter and returns the new count.
    AdjustFollowerCount(ctx context.Context, organizerID uint64, delta int32) (newCount uint32, err error)
}

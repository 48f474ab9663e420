package model

import "time"

// SubscriptionStatus marks whether a subscription currently counts against
// the event's attendance.
type SubscriptionStatus string

const (
    SubscriptionActive   SubscriptionStatus = "ACTIVE"
    SubscriptionInactive SubscriptionStatus = "INACTIVE"
)

// Subscription is a user's attendance record for an event.  There is at
// most one row per (user, event) pair; unsubscribing flips the status
// instead of deleting the row so that past tickets remain listable.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – subscribed user.
//  EventID    – event attended.
//  Status     – ACTIVE while counted against the event's attendance.
//  StartTime  – event start captured at subscribe time.
//  EndTime    – event end captured at subscribe time.
//  PriceCents – price paid in cents.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last status change.
type Subscription struct {
    ID         uint64             // subscriptions.id
    UserID     uint64             // subscriptions.user_id
    EventID    uint64             // subscriptions.event_id
    Status     SubscriptionStatus // subscriptions.status
    StartTime  time.Time          // subscriptions.start_time
    EndTime    time.Time          // subscriptions.end_time
    PriceCents uint32             // subscriptions.price_cents
    CreatedAt  time.Time          // subscriptions.created_at
    UpdatedAt  time.Time          // subscriptions.updated_at
}

// Package queue defines message payloads exchanged over the message broker.
package queue

// TicketConfirmedEvent is published when a checkout converts a hold into
// confirmed attendance.  It carries enough information for downstream
// consumers to log, notify or run analytics without querying the primary
// database.
type TicketConfirmedEvent struct {
    EventID        uint64 `json:"event_id"`
    UserID         uint64 `json:"user_id"`
    TicketTypeID   uint64 `json:"ticket_type_id"`
    Quantity       uint32 `json:"quantity"`
    AttendeesCount uint32 `json:"attendees_count"`
    ConfirmedAt    string `json:"confirmed_at"`
}

// SubscriptionChangedEvent is published when a subscribe or unsubscribe
// call performs a real state transition.  Idempotent no-ops are never
// published.
type SubscriptionChangedEvent struct {
    UserID    uint64 `json:"user_id"`
    EventID   uint64 `json:"event_id"`
    Status    string `json:"status"`
    ChangedAt string `json:"changed_at"`
}

// FollowChangedEvent is published when a follow, unfollow or toggle call
// performs a real state transition.
type FollowChangedEvent struct {
    FollowerID  uint64 `json:"follower_id"`
    OrganizerID uint64 `json:"organizer_id"`
    Status      string `json:"status"`
    ChangedAt   string `json:"changed_at"`
}

package model

import "time"

// HoldState is the lifecycle state of a ticket hold.  Active is the only
// non-terminal state: a hold moves to Committed when checkout succeeds, to
// Expired when the sweeper catches it past its deadline, and to Released
// when the user cancels.  There are no transitions out of the terminal
// states.
type HoldState string

const (
    HoldActive    HoldState = "ACTIVE"
    HoldCommitted HoldState = "COMMITTED"
    HoldExpired   HoldState = "EXPIRED"
    HoldReleased  HoldState = "RELEASED"
)

// Hold is a provisional ticket reservation.  Holds fence concurrent ticket
// selections for the same (event, user, ticket type) tuple but never consume
// the durable attendee counter; capacity is only spent at checkout.
//
// Fields:
//  EventID      – event the tickets belong to.
//  UserID       – user holding the tickets.
//  TicketTypeID – ticket type selected.
//  Quantity     – number of tickets held, at least 1.
//  Token        – opaque token returned to the client for correlation.
//  State        – current lifecycle state.
//  CreatedAt    – when the hold was first created.
//  ExpiresAt    – deadline after which the hold is sweepable.
type Hold struct {
    EventID      uint64
    UserID       uint64
    TicketTypeID uint64
    Quantity     uint32
    Token        string
    State        HoldState
    CreatedAt    time.Time
    ExpiresAt    time.Time
}

package model

import "time"

// Event is a bookable event published by an organizer.  Only the capacity
// fields are mutated by this service; the rest of the row is owned by the
// organizer management flows upstream.
//
// Fields:
//  ID             – primary key identifier.
//  OrganizerID    – organizer who published the event.
//  Title          – display title.
//  MaxAttendees   – capacity limit; nil means unbounded.
//  AttendeesCount – current confirmed attendance.  Invariant: when
//                   MaxAttendees is set, AttendeesCount never exceeds it.
//  StartsAt       – when the event begins.
//  EndsAt         – when the event ends.
type Event struct {
    ID             uint64     // events.id
    OrganizerID    uint64     // events.organizer_id
    Title          string     // events.title
    MaxAttendees   *uint32    // events.max_attendees (nullable)
    AttendeesCount uint32     // events.attendees_count
    StartsAt       time.Time  // events.starts_at
    EndsAt         time.Time  // events.ends_at
}

// Package engine implements capacity-bounded event attendance control:
// ticket holds with TTL expiry, idempotent subscribe/unsubscribe and
// follow/unfollow transitions, and the atomic counters backing both.  The
// package owns the in-memory hold table; durable records live behind the
// store interfaces in stores.go so the persistence layer stays swappable.
package engine

import "errors"

// Sentinel errors returned by engine operations.  Handlers translate these
// with errors.Is into user-facing HTTP responses; all of them except
// ErrCounterUpdateFailed are recoverable and must never be retried
// automatically.
var (
    // ErrCapacityExceeded is the user-facing "sold out" signal from ticket
    // selection and checkout.
    ErrCapacityExceeded = errors.New("capacity exceeded")

    // ErrEventFull is returned by Subscribe when the event's confirmed
    // attendance has already reached max_attendees.
    ErrEventFull = errors.New("event full")

    // ErrHoldNotFound is returned when checkout or cancellation targets a
    // tuple with no active hold.  Cancellation treats it as a no-op;
    // checkout surfaces it so the UI can re-prompt ticket selection.
    ErrHoldNotFound = errors.New("hold not found")

    // ErrHoldExpired is returned by checkout when the hold's deadline has
    // passed.  The hold is moved to its terminal Expired state on the way
    // out.
    ErrHoldExpired = errors.New("hold expired")

    // ErrInvalidQuantity rejects hold requests for zero tickets.
    ErrInvalidQuantity = errors.New("invalid quantity")

    // ErrEventNotFound is returned by stores when the referenced event row
    // does not exist.
    ErrEventNotFound = errors.New("event not found")

    // ErrOrganizerNotFound is returned by stores when the referenced
    // organizer row does not exist.
    ErrOrganizerNotFound = errors.New("organizer not found")

    // ErrCounterUpdateFailed wraps a store failure that survived the
    // bounded retry inside the counter update.  Callers see it only after
    // any partial state has been compensated.
    ErrCounterUpdateFailed = errors.New("counter update failed")
)

package engine

import (
    "context"
    "log"
    "time"

    "github.com/eventloop/capacity-engine/internal/model"
)

// AttendanceService implements the per-(user, event) subscription state
// machine.  Subscribe and Unsubscribe are idempotent: repeating a call in
// the state it already produced is a no-op and never touches the attendee
// counter.  The counter moves exactly once per real transition, and the
// counter update is what enforces the capacity bound, so Subscribe and
// Checkout compete for the same authoritative ledger.
type AttendanceService struct {
    subs   SubscriptionStore
    events EventStore
    locks  *keyMutex
}

// NewAttendanceService wires the service.
func NewAttendanceService(subs SubscriptionStore, events EventStore) *AttendanceService {
    if subs == nil || events == nil {
        panic("nil store passed to NewAttendanceService")
    }
    return &AttendanceService{subs: subs, events: events, locks: newKeyMutex()}
}

// Subscribe registers the user for the event.  First-time subscribers get
// a new ACTIVE record; a previously unsubscribed user has their existing
// record flipped back, never duplicated.  An already-active subscription
// is returned unchanged with changed=false and no counter adjustment.
// ErrEventFull is returned when the event's confirmed attendance already
// sits at its cap.
//
// The counter increment runs before the record write: the conditional
// update is the capacity gate, and if the record write then fails the
// increment is compensated so no partial state survives.
func (a *AttendanceService) Subscribe(ctx context.Context, userID, eventID uint64, start, end time.Time, priceCents uint32) (*model.Subscription, bool, error) {
    unlock := a.locks.lock(pairKey(userID, eventID))
    defer unlock()

    existing, err := a.subs.Get(ctx, userID, eventID)
    if err != nil {
        return nil, false, err
    }
    if existing != nil && existing.Status == model.SubscriptionActive {
        return existing, false, nil
    }

    if _, err := a.events.AdjustAttendeeCount(ctx, eventID, 1); err != nil {
        return nil, false, err
    }

    if existing != nil {
        if err := a.subs.SetStatus(ctx, existing.ID, model.SubscriptionActive); err != nil {
            a.compensate(ctx, eventID, -1)
            return nil, false, err
        }
        existing.Status = model.SubscriptionActive
        return existing, true, nil
    }

    sub := &model.Subscription{
        UserID:     userID,
        EventID:    eventID,
        Status:     model.SubscriptionActive,
        StartTime:  start.UTC(),
        EndTime:    end.UTC(),
        PriceCents: priceCents,
    }
    if err := a.subs.Create(ctx, sub); err != nil {
        a.compensate(ctx, eventID, -1)
        return nil, false, err
    }
    return sub, true, nil
}

// Unsubscribe deactivates the user's subscription and frees their slot.
// A missing record or an already-inactive one is a successful no-op, not
// an error; the return value reports whether a transition happened.
func (a *AttendanceService) Unsubscribe(ctx context.Context, userID, eventID uint64) (bool, error) {
    unlock := a.locks.lock(pairKey(userID, eventID))
    defer unlock()

    existing, err := a.subs.Get(ctx, userID, eventID)
    if err != nil {
        return false, err
    }
    if existing == nil || existing.Status == model.SubscriptionInactive {
        return false, nil
    }

    if err := a.subs.SetStatus(ctx, existing.ID, model.SubscriptionInactive); err != nil {
        return false, err
    }
    if _, err := a.events.AdjustAttendeeCount(ctx, eventID, -1); err != nil {
        // Put the record back so record and counter stay in step.
        if revertErr := a.subs.SetStatus(ctx, existing.ID, model.SubscriptionActive); revertErr != nil {
            log.Printf("engine: failed to revert subscription %d after counter error: %v", existing.ID, revertErr)
        }
        return false, err
    }
    return true, nil
}

// GetActiveSubscription returns the user's subscription for the event when
// one exists in the ACTIVE state.
func (a *AttendanceService) GetActiveSubscription(ctx context.Context, userID, eventID uint64) (*model.Subscription, bool, error) {
    sub, err := a.subs.Get(ctx, userID, eventID)
    if err != nil {
        return nil, false, err
    }
    if sub == nil || sub.Status != model.SubscriptionActive {
        return nil, false, nil
    }
    return sub, true, nil
}

// History returns every subscription the user ever had, newest first,
// including inactive rows for past-ticket views.
func (a *AttendanceService) History(ctx context.Context, userID uint64) ([]model.Subscription, error) {
    return a.subs.ListByUser(ctx, userID)
}

// compensate undoes a counter adjustment after a record write failed.  A
// compensation failure would leave the counter off by delta; it is logged
// loudly because the next conditional update keeps working, just against a
// slightly wrong base that an offline reconcile has to repair.
func (a *AttendanceService) compensate(ctx context.Context, eventID uint64, delta int32) {
    if _, err := a.events.AdjustAttendeeCount(ctx, eventID, delta); err != nil {
        log.Printf("engine: counter compensation (%+d) for event %d failed: %v", delta, eventID, err)
    }
}

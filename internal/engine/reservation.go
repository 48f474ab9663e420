package engine

import (
    "context"
    "errors"
    "log"
    "time"

    "github.com/eventloop/capacity-engine/internal/clock"
    "github.com/eventloop/capacity-engine/internal/model"
)

// DefaultCheckoutTimeout bounds the client-facing checkout call.  It is
// deliberately tiny next to the hold TTL: a checkout either lands within a
// few seconds or fails and the hold stays usable.
const DefaultCheckoutTimeout = 5 * time.Second

// ConfirmedTicket is the result of a successful checkout.
type ConfirmedTicket struct {
    EventID        uint64    `json:"event_id"`
    UserID         uint64    `json:"user_id"`
    TicketTypeID   uint64    `json:"ticket_type_id"`
    Quantity       uint32    `json:"quantity"`
    AttendeesCount uint32    `json:"attendees_count"`
    ConfirmedAt    time.Time `json:"confirmed_at"`
}

// ReservationManager orchestrates capacity-aware ticket reservation
// between the hold table and the durable event store.  Capacity is spent
// exclusively at checkout; holds only stop concurrent selections from
// racing each other.
type ReservationManager struct {
    holds           *HoldTable
    store           EventStore
    clk             clock.Clock
    locks           *keyMutex
    checkoutTimeout time.Duration
}

// NewReservationManager wires the manager.  A non-positive checkoutTimeout
// selects DefaultCheckoutTimeout.
func NewReservationManager(holds *HoldTable, store EventStore, clk clock.Clock, checkoutTimeout time.Duration) *ReservationManager {
    if holds == nil || store == nil || clk == nil {
        panic("nil dependency passed to NewReservationManager")
    }
    if checkoutTimeout <= 0 {
        checkoutTimeout = DefaultCheckoutTimeout
    }
    return &ReservationManager{
        holds:           holds,
        store:           store,
        clk:             clk,
        locks:           newKeyMutex(),
        checkoutTimeout: checkoutTimeout,
    }
}

// SelectTicket places or refreshes a hold for the tuple.  The capacity
// pre-check reads the event's durable count and limit, then defers to the
// hold table's advisory tally; ErrCapacityExceeded is the "sold out"
// signal for the UI.  Nothing is written to the event store here.
func (m *ReservationManager) SelectTicket(ctx context.Context, eventID, userID, ticketTypeID uint64, quantity uint32) (model.Hold, error) {
    max, current, err := m.store.GetCapacity(ctx, eventID)
    if err != nil {
        return model.Hold{}, err
    }
    return m.holds.CreateOrExtendHold(eventID, userID, ticketTypeID, quantity, max, current, m.clk.Now())
}

// CancelHold releases the tuple's hold.  Cancelling a hold that does not
// exist, already expired or was already released is a successful no-op.
func (m *ReservationManager) CancelHold(eventID, userID, ticketTypeID uint64) error {
    m.holds.CancelHold(eventID, userID, ticketTypeID)
    return nil
}

// Checkout converts the tuple's active hold into confirmed attendance.
// The hold commit and the counter increment must appear atomic to callers:
// if the increment fails (capacity lost to a concurrent subscriber, or the
// store gave up after retries) the hold is reinstated with its original
// deadline and the error surfaces.  The whole call runs under the tuple's
// stripe lock and a short timeout independent of the hold TTL.
func (m *ReservationManager) Checkout(ctx context.Context, eventID, userID, ticketTypeID uint64) (ConfirmedTicket, error) {
    ctx, cancel := context.WithTimeout(ctx, m.checkoutTimeout)
    defer cancel()

    unlock := m.locks.lock(tupleKey(eventID, userID, ticketTypeID))
    defer unlock()

    now := m.clk.Now()
    hold, err := m.holds.CommitHold(eventID, userID, ticketTypeID, now)
    if err != nil {
        return ConfirmedTicket{}, err
    }

    newCount, err := m.store.AdjustAttendeeCount(ctx, eventID, int32(hold.Quantity))
    if err != nil {
        if !m.holds.Reinstate(hold, m.clk.Now()) {
            log.Printf("engine: hold for event=%d user=%d type=%d lapsed during checkout rollback", eventID, userID, ticketTypeID)
        }
        if errors.Is(err, ErrEventFull) {
            return ConfirmedTicket{}, ErrCapacityExceeded
        }
        return ConfirmedTicket{}, err
    }

    return ConfirmedTicket{
        EventID:        eventID,
        UserID:         userID,
        TicketTypeID:   ticketTypeID,
        Quantity:       hold.Quantity,
        AttendeesCount: newCount,
        ConfirmedAt:    now,
    }, nil
}

// Availability reports the event's capacity limit and confirmed count for
// read paths.
func (m *ReservationManager) Availability(ctx context.Context, eventID uint64) (max *uint32, current uint32, err error) {
    return m.store.GetCapacity(ctx, eventID)
}

// ReleaseExpired sweeps lapsed holds and returns them.  No counter
// compensation happens here: an active hold never consumed the durable
// counter, so expiry frees only the advisory tally.
func (m *ReservationManager) ReleaseExpired(now time.Time) []model.Hold {
    return m.holds.Sweep(now)
}

// StartSweeper runs ReleaseExpired on the given interval until ctx is
// cancelled.  It returns immediately; the sweep runs on its own goroutine
// and never blocks user-facing calls beyond the per-shard locking inside
// Sweep.
func (m *ReservationManager) StartSweeper(ctx context.Context, interval time.Duration) {
    if interval <= 0 {
        interval = 30 * time.Second
    }
    go func() {
        ticker := time.NewTicker(interval)
        defer ticker.Stop()
        for {
            select {
            case <-ctx.Done():
                return
            case <-ticker.C:
                if swept := m.ReleaseExpired(m.clk.Now()); len(swept) > 0 {
                    log.Printf("engine: swept %d expired holds", len(swept))
                }
            }
        }
    }()
}

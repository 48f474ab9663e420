package engine

import (
    "crypto/rand"
    "encoding/hex"
    "math"
    "sync"
    "time"

    "github.com/eventloop/capacity-engine/internal/model"
)

// DefaultHoldTTL matches the checkout countdown shown to users: a selected
// ticket stays held for fifteen minutes unless committed or cancelled.
const DefaultHoldTTL = 15 * time.Minute

// MaxHoldQuantity bounds a single hold.  The quantity must survive the
// conversion to the signed counter delta at commit time, so anything past
// int32 range is rejected as invalid rather than silently truncated.
const MaxHoldQuantity = math.MaxInt32

// holdKey identifies a hold within one event's shard.
type holdKey struct {
    userID       uint64
    ticketTypeID uint64
}

// eventHolds is the per-event shard.  Each shard has its own mutex so that
// operations on different events never contend with each other.  The map
// contains only ACTIVE holds; a hold leaves the map the moment it reaches a
// terminal state, which is what enforces the one-active-hold-per-tuple
// invariant.
type eventHolds struct {
    mu    sync.Mutex
    holds map[holdKey]*model.Hold
}

// HoldTable tracks provisional ticket reservations in memory.  Holds are
// advisory: they fence concurrent selections of the same tuple and feed the
// capacity pre-check, but the durable attendee counter is only moved at
// commit time.  Losing the table on restart therefore loses nothing that
// needs reconciling.
type HoldTable struct {
    ttl    time.Duration
    mu     sync.RWMutex
    events map[uint64]*eventHolds
}

// NewHoldTable returns a table whose holds expire ttl after creation or
// extension.  A non-positive ttl selects DefaultHoldTTL.
func NewHoldTable(ttl time.Duration) *HoldTable {
    if ttl <= 0 {
        ttl = DefaultHoldTTL
    }
    return &HoldTable{ttl: ttl, events: make(map[uint64]*eventHolds)}
}

// TTL reports the configured hold lifetime.
func (t *HoldTable) TTL() time.Duration { return t.ttl }

// shard returns the per-event shard, creating it when create is set.
func (t *HoldTable) shard(eventID uint64, create bool) *eventHolds {
    t.mu.RLock()
    s := t.events[eventID]
    t.mu.RUnlock()
    if s != nil || !create {
        return s
    }
    t.mu.Lock()
    defer t.mu.Unlock()
    if s = t.events[eventID]; s == nil {
        s = &eventHolds{holds: make(map[holdKey]*model.Hold)}
        t.events[eventID] = s
    }
    return s
}

// CreateOrExtendHold reserves quantity tickets of one type for a user, or
// refreshes the user's existing hold on that tuple.  The capacity check is
// advisory: confirmed is the event's durable attendee count and max its
// limit, both read by the caller just before this call.  The check counts
// every other active hold on the event plus the requested quantity; the
// tuple's own previous hold is replaced, not added.  Committed holds are
// not counted here because committing already moved the durable counter.
//
// On success the hold's deadline is set to now + TTL.  Extending keeps the
// original creation time and token so clients can correlate across
// refreshes.
func (t *HoldTable) CreateOrExtendHold(eventID, userID, ticketTypeID uint64, quantity uint32, max *uint32, confirmed uint32, now time.Time) (model.Hold, error) {
    if quantity == 0 || quantity > MaxHoldQuantity {
        return model.Hold{}, ErrInvalidQuantity
    }
    s := t.shard(eventID, true)
    s.mu.Lock()
    defer s.mu.Unlock()

    // Drop holds that lapsed before the sweeper reached them so they do
    // not count against capacity.
    s.expireLocked(now)

    // The tally runs in uint64: confirmed, the other holds and the request
    // are each bounded, but their sum can exceed uint32 and a wrapped sum
    // would slip under max.
    key := holdKey{userID: userID, ticketTypeID: ticketTypeID}
    var held uint64
    for k, h := range s.holds {
        if k != key {
            held += uint64(h.Quantity)
        }
    }
    if max != nil && uint64(confirmed)+held+uint64(quantity) > uint64(*max) {
        return model.Hold{}, ErrCapacityExceeded
    }

    if existing, ok := s.holds[key]; ok {
        existing.Quantity = quantity
        existing.ExpiresAt = now.Add(t.ttl)
        return *existing, nil
    }

    token, err := randomToken(16)
    if err != nil {
        return model.Hold{}, err
    }
    h := &model.Hold{
        EventID:      eventID,
        UserID:       userID,
        TicketTypeID: ticketTypeID,
        Quantity:     quantity,
        Token:        token,
        State:        model.HoldActive,
        CreatedAt:    now,
        ExpiresAt:    now.Add(t.ttl),
    }
    s.holds[key] = h
    return *h, nil
}

// CancelHold releases the user's active hold on the tuple.  Cancelling a
// missing or already-terminal hold is a no-op: the second return value
// reports whether anything was actually released.
func (t *HoldTable) CancelHold(eventID, userID, ticketTypeID uint64) (model.Hold, bool) {
    s := t.shard(eventID, false)
    if s == nil {
        return model.Hold{}, false
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    key := holdKey{userID: userID, ticketTypeID: ticketTypeID}
    h, ok := s.holds[key]
    if !ok {
        return model.Hold{}, false
    }
    h.State = model.HoldReleased
    delete(s.holds, key)
    return *h, true
}

// CommitHold moves the tuple's active hold to Committed and returns it.
// The caller is expected to follow up with the durable counter increment;
// see ReservationManager.Checkout.  A missing hold yields ErrHoldNotFound.
// A hold past its deadline is finalized as Expired here rather than handed
// out, and ErrHoldExpired is returned.
func (t *HoldTable) CommitHold(eventID, userID, ticketTypeID uint64, now time.Time) (model.Hold, error) {
    s := t.shard(eventID, false)
    if s == nil {
        return model.Hold{}, ErrHoldNotFound
    }
    s.mu.Lock()
    defer s.mu.Unlock()
    key := holdKey{userID: userID, ticketTypeID: ticketTypeID}
    h, ok := s.holds[key]
    if !ok {
        return model.Hold{}, ErrHoldNotFound
    }
    if !h.ExpiresAt.After(now) {
        h.State = model.HoldExpired
        delete(s.holds, key)
        return model.Hold{}, ErrHoldExpired
    }
    h.State = model.HoldCommitted
    delete(s.holds, key)
    return *h, nil
}

// Reinstate puts a just-committed hold back as Active with its original
// deadline.  It is the rollback half of checkout: when the counter update
// fails the user keeps their hold and can retry until the TTL runs out.
// If the tuple acquired a new hold in the meantime, or the deadline has
// already passed, the reinstate is dropped.
func (t *HoldTable) Reinstate(h model.Hold, now time.Time) bool {
    if !h.ExpiresAt.After(now) {
        return false
    }
    s := t.shard(h.EventID, true)
    s.mu.Lock()
    defer s.mu.Unlock()
    key := holdKey{userID: h.UserID, ticketTypeID: h.TicketTypeID}
    if _, ok := s.holds[key]; ok {
        return false
    }
    h.State = model.HoldActive
    s.holds[key] = &h
    return true
}

// Sweep finalizes every active hold whose deadline is at or before now and
// returns the holds swept by this call, in no particular order.  Shards
// are locked one at a time so a sweep never blocks operations on other
// events for more than one shard's scan.  A hold committed or cancelled
// concurrently has already left its shard map and cannot be double-expired.
func (t *HoldTable) Sweep(now time.Time) []model.Hold {
    t.mu.RLock()
    shards := make([]*eventHolds, 0, len(t.events))
    for _, s := range t.events {
        shards = append(shards, s)
    }
    t.mu.RUnlock()

    var swept []model.Hold
    for _, s := range shards {
        s.mu.Lock()
        swept = append(swept, s.expireLocked(now)...)
        s.mu.Unlock()
    }
    return swept
}

// expireLocked removes lapsed holds from the shard.  Caller holds s.mu.
func (s *eventHolds) expireLocked(now time.Time) []model.Hold {
    var expired []model.Hold
    for key, h := range s.holds {
        if !h.ExpiresAt.After(now) {
            h.State = model.HoldExpired
            expired = append(expired, *h)
            delete(s.holds, key)
        }
    }
    return expired
}

// randomToken returns a hex string from n bytes of cryptographically
// secure random data.  For a 32 character token, pass 16 bytes.
func randomToken(n int) (string, error) {
    b := make([]byte, n)
    if _, err := rand.Read(b); err != nil {
        return "", err
    }
    return hex.EncodeToString(b), nil
}

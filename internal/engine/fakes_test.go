package engine

import (
    "context"
    "sync"

    "github.com/eventloop/capacity-engine/internal/model"
)

// pair keys the (user, event) and (follower, organizer) fake maps.
type pair struct {
    a, b uint64
}

// fakeEventStore is an in-memory EventStore with the same bound-check
// semantics as the SQL implementation, plus hooks for injecting failures.
type fakeEventStore struct {
    mu          sync.Mutex
    max         *uint32
    count       uint32
    missing     bool
    adjustErr   error // returned by every AdjustAttendeeCount call when set
    adjustCalls int
}

func newFakeEventStore(max *uint32, count uint32) *fakeEventStore {
    return &fakeEventStore{max: max, count: count}
}

func (f *fakeEventStore) GetCapacity(_ context.Context, _ uint64) (*uint32, uint32, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.missing {
        return nil, 0, ErrEventNotFound
    }
    return f.max, f.count, nil
}

func (f *fakeEventStore) AdjustAttendeeCount(_ context.Context, _ uint64, delta int32) (uint32, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.adjustCalls++
    if f.missing {
        return 0, ErrEventNotFound
    }
    if f.adjustErr != nil {
        return 0, f.adjustErr
    }
    if delta > 0 {
        next := f.count + uint32(delta)
        if f.max != nil && next > *f.max {
            return 0, ErrEventFull
        }
        f.count = next
        return f.count, nil
    }
    dec := uint32(-delta)
    if dec > f.count {
        f.count = 0
    } else {
        f.count -= dec
    }
    return f.count, nil
}

func (f *fakeEventStore) current() uint32 {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.count
}

// fakeSubscriptionStore keeps one row per (user, event) pair, like the
// unique key on the subscriptions table.
type fakeSubscriptionStore struct {
    mu           sync.Mutex
    nextID       uint64
    byPair       map[pair]*model.Subscription
    byID         map[uint64]*model.Subscription
    createErr    error
    setStatusErr error
}

func newFakeSubscriptionStore() *fakeSubscriptionStore {
    return &fakeSubscriptionStore{
        nextID: 1,
        byPair: make(map[pair]*model.Subscription),
        byID:   make(map[uint64]*model.Subscription),
    }
}

func (f *fakeSubscriptionStore) Get(_ context.Context, userID, eventID uint64) (*model.Subscription, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    s, ok := f.byPair[pair{userID, eventID}]
    if !ok {
        return nil, nil
    }
    cp := *s
    return &cp, nil
}

func (f *fakeSubscriptionStore) Create(_ context.Context, sub *model.Subscription) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.createErr != nil {
        return f.createErr
    }
    sub.ID = f.nextID
    f.nextID++
    cp := *sub
    f.byPair[pair{sub.UserID, sub.EventID}] = &cp
    f.byID[sub.ID] = &cp
    return nil
}

func (f *fakeSubscriptionStore) SetStatus(_ context.Context, id uint64, status model.SubscriptionStatus) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.setStatusErr != nil {
        return f.setStatusErr
    }
    if s, ok := f.byID[id]; ok {
        s.Status = status
    }
    return nil
}

func (f *fakeSubscriptionStore) ListByUser(_ context.Context, userID uint64) ([]model.Subscription, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var out []model.Subscription
    for _, s := range f.byID {
        if s.UserID == userID {
            out = append(out, *s)
        }
    }
    return out, nil
}

func (f *fakeSubscriptionStore) status(userID, eventID uint64) (model.SubscriptionStatus, bool) {
    f.mu.Lock()
    defer f.mu.Unlock()
    s, ok := f.byPair[pair{userID, eventID}]
    if !ok {
        return "", false
    }
    return s.Status, true
}

// fakeFollowStore keeps one row per (follower, organizer) pair.
type fakeFollowStore struct {
    mu           sync.Mutex
    nextID       uint64
    byPair       map[pair]*model.Follow
    byID         map[uint64]*model.Follow
    createErr    error
    setStatusErr error
}

func newFakeFollowStore() *fakeFollowStore {
    return &fakeFollowStore{
        nextID: 1,
        byPair: make(map[pair]*model.Follow),
        byID:   make(map[uint64]*model.Follow),
    }
}

func (f *fakeFollowStore) Get(_ context.Context, followerID, organizerID uint64) (*model.Follow, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    rel, ok := f.byPair[pair{followerID, organizerID}]
    if !ok {
        return nil, nil
    }
    cp := *rel
    return &cp, nil
}

func (f *fakeFollowStore) Create(_ context.Context, rel *model.Follow) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.createErr != nil {
        return f.createErr
    }
    rel.ID = f.nextID
    f.nextID++
    cp := *rel
    f.byPair[pair{rel.FollowerID, rel.OrganizerID}] = &cp
    f.byID[rel.ID] = &cp
    return nil
}

func (f *fakeFollowStore) SetStatus(_ context.Context, id uint64, status model.FollowStatus) error {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.setStatusErr != nil {
        return f.setStatusErr
    }
    if rel, ok := f.byID[id]; ok {
        rel.Status = status
    }
    return nil
}

func (f *fakeFollowStore) CountActiveByOrganizer(_ context.Context, organizerID uint64) (uint32, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    var n uint32
    for _, rel := range f.byID {
        if rel.OrganizerID == organizerID && rel.Status == model.FollowActive {
            n++
        }
    }
    return n, nil
}

// fakeOrganizerStore holds the denormalized follower counters.
type fakeOrganizerStore struct {
    mu        sync.Mutex
    counts    map[uint64]uint32
    missing   bool
    adjustErr error
}

func newFakeOrganizerStore() *fakeOrganizerStore {
    return &fakeOrganizerStore{counts: make(map[uint64]uint32)}
}

func (f *fakeOrganizerStore) AdjustFollowerCount(_ context.Context, organizerID uint64, delta int32) (uint32, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    if f.missing {
        return 0, ErrOrganizerNotFound
    }
    if f.adjustErr != nil {
        return 0, f.adjustErr
    }
    c := f.counts[organizerID]
    if delta > 0 {
        c += uint32(delta)
    } else if dec := uint32(-delta); dec > c {
        c = 0
    } else {
        c -= dec
    }
    f.counts[organizerID] = c
    return c, nil
}

func (f *fakeOrganizerStore) count(organizerID uint64) uint32 {
    f.mu.Lock()
    defer f.mu.Unlock()
    return f.counts[organizerID]
}

func u32(v uint32) *uint32 { return &v }

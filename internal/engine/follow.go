package engine

import (
    "context"
    "log"

    "github.com/eventloop/capacity-engine/internal/model"
)

// FollowService implements the per-(follower, organizer) follow state
// machine.  Follow and Unfollow are the idempotent pair; Toggle always
// flips and exists for UI affordances that already display the current
// state.  The follower counter lives on the organizer, never on an event,
// and moves exactly once per real transition.
type FollowService struct {
    follows    FollowStore
    organizers OrganizerStore
    locks      *keyMutex
}

// NewFollowService wires the service.
func NewFollowService(follows FollowStore, organizers OrganizerStore) *FollowService {
    if follows == nil || organizers == nil {
        panic("nil store passed to NewFollowService")
    }
    return &FollowService{follows: follows, organizers: organizers, locks: newKeyMutex()}
}

// Follow creates the relation or flips it back to ACTIVE.  Following an
// organizer the user already follows returns the existing relation
// unchanged with changed=false and no counter adjustment.
func (f *FollowService) Follow(ctx context.Context, followerID, organizerID uint64) (*model.Follow, bool, error) {
    unlock := f.locks.lock(pairKey(followerID, organizerID))
    defer unlock()
    return f.activate(ctx, followerID, organizerID)
}

// Unfollow flips the relation to INACTIVE and decrements the organizer's
// follower counter.  A missing or already-inactive relation is a
// successful no-op; the return value reports whether a transition
// happened.
func (f *FollowService) Unfollow(ctx context.Context, followerID, organizerID uint64) (bool, error) {
    unlock := f.locks.lock(pairKey(followerID, organizerID))
    defer unlock()

    existing, err := f.follows.Get(ctx, followerID, organizerID)
    if err != nil {
        return false, err
    }
    if existing == nil || existing.Status == model.FollowInactive {
        return false, nil
    }
    if err := f.deactivate(ctx, existing, organizerID); err != nil {
        return false, err
    }
    return true, nil
}

// Toggle flips the relation regardless of its current state: a missing or
// inactive relation becomes ACTIVE, an active one becomes INACTIVE.  The
// returned relation carries the post-toggle state.
func (f *FollowService) Toggle(ctx context.Context, followerID, organizerID uint64) (*model.Follow, error) {
    unlock := f.locks.lock(pairKey(followerID, organizerID))
    defer unlock()

    existing, err := f.follows.Get(ctx, followerID, organizerID)
    if err != nil {
        return nil, err
    }
    if existing != nil && existing.Status == model.FollowActive {
        if err := f.deactivate(ctx, existing, organizerID); err != nil {
            return nil, err
        }
        existing.Status = model.FollowInactive
        return existing, nil
    }
    rel, _, err := f.activate(ctx, followerID, organizerID)
    return rel, err
}

// GetFollowStatus reports whether the follower currently follows the
// organizer.
func (f *FollowService) GetFollowStatus(ctx context.Context, followerID, organizerID uint64) (bool, error) {
    existing, err := f.follows.Get(ctx, followerID, organizerID)
    if err != nil {
        return false, err
    }
    return existing != nil && existing.Status == model.FollowActive, nil
}

// activate performs create-or-flip-to-ACTIVE.  Caller holds the pair lock.
func (f *FollowService) activate(ctx context.Context, followerID, organizerID uint64) (*model.Follow, bool, error) {
    existing, err := f.follows.Get(ctx, followerID, organizerID)
    if err != nil {
        return nil, false, err
    }
    if existing != nil && existing.Status == model.FollowActive {
        return existing, false, nil
    }

    if _, err := f.organizers.AdjustFollowerCount(ctx, organizerID, 1); err != nil {
        return nil, false, err
    }

    if existing != nil {
        if err := f.follows.SetStatus(ctx, existing.ID, model.FollowActive); err != nil {
            f.compensate(ctx, organizerID, -1)
            return nil, false, err
        }
        existing.Status = model.FollowActive
        return existing, true, nil
    }

    rel := &model.Follow{
        FollowerID:  followerID,
        OrganizerID: organizerID,
        Status:      model.FollowActive,
    }
    if err := f.follows.Create(ctx, rel); err != nil {
        f.compensate(ctx, organizerID, -1)
        return nil, false, err
    }
    return rel, true, nil
}

// deactivate flips an ACTIVE relation to INACTIVE.  Caller holds the pair
// lock and has verified the current state.
func (f *FollowService) deactivate(ctx context.Context, rel *model.Follow, organizerID uint64) error {
    if err := f.follows.SetStatus(ctx, rel.ID, model.FollowInactive); err != nil {
        return err
    }
    if _, err := f.organizers.AdjustFollowerCount(ctx, organizerID, -1); err != nil {
        if revertErr := f.follows.SetStatus(ctx, rel.ID, model.FollowActive); revertErr != nil {
            log.Printf("engine: failed to revert follow %d after counter error: %v", rel.ID, revertErr)
        }
        return err
    }
    return nil
}

func (f *FollowService) compensate(ctx context.Context, organizerID uint64, delta int32) {
    if _, err := f.organizers.AdjustFollowerCount(ctx, organizerID, delta); err != nil {
        log.Printf("engine: follower counter compensation (%+d) for organizer %d failed: %v", delta, organizerID, err)
    }
}

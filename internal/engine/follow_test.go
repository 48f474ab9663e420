package engine

import (
    "context"
    "errors"
    "sync"
    "testing"

    "github.com/eventloop/capacity-engine/internal/model"
)

func TestFollow(t *testing.T) {
    follows := newFakeFollowStore()
    organizers := newFakeOrganizerStore()
    svc := NewFollowService(follows, organizers)

    rel, changed, err := svc.Follow(context.Background(), 10, 7)
    if err != nil {
        t.Fatalf("Follow: %v", err)
    }
    if !changed {
        t.Error("first follow reported no transition")
    }
    if rel.Status != model.FollowActive {
        t.Errorf("status = %q, want %q", rel.Status, model.FollowActive)
    }
    if organizers.count(7) != 1 {
        t.Errorf("follower count = %d, want 1", organizers.count(7))
    }

    // Repeat follow is a no-op on both record and counter.
    again, changed, err := svc.Follow(context.Background(), 10, 7)
    if err != nil {
        t.Fatalf("repeat follow: %v", err)
    }
    if changed {
        t.Error("repeat follow reported a transition")
    }
    if again.ID != rel.ID {
        t.Errorf("repeat follow returned record %d, want %d", again.ID, rel.ID)
    }
    if organizers.count(7) != 1 {
        t.Errorf("follower count = %d after double follow, want 1", organizers.count(7))
    }
}

func TestUnfollow(t *testing.T) {
    follows := newFakeFollowStore()
    organizers := newFakeOrganizerStore()
    svc := NewFollowService(follows, organizers)

    if _, _, err := svc.Follow(context.Background(), 10, 7); err != nil {
        t.Fatalf("follow: %v", err)
    }
    changed, err := svc.Unfollow(context.Background(), 10, 7)
    if err != nil {
        t.Fatalf("unfollow: %v", err)
    }
    if !changed {
        t.Error("unfollow reported no transition")
    }
    if organizers.count(7) != 0 {
        t.Errorf("follower count = %d, want 0", organizers.count(7))
    }

    // Unfollowing again, or without ever following, is a silent no-op.
    if changed, err := svc.Unfollow(context.Background(), 10, 7); err != nil || changed {
        t.Errorf("repeat unfollow: changed=%v err=%v, want silent no-op", changed, err)
    }
    if changed, err := svc.Unfollow(context.Background(), 99, 7); err != nil || changed {
        t.Errorf("unfollow of never-followed: changed=%v err=%v, want silent no-op", changed, err)
    }
}

func TestToggleAlwaysFlips(t *testing.T) {
    follows := newFakeFollowStore()
    organizers := newFakeOrganizerStore()
    svc := NewFollowService(follows, organizers)

    want := []model.FollowStatus{
        model.FollowActive,
        model.FollowInactive,
        model.FollowActive,
        model.FollowInactive,
    }
    for i, status := range want {
        rel, err := svc.Toggle(context.Background(), 10, 7)
        if err != nil {
            t.Fatalf("toggle %d: %v", i+1, err)
        }
        if rel.Status != status {
            t.Errorf("toggle %d: status = %q, want %q", i+1, rel.Status, status)
        }
    }
    if organizers.count(7) != 0 {
        t.Errorf("follower count = %d after even toggles, want 0", organizers.count(7))
    }
}

func TestFollowCounterMatchesActiveRelations(t *testing.T) {
    type op struct {
        kind     string // "follow", "unfollow", "toggle"
        follower uint64
    }
    cases := []struct {
        name string
        ops  []op
    }{
        {"single follower churn", []op{
            {"follow", 1}, {"follow", 1}, {"unfollow", 1}, {"follow", 1}, {"toggle", 1},
        }},
        {"several followers", []op{
            {"follow", 1}, {"follow", 2}, {"follow", 3}, {"unfollow", 2}, {"toggle", 4}, {"toggle", 3},
        }},
        {"toggle heavy", []op{
            {"toggle", 1}, {"toggle", 1}, {"toggle", 2}, {"follow", 2}, {"unfollow", 3}, {"toggle", 3},
        }},
    }

    const organizerID = 7
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            follows := newFakeFollowStore()
            organizers := newFakeOrganizerStore()
            svc := NewFollowService(follows, organizers)

            for i, o := range tc.ops {
                var err error
                switch o.kind {
                case "follow":
                    _, _, err = svc.Follow(context.Background(), o.follower, organizerID)
                case "unfollow":
                    _, err = svc.Unfollow(context.Background(), o.follower, organizerID)
                case "toggle":
                    _, err = svc.Toggle(context.Background(), o.follower, organizerID)
                }
                if err != nil {
                    t.Fatalf("op %d (%s by %d): %v", i+1, o.kind, o.follower, err)
                }
            }

            active, err := follows.CountActiveByOrganizer(context.Background(), organizerID)
            if err != nil {
                t.Fatalf("CountActiveByOrganizer: %v", err)
            }
            if got := organizers.count(organizerID); got != active {
                t.Errorf("follower counter = %d, active relations = %d; must match", got, active)
            }
        })
    }
}

func TestFollowCompensatesOnCreateFailure(t *testing.T) {
    follows := newFakeFollowStore()
    follows.createErr = errors.New("duplicate entry")
    organizers := newFakeOrganizerStore()
    svc := NewFollowService(follows, organizers)

    if _, _, err := svc.Follow(context.Background(), 10, 7); err == nil {
        t.Fatal("follow succeeded despite create failure")
    }
    if organizers.count(7) != 0 {
        t.Errorf("follower count = %d after failed follow, want 0", organizers.count(7))
    }
}

func TestUnfollowRevertsOnCounterFailure(t *testing.T) {
    follows := newFakeFollowStore()
    organizers := newFakeOrganizerStore()
    svc := NewFollowService(follows, organizers)

    if _, _, err := svc.Follow(context.Background(), 10, 7); err != nil {
        t.Fatalf("follow: %v", err)
    }

    organizers.mu.Lock()
    organizers.adjustErr = errors.New("deadlock")
    organizers.mu.Unlock()

    if _, err := svc.Unfollow(context.Background(), 10, 7); err == nil {
        t.Fatal("unfollow succeeded despite counter failure")
    }
    rel, err := follows.Get(context.Background(), 10, 7)
    if err != nil {
        t.Fatalf("Get: %v", err)
    }
    if rel == nil || rel.Status != model.FollowActive {
        t.Error("relation not reverted to ACTIVE after counter failure")
    }
}

func TestFollowUnknownOrganizer(t *testing.T) {
    follows := newFakeFollowStore()
    organizers := newFakeOrganizerStore()
    organizers.missing = true
    svc := NewFollowService(follows, organizers)

    if _, _, err := svc.Follow(context.Background(), 10, 7); !errors.Is(err, ErrOrganizerNotFound) {
        t.Fatalf("err = %v, want ErrOrganizerNotFound", err)
    }
    if rel, _ := follows.Get(context.Background(), 10, 7); rel != nil {
        t.Error("relation created despite unknown organizer")
    }
}

func TestFollowConcurrentSamePair(t *testing.T) {
    follows := newFakeFollowStore()
    organizers := newFakeOrganizerStore()
    svc := NewFollowService(follows, organizers)

    const racers = 50
    var wg sync.WaitGroup
    transitions := make(chan bool, racers)
    for i := 0; i < racers; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            _, changed, err := svc.Follow(context.Background(), 10, 7)
            if err != nil {
                t.Errorf("Follow: %v", err)
                return
            }
            transitions <- changed
        }()
    }
    wg.Wait()
    close(transitions)

    var real int
    for changed := range transitions {
        if changed {
            real++
        }
    }
    if real != 1 {
        t.Errorf("%d real transitions, want exactly 1", real)
    }
    if organizers.count(7) != 1 {
        t.Errorf("follower count = %d after %d concurrent follows, want 1", organizers.count(7), racers)
    }
}

package engine

import "sync"

// keyMutex serializes operations on a single logical key (a hold tuple, a
// (user, event) pair, a (follower, organizer) pair) without a lock per key
// living forever.  Keys are spread over a fixed set of stripes; two
// different keys may share a stripe, which costs occasional needless
// contention but keeps memory constant.  The stripe count is a power of two
// so the modulo reduces to a mask.
type keyMutex struct {
    stripes []sync.Mutex
    mask    uint64
}

const defaultStripes = 256

func newKeyMutex() *keyMutex {
    return &keyMutex{stripes: make([]sync.Mutex, defaultStripes), mask: defaultStripes - 1}
}

// lock acquires the stripe for the key and returns the unlock function.
func (k *keyMutex) lock(key uint64) func() {
    m := &k.stripes[mix(key)&k.mask]
    m.Lock()
    return m.Unlock
}

// pairKey folds two IDs into one stripe key.
func pairKey(a, b uint64) uint64 {
    return mix(a)*31 + b
}

// tupleKey folds three IDs into one stripe key.
func tupleKey(a, b, c uint64) uint64 {
    return (mix(a)*31+b)*31 + c
}

// mix is a 64-bit finalizer (splitmix64) so that sequential IDs do not all
// land on neighbouring stripes.
func mix(x uint64) uint64 {
    x ^= x >> 30
    x *= 0xbf58476d1ce4e5b9
    x ^= x >> 27
    x *= 0x94d049bb133111eb
    x ^= x >> 31
    return x
}

package gen

import "sync"

// SharedBool is a reference-counted, idempotently-settable tri-state flag
// (spec.md §4.2 "shared boolean") used to atomically disarm a completion
// callback that may fire after the generator holding it has already been
// cancelled — the same disarm idiom the source material covers under
// AbortSignal for its event-loop callbacks, generalized here to a plain
// bool since a generator's quit signal carries no reason value.
type SharedBool struct {
	mu  sync.Mutex
	set bool
	val bool
}

// NewSharedBool returns an unset SharedBool.
func NewSharedBool() *SharedBool {
	return &SharedBool{}
}

// Set idempotently fixes the flag's value. Once set, further calls are
// no-ops — mirroring AbortController.Abort's "first reason wins" semantics
// applied to a plain boolean.
func (b *SharedBool) Set(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.set {
		return
	}
	b.set = true
	b.val = v
}

// Get reports whether the flag has been set, and if so, its value.
func (b *SharedBool) Get() (value bool, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.val, b.set
}

// True is a convenience for the common disarm check: true only once Set
// has been called with true.
func (b *SharedBool) True() bool {
	v, ok := b.Get()
	return ok && v
}

// Empty reports whether the flag has never been set — mirrors the source
// material's shared_bool.empty() used to detect "not yet fired, not yet
// cancelled" in co_begin/co_shared_async.
func (b *SharedBool) Empty() bool {
	_, ok := b.Get()
	return !ok
}

// Reset clears the flag back to unset. Restart does not call it; Create
// gives every frame, recycled or not, a fresh SharedBool instead.
func (b *SharedBool) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.set = false
	b.val = false
}

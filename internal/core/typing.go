package core

import (
	"sync"
	"time"
)

// pairKey is an ordered (sender, recipient) pair.
type pairKey struct {
	sender    Identity
	recipient Identity
}

// TypingCoordinator tracks the per-pair typing flag with automatic
// quiescence reset. Typing signals are meaningful for direct
// conversations only, are never persisted, and are lost on disconnect.
//
// Invariant: at most one outstanding timer per pair. A fresh
// start_typing replaces the existing timer instead of stacking a new
// one, and does not re-emit typing_started. Events are emitted under
// the lock so a stale expiry can never land after the refresh that
// superseded it.
type TypingCoordinator struct {
	mu       sync.Mutex
	window   time.Duration
	timers   map[pairKey]*time.Timer
	presence *Presence
}

// NewTypingCoordinator builds a coordinator that auto-resets typing
// state after the given quiescence window.
func NewTypingCoordinator(presence *Presence, window time.Duration) *TypingCoordinator {
	return &TypingCoordinator{
		window:   window,
		timers:   make(map[pairKey]*time.Timer),
		presence: presence,
	}
}

// Start handles a start_typing intent. On the Idle->Typing transition it
// emits typing_started to the recipient's live connections; while
// already Typing it only restarts the quiescence window. A recipient
// with no live connections gets nothing, and nothing is queued.
//
// The old timer is stopped and replaced rather than Reset: a timer that
// has already fired cannot be reliably Reset, and its pending expire
// recognizes the replacement by handle and backs off.
func (t *TypingCoordinator) Start(sender, recipient Identity) {
	key := pairKey{sender, recipient}

	t.mu.Lock()
	defer t.mu.Unlock()

	prev, refreshing := t.timers[key]
	if refreshing {
		prev.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(t.window, func() {
		t.expire(key, timer)
	})
	t.timers[key] = timer

	if !refreshing {
		t.emit(recipient, &Event{Kind: EventTypingStarted, Peer: sender})
	}
}

// Stop handles an explicit stop_typing intent: cancels the timer and
// emits typing_stopped immediately. A no-op if the pair is Idle.
func (t *TypingCoordinator) Stop(sender, recipient Identity) {
	key := pairKey{sender, recipient}

	t.mu.Lock()
	defer t.mu.Unlock()

	timer, ok := t.timers[key]
	if !ok {
		return
	}
	timer.Stop()
	delete(t.timers, key)
	t.emit(recipient, &Event{Kind: EventTypingStopped, Peer: sender})
}

// Typing reports whether the pair is currently in the Typing state.
func (t *TypingCoordinator) Typing(sender, recipient Identity) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[pairKey{sender, recipient}]
	return ok
}

// expire fires on quiescence: no start_typing arrived for a full
// window. It acts only if its own timer is still the registered one; a
// refresh that replaced the timer between firing and locking makes
// this a no-op.
func (t *TypingCoordinator) expire(key pairKey, timer *time.Timer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timers[key] != timer {
		return
	}
	delete(t.timers, key)
	t.emit(key.recipient, &Event{Kind: EventTypingStopped, Peer: key.sender})
}

func (t *TypingCoordinator) emit(recipient Identity, ev *Event) {
	for _, c := range t.presence.Lookup(recipient) {
		c.send(ev)
	}
}

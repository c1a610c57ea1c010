// Package events provides a typed publish/subscribe substrate used
// throughout smldaq to decouple meter readers, timers, and network
// handlers from the components that react to their events.
//
// A Publisher keeps an (subscriber, active) entry per registrant.
// Subscribe de-duplicates by re-activating an existing inactive entry
// rather than appending a second one. Unsubscribe only marks an entry
// inactive; Notify is what actually erases inactive entries, and does
// so only after it has finished dispatching — a subscriber is legally
// allowed to call Unsubscribe (including on itself) from within its
// own Notify method.
package events

import "sync"

// Subscriber receives values published by a Publisher. Implementations
// should be pointer types: Subscribe/Unsubscribe identify a Subscriber
// by interface equality, which panics at runtime for non-comparable
// underlying types (slices, maps, funcs).
type Subscriber[T any] interface {
	Notify(T)
}

type entry[T any] struct {
	sub    Subscriber[T]
	active bool
}

// Publisher fans a value of type T out to a set of Subscribers.
type Publisher[T any] struct {
	mu   sync.Mutex
	subs []entry[T]
}

// New creates a Publisher ready for use. The zero value is also ready
// for use; New exists for symmetry with the rest of the package style.
func New[T any]() *Publisher[T] {
	return &Publisher[T]{}
}

// Subscribe registers s to receive future Notify calls. Subscribing an
// already-active s is a no-op reporting false. Subscribing an s that
// was previously Unsubscribed re-activates its existing entry rather
// than appending a duplicate.
func (p *Publisher[T]) Subscribe(s Subscriber[T]) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.subs {
		if p.subs[i].sub == s {
			if p.subs[i].active {
				return false
			}
			p.subs[i].active = true
			return true
		}
	}
	p.subs = append(p.subs, entry[T]{sub: s, active: true})
	return true
}

// Unsubscribe marks s inactive. It does not remove the entry
// immediately — compaction happens at the next Notify — so calling
// Unsubscribe from within s's own Notify method is safe and does not
// disturb the in-progress dispatch. Unsubscribing an unknown or
// already-inactive s is a no-op.
func (p *Publisher[T]) Unsubscribe(s Subscriber[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.subs {
		if p.subs[i].sub == s {
			p.subs[i].active = false
			return
		}
	}
}

// Notify delivers v to every currently-active Subscriber, in
// subscription order, then erases any entries deactivated during this
// call (by themselves or by another subscriber dispatched earlier in
// the same pass).
func (p *Publisher[T]) Notify(v T) {
	p.mu.Lock()
	snapshot := make([]entry[T], len(p.subs))
	copy(snapshot, p.subs)
	p.mu.Unlock()

	for _, e := range snapshot {
		if e.active {
			e.sub.Notify(v)
		}
	}

	p.mu.Lock()
	kept := p.subs[:0]
	for _, e := range p.subs {
		if e.active {
			kept = append(kept, e)
		}
	}
	p.subs = kept
	p.mu.Unlock()
}

// Count returns the number of currently-active subscribers.
func (p *Publisher[T]) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.subs {
		if e.active {
			n++
		}
	}
	return n
}

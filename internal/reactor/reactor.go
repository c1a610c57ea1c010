// Package reactor implements the synchronous event demultiplexer that
// every other component in smldaq's core is driven by: reactor.New
// returns a Reactor with exactly one dispatch goroutine, whatever the
// number of registered sources, so no shared state (parser trees,
// registries, subscriber lists) needs locking once it is only ever
// touched from inside a Handler.
//
// Each registered source gets its own background "pump" goroutine that
// blocks on readiness (typically an io.Reader's Read call) and forwards
// a ReadyEvent onto one shared channel. This is the Go-native reading
// of the original's epoll-style per-descriptor readiness: many
// goroutines produce, one goroutine (Run's caller) consumes and
// dispatches, so the single-threaded cooperative model is preserved at
// the only place it matters.
package reactor

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Action is what a Handler's dispatch tells the Reactor to do next.
type Action int

const (
	// Continue means keep running the event loop.
	Continue Action = iota
	// Stop means Run should return nil immediately.
	Stop
	// ActionError means Run should return an error immediately.
	ActionError
)

// EventMask flags what kind of readiness a registration is interested
// in. Every registration in smldaq uses Readable; Writable is defined
// but no registration uses it.
type EventMask uint8

const (
	Readable EventMask = 1 << iota
	Writable
)

// Handle identifies one registered event source. The zero Handle is
// never issued by Register.
type Handle uint64

// ReadyEvent is what a source's pump goroutine reports each time it
// observes readiness.
type ReadyEvent struct {
	Handle Handle
	Mask   EventMask
	Data   []byte
	Err    error
}

// Handler reacts to readiness on its Handle. The returned Action tells
// Run whether to keep going.
type Handler interface {
	HandleEvent(ev ReadyEvent) Action
}

// Pump watches one source for readiness and calls report once per
// occurrence, until ctx is cancelled. A pump that observes the source
// close or fail should report a final ReadyEvent with Err set and then
// return; Run does not treat receiving that event specially, it is the
// Handler's job to unregister on error exactly as it would on a 0-byte
// read in the original's readable-handler contract.
type Pump func(ctx context.Context, report func(ReadyEvent))

type entry struct {
	mask    EventMask
	handler Handler
	cancel  context.CancelFunc
}

// Reactor is a single-threaded cooperative event demultiplexer.
type Reactor struct {
	mu       sync.Mutex
	registry map[Handle]*entry
	next     Handle
	events   chan ReadyEvent
}

// New returns a Reactor with no registered handles.
func New() *Reactor {
	return &Reactor{
		registry: make(map[Handle]*entry),
		events:   make(chan ReadyEvent),
	}
}

// Register starts pump in its own goroutine and associates handler
// with the Handle it reports under. Register is safe to call from
// within a Handler's own HandleEvent.
func (r *Reactor) Register(handler Handler, mask EventMask, pump Pump) Handle {
	r.mu.Lock()
	r.next++
	h := r.next
	ctx, cancel := context.WithCancel(context.Background())
	r.registry[h] = &entry{mask: mask, handler: handler, cancel: cancel}
	r.mu.Unlock()

	go pump(ctx, func(ev ReadyEvent) {
		ev.Handle = h
		select {
		case r.events <- ev:
		case <-ctx.Done():
		}
	})
	return h
}

// Unregister removes h's future invocations. It is idempotent:
// unregistering an unknown or already-removed Handle is a no-op. A
// ReadyEvent for h already in flight when Unregister runs is dropped
// by Run's identity check against the registry, never dispatched.
func (r *Reactor) Unregister(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.registry[h]
	if !ok {
		return
	}
	e.cancel()
	delete(r.registry, h)
}

// Run dispatches ReadyEvents to their Handler until ctx is cancelled or
// a Handler returns Stop or ActionError. Ordering of dispatch within a
// single receive is trivially FIFO since events are read one at a
// time off a single channel; across concurrent pumps it is FIFO by
// arrival, matching the spec's "FIFO by readiness" guarantee.
func (r *Reactor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-r.events:
			r.mu.Lock()
			e, ok := r.registry[ev.Handle]
			r.mu.Unlock()
			if !ok {
				continue
			}
			switch e.handler.HandleEvent(ev) {
			case Stop:
				return nil
			case ActionError:
				return fmt.Errorf("reactor: handler for handle %d returned error", ev.Handle)
			}
		}
	}
}

// Len reports the number of currently registered handles.
func (r *Reactor) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.registry)
}

// ReaderPump adapts an io.Reader into a Pump: it issues blocking Reads
// of up to bufSize bytes and reports one ReadyEvent per call, copying
// the bytes read so the caller's buffer can be reused safely. It
// reports a final ReadyEvent carrying the error (including io.EOF) and
// returns.
func ReaderPump(r io.Reader, bufSize int) Pump {
	return func(ctx context.Context, report func(ReadyEvent)) {
		buf := make([]byte, bufSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				report(ReadyEvent{Mask: Readable, Data: data})
			}
			if err != nil {
				report(ReadyEvent{Mask: Readable, Err: err})
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}
}

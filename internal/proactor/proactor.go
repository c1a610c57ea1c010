// Package proactor implements the asynchronous completion dispatcher
// layered on top of the reactor: a write that would block is issued on
// its own goroutine, and its completion is routed back onto the
// reactor's single dispatch goroutine so the rest of smldaq never has
// to reason about concurrent access to parser trees or subscriber
// lists.
//
// The "self-pipe" of the original design (a non-blocking pipe an OS
// callback writes a pointer-sized token into, waking the reactor) is
// played here by an internal, bounded Go channel carrying ACT slab
// indices rather than raw pointers — indices are stable across the
// channel hop and never dangle the way a pointer into a reused buffer
// could.
package proactor

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/nugget/smldaq/internal/reactor"
)

// CompletionAction is returned by a Handler's OnAsyncComplete to tell
// the Proactor whether the write is fully done or needs a follow-up
// call on the reactor's dispatch goroutine.
type CompletionAction int

const (
	// Finalize means the write is complete; no further callback runs.
	Finalize CompletionAction = iota
	// CallSync means OnSyncComplete should be invoked once the
	// notification reaches the reactor's dispatch goroutine.
	CallSync
)

// Handler reacts to one submitted write's completion.
type Handler interface {
	// OnAsyncComplete runs on the write's own goroutine immediately
	// after the write returns. It must not touch reactor-owned state.
	OnAsyncComplete(token int) CompletionAction
	// OnSyncComplete runs on the reactor's dispatch goroutine, safe to
	// touch parser trees, registries, and subscriber lists.
	OnSyncComplete(token int)
}

// act is one slab entry: the write's handler and its two busy flags.
// A slot is only eligible for reuse once both flags are clear.
type act struct {
	handler   Handler
	asyncBusy bool
	syncBusy  bool
}

// Proactor is a singleton event handler registered with a Reactor on
// an internal notification channel.
type Proactor struct {
	mu   sync.Mutex
	slab []*act
	ch   chan []byte
}

// notifyBacklog bounds the self-pipe channel. A full channel silently
// drops the sync notification — an accepted, documented risk for
// best-effort logging-style writes, not a bug to fix.
const notifyBacklog = 64

// New returns a Proactor registered with r.
func New(r *reactor.Reactor) *Proactor {
	p := &Proactor{ch: make(chan []byte, notifyBacklog)}
	r.Register(p, reactor.Readable, p.pump)
	return p
}

func (p *Proactor) pump(ctx context.Context, report func(reactor.ReadyEvent)) {
	for {
		select {
		case buf := <-p.ch:
			report(reactor.ReadyEvent{Mask: reactor.Readable, Data: buf})
		case <-ctx.Done():
			return
		}
	}
}

// HandleEvent implements reactor.Handler: it decodes the slab index
// carried in the notification and invokes the waiting handler's
// OnSyncComplete.
func (p *Proactor) HandleEvent(ev reactor.ReadyEvent) reactor.Action {
	idx := int(binary.BigEndian.Uint64(ev.Data))

	p.mu.Lock()
	a := p.slab[idx]
	p.mu.Unlock()

	a.handler.OnSyncComplete(idx)

	p.mu.Lock()
	a.syncBusy = false
	p.mu.Unlock()

	return reactor.Continue
}

// SubmitWrite issues an asynchronous write of buf to w, calling
// handler.OnAsyncComplete on the write's own goroutine once it
// returns, and returns the token identifying this write. The caller
// is responsible for keeping buf alive until OnAsyncComplete runs.
func (p *Proactor) SubmitWrite(w writer, buf []byte, handler Handler) int {
	p.mu.Lock()
	idx := p.allocSlot(handler)
	p.mu.Unlock()

	go func() {
		_, _ = w.Write(buf)

		action := handler.OnAsyncComplete(idx)

		p.mu.Lock()
		p.slab[idx].asyncBusy = false
		if action == Finalize {
			p.slab[idx].syncBusy = false
		}
		p.mu.Unlock()

		if action != CallSync {
			return
		}

		notice := make([]byte, 8)
		binary.BigEndian.PutUint64(notice, uint64(idx))
		select {
		case p.ch <- notice:
		default:
			// self-pipe full: notification dropped.
		}
	}()

	return idx
}

// writer is the minimal surface SubmitWrite needs; satisfied by
// net.Conn, os.File, and io.Writer generally.
type writer interface {
	Write(p []byte) (int, error)
}

// allocSlot returns the index of a reusable slot (both busy flags
// clear) if one exists, otherwise grows the slab. Callers hold p.mu.
func (p *Proactor) allocSlot(handler Handler) int {
	for i, a := range p.slab {
		if a != nil && !a.asyncBusy && !a.syncBusy {
			a.handler = handler
			a.asyncBusy = true
			a.syncBusy = true
			return i
		}
	}
	p.slab = append(p.slab, &act{handler: handler, asyncBusy: true, syncBusy: true})
	return len(p.slab) - 1
}

// Package timer provides a reactor-driven periodic clock: an Endpoint,
// once its caller registers it (with its Pump) on a reactor.Reactor,
// fans out a Tick to its subscribers every time its period elapses. SetPeriod can change or
// stop the period at any time, including from inside a subscriber's own
// Notify method.
package timer

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/nugget/smldaq/internal/events"
	"github.com/nugget/smldaq/internal/reactor"
)

func binaryPutTime(buf []byte, t time.Time) {
	binary.BigEndian.PutUint64(buf, uint64(t.UnixNano()))
}

func binaryGetTime(buf []byte) time.Time {
	if len(buf) != 8 {
		return time.Now()
	}
	return time.Unix(0, int64(binary.BigEndian.Uint64(buf)))
}

// Tick is published once per period elapsed.
type Tick struct {
	Time time.Time
}

// Endpoint is a reactor.Handler that turns a time.Ticker into Tick
// notifications.
type Endpoint struct {
	pub     *events.Publisher[Tick]
	resetCh chan time.Duration
}

// New returns an Endpoint with period initially stopped (zero). Call
// SetPeriod to start ticking, and Register it with a reactor.Reactor to
// have it actually run.
func New() *Endpoint {
	return &Endpoint{
		pub:     events.New[Tick](),
		resetCh: make(chan time.Duration, 1),
	}
}

// Subscribe registers s to receive future Ticks.
func (e *Endpoint) Subscribe(s events.Subscriber[Tick]) bool {
	return e.pub.Subscribe(s)
}

// Unsubscribe removes s.
func (e *Endpoint) Unsubscribe(s events.Subscriber[Tick]) {
	e.pub.Unsubscribe(s)
}

// SetPeriod changes the tick interval. A zero duration stops ticking
// until SetPeriod is called again with a positive value. Safe to call
// before or after the Endpoint is registered with a reactor.
func (e *Endpoint) SetPeriod(d time.Duration) {
	select {
	case <-e.resetCh:
	default:
	}
	e.resetCh <- d
}

// Pump is the reactor.Pump for this Endpoint: it owns the underlying
// time.Ticker, rebuilding it whenever SetPeriod delivers a new period,
// and reports a ReadyEvent for every tick.
func (e *Endpoint) Pump(ctx context.Context, report func(reactor.ReadyEvent)) {
	var ticker *time.Ticker
	var tickC <-chan time.Time

	stop := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
			tickC = nil
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-e.resetCh:
			stop()
			if d > 0 {
				ticker = time.NewTicker(d)
				tickC = ticker.C
			}
		case t := <-tickC:
			buf := make([]byte, 8)
			binaryPutTime(buf, t)
			report(reactor.ReadyEvent{Mask: reactor.Readable, Data: buf})
		}
	}
}

// HandleEvent implements reactor.Handler: each ReadyEvent from Pump
// becomes one Tick published to subscribers.
func (e *Endpoint) HandleEvent(ev reactor.ReadyEvent) reactor.Action {
	e.pub.Notify(Tick{Time: binaryGetTime(ev.Data)})
	return reactor.Continue
}

package netsvc

import (
	"net"
	"time"

	"github.com/nugget/smldaq/internal/proactor"
	"github.com/nugget/smldaq/internal/reactor"
	"github.com/nugget/smldaq/internal/timer"
)

// frameState is the polling client's two-state inbound scanner: wait
// for STX, then accumulate bytes until ETX closes the frame.
type frameState int

const (
	waitForSTX frameState = iota
	accumulating
)

// PollingClient owns a periodic timer.Endpoint; on each tick it writes
// the poll command and waits for a framed response, handing the
// decoded fields to OnFields. When the connection closes it stops its
// own timer.
type PollingClient struct {
	conn     net.Conn
	pro      *proactor.Proactor
	timer    *timer.Endpoint
	OnFields func(fields []string)

	state frameState
	buf   []byte
}

// NewPollingClient returns a client polling conn every period via a
// timer.Endpoint the caller must register with a reactor.Reactor
// (timer.Endpoint.Pump) in addition to registering the client itself
// for reads.
func NewPollingClient(conn net.Conn, pro *proactor.Proactor, period time.Duration) *PollingClient {
	c := &PollingClient{conn: conn, pro: pro, timer: timer.New()}
	c.timer.Subscribe(tickSubscriber(c.onTick))
	c.timer.SetPeriod(period)
	return c
}

// Timer exposes the underlying timer.Endpoint so the caller can
// register its Pump with a reactor.Reactor.
func (c *PollingClient) Timer() *timer.Endpoint {
	return c.timer
}

func (c *PollingClient) onTick(timer.Tick) {
	c.pro.SubmitWrite(c.conn, []byte{pollCommand}, c)
}

// OnAsyncComplete implements proactor.Handler for the outbound poll
// byte: fire-and-forget.
func (c *PollingClient) OnAsyncComplete(token int) proactor.CompletionAction {
	return proactor.Finalize
}

// OnSyncComplete implements proactor.Handler.
func (c *PollingClient) OnSyncComplete(token int) {}

// HandleEvent implements reactor.Handler over the connection's reads:
// it accumulates bytes between STX and ETX and hands the decoded
// fields to OnFields once a frame completes. On close it stops the
// timer.
func (c *PollingClient) HandleEvent(ev reactor.ReadyEvent) reactor.Action {
	if ev.Err != nil || len(ev.Data) == 0 {
		c.timer.SetPeriod(0)
		return reactor.Continue
	}
	for _, b := range ev.Data {
		switch c.state {
		case waitForSTX:
			if b == stx {
				c.state = accumulating
				c.buf = c.buf[:0]
			}
		case accumulating:
			if b == etx {
				if c.OnFields != nil {
					c.OnFields(decodeFrame(c.buf))
				}
				c.state = waitForSTX
				continue
			}
			c.buf = append(c.buf, b)
		}
	}
	return reactor.Continue
}

// tickSubscriber adapts a plain func(timer.Tick) into an
// events.Subscriber[timer.Tick].
type tickSubscriber func(timer.Tick)

func (f tickSubscriber) Notify(t timer.Tick) { f(t) }

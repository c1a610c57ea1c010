package netsvc

import (
	"net"

	"github.com/nugget/smldaq/internal/meter"
	"github.com/nugget/smldaq/internal/proactor"
	"github.com/nugget/smldaq/internal/reactor"
)

// SnapshotSource is the read-only accessor a meter.System exposes to
// the network servers: the latest snapshot for every meter that has
// reported at least once.
type SnapshotSource interface {
	Sweep() []meter.Snapshot
}

// RawServer answers the single-byte 'g' command with a framed snapshot
// of every configured meter's measurements. It implements both
// reactor.Handler (readable data on the connection) and
// proactor.Handler (completion of its own asynchronous write).
type RawServer struct {
	conn   net.Conn
	source SnapshotSource
	pro    *proactor.Proactor
}

// NewRawServer returns a RawServer reading from conn.
func NewRawServer(conn net.Conn, source SnapshotSource, pro *proactor.Proactor) *RawServer {
	return &RawServer{conn: conn, source: source, pro: pro}
}

// HandleEvent implements reactor.Handler: any occurrence of the poll
// command in the inbound bytes triggers one response frame; a closed
// or errored connection is closed and the event loop keeps running
// for every other handler.
func (s *RawServer) HandleEvent(ev reactor.ReadyEvent) reactor.Action {
	if ev.Err != nil || len(ev.Data) == 0 {
		s.conn.Close()
		return reactor.Continue
	}
	for _, b := range ev.Data {
		if b == pollCommand {
			s.pro.SubmitWrite(s.conn, encodeFrame(s.source.Sweep()), s)
		}
	}
	return reactor.Continue
}

// OnAsyncComplete implements proactor.Handler: the write is fire-and-
// forget, so the slot finalizes immediately.
func (s *RawServer) OnAsyncComplete(token int) proactor.CompletionAction {
	return proactor.Finalize
}

// OnSyncComplete implements proactor.Handler; never called since
// OnAsyncComplete always returns Finalize.
func (s *RawServer) OnSyncComplete(token int) {}

// PowerOnlyRawServer answers 'g' with just one configured meter's
// aggregate power value: STX, the value, US, ETX. No unit or status is
// carried on this surface.
type PowerOnlyRawServer struct {
	conn       net.Conn
	source     SnapshotSource
	pro        *proactor.Proactor
	meterIndex uint32
	label      string
}

// NewPowerOnlyRawServer returns a server that reports meterIndex's
// measurement named label.
func NewPowerOnlyRawServer(conn net.Conn, source SnapshotSource, pro *proactor.Proactor, meterIndex uint32, label string) *PowerOnlyRawServer {
	return &PowerOnlyRawServer{conn: conn, source: source, pro: pro, meterIndex: meterIndex, label: label}
}

// HandleEvent implements reactor.Handler.
func (s *PowerOnlyRawServer) HandleEvent(ev reactor.ReadyEvent) reactor.Action {
	if ev.Err != nil || len(ev.Data) == 0 {
		s.conn.Close()
		return reactor.Continue
	}
	for _, b := range ev.Data {
		if b != pollCommand {
			continue
		}
		value, _, _ := findPower(s.source.Sweep(), s.meterIndex, s.label)
		frame := []byte{stx}
		frame = append(frame, formatDouble(value)...)
		frame = append(frame, us, etx)
		s.pro.SubmitWrite(s.conn, frame, s)
	}
	return reactor.Continue
}

// OnAsyncComplete implements proactor.Handler.
func (s *PowerOnlyRawServer) OnAsyncComplete(token int) proactor.CompletionAction {
	return proactor.Finalize
}

// OnSyncComplete implements proactor.Handler.
func (s *PowerOnlyRawServer) OnSyncComplete(token int) {}

func formatPower(value float64, unit string) string {
	return formatDouble(value) + unit
}

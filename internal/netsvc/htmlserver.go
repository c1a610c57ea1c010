package netsvc

import (
	"net"

	"github.com/nugget/smldaq/internal/proactor"
	"github.com/nugget/smldaq/internal/reactor"
)

// headerState is the 4-state machine over an inbound HTTP request
// line and headers: only the GET verb and the terminating blank line
// matter, everything else (URL, header values) is scanned over and
// discarded per the documented "URL is ignored" behavior.
type headerState int

const (
	waitForGet headerState = iota
	waitForURL
	waitForHeaderEnd
	headerDone
)

// maxHeaderBytes bounds how much of a request this scanner will buffer
// before giving up and closing the connection, guarding against a peer
// that never sends a blank line.
const maxHeaderBytes = 8192

// getScanner recognizes "GET <url> HTTP/1.x\r\n...\r\n\r\n" byte by
// byte, tracking only what it needs to detect the end of headers.
type getScanner struct {
	state       headerState
	matched     int
	crlfRun     int
	total       int
}

const getPrefix = "GET "

// feed advances the scanner by one byte, returning true once the
// blank line terminating the headers has been seen.
func (g *getScanner) feed(b byte) (done bool, overflow bool) {
	g.total++
	if g.total > maxHeaderBytes {
		return false, true
	}

	switch g.state {
	case waitForGet:
		if b == getPrefix[g.matched] {
			g.matched++
			if g.matched == len(getPrefix) {
				g.state = waitForURL
			}
			return false, false
		}
		g.matched = 0
		if b == getPrefix[0] {
			g.matched = 1
		}
		return false, false
	case waitForURL:
		if b == ' ' {
			g.state = waitForHeaderEnd
		}
		return false, false
	case waitForHeaderEnd:
		switch b {
		case '\r':
			// ignored; \n does the counting
		case '\n':
			g.crlfRun++
			if g.crlfRun >= 2 {
				g.state = headerDone
				return true, false
			}
		default:
			g.crlfRun = 0
		}
		return false, false
	}
	return false, false
}

// HTMLServer answers a GET request with an HTML page listing every
// configured meter's current measurements. The request URL and any
// header values are ignored; only the end of the header block matters.
type HTMLServer struct {
	conn    net.Conn
	source  SnapshotSource
	pro     *proactor.Proactor
	scanner getScanner
}

// NewHTMLServer returns an HTMLServer reading from conn.
func NewHTMLServer(conn net.Conn, source SnapshotSource, pro *proactor.Proactor) *HTMLServer {
	return &HTMLServer{conn: conn, source: source, pro: pro}
}

// HandleEvent implements reactor.Handler.
func (s *HTMLServer) HandleEvent(ev reactor.ReadyEvent) reactor.Action {
	if ev.Err != nil || len(ev.Data) == 0 {
		s.conn.Close()
		return reactor.Continue
	}
	for _, b := range ev.Data {
		done, overflow := s.scanner.feed(b)
		if overflow {
			s.conn.Close()
			return reactor.Continue
		}
		if done {
			body := htmlBody(s.source.Sweep())
			s.pro.SubmitWrite(s.conn, httpResponse(body), s)
			return reactor.Continue
		}
	}
	return reactor.Continue
}

// OnAsyncComplete implements proactor.Handler.
func (s *HTMLServer) OnAsyncComplete(token int) proactor.CompletionAction {
	s.conn.Close()
	return proactor.Finalize
}

// OnSyncComplete implements proactor.Handler.
func (s *HTMLServer) OnSyncComplete(token int) {}

// HTMLPowerServer is the same envelope as HTMLServer but with a
// one-line body reporting a single configured meter's power value.
type HTMLPowerServer struct {
	conn       net.Conn
	source     SnapshotSource
	pro        *proactor.Proactor
	meterIndex uint32
	label      string
	scanner    getScanner
}

// NewHTMLPowerServer returns an HTMLPowerServer reporting meterIndex's
// measurement named label.
func NewHTMLPowerServer(conn net.Conn, source SnapshotSource, pro *proactor.Proactor, meterIndex uint32, label string) *HTMLPowerServer {
	return &HTMLPowerServer{conn: conn, source: source, pro: pro, meterIndex: meterIndex, label: label}
}

// HandleEvent implements reactor.Handler.
func (s *HTMLPowerServer) HandleEvent(ev reactor.ReadyEvent) reactor.Action {
	if ev.Err != nil || len(ev.Data) == 0 {
		s.conn.Close()
		return reactor.Continue
	}
	for _, b := range ev.Data {
		done, overflow := s.scanner.feed(b)
		if overflow {
			s.conn.Close()
			return reactor.Continue
		}
		if done {
			value, unit, ok := findPower(s.source.Sweep(), s.meterIndex, s.label)
			body := "<html><body>no data</body></html>"
			if ok {
				body = "<html><body>" + formatPower(value, unit) + "</body></html>"
			}
			s.pro.SubmitWrite(s.conn, httpResponse(body), s)
			return reactor.Continue
		}
	}
	return reactor.Continue
}

// OnAsyncComplete implements proactor.Handler.
func (s *HTMLPowerServer) OnAsyncComplete(token int) proactor.CompletionAction {
	s.conn.Close()
	return proactor.Finalize
}

// OnSyncComplete implements proactor.Handler.
func (s *HTMLPowerServer) OnSyncComplete(token int) {}

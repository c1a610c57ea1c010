// Package netsvc provides the TCP-facing side of smldaq: an Acceptor
// and Connector built on stdlib net, and the connection handler
// variants (raw framed, power-only raw, HTML, HTML power-only, polling
// client) that read from and write to the reactor and proactor rather
// than blocking a goroutine per connection on the request/response
// cycle. The websocket push hub is the exception: it serves HTTP
// upgrades and writes to its clients directly, outside the reactor.
package netsvc

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/nugget/smldaq/internal/meter"
	"github.com/nugget/smldaq/internal/reactor"
)

// readBufSize is the fixed read buffer size every connection handler
// uses.
const readBufSize = 4096

// Register wires handler into r as the reader for conn, the common
// tail end of every ConnFactory in this package.
func Register(r *reactor.Reactor, conn net.Conn, handler reactor.Handler) reactor.Handle {
	return r.Register(handler, reactor.Readable, reactor.ReaderPump(conn, readBufSize))
}

// Frame delimiters for the raw protocol: STX opens a snapshot frame,
// fields within one meter's record are separated and terminated by US,
// and ETX closes the frame.
const (
	stx byte = 0x02
	etx byte = 0x03
	us  byte = 0x1F
)

// pollCommand is the single byte a raw server's peer (or the polling
// client) sends to request a fresh snapshot frame.
const pollCommand byte = 'g'

// timeLayout is the formatted-time field's layout, matching the
// original's "%d.%m.%y %H:%M:%S" strftime pattern.
const timeLayout = "02.01.06 15:04:05"

// encodeFrame renders snaps as STX, then per meter in order: per
// reported measurement, its value/string/unit/status fields, followed
// by the meter's epoch-seconds and formatted-time fields, then ETX.
// Every field is US-terminated.
func encodeFrame(snaps []meter.Snapshot) []byte {
	var b []byte
	b = append(b, stx)
	for _, snap := range snaps {
		for _, m := range snap.Measurements {
			b = appendField(b, formatDouble(m.Value))
			b = appendField(b, stringField(m))
			b = appendField(b, m.Unit)
			b = appendField(b, strconv.FormatUint(m.Status, 10))
		}
		b = appendField(b, strconv.FormatInt(snap.Timestamp.Unix(), 10))
		b = appendField(b, snap.Timestamp.Format(timeLayout))
	}
	b = append(b, etx)
	return b
}

// appendField appends field followed by the US separator.
func appendField(b []byte, field string) []byte {
	b = append(b, field...)
	return append(b, us)
}

// stringField returns a measurement's string-typed payload verbatim,
// empty for number-typed measurements (mirroring the original's
// "doubleValue for numbers, smlByteString for strings, never both").
func stringField(m meter.Measurement) string {
	if m.Raw {
		return string(m.RawOctet)
	}
	return ""
}

// formatDouble renders v as a default-precision decimal, the shortest
// representation that round-trips.
func formatDouble(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// decodeFrame splits a complete STX..ETX frame's interior on US into
// its constituent fields, dropping the trailing empty field left by
// the final separator.
func decodeFrame(payload []byte) []string {
	fields := strings.Split(string(payload), string(us))
	if len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

// findPower returns the power measurement's value for meterIndex, by
// label, or 0 and false if the meter or label is not present in snaps.
func findPower(snaps []meter.Snapshot, meterIndex uint32, label string) (float64, string, bool) {
	for _, snap := range snaps {
		if snap.MeterIndex != meterIndex {
			continue
		}
		for _, m := range snap.Measurements {
			if m.Label == label {
				return m.Value, m.Unit, true
			}
		}
	}
	return 0, "", false
}

// htmlBody renders the full EHZ snapshot as an HTML fragment listing
// every meter's configured name and its current measurements, value
// and string fields, unit, and status word.
func htmlBody(snaps []meter.Snapshot) string {
	var b strings.Builder
	b.WriteString("<html><body><table>")
	for _, snap := range snaps {
		for _, m := range snap.Measurements {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%d</td></tr>",
				snap.MeterName, m.Label, formatDouble(m.Value), stringField(m), m.Unit, m.Status)
		}
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

// httpResponse wraps body in a minimal HTTP/1.1 200 response with
// three headers: Content-Type text/html, the correct Content-Length,
// and Connection: close.
func httpResponse(body string) []byte {
	return []byte(fmt.Sprintf(
		"HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		len(body), body))
}

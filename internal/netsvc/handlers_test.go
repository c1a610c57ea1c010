package netsvc

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/nugget/smldaq/internal/meter"
	"github.com/nugget/smldaq/internal/proactor"
	"github.com/nugget/smldaq/internal/reactor"
)

type fakeSource struct {
	snaps []meter.Snapshot
}

func (f fakeSource) Sweep() []meter.Snapshot { return f.snaps }

func TestRawServerRespondsToPollCommand(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	r := reactor.New()
	p := proactor.New(r)
	src := fakeSource{snaps: []meter.Snapshot{
		{MeterName: "ehz1", Measurements: []meter.Measurement{{Label: "power", Value: 10, Unit: "W"}}},
	}}
	h := NewRawServer(server, src, p)
	Register(r, server, h)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go r.Run(ctx)

	client.SetWriteDeadline(time.Now().Add(time.Second))
	if _, err := client.Write([]byte{pollCommand}); err != nil {
		t.Fatalf("write: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 256)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if buf[0] != stx || buf[n-1] != etx {
		t.Fatalf("response missing STX/ETX: %v", buf[:n])
	}
}

func TestHTMLServerRespondsToGetRequest(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	r := reactor.New()
	p := proactor.New(r)
	src := fakeSource{snaps: []meter.Snapshot{
		{MeterName: "ehz1", Measurements: []meter.Measurement{{Label: "power", Value: 10, Unit: "W"}}},
	}}
	h := NewHTMLServer(server, src, p)
	Register(r, server, h)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go r.Run(ctx)

	client.SetWriteDeadline(time.Now().Add(time.Second))
	if _, err := client.Write([]byte("GET / HTTP/1.1\r\nHost: x\r\n\r\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(time.Second))
	line, err := bufio.NewReader(client).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if line != "HTTP/1.1 200 OK\r\n" {
		t.Fatalf("status line = %q", line)
	}
}

func TestPollingClientDecodesFrame(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	r := reactor.New()
	p := proactor.New(r)
	c := NewPollingClient(server, p, 0) // period 0: no ticks; the writes below feed a response frame directly
	received := make(chan []string, 1)
	c.OnFields = func(fields []string) { received <- fields }
	Register(r, server, c)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	go r.Run(ctx)

	go func() {
		client.SetWriteDeadline(time.Now().Add(time.Second))
		client.Write([]byte{stx})
		client.Write([]byte("a"))
		client.Write([]byte{us})
		client.Write([]byte("b"))
		client.Write([]byte{us})
		client.Write([]byte{etx})
	}()

	select {
	case fields := <-received:
		if len(fields) != 2 || fields[0] != "a" || fields[1] != "b" {
			t.Fatalf("fields = %v", fields)
		}
	case <-time.After(time.Second):
		t.Fatal("OnFields never called")
	}
}

package meter

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nugget/smldaq/internal/config"
	"github.com/nugget/smldaq/internal/crc16"
	"github.com/nugget/smldaq/internal/reactor"
)

type pipePort struct {
	r io.ReadCloser
	w io.WriteCloser
}

func newPipePort() (*pipePort, io.WriteCloser) {
	pr, pw := io.Pipe()
	return &pipePort{r: pr}, pw
}

func (p *pipePort) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipePort) Write(b []byte) (int, error) { return 0, io.ErrClosedPipe }
func (p *pipePort) Close() error                { return p.r.Close() }

func emptyFileBytes(t *testing.T) []byte {
	t.Helper()
	c := crc16.NewSmlStart()
	c.Start()
	tail := []byte{0x1B, 0x1B, 0x1B, 0x1B, 0x1A, 0x00}
	for _, b := range tail {
		c.Update(b)
	}
	result := c.Result()
	return []byte{
		0x1B, 0x1B, 0x1B, 0x1B, 0x01, 0x01, 0x01, 0x01,
		0x1B, 0x1B, 0x1B, 0x1B, 0x1A, 0x00, byte(result >> 8), byte(result),
	}
}

func TestReaderHandlesEmptyFileWithoutPublishing(t *testing.T) {
	port, w := newPipePort()
	cfg := config.MeterConfig{Index: 0, Name: "ehz1"}
	logger := slog.New(slog.DiscardHandler)
	r := NewReader(logger, cfg, port)

	snaps := make(chan Snapshot, 1)
	r.Subscribe(subscriberFunc(func(s Snapshot) { snaps <- s }))

	go func() {
		w.Write(emptyFileBytes(t))
		w.Close()
	}()

	rr := reactor.New()
	rr.Register(r, reactor.Readable, r.Pump)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = rr.Run(ctx)

	select {
	case <-snaps:
		t.Fatal("empty file should not produce a snapshot")
	default:
	}
}

func TestReaderResetsOnParseError(t *testing.T) {
	port, w := newPipePort()
	cfg := config.MeterConfig{Index: 0, Name: "ehz1"}
	logger := slog.New(slog.DiscardHandler)
	r := NewReader(logger, cfg, port)

	go func() {
		// ESC-Start followed by an invalid TL byte is a parse error.
		w.Write([]byte{0x1B, 0x1B, 0x1B, 0x1B, 0x01, 0x01, 0x01, 0x01, 0x10})
		w.Write(emptyFileBytes(t))
		w.Close()
	}()

	rr := reactor.New()
	rr.Register(r, reactor.Readable, r.Pump)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := rr.Run(ctx); err != nil && err != context.DeadlineExceeded {
		t.Fatalf("Run: %v", err)
	}
}

type subscriberFunc func(Snapshot)

func (f subscriberFunc) Notify(s Snapshot) { f(s) }

package meter

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nugget/smldaq/internal/config"
	"github.com/nugget/smldaq/internal/events"
	"github.com/nugget/smldaq/internal/reactor"
	"github.com/nugget/smldaq/internal/sml/parser"
	"github.com/nugget/smldaq/internal/sml/visitor"
)

// Port is the minimal surface Reader needs from a serial connection.
// github.com/daedaluz/goserial's *serial.Port satisfies it directly;
// tests supply an io.ReadWriteCloser backed by an in-memory pipe.
type Port interface {
	io.ReadWriteCloser
}

// Reader owns one meter's serial connection: it feeds every byte read
// from the Port into an sml/parser.Parser, runs the visitor over each
// completed file, and publishes the resulting Snapshot. A parse error
// resets the parser and keeps reading — a single corrupted frame must
// not take the meter offline.
type Reader struct {
	logger *slog.Logger
	port   Port
	cfg    config.MeterConfig
	parser *parser.Parser
	pub    *events.Publisher[Snapshot]
}

// NewReader returns a Reader for the given meter configuration, reading
// from port.
func NewReader(logger *slog.Logger, cfg config.MeterConfig, port Port) *Reader {
	return &Reader{
		logger: logger.With("meter", cfg.Name, "index", cfg.Index),
		port:   port,
		cfg:    cfg,
		parser: parser.New(),
		pub:    events.New[Snapshot](),
	}
}

// Subscribe registers s to receive every Snapshot this Reader decodes.
func (r *Reader) Subscribe(s events.Subscriber[Snapshot]) bool {
	return r.pub.Subscribe(s)
}

// Unsubscribe removes s.
func (r *Reader) Unsubscribe(s events.Subscriber[Snapshot]) {
	r.pub.Unsubscribe(s)
}

// Pump implements reactor.Pump: it blocks on reads from the Port,
// forwarding each chunk to the reactor's dispatch goroutine as a
// ReadyEvent.
func (r *Reader) Pump(ctx context.Context, report func(reactor.ReadyEvent)) {
	reactor.ReaderPump(r.port, 256)(ctx, report)
}

// HandleEvent implements reactor.Handler: it feeds the bytes carried in
// ev through the parser, and on a completed file runs the visitor and
// publishes the resulting Snapshot. A file with no messages publishes
// nothing.
func (r *Reader) HandleEvent(ev reactor.ReadyEvent) reactor.Action {
	if ev.Err != nil {
		r.logger.Warn("serial read failed, stopping reader", "error", ev.Err)
		return reactor.Stop
	}
	for _, b := range ev.Data {
		result, err := r.parser.Feed(b)
		if err != nil {
			r.logger.Debug("sml parse error, resetting", "error", err)
			r.parser.Reset()
			continue
		}
		if result != parser.Done {
			continue
		}
		snap, err := visitor.Extract(r.parser.File(), r.cfg.Index, r.cfg.Name, r.cfg.Positions)
		if err != nil {
			r.logger.Warn("measurement extraction failed", "error", err)
		} else if len(r.parser.File().Messages) > 0 {
			r.pub.Notify(snap)
		}
		r.parser.Reset()
	}
	return reactor.Continue
}

// Close closes the underlying port.
func (r *Reader) Close() error {
	if err := r.port.Close(); err != nil {
		return fmt.Errorf("meter: close reader for %s: %w", r.cfg.Name, err)
	}
	return nil
}

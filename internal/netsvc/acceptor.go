package netsvc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/google/uuid"
)

// ConnFactory is handed every newly-accepted connection. It is
// responsible for registering whatever reactor.Handler it builds and
// for the connection's eventual Close.
type ConnFactory func(net.Conn)

// Acceptor listens on one TCP address and hands every accepted
// connection to a ConnFactory. It binds with SO_REUSEADDR so a restart
// does not have to wait out TIME_WAIT on the previous listener.
type Acceptor struct {
	ln     net.Listener
	Logger *slog.Logger
}

// Listen binds addr and returns an Acceptor ready to Serve.
func Listen(addr string) (*Acceptor, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("netsvc: listen %s: %w", addr, err)
	}
	return &Acceptor{ln: ln}, nil
}

// Serve accepts connections until ctx is cancelled or Accept fails,
// handing each one to factory. It returns nil on a context-triggered
// shutdown, the Accept error otherwise.
func (a *Acceptor) Serve(ctx context.Context, factory ConnFactory) error {
	go func() {
		<-ctx.Done()
		a.ln.Close()
	}()
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("netsvc: accept: %w", err)
		}
		if a.Logger != nil {
			connID, _ := uuid.NewV7()
			a.Logger.Info("connection accepted", "conn_id", connID, "remote", conn.RemoteAddr())
		}
		factory(conn)
	}
}

// Close stops accepting new connections.
func (a *Acceptor) Close() error {
	return a.ln.Close()
}

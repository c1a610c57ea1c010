// Package main is the entry point for the smldaq daemon.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nugget/smldaq/internal/config"
	"github.com/nugget/smldaq/internal/logsink"
	"github.com/nugget/smldaq/internal/meter"
	"github.com/nugget/smldaq/internal/netsvc"
	"github.com/nugget/smldaq/internal/proactor"
	"github.com/nugget/smldaq/internal/reactor"
	"github.com/nugget/smldaq/internal/timer"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfgPath, err := config.FindConfig(*configPath)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			logger.Error("invalid log_level in config", "error", err)
			os.Exit(1)
		}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: config.ReplaceLogLevelNames,
		}))
	}

	logger.Info("config loaded", "path", cfgPath, "meters", len(cfg.Meters))

	if err := run(logger, cfg); err != nil {
		logger.Error("smldaq exited with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg *config.Config) error {
	r := reactor.New()
	pro := proactor.New(r)

	readers := make([]*meter.Reader, 0, len(cfg.Meters))
	for _, mc := range cfg.Meters {
		port, err := meter.OpenSerialPort(mc.SerialDevice)
		if err != nil {
			return fmt.Errorf("open meter %q: %w", mc.Name, err)
		}
		reader := meter.NewReader(logger, mc, port)
		readers = append(readers, reader)
		r.Register(reader, reactor.Readable, reader.Pump)
	}

	sys, err := meter.NewSystem(logger, readers)
	if err != nil {
		return fmt.Errorf("build meter system: %w", err)
	}

	sink, err := logsink.Open(cfg.DatabasePath, logger)
	if err != nil {
		return fmt.Errorf("open log database: %w", err)
	}
	defer sink.Close()

	wsHub := netsvc.NewWSHub(logger)
	for _, reader := range readers {
		reader.Subscribe(wsHub)
	}

	logInterval := cfg.LogInterval
	if logInterval <= 0 {
		logInterval = 10 * time.Second
	}
	logTimer := timer.New()
	r.Register(logTimer, reactor.Readable, logTimer.Pump)
	logTimer.Subscribe(sinkSubscriber{sink: sink, sys: sys})
	logTimer.SetPeriod(logInterval)

	if err := startServers(r, pro, cfg, sys, wsHub, logger); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	go watchStdin(logger)

	logger.Info("smldaq running", "meters", len(readers))
	if err := r.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("reactor stopped: %w", err)
	}
	logger.Info("smldaq stopped")
	return nil
}

// sinkSubscriber adapts a logsink.Sink and a meter.System into the
// timer.Tick subscriber the periodic log timer fires against.
type sinkSubscriber struct {
	sink *logsink.Sink
	sys  *meter.System
}

func (s sinkSubscriber) Notify(timer.Tick) {
	s.sink.Notify(s.sys.Sweep())
}

// startServers binds every network surface named in cfg.Listen and
// registers its Acceptor with the reactor. A blank address leaves that
// surface disabled.
func startServers(r *reactor.Reactor, pro *proactor.Proactor, cfg *config.Config, sys *meter.System, wsHub *netsvc.WSHub, logger *slog.Logger) error {
	if cfg.Listen.Raw != "" {
		a, err := netsvc.Listen(cfg.Listen.Raw)
		if err != nil {
			return err
		}
		a.Logger = logger
		go serveOrLog(a, logger, "raw", func(conn net.Conn) {
			netsvc.Register(r, conn, netsvc.NewRawServer(conn, sys, pro))
		})
	}

	if cfg.Listen.RawPower != "" && len(cfg.Meters) > 0 {
		a, err := netsvc.Listen(cfg.Listen.RawPower)
		if err != nil {
			return err
		}
		a.Logger = logger
		go serveOrLog(a, logger, "raw-power", func(conn net.Conn) {
			netsvc.Register(r, conn, netsvc.NewPowerOnlyRawServer(conn, sys, pro, cfg.Meters[0].Index, "power"))
		})
	}

	if cfg.Listen.HTML != "" {
		a, err := netsvc.Listen(cfg.Listen.HTML)
		if err != nil {
			return err
		}
		a.Logger = logger
		go serveOrLog(a, logger, "html", func(conn net.Conn) {
			netsvc.Register(r, conn, netsvc.NewHTMLServer(conn, sys, pro))
		})
	}

	if cfg.Listen.HTMLPower != "" && len(cfg.Meters) > 0 {
		a, err := netsvc.Listen(cfg.Listen.HTMLPower)
		if err != nil {
			return err
		}
		a.Logger = logger
		go serveOrLog(a, logger, "html-power", func(conn net.Conn) {
			netsvc.Register(r, conn, netsvc.NewHTMLPowerServer(conn, sys, pro, cfg.Meters[0].Index, "power"))
		})
	}

	if cfg.Listen.WebSocket != "" {
		go func() {
			logger.Info("websocket push server listening", "addr", cfg.Listen.WebSocket)
			if err := http.ListenAndServe(cfg.Listen.WebSocket, wsHub); err != nil {
				logger.Error("websocket server stopped", "error", err)
			}
		}()
	}

	return nil
}

func serveOrLog(a *netsvc.Acceptor, logger *slog.Logger, name string, factory netsvc.ConnFactory) {
	if err := a.Serve(context.Background(), factory); err != nil {
		logger.Error("server stopped", "server", name, "error", err)
	}
}

// watchStdin implements the daemon's tiny interactive command surface:
// 'q' requests shutdown; 'd' is acknowledged with a log line and does
// not change the log level.
func watchStdin(logger *slog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		switch scanner.Text() {
		case "q":
			logger.Info("quit requested on stdin")
			syscall.Kill(syscall.Getpid(), syscall.SIGTERM)
			return
		case "d":
			logger.Info("debug toggle requested on stdin (not wired to a live level yet)")
		}
	}
}

package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"os"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/gamenode/internal/bus"
	"github.com/vovakirdan/gamenode/internal/config"
	"github.com/vovakirdan/gamenode/internal/core"
	"github.com/vovakirdan/gamenode/internal/engine/table"
	"github.com/vovakirdan/gamenode/internal/fault"
	"github.com/vovakirdan/gamenode/internal/metrics"
	"github.com/vovakirdan/gamenode/internal/proto"
	"github.com/vovakirdan/gamenode/internal/store"
	"github.com/vovakirdan/gamenode/internal/store/sqlite"
	"github.com/vovakirdan/gamenode/internal/telemetry"
	transporthttp "github.com/vovakirdan/gamenode/internal/transport/http"
)

// Version is stamped at build time.
var Version = "dev"

const serviceName = "gamenode"

// App wires together core, bus and transport layers.
type App struct {
	cfg             config.Config
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	gateway         *bus.Gateway
	cards           store.CardStore
	telemetryStop   func(context.Context) error
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg config.Config, logger *zerolog.Logger) (*App, error) {
	stopTelemetry, err := telemetry.Setup(ctx, cfg.TelemetryEndpoint, serviceName, Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	var cards store.CardStore
	if cfg.CardStorePath != "" {
		st, err := sqlite.New(cfg.CardStorePath)
		if err != nil {
			_ = stopTelemetry(ctx)
			return nil, fmt.Errorf("init card store: %w", err)
		}
		cards = st
		logger.Info().Str("path", cfg.CardStorePath).Msg("card store initialized")
	}

	gateway := bus.New(nil, nil, bus.Options{
		Node:         cfg.NodeIdentity,
		LobbySubject: cfg.LobbySubject,
		Hello:        hello(cfg),
		Cards:        cards,
		Metrics:      m,
	}, logger)

	hub := core.NewHub(core.Options{
		Node:          cfg.NodeIdentity,
		Factory:       table.Factory,
		Boundary:      fault.NewBoundary(logger, telemetry.NewReporter(logger)),
		Notifier:      gateway,
		Metrics:       m,
		MaxSessions:   cfg.MaxSessions,
		SweepInterval: cfg.SweepInterval,
		Retention:     cfg.FinishedRetention,
	}, logger)
	gateway.SetLobby(hub)

	return &App{
		cfg:             cfg,
		server:          transporthttp.NewServer(hub, cfg, registry, logger),
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		gateway:         gateway,
		cards:           cards,
		telemetryStop:   stopTelemetry,
		log:             logger,
	}, nil
}

// hello is the announcement sent to the lobby on every bus (re)connect.
func hello(cfg config.Config) proto.Hello {
	port := 0
	if _, p, err := net.SplitHostPort(cfg.Addr); err == nil {
		port, _ = strconv.Atoi(p)
	}
	protocol := "http"
	if tlsAvailable(cfg) {
		protocol = "https"
	}
	return proto.Hello{
		Identity: cfg.NodeIdentity,
		Host:     cfg.Host,
		Port:     port,
		Protocol: protocol,
		Version:  Version,
		MaxGames: cfg.MaxSessions,
	}
}

// tlsAvailable reports whether both TLS files are configured and readable.
func tlsAvailable(cfg config.Config) bool {
	if cfg.TLSCertPath == "" || cfg.TLSKeyPath == "" {
		return false
	}
	for _, path := range []string{cfg.TLSCertPath, cfg.TLSKeyPath} {
		f, err := os.Open(path)
		if err != nil {
			return false
		}
		_ = f.Close()
	}
	return true
}

// Run starts the hub, the bus connection and the HTTP server, and blocks
// until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		a.hub.Run(hubCtx)
	}()

	if err := a.loadCardData(ctx); err != nil {
		a.log.Warn().Err(err).Msg("failed to restore card data")
	}

	nc, err := a.connectBus(ctx)
	if err != nil {
		stopHub()
		<-hubDone
		a.cleanup(ctx)
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.cfg.Addr).Str("ws_path", a.cfg.WSPath()).Msg("starting game node")
		var err error
		if tlsAvailable(a.cfg) {
			err = a.server.ListenAndServeTLS(a.cfg.TLSCertPath, a.cfg.TLSKeyPath)
		} else {
			if a.cfg.TLSCertPath != "" || a.cfg.TLSKeyPath != "" {
				a.log.Warn().Msg("tls files unreadable, serving plain http")
			}
			err = a.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			runErr = err
		} else {
			runErr = <-serverErr
		}
	}

	if nc != nil {
		if err := nc.Drain(); err != nil {
			a.log.Warn().Err(err).Msg("failed to drain bus connection")
		}
	}
	stopHub()
	<-hubDone
	a.cleanup(context.Background())
	return runErr
}

// loadCardData hands persisted card data to the hub so games started before
// the lobby resends it still resolve card names.
func (a *App) loadCardData(ctx context.Context) error {
	if a.cards == nil {
		return nil
	}
	data, err := a.cards.LoadCardData(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := a.hub.SetCardData(ctx, data); err != nil {
		return err
	}
	a.log.Info().Msg("card data restored")
	return nil
}

func (a *App) connectBus(ctx context.Context) (*nats.Conn, error) {
	if a.cfg.BusURL == "" {
		a.log.Warn().Msg("no bus url configured, running without lobby")
		return nil, nil
	}
	nc, err := a.gateway.Connect(a.cfg.BusURL)
	if err != nil {
		return nil, err
	}
	if _, err := a.gateway.Subscribe(ctx, nc); err != nil {
		nc.Close()
		return nil, err
	}
	a.gateway.Hello()
	a.log.Info().Str("url", nc.ConnectedUrl()).Msg("connected to bus")
	return nc, nil
}

// cleanup closes the card store and flushes telemetry.
func (a *App) cleanup(ctx context.Context) {
	if a.cards != nil {
		if err := a.cards.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close card store")
		} else {
			a.log.Info().Msg("card store closed")
		}
	}
	if a.telemetryStop != nil {
		if err := a.telemetryStop(ctx); err != nil {
			a.log.Warn().Err(err).Msg("failed to flush telemetry")
		}
	}
}

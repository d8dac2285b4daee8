// ABOUTME: Wires the store, gate, chat processor and sweeper into one process
// ABOUTME: Owns the HTTP server lifecycle and graceful shutdown

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/wassist/handoff-gateway/internal/agent"
	"github.com/wassist/handoff-gateway/internal/automation"
	"github.com/wassist/handoff-gateway/internal/chat"
	"github.com/wassist/handoff-gateway/internal/config"
	"github.com/wassist/handoff-gateway/internal/crm"
	"github.com/wassist/handoff-gateway/internal/dedupe"
	"github.com/wassist/handoff-gateway/internal/forward"
	"github.com/wassist/handoff-gateway/internal/gate"
	"github.com/wassist/handoff-gateway/internal/greenapi"
	"github.com/wassist/handoff-gateway/internal/speech"
	"github.com/wassist/handoff-gateway/internal/store"
	"github.com/wassist/handoff-gateway/internal/sweeper"
)

const (
	dedupeTTL     = 5 * time.Minute
	dedupeMaxSize = 10000
)

// Gateway is the assembled process: webhook gate, chat processor and the
// supporting services, all behind one HTTP server.
type Gateway struct {
	config     *config.Config
	store      store.Store
	dedupe     *dedupe.Cache
	gate       *gate.Service
	chat       *chat.Service
	sweeper    *sweeper.Sweeper
	httpServer *http.Server
	logger     *slog.Logger
}

// New builds a gateway from config. The returned gateway owns the store and
// must be shut down to release it.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	sqlStore, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	seen := dedupe.New(dedupeTTL, dedupeMaxSize)

	gw := &Gateway{
		config: cfg,
		store:  sqlStore,
		dedupe: seen,
		gate:   gate.NewService(sqlStore, forward.NewClient(cfg.Forward), seen, cfg.Admission, logger),
		logger: logger.With("component", "gateway"),
	}

	responder := agent.NewResponder(cfg.Agent, logger)
	agent.RegisterBuiltinTools(responder,
		automation.NewClient(cfg.Automation, logger),
		crm.NewClient(cfg.CRM, logger),
	)

	gw.chat = chat.NewService(
		greenapi.NewClient(cfg.GreenAPI),
		speech.NewClient(cfg.Speech),
		responder,
		sqlStore,
		logger,
	)

	if cfg.Sweeper.Enabled {
		gw.sweeper = sweeper.New(sqlStore, cfg.Admission, cfg.Sweeper.Schedule, logger)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", gw.handleWebhook)
	mux.HandleFunc("POST /api/chat", gw.handleChat)
	mux.HandleFunc("GET /health", gw.handleHealth)
	mux.HandleFunc("GET /health/ready", gw.handleReady)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails. Returns nil on graceful shutdown.
func (g *Gateway) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", g.config.Server.HTTPAddr, err)
	}

	if g.sweeper != nil {
		if err := g.sweeper.Start(); err != nil {
			_ = listener.Close()
			return fmt.Errorf("starting sweeper: %w", err)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening", "addr", listener.Addr().String())
		if err := g.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		g.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := g.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown runs Shutdown with a fresh context; the run context is
// already canceled by the time we get here.
func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// Shutdown stops the server and releases every owned resource.
func (g *Gateway) Shutdown(ctx context.Context) error {
	var errs []error

	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}
	if g.sweeper != nil {
		g.sweeper.Stop()
	}
	g.dedupe.Close()
	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	g.logger.Info("gateway stopped")
	return nil
}

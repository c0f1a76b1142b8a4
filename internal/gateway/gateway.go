// ABOUTME: Gateway orchestrator wiring the store, bridge, tools, and HTTP server
// ABOUTME: Manages startup, route registration, and graceful shutdown lifecycle

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sjcripps/mcp-business-intelligence/internal/admin"
	"github.com/sjcripps/mcp-business-intelligence/internal/auth"
	"github.com/sjcripps/mcp-business-intelligence/internal/config"
	"github.com/sjcripps/mcp-business-intelligence/internal/mcp"
	"github.com/sjcripps/mcp-business-intelligence/internal/oauth"
	"github.com/sjcripps/mcp-business-intelligence/internal/store"
	"github.com/sjcripps/mcp-business-intelligence/internal/tools"
)

// shutdownTimeout bounds the graceful HTTP drain at exit.
const shutdownTimeout = 5 * time.Second

// Gateway orchestrates the bi-gateway server components. It owns the
// store, the OAuth bridge, the MCP server, and the single HTTP server
// everything is mounted on.
type Gateway struct {
	config     *config.Config
	store      *store.SQLiteStore
	bridge     *oauth.Bridge
	mcpServer  *mcp.Server
	httpServer *http.Server
	logger     *slog.Logger
	version    string
}

// initStore creates a store based on config and environment.
func initStore(cfg *config.Config) (*store.SQLiteStore, error) {
	dbPath := cfg.Database.Path
	if envPath := os.Getenv("BI_DB_PATH"); envPath != "" {
		dbPath = envPath
	}

	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// buildToolRegistry creates the tool registry with the configured
// collaborators behind it.
func buildToolRegistry(cfg *config.Config, logger *slog.Logger) (*tools.Registry, error) {
	registry := tools.NewRegistry(logger)

	deps := tools.Deps{
		Completer: tools.NewHTTPCompleter(
			cfg.Tools.CompletionURL,
			cfg.Tools.Model,
			cfg.Tools.CompletionKey,
			cfg.Tools.Timeout,
		),
	}
	if cfg.Tools.SearchURL != "" {
		deps.Searcher = tools.NewHTTPSearcher(cfg.Tools.SearchURL, 0)
		// Page excerpts only enrich search hits, so the fetcher rides
		// the same switch
		deps.Fetcher = tools.NewHTTPFetcher(0)
	}

	if err := tools.RegisterReportTools(registry, deps); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return registry, nil
}

// New creates a Gateway from configuration, wiring every component but
// not yet listening.
func New(cfg *config.Config, version string, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	bridge, err := oauth.NewBridge(oauth.Config{
		StateSecret: []byte(cfg.Auth.StateSecret),
		RequestTTL:  cfg.OAuth.RequestTTL,
		CodeTTL:     cfg.OAuth.CodeTTL,
		TokenTTL:    cfg.OAuth.TokenTTL,
		Logger:      logger,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("creating oauth bridge: %w", err)
	}

	authorizer := auth.NewAuthorizer(s, bridge, logger)

	registry, err := buildToolRegistry(cfg, logger)
	if err != nil {
		bridge.Close()
		s.Close()
		return nil, err
	}

	serverName := cfg.Server.Name
	if serverName == "" {
		serverName = "bi-gateway"
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Tools:      registry,
		Authorizer: authorizer,
		Store:      s,
		Logger:     logger,
		ServerName: serverName,
		Version:    version,
	})
	if err != nil {
		bridge.Close()
		s.Close()
		return nil, fmt.Errorf("creating mcp server: %w", err)
	}

	gw := &Gateway{
		config:    cfg,
		store:     s,
		bridge:    bridge,
		mcpServer: mcpServer,
		logger:    logger.With("component", "gateway"),
		version:   version,
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/health", gw.handleHealth)
	router.Handle("/mcp", mcpServer.Handler())
	oauth.NewHandlers(bridge, authorizer, logger).RegisterRoutes(router)
	admin.NewHandlers(s, cfg.Admin.SecretHash, logger).RegisterRoutes(router)

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return gw, nil
}

// handleHealth reports liveness and the live session count.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"version":  g.version,
		"sessions": g.mcpServer.Sessions().Count(),
	})
}

// Run starts the HTTP server and blocks until ctx is canceled or the
// server fails. Shutdown is graceful: in-flight requests drain, then
// sessions, the bridge, and the store are closed.
func (g *Gateway) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("gateway listening", "addr", g.httpServer.Addr)
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		g.logger.Info("shutdown requested")
	case serverErr = <-errCh:
		if serverErr != nil {
			g.logger.Error("http server failed", "error", serverErr)
		}
	}

	shutdownErr := g.shutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// shutdown drains the HTTP server and releases every component.
// Uses a fresh context since the run context is already canceled.
func (g *Gateway) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := g.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	g.mcpServer.Shutdown()
	g.bridge.Close()

	if err := g.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}

	g.logger.Info("gateway stopped")
	return errors.Join(errs...)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/quilldocs/quill/internal/api"
	"github.com/quilldocs/quill/internal/auth"
	"github.com/quilldocs/quill/internal/config"
	"github.com/quilldocs/quill/internal/generate"
	"github.com/quilldocs/quill/internal/home"
	"github.com/quilldocs/quill/internal/ingest"
	"github.com/quilldocs/quill/internal/server/endpoints"
	"github.com/quilldocs/quill/internal/store"
	"github.com/quilldocs/quill/internal/svcctx"
)

// Server is the main Quill HTTP server. It owns the document store
// lifecycle: opening it on start and closing it on shutdown.
type Server struct {
	httpServer *http.Server
	configMgr  *config.Manager
	verifier   *auth.Verifier
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Store overrides the SQLite store opened from configuration.
	// Used by tests to run against an in-memory store.
	Store store.Store
	// Home roots relative storage paths under the quill home directory.
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	appCfg := cfg.ConfigManager.Get()

	s := &Server{
		configMgr: cfg.ConfigManager,
		verifier:  auth.NewVerifier(config.ResolveEnvVars(appCfg.Auth.JWTSecret), time.Duration(appCfg.Auth.TokenTTLMinutes)*time.Minute),
		logger:    cfg.Logger,
	}

	dbPath := appCfg.Storage.DatabasePath
	uploadDir := appCfg.Storage.UploadDir
	if cfg.Home != nil {
		dbPath = cfg.Home.Resolve(dbPath)
		uploadDir = cfg.Home.Resolve(uploadDir)
	}

	st := cfg.Store
	if st == nil {
		var err error
		st, err = store.NewSQLiteStore(dbPath, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
	}

	llm, err := appCfg.LLMClient()
	if err != nil {
		return nil, fmt.Errorf("failed to configure LLM client: %w", err)
	}
	ocr, err := appCfg.OCRProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to configure OCR provider: %w", err)
	}

	genClient := generate.NewClient(llm, cfg.Logger)
	s.services = &svcctx.Services{
		Store:       st,
		Assembler:   generate.NewAssembler(genClient, cfg.Logger),
		Coordinator: generate.NewCoordinator(genClient, cfg.Logger),
		Ingest:      ingest.NewService(st, ocr, uploadDir, cfg.Logger),
		Verifier:    s.verifier,
		Config:      cfg.ConfigManager,
		Logger:      cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.verifier.Middleware)

	s.httpServer = &http.Server{
		Addr:         appCfg.ListenAddr(),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts the HTTP server. It blocks until the context is
// cancelled or an error occurs, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and store.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := s.services.Store.Close(); err != nil {
		s.logger.Error("store close error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the server's root handler, for tests that drive the
// server through httptest without binding a port.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Services returns the shared service instances.
func (s *Server) Services() *svcctx.Services {
	return s.services
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := svcctx.WithServices(r.Context(), s.services)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

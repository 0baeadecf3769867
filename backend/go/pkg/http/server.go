package http

import (
	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/pkg/httpmiddleware"
	"DocQA/backend/go/pkg/logger"
	"DocQA/backend/go/pkg/ratelimiter"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Server is a custom HTTP server that wraps the standard http.Server
// around a gin engine with the common middleware already installed.
type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	log        *logger.Logger
}

// ServerOption defines a function for configuring a Server.
type ServerOption func(*Server)

// WithAddress sets the address for the server to listen on.
func WithAddress(addr string) ServerOption {
	return func(s *Server) {
		s.httpServer.Addr = addr
	}
}

// NewServer creates and configures a new Server instance based on the provided AppConfig and options.
// Recovery and request logging are always installed; rate limiting is added when enabled in the config.
func NewServer(cfg *config.AppConfig, log *logger.Logger, opts ...ServerOption) *Server {
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(httpmiddleware.Recovery(log), httpmiddleware.RequestLogger(log))

	if cfg.Server.RateLimit.Enabled {
		limiter := ratelimiter.NewKeyedLimiter(cfg.Server.RateLimit.Rate, cfg.Server.RateLimit.Burst)
		log.Info(fmt.Sprintf("Enabling rate limiter: %.2f req/s, burst %d", cfg.Server.RateLimit.Rate, cfg.Server.RateLimit.Burst))
		engine.Use(httpmiddleware.RateLimit(limiter))
	}

	srv := &Server{
		httpServer: &http.Server{
			Addr:         cfg.Server.Address,
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		engine: engine,
		log:    log,
	}

	// Apply all the options
	for _, opt := range opts {
		opt(srv)
	}

	// Set a default address if none was provided
	if srv.httpServer.Addr == "" {
		srv.httpServer.Addr = ":8000"
	}

	return srv
}

// Engine returns the gin engine so that routes can be registered on it.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts the HTTP server. It returns nil after a graceful Shutdown.
func (s *Server) ListenAndServe() error {
	if s.httpServer.Addr == "" {
		return fmt.Errorf("server address is not set")
	}
	s.log.Info(fmt.Sprintf("Starting server on %s", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

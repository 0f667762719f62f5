package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pageza/cookistry/backend/config"
	"github.com/pageza/cookistry/backend/internal/router"
	"github.com/pageza/cookistry/backend/pkg/logger"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	http   *http.Server
	cfg    *config.Config
	log    *logger.Logger
}

// New builds the gin engine from deps and wraps it in an http.Server using
// the configured address and timeouts.
func New(deps router.Deps) *Server {
	cfg := deps.Config
	mode := cfg.Server.Mode
	if mode == "" {
		mode = cfg.Environment.GinMode()
	}
	gin.SetMode(mode)

	engine := router.SetupRouter(deps)
	return &Server{
		router: engine,
		cfg:    cfg,
		log:    deps.Logger.WithComponent("server"),
		http: &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and blocks until the server
// stops. A clean Shutdown returns nil.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("Server listening", "addr", ln.Addr().String(), "environment", s.cfg.Environment.String())
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server, bounded by the configured
// shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	if timeout := s.cfg.Server.ShutdownTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.http.Shutdown(ctx)
}

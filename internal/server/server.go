// Package server owns the HTTP surface: it assembles the gin router from
// the API handlers and manages the http.Server lifecycle. The core packages
// (pool, cache, reader) never see the listener; they receive requests only
// through the handlers.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ksmlabs/ksmserver/internal/api"
	"github.com/ksmlabs/ksmserver/internal/metrics"
	"github.com/ksmlabs/ksmserver/pkg/config"
	"github.com/ksmlabs/ksmserver/pkg/middleware"
)

// Server combines the router and the http.Server lifecycle
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	router *gin.Engine
	http   *http.Server
}

// New builds the router with common middleware and all routes registered
func New(cfg *config.Config, handlers *api.Handlers, logger *zap.Logger) *Server {
	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.AllowedOrigins,
		AllowMethods: cfg.CORS.AllowedMethods,
		AllowHeaders: cfg.CORS.AllowedHeaders,
		MaxAge:       time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	// Health/status endpoints
	router.GET("/status", handlers.Status)
	router.GET("/health", handlers.Status)
	router.GET("/metrics", metrics.Handler())

	// Raw asset routes. The pool set is closed: only these two prefixes
	// exist, and everything else falls through to NoRoute below.
	router.GET("/art/*key", handlers.ArtAsset)
	router.HEAD("/art/*key", handlers.ArtAsset)
	router.GET("/dat/*key", handlers.DatAsset)
	router.HEAD("/dat/*key", handlers.DatAsset)

	// Parsed views
	router.GET("/measurement/:name", handlers.Measurement)
	router.GET("/article/:name", handlers.Article)

	// Unknown pool identifiers and any other unmatched path
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}
}

// Router returns the gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start begins serving in a background goroutine
func (s *Server) Start() {
	s.http = &http.Server{
		Addr:         s.cfg.Server.Address(),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("Server listening", zap.String("address", s.cfg.Server.Address()))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server error", zap.Error(err))
		}
	}()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

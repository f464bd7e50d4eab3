// internal/api/server.go

// Package api exposes the search pipeline over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bizsearch/internal/common/config"
	"bizsearch/internal/common/logger"
	"bizsearch/internal/search"
)

// Server hosts the REST endpoints.
type Server struct {
	engine  *gin.Engine
	httpSrv *http.Server
	service *search.Service
	logger  logger.Logger
	version string
}

// NewServer builds the router. Gin runs in release mode outside development.
func NewServer(cfg *config.Config, svc *search.Service, log logger.Logger) *Server {
	if cfg.App.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		engine:  gin.New(),
		service: svc,
		logger:  log.WithFields(map[string]interface{}{"component": "api"}),
		version: cfg.App.Version,
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.requestLogger())
	if cfg.Server.RequestTimeout > 0 {
		s.engine.Use(requestTimeout(time.Duration(cfg.Server.RequestTimeout) * time.Millisecond))
	}

	s.engine.POST("/api/search", s.handleSearch)
	s.engine.GET("/api/search/suggestions", s.handleSuggestions)
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.httpSrv = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      s.engine,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Millisecond,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Millisecond,
	}

	return s
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", map[string]interface{}{"address": s.httpSrv.Addr})
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("Request handled", map[string]interface{}{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}

// requestTimeout bounds one request end to end. The fan-out returns whatever
// branches completed when this deadline passes.
func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.version,
	})
}

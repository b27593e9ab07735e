// Package server exposes the engine over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/conceptree/internal/conceptgraph"
	"github.com/abhisek/conceptree/internal/logger"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = ":5000"

// Config holds server configuration.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:            DefaultAddr,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server serves the concept graph API.
type Server struct {
	cfg    Config
	svc    *conceptgraph.Service
	log    *logger.Logger
	engine *gin.Engine
}

// New builds a server and its routes.
func New(cfg Config, svc *conceptgraph.Service, log *logger.Logger) *Server {
	s := &Server{cfg: cfg, svc: svc, log: logger.OrNop(log)}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), observe(s.log))

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/concepts", s.listConcepts)
		api.POST("/concepts", s.addConcept)
		api.GET("/concepts/:conceptId", s.getConcept)
		api.PUT("/concepts/:conceptId", s.updateConcept)
		api.DELETE("/concepts/:conceptId", s.removeConcept)
		api.GET("/concepts/:conceptId/dependencies", s.dependencies)
		api.GET("/concepts/:conceptId/learning-path", s.learningPath)
		api.POST("/concepts/:conceptId/prerequisites/:prerequisiteId", s.addPrerequisite)
		api.DELETE("/concepts/:conceptId/prerequisites/:prerequisiteId", s.removePrerequisite)

		api.GET("/categories", s.categories)
		api.GET("/categories/:category/tree", s.categoryTree)

		api.POST("/catalog/validate", s.validateCatalog)
		api.POST("/ingest", s.ingest)

		learners := api.Group("/learners/:learnerId")
		learners.GET("/skills", s.learnerSkills)
		learners.DELETE("/skills", s.resetLearner)
		learners.GET("/available", s.available)
		learners.GET("/path/:conceptId", s.learnerPath)
		learners.POST("/skills/:conceptId/score", s.recordScore)
		learners.POST("/skills/:conceptId/explanation", s.submitExplanation)
		learners.DELETE("/skills/:conceptId", s.resetConcept)
		learners.GET("/statistics", s.statistics)
		learners.GET("/export", s.exportLearner)
		learners.POST("/import", s.importLearner)
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"concepts": s.svc.Catalog().Len(),
	})
}

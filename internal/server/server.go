package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/resume-intake/internal/document"
	"github.com/spigell/resume-intake/internal/logger"
	"github.com/spigell/resume-intake/internal/pipeline"
	"github.com/spigell/resume-intake/internal/storage"
)

// DefaultMaxBodyBytes caps a batch upload when no limit is configured.
const DefaultMaxBodyBytes int64 = 100 << 20

const (
	defaultAddress  = ":8080"
	shutdownTimeout = 10 * time.Second
)

// Batcher processes a batch of uploaded resumes.
type Batcher interface {
	ProcessBatch(ctx context.Context, docs []document.Document, jobDescription, recruiterGuidance string) (*pipeline.Result, error)
}

type Config struct {
	Address      string
	MaxBodyBytes int64
}

// Server exposes the batch pipeline and the candidate store over HTTP.
type Server struct {
	cfg     Config
	batcher Batcher
	repo    storage.Repository
	logger  *zap.Logger
	engine  *gin.Engine
}

// New builds the HTTP server. repo may be nil, in which case the candidate
// endpoints answer 503.
func New(cfg Config, batcher Batcher, repo storage.Repository, log *zap.Logger) *Server {
	if cfg.Address == "" {
		cfg.Address = defaultAddress
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{
		cfg:     cfg,
		batcher: batcher,
		repo:    repo,
		logger:  logger.Component(log, "server"),
	}
	s.engine = s.routes()
	return s
}

// Handler returns the configured gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("shutting down http server", zap.Error(err))
		}
	}()

	s.logger.Info("listening", zap.String("address", s.cfg.Address))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) routes() *gin.Engine {
	engine := gin.New()
	engine.Use(requestLogger(s.logger), gin.Recovery())

	engine.GET("/healthz", s.health)

	api := engine.Group("/api/candidates")
	api.POST("/batch", s.processBatch)
	api.GET("", s.listCandidates)
	api.GET("/export.xlsx", s.exportCandidates)
	api.GET("/:id", s.getCandidate)
	api.PATCH("/:id/approval", s.setApproval)

	return engine
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": msg})
}

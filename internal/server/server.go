// Package server exposes the CEL compiler and the wire decoder over HTTP.
//
//	POST /v1/filter  {"source": "...", "db": "...", "table": "..."}  → {"term": <wire>, "debug": "..."}
//	POST /v1/check   <wire term>                                      → {"debug": "...", "nodes": n}
//	GET  /healthz
//	GET  /metrics
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sandrolain/goreql"
	"github.com/sandrolain/goreql/internal/config"
	"github.com/sandrolain/goreql/pkg/celql"
	"github.com/sandrolain/goreql/pkg/metrics"
	"github.com/sandrolain/goreql/pkg/ql2"
	"github.com/sandrolain/goreql/pkg/wire"
)

// Server is the HTTP compile service.
type Server struct {
	cfg       config.ServerConfig
	compiler  *celql.Compiler
	validator *wire.Validator
	logger    *slog.Logger
	router    *gin.Engine
}

// FilterRequest is the body of POST /v1/filter.
type FilterRequest struct {
	Source string `json:"source" binding:"required"`
	DB     string `json:"db"`
	Table  string `json:"table"`
}

// FilterResponse is the body of a successful POST /v1/filter.
type FilterResponse struct {
	Term  json.RawMessage `json:"term"`
	Debug string          `json:"debug"`
}

// CheckResponse is the body of a successful POST /v1/check.
type CheckResponse struct {
	Debug string `json:"debug"`
	Nodes int    `json:"nodes"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Position *int   `json:"position,omitempty"`
}

// New builds the service and its routes.
func New(cfg config.ServerConfig, compiler *celql.Compiler, logger *slog.Logger) (*Server, error) {
	if cfg.RatePerMinute > 0 && cfg.Burst < 1 {
		return nil, fmt.Errorf("server: burst must be >= 1 when rate limiting, got %d", cfg.Burst)
	}
	validator, err := wire.NewValidator()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:       cfg,
		compiler:  compiler,
		validator: validator,
		logger:    logger,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(s.logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": goreql.Version()})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group("/v1")
	if s.cfg.RatePerMinute > 0 {
		v1.Use(NewRateLimiter(s.cfg.RatePerMinute, s.cfg.Burst).Middleware())
	}
	v1.POST("/filter", s.handleFilter)
	v1.POST("/check", s.handleCheck)
	return router
}

// Handler returns the HTTP handler of the service.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on cfg.Addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleFilter(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return
	}

	term, err := s.compiler.CompileFilter(req.Source, req.DB, req.Table)
	if err != nil {
		s.fail(c, err)
		return
	}
	data, err := wire.Encode(term, false)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, FilterResponse{Term: data, Debug: term.String()})
}

func (s *Server) handleCheck(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "reading body: " + err.Error()})
		return
	}
	term, err := s.validator.Decode(body)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, CheckResponse{Debug: term.String(), Nodes: term.Size()})
}

// fail writes err as a 400 carrying its code when it is a *ql2.Error, and as
// a 500 otherwise.
func (s *Server) fail(c *gin.Context, err error) {
	var qerr *ql2.Error
	if !errors.As(err, &qerr) {
		s.logger.Error("request failed", "request_id", c.GetString(requestIDKey), "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	resp := ErrorResponse{Error: qerr.Error(), Code: string(qerr.Code)}
	if qerr.Position >= 0 {
		pos := qerr.Position
		resp.Position = &pos
	}
	c.JSON(http.StatusBadRequest, resp)
}

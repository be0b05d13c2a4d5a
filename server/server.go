// Package server 通过 HTTP 提供抠图流程。
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/chaos-io/bgremove/config"
	"github.com/chaos-io/bgremove/pipeline"
	nhttp "github.com/chaos-io/bgremove/util/http"
)

const runIDKey = "run_id"

type Server struct {
	cfg     config.Server
	remover *pipeline.Remover
	engine  *gin.Engine
	metrics *metrics
	sweeper *cron.Cron
	fetcher nhttp.IClient
}

func New(cfg config.Server, remover *pipeline.Remover) (*Server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		cfg:     cfg,
		remover: remover,
		metrics: newMetrics(reg, remover.Cache()),
		fetcher: nhttp.NewFetchClient(cfg.FetchTimeout),
	}

	sweeper, err := newSweeper(cfg.UploadDir, cfg.UploadTTL, cfg.SweepSchedule)
	if err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", cfg.SweepSchedule, err)
	}
	s.sweeper = sweeper

	engine := gin.New()
	engine.Use(gin.Recovery(), requestID(), requestLogger())
	engine.MaxMultipartMemory = cfg.MaxUploadBytes + 1<<20

	engine.POST("/api/remove-background", s.removeBackground)
	engine.GET("/api/models", s.listModels)
	engine.GET("/healthcheck", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	s.engine = engine

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 阻塞直到 ctx 取消或监听失败，取消时优雅关闭
func (s *Server) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	s.sweeper.Start()
	defer s.sweeper.Stop()

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("bgremove api available", "addr", s.cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "err", err)
			return err
		}
		slog.Info("server stopped")
		return nil
	case err := <-serverErr:
		return err
	}
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(runIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
			"run_id", c.GetString(runIDKey),
		)
	}
}

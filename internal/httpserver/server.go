// Package httpserver exposes the local venue API: health, event status,
// session telemetry, the Prometheus scrape surface, and a development
// collector for the log endpoint.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/control-theory/venue/internal/model"
	"github.com/control-theory/venue/internal/telemetry"
	"github.com/control-theory/venue/internal/window"
)

// StatusFunc reports the lifecycle status as of now.
type StatusFunc func() window.Status

// StatsFunc reports the telemetry session snapshot.
type StatsFunc func() telemetry.SessionStats

// Config carries the read surfaces the API exposes. Nil fields disable the
// corresponding routes.
type Config struct {
	Window    window.Window
	Status    StatusFunc
	Stats     StatsFunc
	Collector *Collector
	Metrics   http.Handler
}

// Server provides the venue HTTP API.
type Server struct {
	addr      string
	cfg       Config
	server    *http.Server
	listener  net.Listener
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates the API server. Default addr is "0.0.0.0:3000".
func NewServer(addr string, cfg Config) *Server {
	if addr == "" {
		addr = "0.0.0.0:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	s.registerRoutes(r)

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.listener = listener
	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) registerRoutes(r *gin.Engine) {
	r.GET("/api/health", s.handleHealth)
	r.GET("/api/status", s.handleStatus)
	if s.cfg.Stats != nil {
		r.GET("/api/telemetry", s.handleTelemetry)
	}
	if s.cfg.Collector != nil {
		r.POST("/api/log-event", s.handleLogEvent)
		r.GET("/api/log-event", s.handleRecentLogEvents)
	}
	if s.cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.cfg.Metrics))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	now := time.Now()
	status := s.cfg.Window.StatusAt(now)
	if s.cfg.Status != nil {
		status = s.cfg.Status()
	}
	resp := gin.H{
		"status": string(status),
		"start":  s.cfg.Window.Start,
		"end":    s.cfg.Window.End,
	}
	switch status {
	case window.StatusPending:
		resp["starts_in"] = window.FormatRemaining(s.cfg.Window.UntilStart(now))
	case window.StatusLive:
		resp["ends_in"] = window.FormatRemaining(s.cfg.Window.UntilEnd(now))
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleTelemetry(c *gin.Context) {
	stats := s.cfg.Stats()
	c.JSON(http.StatusOK, gin.H{
		"session_id":      stats.ID,
		"started_at":      stats.StartedAt,
		"recorded":        stats.Recorded,
		"flushed_batches": stats.FlushedBatches,
		"pending":         stats.Pending,
		"play_count":      stats.PlayCount,
		"pause_count":     stats.PauseCount,
	})
}

func (s *Server) handleLogEvent(c *gin.Context) {
	var batch []model.LogRecord
	if err := c.ShouldBindJSON(&batch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON array of log records"})
		return
	}
	s.cfg.Collector.Accept(batch)
	c.JSON(http.StatusOK, gin.H{"accepted": len(batch)})
}

func (s *Server) handleRecentLogEvents(c *gin.Context) {
	n := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		n = parsed
	}
	batches, dropped, held := s.cfg.Collector.Stats()
	c.JSON(http.StatusOK, gin.H{
		"records": s.cfg.Collector.Recent(n),
		"batches": batches,
		"dropped": dropped,
		"held":    held,
	})
}

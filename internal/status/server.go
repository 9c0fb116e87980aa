// Package status serves health, poller statistics and archived events over HTTP.
package status

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	commonlogger "jetstream-go/common/logger"
	"jetstream-go/internal/domain"
	"jetstream-go/internal/poller"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StatsProvider is satisfied by *poller.Poller.
type StatsProvider interface {
	Stats() poller.WindowStats
}

// EventQuerier is satisfied by *repository.EventRepository.
type EventQuerier interface {
	ListEvents(ctx context.Context, deviceName string, eventTypes []string, limit int) ([]domain.Envelope, error)
	CountByType(ctx context.Context, since time.Time) (map[string]int64, error)
}

// Server status HTTP server. Archive routes are registered only when an
// EventQuerier is supplied.
type Server struct {
	stats  StatsProvider
	events EventQuerier
	sinks  []string
	logger *zap.Logger
	router *gin.Engine
	srv    *http.Server
}

func NewServer(addr string, stats StatsProvider, events EventQuerier, sinks []string, logger *zap.Logger) *Server {
	logger = commonlogger.OrNop(logger)
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		stats:  stats,
		events: events,
		sinks:  sinks,
		logger: logger,
		router: gin.New(),
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/status", s.handleStatus)

	if s.events != nil {
		s.router.GET("/events/counts", s.handleCounts)
		s.router.GET("/devices/:name/events", s.handleDeviceEvents)
	}
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"poller": s.stats.Stats(),
		"sinks":  s.sinks,
	})
}

// handleCounts GET /events/counts?since=<RFC3339>, default the last 24 hours
func (s *Server) handleCounts(c *gin.Context) {
	since := time.Now().Add(-24 * time.Hour)
	if v := c.Query("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC3339 timestamp"})
			return
		}
		since = t
	}

	counts, err := s.events.CountByType(c.Request.Context(), since)
	if err != nil {
		s.logger.Error("Failed to count events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"since": since.UTC(), "counts": counts})
}

// handleDeviceEvents GET /devices/:name/events?type=A,B&limit=N
func (s *Server) handleDeviceEvents(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	var types []string
	if v := c.Query("type"); v != "" {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, t)
			}
		}
	}

	device := c.Param("name")
	events, err := s.events.ListEvents(c.Request.Context(), device, types, limit)
	if err != nil {
		s.logger.Error("Failed to list events", zap.String("device_name", device), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}
	if events == nil {
		events = []domain.Envelope{}
	}
	c.JSON(http.StatusOK, gin.H{"device_name": device, "events": events})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// Start serves until Shutdown; it returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting status server", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

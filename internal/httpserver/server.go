package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tinytelemetry/livelist/internal/model"
)

// LiveStore is the narrow store contract required by the HTTP API.
type LiveStore interface {
	model.ReadAPI
	model.LiveWriter
}

// Server provides an HTTP API for the live feed.
type Server struct {
	addr        string
	store       LiveStore
	maxPageSize int
	server      *http.Server
	ctx         context.Context
	cancel      context.CancelFunc
	startTime   time.Time
	done        chan error
}

// NewServer creates a new HTTP API server.
func NewServer(addr string, store LiveStore) *Server {
	if addr == "" {
		addr = "0.0.0.0:3000"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:        addr,
		store:       store,
		maxPageSize: model.DefaultMaxPageSize,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan error, 1),
	}
}

// SetMaxPageSize caps the limit a client may request per page.
func (s *Server) SetMaxPageSize(n int) {
	if n > 0 {
		s.maxPageSize = n
	}
}

// Handler builds the gin engine with every API route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/health", s.handleHealth)
	r.GET("/api/lives", s.handleListLives)
	r.POST("/api/lives", s.handleCreateLive)
	r.DELETE("/api/lives/:id", s.handleEndLive)
	return r
}

// Start binds the configured address and serves in the background. An error
// that later stops serving is reported by Wait.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.StartOn(listener)
	return nil
}

// StartOn serves on an already bound listener in the background.
func (s *Server) StartOn(listener net.Listener) {
	gin.SetMode(gin.ReleaseMode)

	s.server = &http.Server{
		Handler:           s.Handler(),
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	s.addr = listener.Addr().String()
	s.startTime = time.Now()

	go func() {
		err := s.server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()
}

// Wait blocks until the server stops serving. It returns nil after Stop and
// the serve error otherwise. It returns nil at once when the server was never
// started.
func (s *Server) Wait() error {
	if s.server == nil {
		return nil
	}
	return <-s.done
}

// Addr returns the listen address; after Start it reflects the bound port.
func (s *Server) Addr() string {
	return s.addr
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	liveCount, err := s.store.TotalLiveCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read health metrics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"uptime":     time.Since(s.startTime).String(),
		"live_count": liveCount,
	})
}

func (s *Server) handleListLives(c *gin.Context) {
	limit := model.DefaultPageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, s.maxPageSize)
	}

	page, err := s.store.FetchLives(c.Request.Context(), c.Query("cursor"), limit)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCursor) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load lives"})
		return
	}
	if page.Items == nil {
		page.Items = []model.LiveItem{}
	}

	c.JSON(http.StatusOK, page)
}

func (s *Server) handleCreateLive(c *gin.Context) {
	var req struct {
		Nickname string `json:"nickname" binding:"required"`
		Title    string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Nickname) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing nickname field"})
		return
	}

	item := model.LiveItem{
		ID:        uuid.NewString(),
		UserInfo:  model.UserInfo{Nickname: strings.TrimSpace(req.Nickname)},
		Title:     model.StringPtr(strings.TrimSpace(req.Title)),
		StartedAt: time.Now().UTC(),
	}
	if err := s.store.InsertLives([]model.LiveItem{item}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create live"})
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (s *Server) handleEndLive(c *gin.Context) {
	err := s.store.EndLive(c.Param("id"))
	switch {
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "live not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to end live"})
	default:
		c.Status(http.StatusNoContent)
	}
}

// Package api exposes the journal analytics over HTTP: session input,
// snapshot/edge computation, the heatmap view, and matched-trade listings.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"trading-journal/config"
	"trading-journal/internal/analytics"
	"trading-journal/internal/auth"
	"trading-journal/internal/logging"
)

// RateLimiter provides simple in-memory rate limiting per client
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	service     *analytics.Service
	config      config.ServerConfig
	validator   *auth.Validator
	authEnabled bool
	rateLimiter *RateLimiter
	log         *logging.Logger
}

// NewServer creates the API server and registers routes.
func NewServer(cfg config.ServerConfig, authCfg config.AuthConfig, service *analytics.Service) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:      router,
		service:     service,
		config:      cfg,
		authEnabled: authCfg.Enabled,
		rateLimiter: NewRateLimiter(120, time.Minute),
		log:         logging.WithComponent("api"),
	}
	if authCfg.Enabled {
		s.validator = auth.NewValidator(authCfg.JWTSecret)
	}

	corsConfig := cors.DefaultConfig()
	if cfg.AllowedOrigins == "" || cfg.AllowedOrigins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.AllowedOrigins, ",")
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.Use(s.requestLogger())
	router.Use(s.rateLimit())

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	if s.authEnabled {
		api.Use(auth.Middleware(s.validator))
	}

	api.POST("/sessions", s.handleSaveSession)
	api.GET("/sessions", s.handleListSessions)
	api.DELETE("/sessions/:id", s.handleDeleteSession)

	api.GET("/analytics/snapshot", s.handleSnapshot)
	api.GET("/analytics/edges", s.handleEdges)
	api.GET("/analytics/heatmap", s.handleHeatmap)
	api.GET("/analytics/trades", s.handleTrades)
}

// Start runs the HTTP server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API server listening", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(s.config.ShutdownTimeout)*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info("Request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.rateLimiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "too many requests",
			})
			return
		}
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

// requestUserID resolves the acting user: the authenticated identity when
// auth is enabled, otherwise an explicit user_id query parameter (local and
// test deployments).
func (s *Server) requestUserID(c *gin.Context) (string, bool) {
	if s.authEnabled {
		return auth.UserID(c)
	}
	userID := c.Query("user_id")
	return userID, userID != ""
}

// Package api exposes the engine's read surfaces and bot control over
// HTTP, plus a websocket stream of engine events.
package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"energy-trading-bot/internal/cache"
	"energy-trading-bot/internal/engine"
	"energy-trading-bot/internal/events"
)

// RateLimiter provides simple in-memory rate limiting per endpoint.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

// NewRateLimiter creates a rate limiter allowing limit requests per
// window per key.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key.
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

// Server is the HTTP API server.
type Server struct {
	router      *gin.Engine
	engine      *engine.Engine
	cache       *cache.SnapshotCache // nil when Redis is disabled
	hub         *WSHub
	rateLimiter *RateLimiter
	userID      string
	startedAt   time.Time
	logger      zerolog.Logger
}

// NewServer builds the server and wires the websocket hub to the
// event bus. snapshotCache may be nil.
func NewServer(eng *engine.Engine, bus *events.Bus, snapshotCache *cache.SnapshotCache,
	userID string, logger zerolog.Logger) *Server {

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://localhost:3000"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:      router,
		engine:      eng,
		cache:       snapshotCache,
		hub:         NewWSHub(logger),
		rateLimiter: NewRateLimiter(120, time.Minute),
		userID:      userID,
		startedAt:   time.Now(),
		logger:      logger.With().Str("component", "api").Logger(),
	}

	s.setupRoutes()

	go s.hub.Run()
	if bus != nil {
		bus.SubscribeAll(func(event events.Event) {
			s.hub.BroadcastEvent(event)
		})
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/ws", s.handleWebSocket)

	v1 := s.router.Group("/api/v1")
	v1.Use(s.rateLimitMiddleware())
	{
		v1.GET("/signals", s.handleGetSignals)
		v1.GET("/portfolio", s.handleGetPortfolio)
		v1.GET("/risk", s.handleGetRisk)
		v1.GET("/allocation", s.handleGetAllocation)
		v1.PUT("/allocation", s.handleUpdateAllocation)
		v1.GET("/allocation-recommendation", s.handleGetAllocationRecommendation)
		v1.GET("/growth-projection", s.handleGetGrowthProjection)
		v1.GET("/trades", s.handleGetTrades)
		v1.GET("/pools", s.handleGetPools)
		v1.GET("/bot/status", s.handleGetBotStatus)
		v1.POST("/bot/activate", s.handleActivateBot)
	}
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + ":" + c.FullPath()
		if !s.rateLimiter.Allow(key) {
			errorResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Run starts the HTTP server.
func (s *Server) Run(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.logger.Info().Str("addr", addr).Msg("API server listening")
	return s.router.Run(addr)
}

// Router exposes the underlying router for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// errorResponse sends an error response.
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// successResponse sends a success response.
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

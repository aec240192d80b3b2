package server

import (
	"strings"
	"time"

	"replydesk/internal/config"
	"replydesk/internal/handlers"
	"replydesk/internal/similarity"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Server represents the application server
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	store    handlers.MessageStore
	engine   *similarity.Engine
	gen      handlers.ReplyGenerator
	relay    handlers.ReplySender
	queue    handlers.Enqueuer
	counters *handlers.Counters
	logger   zerolog.Logger
}

// New creates a new server instance
func New(cfg *config.Config, st handlers.MessageStore, engine *similarity.Engine,
	gen handlers.ReplyGenerator, relay handlers.ReplySender, queue handlers.Enqueuer,
	logger zerolog.Logger) *Server {
	return &Server{
		config:   cfg,
		store:    st,
		engine:   engine,
		gen:      gen,
		relay:    relay,
		queue:    queue,
		counters: handlers.NewCounters(),
		logger:   logger,
	}
}

// zerologMiddleware creates a zerolog-based logging middleware for Echo.
// Every handled request also bumps the connection counter.
func (s *Server) zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			s.counters.ConnectionServed()

			req := c.Request()
			res := c.Response()

			s.logger.Info().
				Str("method", req.Method).
				Str("uri", req.RequestURI).
				Str("remote_ip", c.RealIP()).
				Int("status", res.Status).
				Int64("latency_ms", time.Since(start).Milliseconds()).
				Str("user_agent", req.UserAgent()).
				Msg("HTTP request")

			return err
		}
	}
}

// Initialize sets up the Echo framework with middleware and routes
func (s *Server) Initialize() {
	s.echo = echo.New()

	// Middleware
	s.echo.Use(s.zerologMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.CORS())
	// Oversized or endlessly streaming bodies are cut off before any handler
	// reads them
	s.echo.Use(middleware.BodyLimit(s.config.BodyLimit))

	// Hide Echo banner
	s.echo.HideBanner = true

	// Setup routes
	s.setupRoutes()
}

// setupRoutes configures all the application routes
func (s *Server) setupRoutes() {
	// Webhook ingress on the configured path
	webhookPath := "/" + strings.TrimPrefix(s.config.WebhookPath, "/")
	s.echo.POST(webhookPath, handlers.WebhookHandler(s.store, s.queue, s.counters, s.logger))

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// Service endpoints (root level for monitoring)
	s.echo.GET("/health", handlers.HealthHandler(s.config.Port))
	s.echo.GET("/status", handlers.StatusHandler(s.config, s.counters, s.store))
	s.echo.POST("/test-response", handlers.TestResponseHandler(s.relay, s.logger))

	// Operator API under /api prefix
	api := s.echo.Group("/api")
	api.GET("/messages", handlers.ListMessagesHandler(s.store))
	api.GET("/messages/:id", handlers.GetMessageHandler(s.store, s.engine))
	api.POST("/messages/:id/send", handlers.SendMessageHandler(s.store, s.relay, s.logger))
	api.POST("/messages/:id/retry", handlers.RetryMessageHandler(s.store, s.queue, s.logger))
	api.POST("/messages/:id/dismiss", handlers.DismissMessageHandler(s.store))
	api.PUT("/messages/:id/reply", handlers.EditReplyHandler(s.store))
	api.POST("/messages/:id/template", handlers.TemplateHandler(s.store, s.engine))
	api.POST("/messages/:id/generate", handlers.GenerateMessageHandler(s.store, s.gen, s.logger))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info().Str("port", s.config.Port).Msg("Server starting")
	return s.echo.Start(":" + s.config.Port)
}

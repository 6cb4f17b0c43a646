package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/framegate/framegate/internal/application/usecase"
	"github.com/framegate/framegate/internal/interfaces/http/handlers"
	ws "github.com/framegate/framegate/internal/interfaces/websocket"
)

// Server is the gateway's HTTP front: the SSE stream endpoint, the
// websocket mirror, the session read API and the health probe.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// Config configures the listener.
type Config struct {
	Addr string
	Mode string // debug, release
}

// NewServer builds the router and the listener.
func NewServer(cfg Config, uc *usecase.StreamUseCase, logger *zap.Logger) *Server {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginLogger(logger))

	streamHandler := handlers.NewStreamHandler(uc, logger)
	sessionHandler := handlers.NewSessionHandler(uc.Sessions(), logger)
	wsHandler := ws.NewHandler(uc, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":    true,
			"model": uc.Model(),
		})
	})

	v1 := router.Group("/v1")
	{
		v1.POST("/stream", streamHandler.Stream)
		v1.GET("/ws", wsHandler.Serve)
		v1.GET("/sessions", sessionHandler.List)
		v1.GET("/sessions/:id", sessionHandler.Get)
	}

	return &Server{
		server: &http.Server{Addr: cfg.Addr, Handler: router},
		logger: logger,
	}
}

// Start begins serving in the background.
func (s *Server) Start() {
	s.logger.Info("Starting HTTP server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Stop shuts the listener down, letting in-flight streams finish
// within ctx.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server")
	return s.server.Shutdown(ctx)
}

func ginLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

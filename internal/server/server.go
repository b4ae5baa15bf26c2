package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"guest-snapper/config"
	"guest-snapper/internal/handler"
	"guest-snapper/internal/middleware"
	"guest-snapper/internal/transport/httpdto"
	"guest-snapper/internal/websocket"
	"guest-snapper/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Upload    *handler.UploadHandler
	Media     *handler.MediaHandler
	Progress  *handler.ProgressHandler
	WebSocket *websocket.Handler
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

func New(cfg *config.Config, l *logger.Logger) *Server {
	switch cfg.AppMode {
	case ReleaseMode:
		gin.SetMode(gin.ReleaseMode)
	case TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: logger.OrGlobal(l),
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, limiter middleware.UploadLimiter, checks map[string]HealthCheck) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		resp := httpdto.HealthResponse{Status: "healthy", Services: make(map[string]string, len(checks))}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Status = "unhealthy"
				resp.Services[name] = err.Error()
				continue
			}
			resp.Services[name] = "ok"
		}
		if resp.Status != "healthy" {
			c.JSON(http.StatusServiceUnavailable, httpdto.Response[httpdto.HealthResponse]{Data: resp, Error: "unhealthy", Code: "UNHEALTHY"})
			return
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(resp))
	})

	v1 := s.engine.Group("/v1")

	uploads := v1.Group("/uploads")
	{
		issuance := uploads.Group("")
		if limiter != nil {
			issuance.Use(middleware.UploadRateLimitMiddleware(limiter, s.logger))
		}
		issuance.POST("/presign", handlers.Upload.Presign)
		issuance.POST("/multipart", handlers.Upload.InitiateMultipart)
		issuance.POST("/multipart/parts", handlers.Upload.PartURLs)

		uploads.POST("/multipart/complete", handlers.Upload.Complete)
		uploads.POST("/multipart/abort", handlers.Upload.Abort)
		uploads.POST("/progress", handlers.Progress.Publish)
	}

	v1.POST("/media", handlers.Media.Record)
	v1.GET("/events/:id/media", handlers.Media.ListByEvent)

	if handlers.WebSocket != nil {
		v1.GET("/ws/uploads", handlers.WebSocket.Connect)
	}
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Errorf("Error in starting the server: %s", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		return err
	}

	s.logger.Infof("Server stopped gracefully")
	return nil
}

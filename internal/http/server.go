// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/secretbroker/internal/config"
	"github.com/allisson/secretbroker/internal/metrics"
	secretsHTTP "github.com/allisson/secretbroker/internal/secrets/http"
	vaultHTTP "github.com/allisson/secretbroker/internal/vault/http"
	vaultUseCase "github.com/allisson/secretbroker/internal/vault/usecase"
)

// Server represents the HTTP server
type Server struct {
	lifecycle vaultUseCase.LifecycleUseCase
	server    *http.Server
	router    *gin.Engine
	logger    *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	lifecycle vaultUseCase.LifecycleUseCase,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		lifecycle: lifecycle,
		logger:    logger,
		server:    newHTTPServer(host, port, nil),
	}
}

func newHTTPServer(host string, port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", host, port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// listen blocks serving srv until it is shut down.
func listen(srv *http.Server, name string, logger *slog.Logger) error {
	logger.Info("starting "+name, slog.String("addr", srv.Addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start %s: %w", name, err)
	}
	return nil
}

// SetupRouter configures the Gin router with all routes and middleware.
// appSecretHandler is optional; /v1/appsecrets is only registered when it is set.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	vaultHandler *vaultHTTP.VaultHandler,
	secretHandler *secretsHTTP.SecretHandler,
	appSecretHandler *secretsHTTP.SecretHandler,
	metricsProvider *metrics.Provider,
	metricsNamespace string,
) {
	gin.SetMode(cfg.GetGinMode())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), metricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	if cfg.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(ctx, cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}

	vaults := v1.Group("/vaults")
	{
		vaults.POST("", vaultHandler.InitHandler)
		vaults.GET("/status", vaultHandler.StatusHandler)
	}

	registerSecretRoutes(v1.Group("/secrets"), secretHandler)
	if appSecretHandler != nil {
		registerSecretRoutes(v1.Group("/appsecrets"), appSecretHandler)
	}

	s.router = router
}

func registerSecretRoutes(group *gin.RouterGroup, handler *secretsHTTP.SecretHandler) {
	group.POST("", handler.CreateHandler)
	group.GET("/:name", handler.GetHandler)
	group.PUT("/:name", handler.UpdateHandler)
	group.DELETE("/:name", handler.DeleteHandler)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router
	return listen(s.server, "http server", s.logger)
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports process liveness only.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the master vault is reachable and initialized.
// A sealed vault is ready: the lifecycle manager unseals it on demand.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.lifecycle == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"vault": "error"},
		})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, err := s.lifecycle.Status(ctx)
	if err != nil {
		s.logger.Warn("readiness check failed", slog.Any("error", err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"vault": "error"},
		})
		return
	}

	if !status.Initialized {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"vault": status.State.String()},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"vault": status.State.String()},
	})
}

// Package http wires the gin engine: middleware chain, routes, and the HTTP
// server lifecycle.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/interfaces/http/handlers"
	"github.com/keyforge/keyforge/internal/interfaces/http/middleware"
	"github.com/keyforge/keyforge/pkg/constants"
	"github.com/keyforge/keyforge/pkg/logger"
)

// Router owns the gin engine and the underlying HTTP server.
type Router struct {
	engine        *gin.Engine
	config        *config.Config
	log           logger.Logger
	keyHandler    *handlers.KeyHandler
	healthHandler *handlers.HealthHandler
	server        *http.Server
}

// NewRouter assembles the engine with the full middleware chain and routes.
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	keyHandler *handlers.KeyHandler,
	healthHandler *handlers.HealthHandler,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	r := &Router{
		engine:        engine,
		config:        cfg,
		log:           log.WithComponent("http.router"),
		keyHandler:    keyHandler,
		healthHandler: healthHandler,
	}
	r.setupRoutes()
	return r
}

func (r *Router) setupRoutes() {
	r.engine.Use(middleware.Recovery(r.log))
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.AccessLog(r.log))

	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}))

	r.engine.GET("/live", r.healthHandler.Liveness)
	r.engine.GET("/ready", r.healthHandler.Readiness)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.config.Server.PprofEnabled {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/v1")
	if r.config.RateLimit.Enabled {
		v1.Use(middleware.RateLimit(r.config.RateLimit.RequestsPerMinute, r.config.RateLimit.Burst))
	}

	// Validation endpoints serve untrusted callers.
	v1.POST("/validate", r.keyHandler.Validate)
	v1.POST("/validate/batch", r.keyHandler.BatchValidate)

	// Lifecycle and introspection endpoints are admin surface.
	admin := v1.Group("")
	if r.config.Auth.Enabled {
		admin.Use(middleware.RequireAdminJWT(r.config.Auth.AdminJWTSecret, r.log))
	}
	admin.POST("/keys", r.keyHandler.CreateKey)
	admin.GET("/keys", r.keyHandler.ListKeys)
	admin.GET("/keys/:key_id", r.keyHandler.GetKey)
	admin.DELETE("/keys/:key_id", r.keyHandler.RevokeKey)
	admin.GET("/audit", r.keyHandler.AuditLog)
	admin.GET("/cache/stats", r.keyHandler.CacheStats)
	admin.POST("/cache/clear", r.keyHandler.ClearCache)

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": string(constants.ErrCodeInvalidInput),
		})
	})
}

// Engine exposes the underlying gin engine for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Start blocks serving HTTP until the server is shut down.
func (r *Router) Start() error {
	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	r.log.Info(context.Background(), "http server listening", logger.Fields{"addr": addr})
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains in-flight requests and shuts the server down.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.log.Info(ctx, "http server stopping")
	return r.server.Shutdown(ctx)
}

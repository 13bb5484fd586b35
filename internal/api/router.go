package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"emailhub/pkg/ratelimit"
)

// ReadyFunc reports whether the backing store can serve requests.
type ReadyFunc func(ctx context.Context) error

type RouterConfig struct {
	JWTSecret string
	// RefineLimiter is optional; nil leaves /api/email/refine unlimited.
	RefineLimiter ratelimit.Limiter
	Ready         ReadyFunc
	Logger        *zap.Logger
}

func NewRouter(emailHandler *EmailHandler, authHandler *AuthHandler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(RequestMiddleware(cfg.Logger))

	system := newSystemHandler(cfg.Ready)
	r.GET("/", system.Root)
	r.GET("/api/health", system.Health)
	r.GET("/api/docs", system.Docs)
	for _, path := range []string{"/healthz", "/health"} {
		r.GET(path, system.Alive)
		r.HEAD(path, func(c *gin.Context) { c.Status(http.StatusOK) })
	}
	r.GET("/readyz", system.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	emailGroup := r.Group("/api/email")
	emailGroup.Use(AuthMiddleware(cfg.JWTSecret))
	{
		emailGroup.GET("", emailHandler.List)
		emailGroup.POST("/send", emailHandler.Send)
		emailGroup.POST("/score", emailHandler.Score)

		refineChain := []gin.HandlerFunc{emailHandler.Refine}
		if cfg.RefineLimiter != nil {
			refineChain = append([]gin.HandlerFunc{RateLimitMiddleware(cfg.RefineLimiter, "refine", cfg.Logger)}, refineChain...)
		}
		emailGroup.POST("/refine", refineChain...)
	}

	return r
}

type systemHandler struct {
	ready   ReadyFunc
	started time.Time
}

func newSystemHandler(ready ReadyFunc) *systemHandler {
	return &systemHandler{ready: ready, started: time.Now()}
}

func (h *systemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "EmailHub Backend API",
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (h *systemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"uptime":    time.Since(h.started).Seconds(),
	})
}

func (h *systemHandler) Alive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *systemHandler) Readyz(c *gin.Context) {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := h.ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *systemHandler) Docs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "EmailHub API Documentation",
		"endpoints": gin.H{
			"auth": gin.H{
				"POST /api/auth/register": "Register new user",
				"POST /api/auth/login":    "Login user",
			},
			"email": gin.H{
				"GET /api/email":         "Get user emails",
				"POST /api/email/send":   "Send email",
				"POST /api/email/score":  "Check spam score",
				"POST /api/email/refine": "Refine email with AI",
			},
		},
	})
}

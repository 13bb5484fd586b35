package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"emailhub/pkg/logger"
	"emailhub/pkg/metrics"
	"emailhub/pkg/ratelimit"
	"emailhub/pkg/trace"
	"emailhub/pkg/util"
)

const (
	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
)

// AuthMiddleware rejects requests without a valid bearer token and stores the caller's
// id and email in the gin context.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := util.ParseJWT(token, jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Next()
	}
}

// RequestMiddleware propagates X-Trace-ID, logs each request and records its latency.
func RequestMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		traceID := c.GetHeader(trace.HeaderName())
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName(), traceID)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()
		latency := time.Since(start)
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(status), latency)

		logger.WithTrace(c.Request.Context(), log).Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// RateLimitMiddleware limits requests per authenticated user under the given scope.
// Limiter errors are logged and the request is let through.
func RateLimitMiddleware(limiter ratelimit.Limiter, scope string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := scope + ":" + strconv.Itoa(c.GetInt(ctxUserID))

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.WithTrace(c.Request.Context(), log).Warn("Rate limiter unavailable",
				zap.String("key", key),
				zap.String("error_type", util.ClassifyError(err)),
				zap.Error(err),
			)
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"madeproof-backend/internal/receipts"
	"madeproof-backend/internal/services/health"
	"madeproof-backend/internal/shared/config"
	"madeproof-backend/internal/shared/metrics"
	"madeproof-backend/internal/shared/server/middleware"
	"madeproof-backend/internal/shared/server/respond"
	"madeproof-backend/internal/shared/telemetry"
)

const (
	rateLimitGroupDefault = "DEFAULT"
	rateLimitGroupUpload  = "UPLOAD"
)

// RouterDeps holds the handlers the router mounts.
type RouterDeps struct {
	Config          config.Config
	ReceiptsHandler *receipts.Handler
	Health          *health.Service
	Limiter         *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	// Forwarded headers are ignored unless the peer is a configured proxy; the rate limiter
	// keys on the resolved client IP.
	if err := r.SetTrustedProxies(deps.Config.TrustedProxies); err != nil {
		telemetry.Warn("router.trusted_proxies_invalid", map[string]any{"err": err.Error()})
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Deadline(time.Duration(deps.Config.RequestTimeout)*time.Second),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: rateLimitGroupDefault,
			GroupFor:     rateLimitGroup,
			Limiter:      deps.Limiter,
			Rules: map[string]middleware.RateLimitRule{
				rateLimitGroupUpload: {Rate: deps.Config.RateLimitRPS, Burst: deps.Config.RateLimitBurst},
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		respond.JSON(c, http.StatusOK, deps.Health.Status())
	})
	if deps.ReceiptsHandler != nil {
		deps.ReceiptsHandler.RegisterRoutes(api)
	}

	return r
}

// Only uploads are throttled; they are the only route that does real work.
func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method == http.MethodPost && c.FullPath() == "/api/upload" {
		return rateLimitGroupUpload
	}
	return rateLimitGroupDefault
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}

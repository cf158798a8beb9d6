package handler

import (
	"net/http"
	"slices"
	"time"

	"go-gin-event-management/internal/metrics"
	"go-gin-event-management/internal/middleware"
	"go-gin-event-management/internal/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	CORSOrigins  []string
	MaxBodyBytes int64
	CookieName   string
}

// NewRouter 組裝所有 middleware 與路由
func NewRouter(
	cfg RouterConfig,
	events *EventHandler,
	users *UserHandler,
	authenticator middleware.Authenticator,
	authLimiter *middleware.RateLimiter,
) *gin.Engine {
	RegisterValidators()

	r := gin.New()
	r.Use(
		middleware.Recovery(),
		middleware.RequestLogger(),
		metrics.GinMiddleware(),
		cors.New(corsConfig(cfg.CORSOrigins)),
		middleware.BodyLimit(cfg.MaxBodyBytes),
	)

	r.GET("/", func(c *gin.Context) {
		response.OK(c, http.StatusOK, gin.H{}, "Event management API is running")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	requireAuth := middleware.Authenticate(authenticator, cfg.CookieName)
	api := r.Group("/api/v1")
	users.RegisterRoutes(api, requireAuth, middleware.RequireAdmin(), authLimiter.Middleware())
	events.RegisterRoutes(api, requireAuth)

	r.NoRoute(func(c *gin.Context) {
		response.Abort(c, http.StatusNotFound, "Route not found")
	})
	return r
}

// corsConfig cookie 需要 credentials，因此萬用字元改用 AllowOriginFunc 回應實際 origin
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowOriginFunc = func(string) bool { return true }
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

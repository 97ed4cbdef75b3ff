package http

import (
	"telegram_rewards/internal/http/handlers"
	"telegram_rewards/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter собирает gin с middleware и маршрутами api
func NewRouter(h *handlers.Handler, limiter *middleware.RateLimiter, corsOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog(), middleware.CORS(corsOrigins))

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	if limiter != nil {
		api.Use(limiter.Middleware())
	}
	api.POST("/register", h.Register)
	api.POST("/claim-reward", h.ClaimReward)
	api.POST("/withdraw", h.Withdraw)
	api.GET("/balance/:userId", h.Balance)
	api.GET("/withdrawals/:userId", h.Withdrawals)
	api.GET("/referrals/top", h.TopReferrers)

	return r
}

package api

import (
	"github.com/BerylCAtieno/umaja/internal/a2a"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires every endpoint. Write endpoints go through the rate
// limiter; the PayPal webhook does not.
func NewRouter(h *Handler, agent *a2a.A2AHandler, limiter *IPRateLimiter) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestID(),
		RequestLogger(h.logger.Named("http")),
		h.metrics.Middleware(),
	)

	limited := RateLimit(limiter, h.metrics)

	router.GET("/health", h.Health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	api := router.Group("/api")
	{
		api.GET("/archetypes", h.ListArchetypes)
		api.GET("/topics", h.ListTopics)

		api.POST("/smile", limited, h.Smile)
		api.GET("/smile/daily", h.DailySmile)

		api.GET("/worldtour/cities", h.ListCities)
		api.GET("/worldtour/:city", h.WorldTour)

		api.POST("/sales", limited, h.CreateSale)
		api.GET("/sales/confirm", h.ConfirmSale)
		api.POST("/sales/webhook", h.Webhook)
		api.GET("/sales/:id", h.GetSale)

		api.POST("/beta/track", limited, h.Track)
		api.GET("/beta/insights", h.Insights)
	}

	if agent != nil {
		router.GET("/.well-known/agent.json", agent.ServeAgentCard)
		router.POST("/a2a/smile", limited, agent.HandleSmile)
	}

	h.logger.Debug("routes registered", zap.Int("count", len(router.Routes())))
	return router
}

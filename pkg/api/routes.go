package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rzzdr/quant-curve-engine/internal/websocket"
)

// SetupRoutes configures the API routes
func SetupRoutes(router *gin.Engine, h *Handlers, hub *websocket.Hub) {
	router.GET("/health", h.HealthCheckHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/calibrate", h.CalibrateHandler)
		v1.POST("/price", h.PriceHandler)

		curves := v1.Group("/curves")
		curves.GET("", h.ListCurvesHandler)
		curves.GET("/:name", h.GetCurveHandler)
		curves.GET("/:name/history", h.CurveHistoryHandler)
		curves.DELETE("/:name", h.DeleteCurveHandler)
	}

	if hub != nil {
		router.GET("/ws", gin.WrapF(hub.HandleWebSocket))
	}

	router.NoRoute(func(c *gin.Context) {
		writeError(c, notFoundRoute(c.Request.URL.Path))
	})
}

package router

import (
	"net/http"

	"github.com/bananalabs-oss/troupe/internal/metrics"
	"github.com/bananalabs-oss/troupe/internal/parties"
	potassium "github.com/bananalabs-oss/potassium/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func Setup(h *parties.Handler, gatherer prometheus.Gatherer, jwtSecret, serviceToken string) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "troupe"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler(gatherer)))

	// Player-facing endpoints (JWT auth via Potassium)
	api := r.Group("/parties")
	api.Use(potassium.JWTAuth(potassium.JWTConfig{
		Secret: []byte(jwtSecret),
	}))
	h.PlayerRoutes(api)

	// Host server endpoints (service token auth via Potassium)
	internal := r.Group("/internal")
	internal.Use(potassium.ServiceAuth(serviceToken))
	h.InternalRoutes(internal.Group("/parties"), internal.Group("/sessions"))

	return r
}

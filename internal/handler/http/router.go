// File: internal/handler/http/router.go
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vikaspotluri123/mfa-service/internal/handler/http/middleware"
)

// NewRouter builds the gin engine with middleware, operational endpoints
// and the versioned API group.
func NewRouter(handler *SecondFactorHandler, logger *zap.Logger) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.Use(middleware.RequireIdentity())
	{
		users := v1.Group("/users/:userID/second-factors")
		{
			users.GET("", handler.List)
			users.POST("", handler.Create)
			users.GET("/:id", handler.Read)
			users.PUT("/:id", handler.Edit)
			users.DELETE("/:id", handler.Delete)
			users.POST("/:id/activate", handler.Activate)
		}

		v1.POST("/second-factors/verify", handler.Verify)
	}

	return router
}

package gateway

import (
	"github.com/gin-gonic/gin"
)

// SetupGatewayRoutes configures payment gateway callback routes
func SetupGatewayRoutes(rg *gin.RouterGroup, controller *Controller, authenticate gin.HandlerFunc) {
	gw := rg.Group("/gateway")
	gw.Use(authenticate)
	{
		gw.POST("/refunds/callback", controller.HandleRefundCallback) // POST /api/v1/gateway/refunds/callback
	}
}

package disputes

import (
	"tourhub/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupDisputeRoutes configures dispute routes
func SetupDisputeRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	disputes := rg.Group("/disputes")
	disputes.Use(auth, middleware.IdempotencyKey())
	{
		disputes.POST("", controller.OpenDispute)                          // POST /api/v1/disputes
		disputes.GET("", controller.ListDisputes)                          // GET /api/v1/disputes?status=
		disputes.GET("/:id", controller.GetDispute)                        // GET /api/v1/disputes/:id
		disputes.POST("/:id/evidence", controller.AddEvidence)             // POST /api/v1/disputes/:id/evidence
		disputes.POST("/:id/communications", controller.AddCommunication) // POST /api/v1/disputes/:id/communications
	}

	admin := rg.Group("/admin/disputes")
	admin.Use(auth, middleware.RequireAdmin(), middleware.IdempotencyKey())
	{
		admin.POST("/:id/investigate", controller.InvestigateDispute)
		admin.POST("/:id/escalate", controller.EscalateDispute)
		admin.POST("/:id/close", controller.CloseDispute)
		admin.POST("/:id/resolve", controller.ResolveDispute)
	}
}

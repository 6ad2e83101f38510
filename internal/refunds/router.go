package refunds

import (
	"tourhub/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupRefundRoutes configures refund routes
func SetupRefundRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	refunds := rg.Group("/refunds")
	refunds.Use(auth)
	{
		refunds.GET("/:id", controller.GetRefund) // GET /api/v1/refunds/:id
	}

	// GET /api/v1/cancellation-requests/:id/refunds
	rg.GET("/cancellation-requests/:id/refunds", auth, controller.ListByCancellation)

	admin := rg.Group("/admin/refunds")
	admin.Use(auth, middleware.RequireAdmin(), middleware.IdempotencyKey())
	{
		admin.POST("/:id/advance", controller.AdvanceRefund)         // {stage: process|approve|complete}
		admin.POST("/:id/fail", controller.FailRefund)               // {code, message, details}
		admin.POST("/:id/reject", controller.RejectRefund)           // {reason}
		admin.POST("/:id/retry", controller.RetryRefund)             // new RETRY record for a FAILED one
		admin.POST("/:id/transaction", controller.AttachTransaction) // {external_transaction_id}
	}
}

package cancellation

import (
	"tourhub/internal/shared/middleware"
	"tourhub/internal/users"

	"github.com/gin-gonic/gin"
)

func SetupCancellationRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	customerOrAdmin := middleware.RequireRoles(string(users.RoleCustomer), string(users.RoleAdmin))

	// Booking cancellation routes (Customers and Admins)
	bookings := rg.Group("/bookings")
	bookings.Use(auth, customerOrAdmin, middleware.IdempotencyKey())
	{
		bookings.POST("/:id/cancellation-requests", controller.CreateCancellationRequest) // POST /api/v1/bookings/:id/cancellation-requests
		bookings.POST("/:id/refund-quote", controller.QuoteRefund)                         // POST /api/v1/bookings/:id/refund-quote
	}

	// Cancellation request routes (any participant)
	requests := rg.Group("/cancellation-requests")
	requests.Use(auth)
	{
		requests.GET("/:id", controller.GetCancellationRequest) // GET /api/v1/cancellation-requests/:id
	}

	// User-specific cancellation routes
	rg.GET("/users/cancellation-requests", auth, customerOrAdmin, controller.GetUserCancellationRequests)

	// Admin review routes
	admin := rg.Group("/admin/cancellation-requests")
	admin.Use(auth, middleware.RequireAdmin(), middleware.IdempotencyKey())
	{
		admin.GET("", controller.ListPending)
		admin.POST("/:id/approve", controller.ApproveCancellationRequest)
		admin.POST("/:id/reject", controller.RejectCancellationRequest)
	}
}

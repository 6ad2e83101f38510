package bookings

import (
	"github.com/gin-gonic/gin"
)

// SetupBookingRoutes configures booking read routes
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	bookings := rg.Group("/bookings")
	bookings.Use(auth)
	{
		bookings.GET("/:id", controller.GetBooking) // GET /api/v1/bookings/:id
	}

	users := rg.Group("/users")
	users.Use(auth)
	{
		users.GET("/bookings", controller.GetUserBookings) // GET /api/v1/users/bookings
	}
}

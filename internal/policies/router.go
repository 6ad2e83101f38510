package policies

import (
	"tourhub/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupPolicyRoutes configures cancellation policy routes
func SetupPolicyRoutes(rg *gin.RouterGroup, controller *Controller, auth gin.HandlerFunc) {
	read := rg.Group("/policies")
	read.Use(auth)
	{
		read.GET("", controller.ListPolicies) // GET /api/v1/policies?tenant_id=
		read.GET("/:id", controller.GetPolicy) // GET /api/v1/policies/:id
	}

	admin := rg.Group("/admin/policies")
	admin.Use(auth, middleware.RequireAdmin())
	{
		admin.POST("", controller.CreatePolicy)    // POST /api/v1/admin/policies
		admin.PUT("/:id", controller.UpdatePolicy) // PUT /api/v1/admin/policies/:id
	}
}

package policies

import (
	"net/http"

	"tourhub/internal/shared/middleware"
	"tourhub/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Controller handles HTTP requests for cancellation policies
type Controller struct {
	service   Service
	validator *validator.Validate
}

func NewController(service Service) *Controller {
	return &Controller{
		service:   service,
		validator: validator.New(),
	}
}

// ListPolicies handles GET /api/v1/policies
func (c *Controller) ListPolicies(ctx *gin.Context) {
	list, err := c.service.ListPolicies(ctx.Request.Context(), ctx.Query("tenant_id"))
	if err != nil {
		response.RespondError(ctx, "Failed to list cancellation policies", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation policies retrieved successfully", gin.H{
		"policies": list,
		"count":    len(list),
	}, nil)
}

// GetPolicy handles GET /api/v1/policies/:id
func (c *Controller) GetPolicy(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid policy ID", nil, err.Error())
		return
	}

	policy, err := c.service.GetPolicy(ctx.Request.Context(), id)
	if err != nil {
		response.RespondError(ctx, "Failed to get cancellation policy", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation policy retrieved successfully", policy, nil)
}

// CreatePolicy handles POST /api/v1/admin/policies
func (c *Controller) CreatePolicy(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var req UpsertPolicyRequest
	if !c.bind(ctx, &req) {
		return
	}

	policy, err := c.service.CreatePolicy(ctx.Request.Context(), actor, req)
	if err != nil {
		response.RespondError(ctx, "Failed to create cancellation policy", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Cancellation policy created successfully", policy, nil)
}

// UpdatePolicy handles PUT /api/v1/admin/policies/:id
func (c *Controller) UpdatePolicy(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid policy ID", nil, err.Error())
		return
	}

	var req UpsertPolicyRequest
	if !c.bind(ctx, &req) {
		return
	}

	policy, err := c.service.UpdatePolicy(ctx.Request.Context(), actor, id, req)
	if err != nil {
		response.RespondError(ctx, "Failed to update cancellation policy", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation policy updated successfully", policy, nil)
}

func (c *Controller) bind(ctx *gin.Context, req interface{}) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return false
	}
	if err := c.validator.Struct(req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return false
	}
	return true
}

package cancellation

import (
	"context"
	"net/http"

	"tourhub/internal/shared/idempotency"
	"tourhub/internal/shared/middleware"
	"tourhub/internal/shared/utils/response"
	"tourhub/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Controller handles HTTP requests for cancellation requests
type Controller struct {
	service   Service
	guard     *idempotency.Guard
	validator *validator.Validate
}

// NewController creates a new cancellation controller
func NewController(service Service, guard *idempotency.Guard) *Controller {
	return &Controller{
		service:   service,
		guard:     guard,
		validator: validator.New(),
	}
}

// CreateCancellationRequest handles POST /api/v1/bookings/:id/cancellation-requests
func (c *Controller) CreateCancellationRequest(ctx *gin.Context) {
	actor, bookingID, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	var req CreateCancellationRequest
	if !c.bind(ctx, &req) {
		return
	}

	request, err := idempotency.Execute(ctx.Request.Context(), c.guard,
		"cancellation.create:"+actor.ID.String(), middleware.GetIdempotencyKey(ctx),
		map[string]interface{}{"booking_id": bookingID, "body": req},
		func(rc context.Context) (*CancellationRequest, error) {
			return c.service.Create(rc, actor, bookingID, CreateInput{
				Reason:       req.Reason,
				Description:  req.Description,
				CustomReason: req.CustomReason,
			})
		})
	if err != nil {
		response.RespondError(ctx, "Failed to request cancellation", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Cancellation requested successfully", request, nil)
}

// QuoteRefund handles POST /api/v1/bookings/:id/refund-quote
func (c *Controller) QuoteRefund(ctx *gin.Context) {
	actor, bookingID, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	calc, err := c.service.Quote(ctx.Request.Context(), actor, bookingID)
	if err != nil {
		response.RespondError(ctx, "Failed to quote refund", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Refund quoted successfully", calc, nil)
}

// GetCancellationRequest handles GET /api/v1/cancellation-requests/:id
func (c *Controller) GetCancellationRequest(ctx *gin.Context) {
	actor, id, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	request, err := c.service.GetForActor(ctx.Request.Context(), actor, id)
	if err != nil {
		response.RespondError(ctx, "Failed to get cancellation request", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation request retrieved successfully", request, nil)
}

// GetUserCancellationRequests handles GET /api/v1/users/cancellation-requests
func (c *Controller) GetUserCancellationRequests(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	requests, err := c.service.ListMine(ctx.Request.Context(), actor)
	if err != nil {
		response.RespondError(ctx, "Failed to get cancellation requests", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation requests retrieved successfully", gin.H{
		"cancellation_requests": requests,
		"count":                 len(requests),
	}, nil)
}

// ListPending handles GET /api/v1/admin/cancellation-requests
func (c *Controller) ListPending(ctx *gin.Context) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}
	requests, err := c.service.ListPending(ctx.Request.Context(), actor)
	if err != nil {
		response.RespondError(ctx, "Failed to list cancellation requests", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Pending cancellation requests retrieved successfully", gin.H{
		"cancellation_requests": requests,
		"count":                 len(requests),
	}, nil)
}

// ApproveCancellationRequest handles POST /api/v1/admin/cancellation-requests/:id/approve
func (c *Controller) ApproveCancellationRequest(ctx *gin.Context) {
	actor, id, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	var req ApproveCancellationRequest
	if !c.bind(ctx, &req) {
		return
	}

	approval, err := idempotency.Execute(ctx.Request.Context(), c.guard,
		"cancellation.approve:"+actor.ID.String(), middleware.GetIdempotencyKey(ctx),
		map[string]interface{}{"id": id, "body": req},
		func(rc context.Context) (*Approval, error) {
			return c.service.Approve(rc, actor, id, ApproveInput{Notes: req.Notes, RefundMethod: req.RefundMethod})
		})
	if err != nil {
		response.RespondError(ctx, "Failed to approve cancellation request", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation request approved", approval, nil)
}

// RejectCancellationRequest handles POST /api/v1/admin/cancellation-requests/:id/reject
func (c *Controller) RejectCancellationRequest(ctx *gin.Context) {
	actor, id, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	var req RejectCancellationRequest
	if !c.bind(ctx, &req) {
		return
	}

	request, err := idempotency.Execute(ctx.Request.Context(), c.guard,
		"cancellation.reject:"+actor.ID.String(), middleware.GetIdempotencyKey(ctx),
		map[string]interface{}{"id": id, "body": req},
		func(rc context.Context) (*CancellationRequest, error) {
			return c.service.Reject(rc, actor, id, req.Notes)
		})
	if err != nil {
		response.RespondError(ctx, "Failed to reject cancellation request", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Cancellation request rejected", request, nil)
}

func (c *Controller) actorAndID(ctx *gin.Context) (users.Actor, uuid.UUID, bool) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return users.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid ID", nil, err.Error())
		return users.Actor{}, uuid.Nil, false
	}
	return actor, id, true
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

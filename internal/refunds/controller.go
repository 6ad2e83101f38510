package refunds

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

// Controller handles HTTP requests for refund records
type Controller struct {
	service   Service
	guard     *idempotency.Guard
	validator *validator.Validate
}

func NewController(service Service, guard *idempotency.Guard) *Controller {
	return &Controller{
		service:   service,
		guard:     guard,
		validator: validator.New(),
	}
}

// GetRefund handles GET /api/v1/refunds/:id
func (c *Controller) GetRefund(ctx *gin.Context) {
	actor, id, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	record, err := c.service.GetRefund(ctx.Request.Context(), actor, id)
	if err != nil {
		response.RespondError(ctx, "Failed to get refund", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Refund retrieved successfully", NewRefundResponse(record), nil)
}

// ListByCancellation handles GET /api/v1/cancellation-requests/:id/refunds
func (c *Controller) ListByCancellation(ctx *gin.Context) {
	actor, id, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	list, err := c.service.ListByCancellation(ctx.Request.Context(), actor, id)
	if err != nil {
		response.RespondError(ctx, "Failed to list refunds", err)
		return
	}
	out := make([]RefundResponse, 0, len(list))
	for i := range list {
		out = append(out, NewRefundResponse(&list[i]))
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Refunds retrieved successfully", gin.H{
		"refunds": out,
		"count":   len(out),
	}, nil)
}

// AdvanceRefund handles POST /api/v1/admin/refunds/:id/advance
func (c *Controller) AdvanceRefund(ctx *gin.Context) {
	actor, id, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	var req AdvanceRefundRequest
	if !c.bind(ctx, &req) {
		return
	}
	c.command(ctx, "refunds.advance", actor, id, req, "Refund advanced successfully", func(rc context.Context) (*RefundRecord, error) {
		return c.service.Advance(rc, actor, id, req.Stage, req.Notes)
	})
}

// FailRefund handles POST /api/v1/admin/refunds/:id/fail
func (c *Controller) FailRefund(ctx *gin.Context) {
	actor, id, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	var req FailRefundRequest
	if !c.bind(ctx, &req) {
		return
	}
	c.command(ctx, "refunds.fail", actor, id, req, "Refund marked as failed", func(rc context.Context) (*RefundRecord, error) {
		return c.service.Fail(rc, actor, id, FailureInput{Code: req.Code, Message: req.Message, Details: req.Details})
	})
}

// RejectRefund handles POST /api/v1/admin/refunds/:id/reject
func (c *Controller) RejectRefund(ctx *gin.Context) {
	actor, id, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	var req RejectRefundRequest
	if !c.bind(ctx, &req) {
		return
	}
	c.command(ctx, "refunds.reject", actor, id, req, "Refund rejected", func(rc context.Context) (*RefundRecord, error) {
		return c.service.Reject(rc, actor, id, req.Reason)
	})
}

// RetryRefund handles POST /api/v1/admin/refunds/:id/retry
func (c *Controller) RetryRefund(ctx *gin.Context) {
	actor, id, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	c.command(ctx, "refunds.retry", actor, id, nil, "Refund retry created", func(rc context.Context) (*RefundRecord, error) {
		return c.service.Retry(rc, actor, id)
	})
}

// AttachTransaction handles POST /api/v1/admin/refunds/:id/transaction
func (c *Controller) AttachTransaction(ctx *gin.Context) {
	actor, id, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	var req AttachTransactionRequest
	if !c.bind(ctx, &req) {
		return
	}
	c.command(ctx, "refunds.attach", actor, id, req, "Transaction attached", func(rc context.Context) (*RefundRecord, error) {
		return c.service.AttachTransaction(rc, actor, id, req.ExternalTransactionID)
	})
}

// command runs a refund mutation under the request's idempotency key.
func (c *Controller) command(ctx *gin.Context, op string, actor users.Actor, id uuid.UUID, body interface{}, message string, fn func(context.Context) (*RefundRecord, error)) {
	request := map[string]interface{}{"id": id, "body": body}
	record, err := idempotency.Execute(ctx.Request.Context(), c.guard, op+":"+actor.ID.String(),
		middleware.GetIdempotencyKey(ctx), request, fn)
	if err != nil {
		response.RespondError(ctx, "Refund command failed", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, message, NewRefundResponse(record), nil)
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

package disputes

import (
	"context"
	"errors"
	"io"
	"net/http"

	"tourhub/internal/shared/idempotency"
	"tourhub/internal/shared/middleware"
	"tourhub/internal/shared/utils/response"
	"tourhub/internal/users"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Controller handles HTTP requests for disputes
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

// OpenDispute handles POST /api/v1/disputes
func (c *Controller) OpenDispute(ctx *gin.Context) {
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}
	var req OpenDisputeRequest
	if !c.bind(ctx, &req, false) {
		return
	}

	resp, err := idempotency.Execute(ctx.Request.Context(), c.guard,
		"disputes.open:"+actor.ID.String(), middleware.GetIdempotencyKey(ctx), req,
		func(rc context.Context) (DisputeResponse, error) {
			dispute, err := c.service.Open(rc, actor, OpenInput{
				CancellationRequestID: req.CancellationRequestID,
				RefundRecordID:        req.RefundRecordID,
				Type:                  req.Type,
				Priority:              req.Priority,
				Description:           req.Description,
			})
			if err != nil {
				return DisputeResponse{}, err
			}
			return NewDisputeResponse(dispute, actor), nil
		})
	if err != nil {
		response.RespondError(ctx, "Failed to open dispute", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Dispute opened successfully", resp, nil)
}

// GetDispute handles GET /api/v1/disputes/:id
func (c *Controller) GetDispute(ctx *gin.Context) {
	actor, id, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	dispute, err := c.service.Get(ctx.Request.Context(), actor, id)
	if err != nil {
		response.RespondError(ctx, "Failed to get dispute", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Dispute retrieved successfully", NewDisputeResponse(dispute, actor), nil)
}

// ListDisputes handles GET /api/v1/disputes?status=OPEN
func (c *Controller) ListDisputes(ctx *gin.Context) {
	actor, ok := c.actor(ctx)
	if !ok {
		return
	}
	list, err := c.service.List(ctx.Request.Context(), actor, Status(ctx.Query("status")))
	if err != nil {
		response.RespondError(ctx, "Failed to list disputes", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Disputes retrieved successfully", gin.H{
		"disputes": list,
		"count":    len(list),
	}, nil)
}

// AddEvidence handles POST /api/v1/disputes/:id/evidence
func (c *Controller) AddEvidence(ctx *gin.Context) {
	actor, id, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	var req AddEvidenceRequest
	if !c.bind(ctx, &req, false) {
		return
	}

	evidence, err := idempotency.Execute(ctx.Request.Context(), c.guard,
		"disputes.evidence:"+actor.ID.String(), middleware.GetIdempotencyKey(ctx),
		map[string]interface{}{"id": id, "body": req},
		func(rc context.Context) (*Evidence, error) {
			return c.service.AddEvidence(rc, actor, id, EvidenceInput{Type: req.Type, Title: req.Title, Content: req.Content})
		})
	if err != nil {
		response.RespondError(ctx, "Failed to add evidence", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Evidence added successfully", evidence, nil)
}

// AddCommunication handles POST /api/v1/disputes/:id/communications
func (c *Controller) AddCommunication(ctx *gin.Context) {
	actor, id, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	var req AddCommunicationRequest
	if !c.bind(ctx, &req, false) {
		return
	}

	communication, err := idempotency.Execute(ctx.Request.Context(), c.guard,
		"disputes.communication:"+actor.ID.String(), middleware.GetIdempotencyKey(ctx),
		map[string]interface{}{"id": id, "body": req},
		func(rc context.Context) (*Communication, error) {
			return c.service.AddCommunication(rc, actor, id, req.Message, req.IsInternal)
		})
	if err != nil {
		response.RespondError(ctx, "Failed to add communication", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Message sent successfully", communication, nil)
}

// InvestigateDispute handles POST /api/v1/admin/disputes/:id/investigate
func (c *Controller) InvestigateDispute(ctx *gin.Context) {
	c.command(ctx, "disputes.investigate", "Dispute under investigation", nil,
		func(rc context.Context, actor users.Actor, id uuid.UUID) (*DisputeCase, error) {
			return c.service.Investigate(rc, actor, id)
		})
}

// EscalateDispute handles POST /api/v1/admin/disputes/:id/escalate
func (c *Controller) EscalateDispute(ctx *gin.Context) {
	var req NoteRequest
	c.command(ctx, "disputes.escalate", "Dispute escalated", &req,
		func(rc context.Context, actor users.Actor, id uuid.UUID) (*DisputeCase, error) {
			return c.service.Escalate(rc, actor, id, req.Note)
		})
}

// CloseDispute handles POST /api/v1/admin/disputes/:id/close
func (c *Controller) CloseDispute(ctx *gin.Context) {
	var req NoteRequest
	c.command(ctx, "disputes.close", "Dispute closed", &req,
		func(rc context.Context, actor users.Actor, id uuid.UUID) (*DisputeCase, error) {
			return c.service.Close(rc, actor, id, req.Note)
		})
}

// ResolveDispute handles POST /api/v1/admin/disputes/:id/resolve
func (c *Controller) ResolveDispute(ctx *gin.Context) {
	var req ResolveDisputeRequest
	c.command(ctx, "disputes.resolve", "Dispute resolved", &req,
		func(rc context.Context, actor users.Actor, id uuid.UUID) (*DisputeCase, error) {
			return c.service.Resolve(rc, actor, id, ResolveInput{
				Type:        req.Type,
				Amount:      req.Amount,
				Description: req.Description,
				AgreedBy:    req.AgreedBy,
			})
		})
}

// command binds the optional body into req and runs an admin transition
// under the request's idempotency key.
func (c *Controller) command(ctx *gin.Context, op, message string, req interface{}, fn func(context.Context, users.Actor, uuid.UUID) (*DisputeCase, error)) {
	actor, id, ok := c.actorAndID(ctx)
	if !ok {
		return
	}
	if req != nil && !c.bind(ctx, req, true) {
		return
	}

	resp, err := idempotency.Execute(ctx.Request.Context(), c.guard,
		op+":"+actor.ID.String(), middleware.GetIdempotencyKey(ctx),
		map[string]interface{}{"id": id, "body": req},
		func(rc context.Context) (DisputeResponse, error) {
			dispute, err := fn(rc, actor, id)
			if err != nil {
				return DisputeResponse{}, err
			}
			return NewDisputeResponse(dispute, actor), nil
		})
	if err != nil {
		response.RespondError(ctx, "Dispute command failed", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, message, resp, nil)
}

func (c *Controller) actor(ctx *gin.Context) (users.Actor, bool) {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
	}
	return actor, ok
}

func (c *Controller) actorAndID(ctx *gin.Context) (users.Actor, uuid.UUID, bool) {
	actor, ok := c.actor(ctx)
	if !ok {
		return users.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid ID", nil, err.Error())
		return users.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

// bind decodes and validates the body. An empty body is accepted when
// optional is set.
func (c *Controller) bind(ctx *gin.Context, req interface{}, optional bool) bool {
	if err := ctx.ShouldBindJSON(req); err != nil && !(optional && errors.Is(err, io.EOF)) {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return false
	}
	if err := c.validator.Struct(req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return false
	}
	return true
}

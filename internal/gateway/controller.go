package gateway

import (
	"net/http"

	"tourhub/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// Controller receives gateway results over HTTP
type Controller struct {
	handler   ResultHandler
	validator *validator.Validate
}

func NewController(handler ResultHandler) *Controller {
	return &Controller{
		handler:   handler,
		validator: validator.New(),
	}
}

// HandleRefundCallback handles POST /api/v1/gateway/refunds/callback
func (c *Controller) HandleRefundCallback(ctx *gin.Context) {
	var result Result
	if err := ctx.ShouldBindJSON(&result); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}
	if err := c.validator.Struct(result); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Validation failed", nil, err.Error())
		return
	}

	if err := c.handler(ctx.Request.Context(), result); err != nil {
		response.RespondError(ctx, "Failed to apply gateway result", err)
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Gateway result applied", gin.H{
		"refund_id": result.RefundID,
	}, nil)
}

package response

import (
	"net/http"

	"tourhub/internal/shared/apperrors"

	"github.com/gin-gonic/gin"
)

func RespondJSON(c *gin.Context, status string, code int, message string, data interface{}, errors interface{}) {
	c.JSON(code, StandardApiResponse{
		Status:     status,
		StatusCode: code,
		Message:    message,
		Data:       data,
		Errors:     errors,
	})
}

// RespondError maps a service error onto the standard envelope.
// Unclassified errors are reported as internal without leaking their text.
func RespondError(c *gin.Context, message string, err error) {
	code := apperrors.HTTPStatus(err)
	if appErr, ok := apperrors.As(err); ok {
		RespondJSON(c, "error", code, message, nil, ErrorBody{
			Kind:    string(appErr.Kind),
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		})
		return
	}
	_ = c.Error(err)
	RespondJSON(c, "error", http.StatusInternalServerError, message, nil, ErrorBody{
		Kind:    "INTERNAL",
		Message: "internal server error",
	})
}

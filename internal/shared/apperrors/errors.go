package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an engine failure.
type Kind string

const (
	KindValidation             Kind = "VALIDATION"
	KindPolicyResolution       Kind = "POLICY_RESOLUTION"
	KindInvalidStateTransition Kind = "INVALID_STATE_TRANSITION"
	KindAlreadyResolved        Kind = "ALREADY_RESOLVED"
	KindConcurrencyConflict    Kind = "CONCURRENCY_CONFLICT"
	KindGateway                Kind = "GATEWAY"
	KindAuthorization          Kind = "AUTHORIZATION"
	KindNotFound               Kind = "NOT_FOUND"
)

// Error is the structured failure returned by services.
type Error struct {
	Kind    Kind                   `json:"kind"`
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Err     error                  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// WithDetail returns a copy of e carrying an extra detail entry.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// Sentinels for errors.Is checks.
var (
	ErrValidation             = &Error{Kind: KindValidation}
	ErrPolicyResolution       = &Error{Kind: KindPolicyResolution}
	ErrInvalidStateTransition = &Error{Kind: KindInvalidStateTransition}
	ErrAlreadyResolved        = &Error{Kind: KindAlreadyResolved}
	ErrConcurrencyConflict    = &Error{Kind: KindConcurrencyConflict}
	ErrGateway                = &Error{Kind: KindGateway}
	ErrAuthorization          = &Error{Kind: KindAuthorization}
	ErrNotFound               = &Error{Kind: KindNotFound}
)

func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func PolicyResolution(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPolicyResolution, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition reports an action attempted from the wrong state.
func InvalidTransition(entity, action, from string) *Error {
	return &Error{
		Kind:    KindInvalidStateTransition,
		Message: fmt.Sprintf("cannot %s %s in status %s", action, entity, from),
		Details: map[string]interface{}{"entity": entity, "action": action, "current_status": from},
	}
}

func AlreadyResolved(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAlreadyResolved, Message: fmt.Sprintf(format, args...)}
}

func ConcurrencyConflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConcurrencyConflict, Message: fmt.Sprintf(format, args...)}
}

// Gateway wraps a failure reported by the payment collaborator.
func Gateway(code, message string, details map[string]interface{}) *Error {
	return &Error{Kind: KindGateway, Code: code, Message: message, Details: details}
}

func Authorization(format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity string, id interface{}) *Error {
	return &Error{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("%s not found", entity),
		Details: map[string]interface{}{"id": fmt.Sprint(id)},
	}
}

// As extracts the structured error from err, if any.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidStateTransition, KindAlreadyResolved, KindConcurrencyConflict:
		return http.StatusConflict
	case KindPolicyResolution:
		return http.StatusUnprocessableEntity
	case KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

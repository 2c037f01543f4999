package view

import (
	"net/http"
)

type errorPayload struct {
	Message string         `json:"message"`
	Code    any            `json:"code"`
	Details map[string]any `json:"details"`
}

// ErrorResponse returns a JSON error response with the message, code and
// details fields.
//
//nolint:ireturn // Services always deal in Response values.
func ErrorResponse(status int, code any, message string, details map[string]any) (Response, error) {
	if details == nil {
		details = map[string]any{}
	}
	return JSON(status, errorPayload{Message: message, Code: code, Details: details})
}

// View204 responds with 204 No Content.
//
//nolint:ireturn // Services always deal in Response values.
func View204(_ *Context) (Response, error) {
	return NoContent(), nil
}

// View400 returns a service that responds with 400 Bad Request, including
// the validation error details.
func View400(details map[string]any) Service {
	return func(_ *Context) (Response, error) {
		return ErrorResponse(http.StatusBadRequest, http.StatusBadRequest,
			"failed to validate your requests", details)
	}
}

// View403 responds with 403 Forbidden.
//
//nolint:ireturn // Services always deal in Response values.
func View403(_ *Context) (Response, error) {
	return ErrorResponse(http.StatusForbidden, http.StatusForbidden,
		"you do not have permission to perform this action", nil)
}

// View404 responds with 404 Not Found.
//
//nolint:ireturn // Services always deal in Response values.
func View404(_ *Context) (Response, error) {
	return ErrorResponse(http.StatusNotFound, http.StatusNotFound, "not found", nil)
}

// View405 responds with 405 Method Not Allowed.
//
//nolint:ireturn // Services always deal in Response values.
func View405(_ *Context) (Response, error) {
	return ErrorResponse(http.StatusMethodNotAllowed, http.StatusMethodNotAllowed,
		"method not allowed", nil)
}

package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	apperrors "github.com/inkleafapp/inkleaf-server/internal/errors"
)

// APIError implements huma.StatusError so domain errors surface with a
// consistent JSON structure.
type APIError struct {
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler teaches huma to render domain errors. Call once,
// before registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var appErr *apperrors.Error
			if errors.As(err, &appErr) {
				return &APIError{
					status:  appErr.HTTPStatus(),
					Code:    string(appErr.Code),
					Message: appErr.Message,
					Details: appErr.Details,
				}
			}
		}

		return &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}
	}
}

// statusToCode maps plain HTTP statuses onto the domain error codes.
func statusToCode(status int) string {
	switch status {
	case 400, 422:
		return string(apperrors.CodeValidation)
	case 404:
		return string(apperrors.CodeNotFound)
	case 502:
		return string(apperrors.CodeSourceUnavailable)
	case 504:
		return string(apperrors.CodeSourceTimeout)
	default:
		return string(apperrors.CodeInternal)
	}
}

package apierr

import (
	"errors"
	"net/http"

	govalidator "github.com/go-playground/validator/v10"

	"github.com/EvershineMarbles/EvershineBackend/internal/apperr"
	"github.com/EvershineMarbles/EvershineBackend/internal/validation"
	"github.com/EvershineMarbles/EvershineBackend/pkg/validator"
	"github.com/EvershineMarbles/EvershineBackend/pkg/zerror"
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`

	// StatusCode is the status code for the error response.
	StatusCode int `json:"-"`
}

var InternalServerErr = ErrorResponse{
	Code:       "INTERNAL_SERVER_ERROR",
	Message:    "an unknown error occurred",
	StatusCode: http.StatusInternalServerError,
}

// New maps err onto the response body. Anything that is neither a ZError
// nor a field validation failure is reported as an opaque 500.
func New(err error) ErrorResponse {
	var zErr zerror.ZError
	if errors.As(err, &zErr) {
		return ErrorResponse{
			Code:       zErr.Code(),
			Message:    zErr.Msg(),
			Details:    fieldDetails(err),
			StatusCode: ZErrorStatusToHTTPStatus(zErr.Status()),
		}
	}

	if details := fieldDetails(err); details != nil {
		return ErrorResponse{
			Code:       apperr.ValidationErrorCode,
			Message:    "validation error",
			Details:    details,
			StatusCode: http.StatusBadRequest,
		}
	}

	return InternalServerErr
}

// fieldDetails extracts per-field reasons from either the request validator
// or struct tag validation.
func fieldDetails(err error) []FieldError {
	var fieldErr validation.FieldError
	if errors.As(err, &fieldErr) {
		return []FieldError{{Field: fieldErr.Field, Message: fieldErr.Reason}}
	}

	var validationErrs govalidator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]FieldError, len(validationErrs))
		for i, fe := range validationErrs {
			details[i] = FieldError{
				Field:   fe.Field(),
				Message: validator.ValidationErrorMessage(fe),
			}
		}
		return details
	}

	return nil
}

var httpStatus = map[zerror.Status]int{
	zerror.StatusBadRequest:          http.StatusBadRequest,
	zerror.StatusValidationFailed:    http.StatusBadRequest,
	zerror.StatusUnauthorized:        http.StatusUnauthorized,
	zerror.StatusForbidden:           http.StatusForbidden,
	zerror.StatusNotFound:            http.StatusNotFound,
	zerror.StatusConflict:            http.StatusConflict,
	zerror.StatusUnprocessableEntity: http.StatusUnprocessableEntity,
	zerror.StatusTooManyRequests:     http.StatusTooManyRequests,
	zerror.StatusNotImplemented:      http.StatusNotImplemented,
	zerror.StatusBadGateway:          http.StatusBadGateway,
	zerror.StatusServiceUnavailable:  http.StatusServiceUnavailable,
	zerror.StatusTimeout:             http.StatusGatewayTimeout,
}

// ZErrorStatusToHTTPStatus maps status to an HTTP code, defaulting to 500.
func ZErrorStatusToHTTPStatus(status zerror.Status) int {
	if code, ok := httpStatus[status]; ok {
		return code
	}
	return http.StatusInternalServerError
}

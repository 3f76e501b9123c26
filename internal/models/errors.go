package models

import (
	"errors"
	"net/http"
)

// Error taxonomy shared by the assignment workflow, the weather job tracker
// and the gateway. Callers wrap one of these with fmt.Errorf("%w: ...") and
// classify with errors.Is.
var (
	ErrInvalidParameter = errors.New("invalid_parameter")
	ErrInvalidState     = errors.New("invalid_state")
	ErrInvalidReference = errors.New("invalid_reference")
	ErrNotFound         = errors.New("not_found")
	ErrUnavailable      = errors.New("unavailable")
)

// IsRetryable reports whether the caller may retry the same operation.
// Only gateway unavailability qualifies.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

const (
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeInvalidState     = "INVALID_STATE"
	CodeInvalidReference = "INVALID_REFERENCE"
	CodeNotFound         = "NOT_FOUND"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// ErrorCode maps err onto the API error code of its class.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidParameter):
		return CodeInvalidParameter
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrInvalidReference):
		return CodeInvalidReference
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnavailable):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// HTTPStatus maps err onto the response status of its class.
func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case CodeInvalidParameter:
		return http.StatusBadRequest
	case CodeInvalidState:
		return http.StatusConflict
	case CodeInvalidReference:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

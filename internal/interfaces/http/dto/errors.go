package dto

import (
	"errors"
	"net/http"

	"github.com/shopsync/backend/internal/domain/shared"
)

// GetHTTPStatus maps a domain error to an HTTP status code.
func GetHTTPStatus(err error) int {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case shared.ErrNotFound.Code:
		return http.StatusNotFound
	case shared.ErrAlreadyExists.Code, shared.ErrConcurrencyConflict.Code, shared.ErrImportRunning.Code:
		return http.StatusConflict
	case shared.ErrInvalidInput.Code:
		return http.StatusBadRequest
	case shared.ErrUnauthorized.Code:
		return http.StatusUnauthorized
	case shared.ErrForbidden.Code:
		return http.StatusForbidden
	case shared.ErrInvalidState.Code:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode extracts the machine readable code from a domain error, falling
// back to INTERNAL_ERROR.
func ErrorCode(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code
	}
	return "INTERNAL_ERROR"
}

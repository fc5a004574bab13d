package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicErrorMessage never echoes internal detail for server-side failures.
func publicErrorMessage(status int, err error) string {
	switch status {
	case http.StatusNotFound:
		return "record not found"
	case http.StatusRequestEntityTooLarge:
		return "upload exceeds the maximum allowed size"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable"
	}
	if status >= 500 {
		return "internal processing error"
	}
	return err.Error()
}

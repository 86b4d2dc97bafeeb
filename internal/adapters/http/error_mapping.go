package httpadapter

import (
	"net/http"

	"github.com/roofwise/compliance-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound),
		domain.IsKind(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicErrorMessage keeps backend detail out of 5xx responses. Client
// errors keep the original message so callers can fix their request.
func publicErrorMessage(status int, err error) string {
	switch {
	case status == http.StatusServiceUnavailable:
		return "service temporarily unavailable, retry shortly"
	case status >= http.StatusInternalServerError:
		return "internal error"
	default:
		return err.Error()
	}
}

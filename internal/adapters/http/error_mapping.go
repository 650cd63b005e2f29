package httpadapter

import (
	"net/http"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrEstimateNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage keeps client-facing wording stable for the statuses the UI
// branches on; other statuses pass the operator-facing message through.
func errorMessage(status int, err error) string {
	switch status {
	case http.StatusUnauthorized:
		return "Not authorized"
	case http.StatusNotFound:
		return "Estimate not found"
	case http.StatusServiceUnavailable:
		return "History is unavailable right now"
	default:
		return err.Error()
	}
}

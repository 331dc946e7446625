package httpadapter

import (
	"net/http"

	"github.com/kirillkom/knou-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound), domain.IsKind(err, domain.ErrNoResults):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrStoreFailure),
		domain.IsKind(err, domain.ErrCollaboratorFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	if domain.IsKind(err, domain.ErrNoResults) {
		return domain.MessageNoResults
	}
	return err.Error()
}

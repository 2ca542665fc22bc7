package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"skyvault/internal/domain"
	"skyvault/internal/httputil"
)

// handleError maps domain errors to problem-detail responses. Typed errors
// carry their own status via the HTTPError interface; anything unrecognized
// is a 500 and gets logged with full detail while the response stays generic.
func handleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) {
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Message, map[string]interface{}{
			"resource_type": conflictErr.ResourceType,
			"resource_id":   conflictErr.ResourceID,
		})
		return
	}

	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("unexpected error",
			"error", err,
			"path", r.URL.Path,
			"method", r.Method,
		)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

package handler

import (
	"net/http"

	"skyvault/internal/domain"
	models "skyvault/internal/domain/models/drive"
	"skyvault/internal/httputil"
)

// getPrincipal extracts the authenticated principal set by the auth
// middleware. An empty principal means the middleware never ran for this
// route, which is a wiring bug surfaced as 401.
func getPrincipal(r *http.Request) (models.Principal, error) {
	p := httputil.GetPrincipal(r)
	if p.UserID == "" {
		return models.Principal{}, &domain.UnauthorizedError{Message: "not authenticated"}
	}
	return p, nil
}

// optionalID reads a query or body-level entity reference; empty means nil
func optionalID(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

package httputil

import (
	"context"
	"net/http"

	"skyvault/internal/domain/models/drive"
)

// Context key type to avoid collisions
type contextKey string

const (
	principalKey contextKey = "principal"
)

// WithPrincipal adds the authenticated principal to the request context
func WithPrincipal(r *http.Request, p drive.Principal) *http.Request {
	ctx := context.WithValue(r.Context(), principalKey, p)
	return r.WithContext(ctx)
}

// GetPrincipal retrieves the principal from context. The zero Principal
// (empty user ID) means the request never passed authentication.
func GetPrincipal(r *http.Request) drive.Principal {
	p, _ := r.Context().Value(principalKey).(drive.Principal)
	return p
}

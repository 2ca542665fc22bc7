package middleware

import (
	"net/http"
	"strings"

	"skyvault/internal/auth"
	"skyvault/internal/domain/models/drive"
	"skyvault/internal/httputil"
)

// AuthMiddleware validates the bearer token on every request and injects the
// authenticated principal into the request context. Health checks pass
// through unauthenticated.
func AuthMiddleware(verifier auth.JWTVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				httputil.RespondError(w, http.StatusUnauthorized, "authorization header must be a bearer token")
				return
			}

			claims, err := verifier.VerifyToken(token)
			if err != nil {
				httputil.RespondError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			r = httputil.WithPrincipal(r, drive.Principal{
				UserID: claims.Subject,
				Admin:  claims.IsAdmin(),
			})
			next.ServeHTTP(w, r)
		})
	}
}

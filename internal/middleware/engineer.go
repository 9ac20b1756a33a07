package middleware

import (
	"net/http"

	"github.com/rpattn/clientops/internal/auth"
)

// EngineerMiddleware copies the X-Engineer header into the request context.
func EngineerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if engineer := r.Header.Get(auth.EngineerHeader); engineer != "" {
			r = r.WithContext(auth.ContextWithEngineer(r.Context(), engineer))
		}
		next.ServeHTTP(w, r)
	})
}

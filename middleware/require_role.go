package middleware

import (
	"net/http"

	linkauth "github.com/campuslink/linkauth"
)

// RequireRole returns middleware that behaves like [Guard] and additionally
// rejects authenticated requests whose role is not in the allow-list.
// Rejections for a wrong role return 403 rather than 401.
func RequireRole(engine *linkauth.Engine, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	guard := Guard(engine)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if _, ok := allowed[res.Role]; !ok {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

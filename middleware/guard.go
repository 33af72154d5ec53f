package middleware

import (
	"context"
	"net/http"
	"strings"

	linkauth "github.com/campuslink/linkauth"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the validated authentication result stored by
// [Guard], if any.
func AuthResultFromContext(ctx context.Context) (*linkauth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*linkauth.AuthResult)
	return res, ok
}

// Guard returns middleware that rejects requests without a valid bearer token
// backed by a live session. The validated result is injected into the request
// context for downstream handlers.
func Guard(engine *linkauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.Validate(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// ServiceKeyAuth returns middleware that authenticates scheduler and
// automation callers with a shared service credential, accepted either
// as an X-Service-Key header or a bearer token.
func ServiceKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-Service-Key")
			if presented == "" {
				authHeader := r.Header.Get("Authorization")
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					presented = parts[1]
				}
			}

			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				jsonUnauthorized(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

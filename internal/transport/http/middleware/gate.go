package middleware

import (
	"net/http"
	"strings"

	jwtinfra "github.com/otp-auth-api/internal/infrastructure/jwt"
)

// Gate redirects requests for protected path prefixes to the public root
// when no session cookie is present. This is an optimistic, pre-store check
// only; the authoritative decision belongs to the session verify path.
func Gate(protectedPrefixes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProtected(r.URL.Path, protectedPrefixes) && jwtinfra.ReadCookie(r) == "" {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isProtected(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

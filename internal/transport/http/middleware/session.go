package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/otp-auth-api/internal/application/session"
	jwtinfra "github.com/otp-auth-api/internal/infrastructure/jwt"
)

type contextKey string

const sessionResolverKey contextKey = "session_resolver"

// sessionResolver verifies the request's session cookie at most once, no
// matter how many handlers or middlewares ask. The store round trip behind
// Verify is the expensive part being deduplicated.
type sessionResolver struct {
	once  sync.Once
	svc   session.Service
	token string
	info  *session.AuthInfo
}

func (sr *sessionResolver) resolve(ctx context.Context) *session.AuthInfo {
	sr.once.Do(func() {
		if sr.token == "" {
			return
		}
		info, err := sr.svc.Verify(ctx, sr.token)
		if err != nil {
			// Unauthenticated; details were already logged where they matter.
			return
		}
		sr.info = info
	})
	return sr.info
}

// Sessions injects a lazy, request-scoped session resolver. It performs no
// store call itself; the first CurrentAuth triggers verification.
func Sessions(svc session.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sr := &sessionResolver{svc: svc, token: jwtinfra.ReadCookie(r)}
			ctx := context.WithValue(r.Context(), sessionResolverKey, sr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentAuth returns the verified identity of the request, resolving it on
// first use and memoizing the outcome for the rest of the request.
func CurrentAuth(ctx context.Context) (*session.AuthInfo, bool) {
	sr, ok := ctx.Value(sessionResolverKey).(*sessionResolver)
	if !ok {
		return nil, false
	}
	info := sr.resolve(ctx)
	if info == nil {
		return nil, false
	}
	return info, true
}

// RequireAuth rejects unauthenticated requests with a 401 JSON body.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentAuth(r.Context()); !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

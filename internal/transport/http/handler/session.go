package handler

import (
	"net/http"

	"github.com/otp-auth-api/internal/transport/http/middleware"
)

// SessionHandler exposes the current session to authenticated clients.
type SessionHandler struct{}

func NewSessionHandler() *SessionHandler {
	return &SessionHandler{}
}

// Current returns the verified identity behind the request's cookie. The
// route sits behind RequireAuth, so a miss here means the middleware chain
// is miswired rather than a client fault.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	info, ok := middleware.CurrentAuth(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeData(w, http.StatusOK, info)
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/otp-auth-api/internal/application/social"
	jwtinfra "github.com/otp-auth-api/internal/infrastructure/jwt"
)

// SocialHandler signs users in with external identity providers. Google is
// the only live provider; the rest answer through the capability handler.
type SocialHandler struct {
	svc   social.Service
	codec *jwtinfra.Codec
}

func NewSocialHandler(svc social.Service, codec *jwtinfra.Codec) *SocialHandler {
	return &SocialHandler{svc: svc, codec: codec}
}

type googleSignInRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type socialSignInResponse struct {
	Verified     bool   `json:"verified"`
	UserID       string `json:"user_id"`
	SessionToken string `json:"session_token"`
}

// Google exchanges a Google ID token for a session.
func (h *SocialHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req googleSignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.IDToken == "" {
		writeError(w, http.StatusBadRequest, "id_token is required")
		return
	}

	res, err := h.svc.SignInWithGoogle(r.Context(), req.IDToken, clientIP(r), userAgent(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.codec.WriteCookie(w, res.CookieToken, res.CookieExpires)
	writeData(w, http.StatusOK, socialSignInResponse{
		Verified:     true,
		UserID:       res.UserID,
		SessionToken: res.SessionToken,
	})
}

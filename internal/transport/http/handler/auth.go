package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/otp-auth-api/internal/application/session"
	"github.com/otp-auth-api/internal/application/user"
	"github.com/otp-auth-api/internal/application/verification"
	"github.com/otp-auth-api/internal/domain"
	jwtinfra "github.com/otp-auth-api/internal/infrastructure/jwt"
	"github.com/otp-auth-api/internal/pkg/validate"
	"github.com/otp-auth-api/internal/transport/http/middleware"
)

// AuthHandler exposes the authentication server actions: identifier check,
// code send/verify, and logout.
type AuthHandler struct {
	users    user.Service
	codes    verification.Service
	sessions session.Service
	codec    *jwtinfra.Codec
}

func NewAuthHandler(users user.Service, codes verification.Service, sessions session.Service, codec *jwtinfra.Codec) *AuthHandler {
	return &AuthHandler{users: users, codes: codes, sessions: sessions, codec: codec}
}

type checkRequest struct {
	Identifier string                `json:"identifier" validate:"required"`
	Type       domain.IdentifierType `json:"type" validate:"required,oneof=email phone"`
}

type sendCodeRequest struct {
	Identifier string                `json:"identifier" validate:"required"`
	Type       domain.IdentifierType `json:"type" validate:"required,oneof=email phone"`
	Flow       domain.AuthFlow       `json:"flow" validate:"required,oneof=sign_in sign_up"`
	Step       domain.AuthStep       `json:"step" validate:"required,oneof=default register"`
	Name       string                `json:"name,omitempty"`
}

type verifyCodeRequest struct {
	Identifier string                `json:"identifier" validate:"required"`
	Type       domain.IdentifierType `json:"type" validate:"required,oneof=email phone"`
	Flow       domain.AuthFlow       `json:"flow" validate:"required,oneof=sign_in sign_up"`
	Step       domain.AuthStep       `json:"step" validate:"required,oneof=default register"`
	Code       string                `json:"code" validate:"required,otp_code"`
	Name       string                `json:"name,omitempty"`
}

// Check answers whether an identifier has an account. The result shape is
// identical for misses and lookup faults, so it never fails outward.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Identifier(req.Identifier, req.Type); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.users.Exists(r.Context(), req.Identifier, req.Type))
}

// SendCode issues and dispatches a fresh verification code.
func (h *AuthHandler) SendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Identifier(req.Identifier, req.Type); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.codes.SendCode(r.Context(), verification.SendCodeInput{
		Identifier: req.Identifier,
		Type:       req.Type,
		Flow:       req.Flow,
		Step:       req.Step,
		Name:       req.Name,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, res)
}

// VerifyCode redeems a code; on success it sets the session cookie and
// returns the verified identity.
func (h *AuthHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validate.Identifier(req.Identifier, req.Type); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.codes.VerifyCode(r.Context(), verification.VerifyCodeInput{
		Identifier: req.Identifier,
		Type:       req.Type,
		Flow:       req.Flow,
		Step:       req.Step,
		Code:       req.Code,
		Name:       req.Name,
		IPAddress:  clientIP(r),
		UserAgent:  userAgent(r),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.codec.WriteCookie(w, res.CookieToken, res.CookieExpires)
	writeData(w, http.StatusOK, res)
}

// Logout destroys the session row when the cookie decodes, and always clears
// the cookie either way.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if payload, ok := h.codec.Decode(jwtinfra.ReadCookie(r)); ok {
		if err := h.sessions.Destroy(r.Context(), payload.SessionID); err != nil {
			slog.Warn("destroy session on logout", "session_id", payload.SessionID, "err", err)
		}
	}
	h.codec.ClearCookie(w)
	writeData(w, http.StatusOK, map[string]bool{"success": true})
}

func clientIP(r *http.Request) *string {
	ip := middleware.RealIP(r)
	if ip == "" {
		return nil
	}
	return &ip
}

func userAgent(r *http.Request) *string {
	ua := r.UserAgent()
	if ua == "" {
		return nil
	}
	return &ua
}

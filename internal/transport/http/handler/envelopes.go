package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/otp-auth-api/internal/application/verification"
	"github.com/otp-auth-api/internal/domain"
)

// ActionResult is the uniform response wrapper for server actions:
// {success, data} on success, {success:false, error} on failure.
type ActionResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, ActionResult{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ActionResult{Success: false, Error: msg})
}

// writeServiceError maps a service error to an HTTP status and the action
// failure envelope. Business-rule failures carry user-facing messages;
// anything unrecognized collapses to a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	var incorrect *verification.IncorrectCodeError
	switch {
	case errors.As(err, &incorrect),
		errors.Is(err, verification.ErrCodeNotFound),
		errors.Is(err, verification.ErrCodeExpired),
		errors.Is(err, verification.ErrCodeUsed),
		errors.Is(err, verification.ErrUserNotFound),
		errors.Is(err, verification.ErrNameRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, verification.ErrDeliveryFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, verification.ErrSendFailed),
		errors.Is(err, verification.ErrVerifyFailed):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "something went wrong, please try again")
	}
}

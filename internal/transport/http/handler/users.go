package handler

import (
	"encoding/json"
	"net/http"

	"github.com/otp-auth-api/internal/application/user"
	"github.com/otp-auth-api/internal/transport/http/middleware"
)

// UserHandler covers the authenticated profile operations.
type UserHandler struct {
	users user.Service
}

func NewUserHandler(users user.Service) *UserHandler {
	return &UserHandler{users: users}
}

type updateProfileRequest struct {
	Name string `json:"name" validate:"required"`
}

type uploadAvatarRequest struct {
	Filename string `json:"filename" validate:"required"`
	Data     string `json:"data" validate:"required,base64"`
}

// UpdateProfile renames the authenticated user's account.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	info, ok := middleware.CurrentAuth(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.users.UpdateProfile(r.Context(), info.UserID, req.Name); err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"updated": true})
}

// UploadAvatar stores a base64-encoded profile image and records its URL.
func (h *UserHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	info, ok := middleware.CurrentAuth(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req uploadAvatarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Filename == "" || req.Data == "" {
		writeError(w, http.StatusBadRequest, "filename and data are required")
		return
	}

	url, err := h.users.UploadAvatar(r.Context(), info.UserID, req.Filename, req.Data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"image": url})
}

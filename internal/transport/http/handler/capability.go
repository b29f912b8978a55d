package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// CapabilityHandler answers for authentication methods that are surfaced in
// the product but not yet backed by an implementation.
type CapabilityHandler struct{}

func NewCapabilityHandler() *CapabilityHandler {
	return &CapabilityHandler{}
}

// Passkey acknowledges the passkey entry point without performing a ceremony.
func (h *CapabilityHandler) Passkey(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotImplemented, "passkey sign-in is not available yet")
}

// Wallet acknowledges the wallet entry point without performing a signature
// challenge.
func (h *CapabilityHandler) Wallet(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotImplemented, "wallet sign-in is not available yet")
}

// SocialProvider rejects providers other than the implemented ones.
func (h *CapabilityHandler) SocialProvider(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	writeError(w, http.StatusNotImplemented, fmt.Sprintf("%s sign-in is not available yet", provider))
}

package admin

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/atelierhq/atelier-admin/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		h.respondWithError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	session, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			h.respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.logger.WithError(err).Error("Sign-in failed against the gateway")
		h.respondWithError(w, http.StatusBadGateway, "Sign-in is temporarily unavailable")
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   session.Token,
		"profile": map[string]string{
			"id":    session.ProfileID,
			"email": session.Email,
			"name":  session.Name,
			"role":  session.Role,
		},
		"expires_at": session.ExpiresAt,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if session, ok := auth.SessionFromContext(r.Context()); ok {
		h.auth.SignOut(session.Token)
	}
	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Signed out",
	})
}

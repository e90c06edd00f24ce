package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"tasktrack/internal/auth"
)

type registerPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginPayload struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type profilePayload struct {
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url"`
}

// Register creates a new account with the identity service.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := h.auth.Register(r.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, user)
}

// Login authenticates with an email or username plus password and returns a
// session token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	user, err := h.auth.Login(r.Context(), payload.Identifier, payload.Password)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}

	token, err := h.sessions.Issue(user)
	if err != nil {
		h.log.WithError(err).Error("failed to issue session token")
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user,
	})
}

// Logout drops the authenticated user. Issued tokens expire on their own.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

// Profile returns the caller's user document.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	user, err := h.identity.FetchProfile(r.Context(), session.UserID)
	if err != nil {
		h.log.WithError(err).Error("failed to fetch profile")
		respondError(w, http.StatusBadGateway, "identity service unavailable")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

// UpdateProfile overwrites the caller's mutable profile fields.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	var payload profilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if payload.Username == "" {
		respondError(w, http.StatusBadRequest, "username is required")
		return
	}

	if err := h.identity.UpdateProfile(r.Context(), session.UserID, payload.Username, payload.ProfileImageURL); err != nil {
		h.log.WithError(err).Error("failed to update profile")
		respondError(w, http.StatusBadGateway, "identity service unavailable")
		return
	}

	user, err := h.identity.FetchProfile(r.Context(), session.UserID)
	if err != nil {
		h.log.WithError(err).Error("failed to fetch profile")
		respondError(w, http.StatusBadGateway, "identity service unavailable")
		return
	}

	respondJSON(w, http.StatusOK, user)
}

func (h *Handlers) respondAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingFields):
		respondError(w, http.StatusBadRequest, h.auth.State().Message)
	case errors.Is(err, auth.ErrEmailTaken), errors.Is(err, auth.ErrUsernameTaken):
		respondError(w, http.StatusConflict, h.auth.State().Message)
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUsernameNotFound):
		respondError(w, http.StatusUnauthorized, h.auth.State().Message)
	default:
		h.log.WithError(err).Error("identity service error")
		respondError(w, http.StatusBadGateway, "identity service unavailable")
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/internal/session"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

// SessionHandler establishes and clears the client session.
type SessionHandler struct {
	sessions *session.Manager
	logger   *logging.Logger
}

func NewSessionHandler(sessions *session.Manager, logger *logging.Logger) *SessionHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SessionHandler{sessions: sessions, logger: logger}
}

// EstablishRequest is the POST /session body.
type EstablishRequest struct {
	Token string          `json:"token"`
	User  scheduling.User `json:"user"`
}

// SessionResponse describes the current session.
type SessionResponse struct {
	State session.State    `json:"state"`
	User  *scheduling.User `json:"user,omitempty"`
}

// Establish handles POST /session.
func (h *SessionHandler) Establish(w http.ResponseWriter, r *http.Request) {
	var req EstablishRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	s, err := h.sessions.Establish(req.Token, req.User)
	switch {
	case errors.Is(err, session.ErrMissingToken):
		jsonError(w, "token is required", http.StatusBadRequest)
		return
	case errors.Is(err, session.ErrExpired):
		jsonError(w, "token expired", http.StatusUnauthorized)
		return
	case err != nil:
		h.logger.Error("establish session failed", "error", err)
		jsonError(w, "could not establish session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, SessionResponse{State: session.StateEstablished, User: &s.User})
}

// Get handles GET /session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.sessions.Current()
	if !ok {
		writeJSON(w, http.StatusOK, SessionResponse{State: session.StateCleared})
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{State: session.StateEstablished, User: &s.User})
}

// SignOut handles DELETE /session.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.sessions.SignOut()
	w.WriteHeader(http.StatusNoContent)
}

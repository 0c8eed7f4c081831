// Package handlers exposes the scheduling screens over JSON.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wolfman30/barbershop-scheduler/internal/appointments"
	"github.com/wolfman30/barbershop-scheduler/internal/availability"
	"github.com/wolfman30/barbershop-scheduler/internal/backend"
	"github.com/wolfman30/barbershop-scheduler/internal/booking"
	"github.com/wolfman30/barbershop-scheduler/internal/views"
)

// Mutation wraps the screen returned after a command. Accepted is false when
// the command was a local no-op (weekend day, unavailable hour, nothing
// selected); those are not errors.
type Mutation struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	View     any    `json:"view"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v)
}

// rejection reports whether err is a local precondition failure that the
// client sees as an unaccepted no-op.
func rejection(err error) (string, bool) {
	switch {
	case errors.Is(err, booking.ErrIncomplete),
		errors.Is(err, booking.ErrSubmitInProgress),
		errors.Is(err, appointments.ErrNotPending),
		errors.Is(err, appointments.ErrInFlight),
		errors.Is(err, availability.ErrInvalidKey),
		errors.Is(err, views.ErrNoProvider):
		return err.Error(), true
	}
	return "", false
}

// statusFor maps a failed operation to an HTTP status.
func statusFor(err error) int {
	var se *backend.StatusError
	switch {
	case errors.Is(err, backend.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, appointments.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &se) && se.StatusCode == http.StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

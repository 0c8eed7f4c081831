// Package backend is the REST-shaped scheduling backend consumed by the
// client: provider directory, day availability, the caller's own schedule and
// appointment create/complete/cancel.
package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
)

// ErrUnauthenticated is returned when there is no usable bearer credential or
// the backend rejects it.
var ErrUnauthenticated = errors.New("backend: unauthenticated")

// Client is the scheduling backend capability.
type Client interface {
	ListProviders(ctx context.Context) ([]scheduling.Provider, error)
	GetProvider(ctx context.Context, id string) (*scheduling.Provider, error)
	DayAvailability(ctx context.Context, providerUserID string, date scheduling.CalendarDate) ([]scheduling.TimeSlot, error)
	OwnSchedule(ctx context.Context, date scheduling.CalendarDate) ([]scheduling.Appointment, error)
	CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*scheduling.Appointment, error)
	CompleteAppointment(ctx context.Context, appointmentID string) error
	CancelAppointment(ctx context.Context, appointmentID string) error
}

// TokenSource supplies the bearer credential for each request. The session
// package implements it; this package never stores credentials.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource for tests and scripts.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrUnauthenticated
	}
	return string(s), nil
}

// CreateAppointmentRequest asks the backend to book ProviderID at Date.
type CreateAppointmentRequest struct {
	ProviderID string
	Date       time.Time
}

// StatusError is a non-2xx backend response.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: %s: status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// Unwrap maps 401 onto ErrUnauthenticated.
func (e *StatusError) Unwrap() error {
	if e.StatusCode == 401 {
		return ErrUnauthenticated
	}
	return nil
}

// Observer receives per-request outcomes; *metrics.SchedulingMetrics implements it.
type Observer interface {
	ObserveBackend(operation, status string, elapsed time.Duration)
}

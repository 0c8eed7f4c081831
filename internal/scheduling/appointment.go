package scheduling

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownStatus is returned when a status value is outside the closed set.
var ErrUnknownStatus = errors.New("scheduling: unknown appointment status")

// Status is the appointment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// ParseStatus normalizes a textual status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pending", "false":
		return StatusPending, nil
	case "completed", "complete", "done", "true":
		return StatusCompleted, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// UnmarshalJSON accepts the legacy boolean/null encoding as well as strings.
func (s *Status) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch raw {
	case "null", "false", "0", "":
		*s = StatusPending
		return nil
	case "true", "1":
		*s = StatusCompleted
		return nil
	}
	var text string
	if err := json.Unmarshal(b, &text); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownStatus, raw)
	}
	parsed, err := ParseStatus(text)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Person is the other party shown on an appointment card.
type Person struct {
	Name      string `json:"name"`
	AvatarRef string `json:"avatar_ref,omitempty"`
}

// Appointment is one booked hour. IDs are assigned by the backend.
type Appointment struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	Status      Status    `json:"status"`
	Counterpart Person    `json:"counterpart"`
	// HourLabel is the precomputed "HH:mm" display label.
	HourLabel string `json:"hour_label"`
}

// HourLabel formats a timestamp as "HH:mm".
func HourLabel(t time.Time) string {
	return t.Format("15:04")
}

// Period of the appointment's hour.
func (a Appointment) Period() Period {
	return PeriodOf(a.Date.Hour())
}

// IsPending reports whether the appointment can still be completed.
func (a Appointment) IsPending() bool {
	return a.Status == StatusPending
}

// SplitAppointments partitions by hour < 12, preserving order.
func SplitAppointments(items []Appointment) (morning, afternoon []Appointment) {
	morning = make([]Appointment, 0, len(items))
	afternoon = make([]Appointment, 0, len(items))
	for _, a := range items {
		if a.Period() == Morning {
			morning = append(morning, a)
		} else {
			afternoon = append(afternoon, a)
		}
	}
	return morning, afternoon
}

// NextUpcoming returns the first appointment in sequence order whose timestamp
// is strictly after now. The sequence is not sorted first.
func NextUpcoming(items []Appointment, now time.Time) (Appointment, bool) {
	for _, a := range items {
		if a.Date.After(now) {
			return a, true
		}
	}
	return Appointment{}, false
}

package backend

import (
	"fmt"
	"time"

	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
)

// Wire shapes of the scheduling API.

type providerDTO struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type appointmentDTO struct {
	ID     string            `json:"id"`
	Date   string            `json:"date"`
	Status scheduling.Status `json:"status"`
	Client struct {
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	} `json:"client"`
}

type availabilityDTO struct {
	Hour      int  `json:"hour"`
	Available bool `json:"available"`
}

type createAppointmentBody struct {
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"`
}

type appointmentIDBody struct {
	AppointmentID string `json:"appointment_id"`
}

func (p providerDTO) toProvider() scheduling.Provider {
	return scheduling.Provider{
		ID:            p.ID,
		SessionUserID: p.UserID,
		Name:          p.Name,
		Email:         p.Email,
		AvatarRef:     p.Avatar,
	}
}

func (a appointmentDTO) toAppointment() (scheduling.Appointment, error) {
	ts, err := time.Parse(time.RFC3339, a.Date)
	if err != nil {
		return scheduling.Appointment{}, fmt.Errorf("appointment %s: parse date %q: %w", a.ID, a.Date, err)
	}
	return scheduling.Appointment{
		ID:     a.ID,
		Date:   ts,
		Status: a.Status,
		Counterpart: scheduling.Person{
			Name:      a.Client.Name,
			AvatarRef: a.Client.Avatar,
		},
		HourLabel: scheduling.HourLabel(ts),
	}, nil
}

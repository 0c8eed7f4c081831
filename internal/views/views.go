// Package views composes the scheduling components into the screens a client
// drives: the provider directory, a provider's booking page and the client's
// own schedule. Snapshots are JSON-ready.
package views

import (
	"context"

	"github.com/wolfman30/barbershop-scheduler/internal/calendar"
	"github.com/wolfman30/barbershop-scheduler/internal/notify"
	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
)

// AvatarURLs resolves avatar refs.
type AvatarURLs interface {
	URL(ctx context.Context, ref string) string
}

// DayHeader describes the selected day.
type DayHeader struct {
	Date           scheduling.CalendarDate `json:"date"`
	Label          string                  `json:"label"`
	Weekday        string                  `json:"weekday"`
	IsToday        bool                    `json:"is_today"`
	TodayLabel     string                  `json:"today_label,omitempty"`
	Weekend        bool                    `json:"weekend"`
	WeekendMessage string                  `json:"weekend_message,omitempty"`
	VisibleMonth   string                  `json:"visible_month"`
}

func dayHeader(days *calendar.DaySelection, msgs notify.Catalog) DayHeader {
	d := days.Selected()
	h := DayHeader{
		Date:         d,
		Label:        msgs.DayLabel(d),
		Weekday:      msgs.WeekdayName(d),
		IsToday:      days.IsToday(),
		Weekend:      !d.IsBusinessDay(),
		VisibleMonth: days.VisibleMonth().String(),
	}
	if h.IsToday {
		h.TodayLabel = msgs.Today
	}
	if h.Weekend {
		h.WeekendMessage = msgs.WeekendClosed
	}
	return h
}

// PersonView is a name with a resolved avatar.
type PersonView struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

func avatarURL(ctx context.Context, avatars AvatarURLs, ref string) string {
	if avatars == nil {
		return ref
	}
	return avatars.URL(ctx, ref)
}

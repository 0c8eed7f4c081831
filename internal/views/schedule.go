package views

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/barbershop-scheduler/internal/appointments"
	"github.com/wolfman30/barbershop-scheduler/internal/calendar"
	"github.com/wolfman30/barbershop-scheduler/internal/notify"
	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

// ScheduleConfig wires a Schedule.
type ScheduleConfig struct {
	Days       *calendar.DaySelection
	Collection *appointments.Collection
	Lifecycle  *appointments.Controller
	Avatars    AvatarURLs
	Messages   notify.Catalog
	Logger     *logging.Logger
}

// Schedule is the client's own day view.
type Schedule struct {
	days     *calendar.DaySelection
	coll     *appointments.Collection
	ctl      *appointments.Controller
	avatars  AvatarURLs
	messages notify.Catalog
	logger   *logging.Logger
}

func NewSchedule(cfg ScheduleConfig) *Schedule {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	v := &Schedule{
		days:     cfg.Days,
		coll:     cfg.Collection,
		ctl:      cfg.Lifecycle,
		avatars:  cfg.Avatars,
		messages: cfg.Messages,
		logger:   cfg.Logger,
	}
	v.days.OnChange(func(ctx context.Context, _ scheduling.CalendarDate) error {
		return v.Refresh(ctx)
	})
	return v
}

// Refresh reloads the selected day.
func (v *Schedule) Refresh(ctx context.Context) error {
	_, err := v.coll.Load(ctx, v.days.Selected())
	if errors.Is(err, appointments.ErrStale) {
		return nil
	}
	return err
}

// EnsureLoaded loads the selected day unless it is already the live set.
func (v *Schedule) EnsureLoaded(ctx context.Context) error {
	if v.coll.Date().Equal(v.days.Selected()) && v.coll.Err() == nil {
		return nil
	}
	return v.Refresh(ctx)
}

// SelectDate switches days; the collection reloads through the picker's
// change listener. Weekends are ignored.
func (v *Schedule) SelectDate(ctx context.Context, d scheduling.CalendarDate) (bool, error) {
	return v.days.SelectDate(ctx, d)
}

func (v *Schedule) SelectMonth(m scheduling.Month) scheduling.Month {
	return v.days.SelectMonth(m)
}

func (v *Schedule) Complete(ctx context.Context, id string) error {
	return v.ctl.MarkCompleted(ctx, id)
}

func (v *Schedule) Cancel(ctx context.Context, id string) error {
	return v.ctl.Cancel(ctx, id)
}

// AppointmentView is one rendered appointment.
type AppointmentView struct {
	ID        string            `json:"id"`
	Date      time.Time         `json:"date"`
	HourLabel string            `json:"hour_label"`
	Status    scheduling.Status `json:"status"`
	Client    PersonView        `json:"client"`
}

// ScheduleView is the JSON snapshot of the screen.
type ScheduleView struct {
	Day            DayHeader         `json:"day"`
	Loading        bool              `json:"loading"`
	Next           *AppointmentView  `json:"next"`
	Morning        []AppointmentView `json:"morning"`
	Afternoon      []AppointmentView `json:"afternoon"`
	MorningLabel   string            `json:"morning_label"`
	AfternoonLabel string            `json:"afternoon_label"`
}

// Snapshot renders the screen. Next is only set when the selected day is
// today.
func (v *Schedule) Snapshot(ctx context.Context) ScheduleView {
	view := ScheduleView{
		Day:            dayHeader(v.days, v.messages),
		Loading:        v.coll.Loading(),
		MorningLabel:   v.messages.Morning,
		AfternoonLabel: v.messages.Afternoon,
	}
	if !v.coll.Date().Equal(view.Day.Date) {
		view.Morning, view.Afternoon = []AppointmentView{}, []AppointmentView{}
		return view
	}

	items := v.coll.Items()
	morning, afternoon := scheduling.SplitAppointments(items)
	view.Morning = v.render(ctx, morning)
	view.Afternoon = v.render(ctx, afternoon)
	if view.Day.IsToday {
		if next, ok := scheduling.NextUpcoming(items, v.days.Now()); ok {
			n := v.renderOne(ctx, next)
			view.Next = &n
		}
	}
	return view
}

// Reset drops the live collection until the next refresh.
func (v *Schedule) Reset() {
	v.coll.Clear()
}

func (v *Schedule) render(ctx context.Context, items []scheduling.Appointment) []AppointmentView {
	out := make([]AppointmentView, 0, len(items))
	for _, a := range items {
		out = append(out, v.renderOne(ctx, a))
	}
	return out
}

func (v *Schedule) renderOne(ctx context.Context, a scheduling.Appointment) AppointmentView {
	return AppointmentView{
		ID:        a.ID,
		Date:      a.Date,
		HourLabel: a.HourLabel,
		Status:    a.Status,
		Client: PersonView{
			Name:      a.Counterpart.Name,
			AvatarURL: avatarURL(ctx, v.avatars, a.Counterpart.AvatarRef),
		},
	}
}

package views

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wolfman30/barbershop-scheduler/internal/availability"
	"github.com/wolfman30/barbershop-scheduler/internal/booking"
	"github.com/wolfman30/barbershop-scheduler/internal/calendar"
	"github.com/wolfman30/barbershop-scheduler/internal/notify"
	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

// ErrNoProvider means the screen has no resolved provider yet.
var ErrNoProvider = errors.New("views: provider not loaded")

// ProviderSource fetches one provider.
type ProviderSource interface {
	GetProvider(ctx context.Context, id string) (*scheduling.Provider, error)
}

// ProviderDetailConfig wires a ProviderDetail.
type ProviderDetailConfig struct {
	Providers ProviderSource
	Days      *calendar.DaySelection
	Slots     *availability.Resolver
	Booking   *booking.Workflow
	Avatars   AvatarURLs
	Messages  notify.Catalog
	Logger    *logging.Logger
}

// ProviderDetail is the booking screen for one provider: day picker,
// availability for the selected day, and the booking workflow.
type ProviderDetail struct {
	providers ProviderSource
	days      *calendar.DaySelection
	slots     *availability.Resolver
	booking   *booking.Workflow
	avatars   AvatarURLs
	messages  notify.Catalog
	logger    *logging.Logger

	mu       sync.RWMutex
	provider *scheduling.Provider
}

func NewProviderDetail(cfg ProviderDetailConfig) *ProviderDetail {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	v := &ProviderDetail{
		providers: cfg.Providers,
		days:      cfg.Days,
		slots:     cfg.Slots,
		booking:   cfg.Booking,
		avatars:   cfg.Avatars,
		messages:  cfg.Messages,
		logger:    cfg.Logger,
	}
	v.days.OnChange(v.dayChanged)
	return v
}

// Open resolves provider id and loads availability for the selected day.
// Reopening the current provider is a no-op.
func (v *ProviderDetail) Open(ctx context.Context, id string) error {
	if current, ok := v.Provider(); ok && current.ID == id {
		return nil
	}
	p, err := v.providers.GetProvider(ctx, id)
	if err != nil {
		v.logger.Error("views: get provider failed", "error", err, "provider_id", id)
		return fmt.Errorf("views: open provider %s: %w", id, err)
	}

	v.mu.Lock()
	v.provider = p
	v.mu.Unlock()

	v.booking.SetProvider(*p)
	v.booking.SetDate(v.days.Selected())
	return v.refresh(ctx)
}

// Provider returns the resolved provider.
func (v *ProviderDetail) Provider() (scheduling.Provider, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.provider == nil {
		return scheduling.Provider{}, false
	}
	return *v.provider, true
}

// SelectDate changes the day. Weekends are ignored and reported false.
func (v *ProviderDetail) SelectDate(ctx context.Context, d scheduling.CalendarDate) (bool, error) {
	return v.days.SelectDate(ctx, d)
}

// dayChanged follows the picker. It reads the picker's current day rather
// than the argument so overlapping selections settle on the last one.
func (v *ProviderDetail) dayChanged(ctx context.Context, _ scheduling.CalendarDate) error {
	if _, ok := v.Provider(); !ok {
		return nil
	}
	v.booking.SetDate(v.days.Selected())
	return v.refresh(ctx)
}

// SelectMonth moves the visible month.
func (v *ProviderDetail) SelectMonth(m scheduling.Month) scheduling.Month {
	return v.days.SelectMonth(m)
}

// SelectSlot picks an hour; unavailable hours are ignored.
func (v *ProviderDetail) SelectSlot(hour int) bool {
	return v.booking.SelectSlot(hour)
}

// Submit books the selected slot.
func (v *ProviderDetail) Submit(ctx context.Context) (*scheduling.Appointment, error) {
	if _, ok := v.Provider(); !ok {
		return nil, ErrNoProvider
	}
	return v.booking.Submit(ctx)
}

// Reset forgets the provider and any booking state.
func (v *ProviderDetail) Reset() {
	v.mu.Lock()
	v.provider = nil
	v.mu.Unlock()
	v.slots.Reset()
	v.booking.Reset()
}

// refresh loads the selected day's availability. Weekends have none and a
// superseded load is not an error.
func (v *ProviderDetail) refresh(ctx context.Context) error {
	p, ok := v.Provider()
	if !ok {
		return ErrNoProvider
	}
	d := v.days.Selected()
	if !d.IsBusinessDay() {
		v.slots.Reset()
		return nil
	}
	_, err := v.slots.Fetch(ctx, p.SessionUserID, d)
	if errors.Is(err, availability.ErrStale) {
		return nil
	}
	return err
}

// SelectedSlotView describes the chosen hour.
type SelectedSlotView struct {
	Hour    int    `json:"hour"`
	Label   string `json:"label"`
	Summary string `json:"summary"`
}

// ProviderDetailView is the JSON snapshot of the screen.
type ProviderDetailView struct {
	Provider       *ProviderSummary        `json:"provider"`
	Day            DayHeader               `json:"day"`
	Loading        bool                    `json:"loading"`
	Morning        []scheduling.SlotView   `json:"morning"`
	Afternoon      []scheduling.SlotView   `json:"afternoon"`
	MorningLabel   string                  `json:"morning_label"`
	AfternoonLabel string                  `json:"afternoon_label"`
	Selected       *SelectedSlotView       `json:"selected"`
	Booking        booking.State           `json:"booking_state"`
	Booked         *scheduling.Appointment `json:"booked,omitempty"`
}

// Snapshot renders the screen.
func (v *ProviderDetail) Snapshot(ctx context.Context) ProviderDetailView {
	view := ProviderDetailView{
		Day:            dayHeader(v.days, v.messages),
		MorningLabel:   v.messages.Morning,
		AfternoonLabel: v.messages.Afternoon,
	}
	if p, ok := v.Provider(); ok {
		view.Provider = &ProviderSummary{
			ID:        p.ID,
			Name:      p.Name,
			Email:     p.Email,
			AvatarURL: avatarURL(ctx, v.avatars, p.AvatarRef),
		}
	}

	snap := v.slots.Snapshot()
	view.Loading = snap.Loading
	if snap.Key.Date.Equal(view.Day.Date) {
		view.Morning, view.Afternoon = scheduling.SplitSlots(snap.Slots)
	} else {
		view.Morning, view.Afternoon = []scheduling.SlotView{}, []scheduling.SlotView{}
	}

	st := v.booking.Status()
	view.Booking = st.State
	view.Booked = st.Booked
	if st.Selection != nil {
		view.Selected = &SelectedSlotView{
			Hour:    st.Selection.Hour,
			Label:   scheduling.Label(st.Selection.Hour),
			Summary: v.messages.SlotSummary(st.Selection.Date, st.Selection.Hour),
		}
	}
	return view
}

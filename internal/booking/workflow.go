// Package booking drives a single booking attempt: pick an available hour on
// the selected day, submit it, and report the outcome.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/barbershop-scheduler/internal/availability"
	"github.com/wolfman30/barbershop-scheduler/internal/backend"
	"github.com/wolfman30/barbershop-scheduler/internal/notify"
	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

var (
	// ErrIncomplete means provider, date or hour is missing.
	ErrIncomplete = errors.New("booking: provider, date and hour are required")
	// ErrSubmitInProgress rejects a second submit while one is pending.
	ErrSubmitInProgress = errors.New("booking: a submission is already in flight")
)

var tracer = otel.Tracer("barbershop.internal.booking")

// State of the booking attempt.
type State string

const (
	StateIdle         State = "idle"
	StateSlotSelected State = "slot_selected"
	StateSubmitting   State = "submitting"
	StateConfirmed    State = "confirmed"
	StateFailed       State = "failed"
)

// Creator is the slice of backend.Client used to book.
type Creator interface {
	CreateAppointment(ctx context.Context, req backend.CreateAppointmentRequest) (*scheduling.Appointment, error)
}

// SlotLookup answers whether an hour is offered for a resolved key.
type SlotLookup interface {
	Lookup(key availability.Key, hour int) (scheduling.TimeSlot, bool)
}

// OutcomeObserver counts submissions.
type OutcomeObserver interface {
	ObserveBooking(outcome string)
}

// Selection is the chosen hour on a date.
type Selection struct {
	Date scheduling.CalendarDate
	Hour int
}

// Status is a point-in-time view of the workflow.
type Status struct {
	State     State
	Provider  scheduling.Provider
	Date      scheduling.CalendarDate
	Selection *Selection
	Booked    *scheduling.Appointment
	LastError error
}

// Workflow is the booking state machine for one provider screen.
//
//	Idle -> SlotSelected -> Submitting -> Confirmed | Failed
//
// Failed keeps the selection so the client can resubmit. Confirmed clears it.
// Both remain interactive.
type Workflow struct {
	creator  Creator
	slots    SlotLookup
	sink     notify.Sink
	messages notify.Catalog
	observer OutcomeObserver
	loc      *time.Location
	logger   *logging.Logger

	mu       sync.Mutex
	state    State
	provider scheduling.Provider
	date     scheduling.CalendarDate
	hour     int
	hasHour  bool
	booked   *scheduling.Appointment
	lastErr  error
}

// Option configures a Workflow.
type Option func(*Workflow)

func WithLocation(loc *time.Location) Option {
	return func(w *Workflow) {
		if loc != nil {
			w.loc = loc
		}
	}
}

func WithObserver(o OutcomeObserver) Option {
	return func(w *Workflow) { w.observer = o }
}

func NewWorkflow(creator Creator, slots SlotLookup, sink notify.Sink, messages notify.Catalog, logger *logging.Logger, opts ...Option) *Workflow {
	if logger == nil {
		logger = logging.Default()
	}
	if sink == nil {
		sink = notify.Discard
	}
	w := &Workflow{
		creator:  creator,
		slots:    slots,
		sink:     sink,
		messages: messages,
		loc:      time.Local,
		logger:   logger,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetProvider binds the provider being booked. Switching providers drops the
// current selection.
func (w *Workflow) SetProvider(p scheduling.Provider) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.provider.ID == p.ID && w.provider.SessionUserID == p.SessionUserID {
		w.provider = p
		return
	}
	w.provider = p
	w.clearSelectionLocked()
}

// SetDate binds the selected date and drops any selection from another day.
func (w *Workflow) SetDate(d scheduling.CalendarDate) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.date.Equal(d) {
		return
	}
	w.date = d
	w.clearSelectionLocked()
}

func (w *Workflow) clearSelectionLocked() {
	w.hasHour = false
	w.hour = 0
	if w.state != StateSubmitting {
		w.state = StateIdle
	}
}

// SelectSlot chooses hour when the resolved availability for the current
// provider and date offers it. Anything else is ignored and reported false.
// Selection is refused while a submission is pending.
func (w *Workflow) SelectSlot(hour int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == StateSubmitting || w.provider.SessionUserID == "" || w.date.IsZero() {
		return false
	}
	key := availability.Key{ProviderUserID: w.provider.SessionUserID, Date: w.date}
	slot, ok := w.slots.Lookup(key, hour)
	if !ok || !slot.Available {
		return false
	}
	w.hour = hour
	w.hasHour = true
	w.state = StateSlotSelected
	return true
}

// Submit books the selected slot. At most one network call happens per
// accepted submit. On failure the selection is kept.
func (w *Workflow) Submit(ctx context.Context) (*scheduling.Appointment, error) {
	w.mu.Lock()
	if w.state == StateSubmitting {
		w.mu.Unlock()
		return nil, ErrSubmitInProgress
	}
	if w.provider.SessionUserID == "" || w.date.IsZero() || !w.hasHour {
		w.mu.Unlock()
		return nil, ErrIncomplete
	}
	w.state = StateSubmitting
	provider, date, hour := w.provider, w.date, w.hour
	w.mu.Unlock()

	target := date.At(hour, w.loc)
	ctx, span := tracer.Start(ctx, "booking.submit")
	span.SetAttributes(
		attribute.String("barbershop.provider_id", provider.SessionUserID),
		attribute.String("barbershop.date", date.String()),
		attribute.Int("barbershop.hour", hour),
	)
	defer span.End()

	appt, err := w.creator.CreateAppointment(ctx, backend.CreateAppointmentRequest{
		ProviderID: provider.SessionUserID,
		Date:       target,
	})

	w.mu.Lock()
	if err != nil {
		w.state = StateFailed
		w.lastErr = err
		w.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.observe("error")
		w.logger.Error("booking: submit failed", "error", err, "provider_id", provider.SessionUserID, "date", date.String(), "hour", hour)
		w.sink.Notify(ctx, notify.Failure(notify.TopicBookingFailed, w.messages.BookingFailed))
		return nil, fmt.Errorf("booking: submit: %w", err)
	}
	w.state = StateConfirmed
	w.lastErr = nil
	w.booked = appt
	if w.date.Equal(date) {
		w.hasHour = false
		w.hour = 0
	}
	w.mu.Unlock()

	var id string
	if appt != nil {
		id = appt.ID
	}
	w.observe("ok")
	w.logger.Info("appointment booked", "appointment_id", id, "provider_id", provider.SessionUserID, "date", date.String(), "hour", hour)
	n := notify.Success(notify.TopicBookingCreated, w.messages.BookingCreated)
	n.Detail = w.messages.SlotSummary(date, hour)
	w.sink.Notify(ctx, n)
	return appt, nil
}

// State is the current state.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Selected returns the chosen hour, if any.
func (w *Workflow) Selected() (Selection, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.hasHour {
		return Selection{}, false
	}
	return Selection{Date: w.date, Hour: w.hour}, true
}

// Status snapshots the workflow.
func (w *Workflow) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := Status{
		State:     w.state,
		Provider:  w.provider,
		Date:      w.date,
		Booked:    w.booked,
		LastError: w.lastErr,
	}
	if w.hasHour {
		st.Selection = &Selection{Date: w.date, Hour: w.hour}
	}
	return st
}

// Reset returns to Idle and forgets provider, date and outcome.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.provider = scheduling.Provider{}
	w.date = scheduling.CalendarDate{}
	w.hasHour = false
	w.hour = 0
	w.booked = nil
	w.lastErr = nil
	if w.state != StateSubmitting {
		w.state = StateIdle
	}
}

func (w *Workflow) observe(outcome string) {
	if w.observer != nil {
		w.observer.ObserveBooking(outcome)
	}
}

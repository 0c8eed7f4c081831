// Package backendtest provides an in-memory backend.Client for tests. Calls
// are recorded, and any call can be parked on a gate so tests can resolve
// concurrent requests in an order of their choosing.
package backendtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/wolfman30/barbershop-scheduler/internal/backend"
	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
)

// ErrUnavailable is the canned transient failure.
var ErrUnavailable = errors.New("backendtest: service unavailable")

// Call is one recorded invocation.
type Call struct {
	Op   string
	Args []any
}

// Fake implements backend.Client. Zero value is ready to use.
type Fake struct {
	mu sync.Mutex

	Providers    []scheduling.Provider
	Availability map[string][]scheduling.TimeSlot // key: providerUserID|date
	Schedules    map[scheduling.CalendarDate][]scheduling.Appointment

	// Err, when set for an op name, is returned by that op.
	Err map[string]error

	calls []Call
	gates map[string][]chan struct{}
	seq   int
}

// AvailabilityKey builds the Availability map key.
func AvailabilityKey(providerUserID string, date scheduling.CalendarDate) string {
	return providerUserID + "|" + date.String()
}

// SetAvailability stores slots for a provider/date.
func (f *Fake) SetAvailability(providerUserID string, date scheduling.CalendarDate, slots []scheduling.TimeSlot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Availability == nil {
		f.Availability = map[string][]scheduling.TimeSlot{}
	}
	f.Availability[AvailabilityKey(providerUserID, date)] = slots
}

// SetSchedule stores the caller's appointments for date.
func (f *Fake) SetSchedule(date scheduling.CalendarDate, items []scheduling.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Schedules == nil {
		f.Schedules = map[scheduling.CalendarDate][]scheduling.Appointment{}
	}
	f.Schedules[date] = items
}

// FailWith makes op return err until cleared with FailWith(op, nil).
func (f *Fake) FailWith(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err == nil {
		f.Err = map[string]error{}
	}
	if err == nil {
		delete(f.Err, op)
		return
	}
	f.Err[op] = err
}

// Hold parks the next call to op until the returned release func is called.
// Multiple holds queue in call order.
func (f *Fake) Hold(op string) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gates == nil {
		f.gates = map[string][]chan struct{}{}
	}
	ch := make(chan struct{})
	f.gates[op] = append(f.gates[op], ch)
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount counts recorded calls to op.
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (f *Fake) enter(ctx context.Context, op string, args ...any) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: op, Args: args})
	var gate chan struct{}
	if q := f.gates[op]; len(q) > 0 {
		gate = q[0]
		f.gates[op] = q[1:]
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Err[op]
}

func (f *Fake) ListProviders(ctx context.Context) ([]scheduling.Provider, error) {
	if err := f.enter(ctx, "ListProviders"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scheduling.Provider(nil), f.Providers...), nil
}

func (f *Fake) GetProvider(ctx context.Context, id string) (*scheduling.Provider, error) {
	if err := f.enter(ctx, "GetProvider", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.Providers {
		if p.ID == id {
			p := p
			return &p, nil
		}
	}
	return nil, &backend.StatusError{Operation: "get_provider", StatusCode: 404, Body: "not found"}
}

func (f *Fake) DayAvailability(ctx context.Context, providerUserID string, date scheduling.CalendarDate) ([]scheduling.TimeSlot, error) {
	if err := f.enter(ctx, "DayAvailability", providerUserID, date); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scheduling.TimeSlot(nil), f.Availability[AvailabilityKey(providerUserID, date)]...), nil
}

func (f *Fake) OwnSchedule(ctx context.Context, date scheduling.CalendarDate) ([]scheduling.Appointment, error) {
	if err := f.enter(ctx, "OwnSchedule", date); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]scheduling.Appointment(nil), f.Schedules[date]...), nil
}

func (f *Fake) CreateAppointment(ctx context.Context, req backend.CreateAppointmentRequest) (*scheduling.Appointment, error) {
	if err := f.enter(ctx, "CreateAppointment", req); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return &scheduling.Appointment{
		ID:        fmt.Sprintf("appt-%d", f.seq),
		Date:      req.Date,
		Status:    scheduling.StatusPending,
		HourLabel: scheduling.HourLabel(req.Date),
	}, nil
}

func (f *Fake) CompleteAppointment(ctx context.Context, appointmentID string) error {
	return f.enter(ctx, "CompleteAppointment", appointmentID)
}

func (f *Fake) CancelAppointment(ctx context.Context, appointmentID string) error {
	return f.enter(ctx, "CancelAppointment", appointmentID)
}

var _ backend.Client = (*Fake)(nil)

// Package appointments owns the signed-in user's appointments for the
// selected day and the lifecycle operations (complete, cancel) applied to
// them. Only Load replaces the set wholesale; only the Controller edits it in
// place.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/barbershop-scheduler/internal/notify"
	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

var (
	ErrStale      = errors.New("appointments: superseded by a newer load")
	ErrNotFound   = errors.New("appointments: appointment not in the active collection")
	ErrNotPending = errors.New("appointments: appointment is not pending")
	ErrInFlight   = errors.New("appointments: another operation on this appointment is in flight")
	ErrNoDate     = errors.New("appointments: date is required")
)

var tracer = otel.Tracer("barbershop.internal.appointments")

// ScheduleFetcher loads the caller's own schedule.
type ScheduleFetcher interface {
	OwnSchedule(ctx context.Context, date scheduling.CalendarDate) ([]scheduling.Appointment, error)
}

// StaleObserver counts dropped responses.
type StaleObserver interface {
	ObserveStale(component string)
}

// Collection is the live appointment set for one date.
type Collection struct {
	fetcher  ScheduleFetcher
	loc      *time.Location
	logger   *logging.Logger
	observer StaleObserver
	sink     notify.Sink
	messages notify.Catalog

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	date       scheduling.CalendarDate
	items      []scheduling.Appointment
	order      map[string]int // server position of each loaded id
	loading    bool
	err        error
}

// CollectionOption configures a Collection.
type CollectionOption func(*Collection)

func WithLocation(loc *time.Location) CollectionOption {
	return func(c *Collection) {
		if loc != nil {
			c.loc = loc
		}
	}
}

func WithStaleObserver(o StaleObserver) CollectionOption {
	return func(c *Collection) { c.observer = o }
}

// WithLoadSink reports load failures.
func WithLoadSink(sink notify.Sink, messages notify.Catalog) CollectionOption {
	return func(c *Collection) {
		c.sink = sink
		c.messages = messages
	}
}

func NewCollection(fetcher ScheduleFetcher, logger *logging.Logger, opts ...CollectionOption) *Collection {
	if logger == nil {
		logger = logging.Default()
	}
	c := &Collection{fetcher: fetcher, loc: time.Local, logger: logger, sink: notify.Discard, messages: notify.Messages("")}
	for _, opt := range opts {
		opt(c)
	}
	if c.sink == nil {
		c.sink = notify.Discard
	}
	return c
}

// Load discards the current set and fetches date's appointments. Members are
// converted to the collection's location, labelled "HH:mm" and filtered to
// the requested day. A load superseded by a later one returns ErrStale.
func (c *Collection) Load(ctx context.Context, date scheduling.CalendarDate) ([]scheduling.Appointment, error) {
	if date.IsZero() {
		return nil, ErrNoDate
	}
	ctx, span := tracer.Start(ctx, "appointments.load")
	span.SetAttributes(attribute.String("barbershop.date", date.String()))
	defer span.End()

	loadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.generation++
	gen := c.generation
	c.cancel = cancel
	c.date = date
	c.items = nil
	c.order = nil
	c.loading = true
	c.err = nil
	c.mu.Unlock()

	raw, err := c.fetcher.OwnSchedule(loadCtx, date)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		if c.observer != nil {
			c.observer.ObserveStale("appointments")
		}
		c.logger.Debug("appointments: dropping stale load", "date", date.String(), "generation", gen)
		return nil, ErrStale
	}
	c.cancel = nil
	c.loading = false
	if err != nil {
		c.items = []scheduling.Appointment{}
		c.err = err
		c.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Error("appointments: load failed", "error", err, "date", date.String())
		c.sink.Notify(ctx, notify.Failure(notify.TopicScheduleFailed, c.messages.ScheduleFailed))
		return []scheduling.Appointment{}, fmt.Errorf("appointments: load: %w", err)
	}

	items := make([]scheduling.Appointment, 0, len(raw))
	for _, a := range raw {
		a.Date = a.Date.In(c.loc)
		if !date.Contains(a.Date, c.loc) {
			c.logger.Warn("appointments: dropping appointment outside selected day", "appointment_id", a.ID, "date", date.String())
			continue
		}
		a.HourLabel = scheduling.HourLabel(a.Date)
		items = append(items, a)
	}
	c.items = items
	c.order = make(map[string]int, len(items))
	for i, a := range items {
		c.order[a.ID] = i
	}
	out := append([]scheduling.Appointment(nil), items...)
	c.mu.Unlock()

	span.SetAttributes(attribute.Int("barbershop.appointments", len(out)))
	return out, nil
}

// Date is the date of the live set.
func (c *Collection) Date() scheduling.CalendarDate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date
}

// Loading reports whether a load is in flight.
func (c *Collection) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err is the last load failure, if any.
func (c *Collection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Items returns the set in server order.
func (c *Collection) Items() []scheduling.Appointment {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]scheduling.Appointment(nil), c.items...)
}

func (c *Collection) Morning() []scheduling.Appointment {
	morning, _ := scheduling.SplitAppointments(c.Items())
	return morning
}

func (c *Collection) Afternoon() []scheduling.Appointment {
	_, afternoon := scheduling.SplitAppointments(c.Items())
	return afternoon
}

// NextUpcoming is the first member strictly after now. Only meaningful when
// the live date is today; callers gate on that.
func (c *Collection) NextUpcoming(now time.Time) (scheduling.Appointment, bool) {
	return scheduling.NextUpcoming(c.Items(), now)
}

// Find returns the member with id.
func (c *Collection) Find(id string) (scheduling.Appointment, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	return scheduling.Appointment{}, false
}

func (c *Collection) indexOf(id string) int {
	for i, a := range c.items {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// lookup returns the member and the generation it belongs to.
func (c *Collection) lookup(id string) (scheduling.Appointment, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], c.generation, true
	}
	return scheduling.Appointment{}, 0, false
}

// setStatus updates id only if the set has not been reloaded since gen.
func (c *Collection) setStatus(id string, status scheduling.Status, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.items[i].Status = status
	return true
}

// removal records what remove took out so restore can put it back.
type removal struct {
	appointment scheduling.Appointment
	generation  uint64
}

func (c *Collection) remove(id string) (removal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return removal{}, false
	}
	r := removal{appointment: c.items[i], generation: c.generation}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	return r, true
}

// restore reinserts a removed member at its position in the loaded server
// order, before the first remaining member that followed it. It refuses when
// the set was reloaded since the removal or the member is back already.
func (c *Collection) restore(r removal) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r.generation != c.generation || c.indexOf(r.appointment.ID) >= 0 {
		return false
	}
	rank, ok := c.order[r.appointment.ID]
	i := len(c.items)
	if ok {
		for j, a := range c.items {
			if other, known := c.order[a.ID]; known && other > rank {
				i = j
				break
			}
		}
	}
	items := make([]scheduling.Appointment, 0, len(c.items)+1)
	items = append(items, c.items[:i]...)
	items = append(items, r.appointment)
	items = append(items, c.items[i:]...)
	c.items = items
	return true
}

// Clear cancels any in-flight load and empties the set.
func (c *Collection) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.date = scheduling.CalendarDate{}
	c.items = nil
	c.order = nil
	c.loading = false
	c.err = nil
}

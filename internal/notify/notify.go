// Package notify delivers user-facing notifications (toasts) emitted by the
// scheduling components. Delivery is fire-and-forget: sinks never return
// errors to the caller.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

// Kind is success or error.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Topics identify which operation produced a notification.
const (
	TopicBookingCreated       = "booking.created"
	TopicBookingFailed        = "booking.failed"
	TopicAppointmentCompleted = "appointment.completed"
	TopicAppointmentCancelled = "appointment.cancelled"
	TopicAppointmentFailed    = "appointment.failed"
	TopicAvailabilityFailed   = "availability.failed"
	TopicScheduleFailed       = "schedule.failed"
)

// Notification is one toast.
type Notification struct {
	Kind        Kind      `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Topic       string    `json:"topic,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	At          time.Time `json:"at"`
}

// Sink is the NotificationSink capability.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification)

func (f SinkFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Discard drops every notification.
var Discard Sink = SinkFunc(func(context.Context, Notification) {})

// Fanout delivers to every non-nil sink in order.
func Fanout(sinks ...Sink) Sink {
	live := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return SinkFunc(func(ctx context.Context, n Notification) {
		if n.At.IsZero() {
			n.At = time.Now()
		}
		for _, s := range live {
			s.Notify(ctx, n)
		}
	})
}

// LogSink writes notifications to the structured log.
type LogSink struct {
	logger *logging.Logger
}

func NewLogSink(logger *logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, n Notification) {
	if n.Kind == KindError {
		s.logger.Warn("notification", "kind", n.Kind, "topic", n.Topic, "title", n.Title)
		return
	}
	s.logger.Info("notification", "kind", n.Kind, "topic", n.Topic, "title", n.Title)
}

// Recorder keeps the most recent notifications in memory. The HTTP surface
// drains it for polling clients; tests read it directly.
type Recorder struct {
	mu    sync.Mutex
	limit int
	items []Notification
}

// NewRecorder keeps at most limit entries (0 means 100).
func NewRecorder(limit int) *Recorder {
	if limit <= 0 {
		limit = 100
	}
	return &Recorder{limit: limit}
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
	if over := len(r.items) - r.limit; over > 0 {
		r.items = append([]Notification(nil), r.items[over:]...)
	}
}

// All returns a copy without clearing.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Drain returns and clears the buffer.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.items
	r.items = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// Last returns the newest notification.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

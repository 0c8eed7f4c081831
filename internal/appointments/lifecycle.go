package appointments

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/barbershop-scheduler/internal/notify"
	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

// LifecycleClient is the slice of backend.Client the controller needs.
type LifecycleClient interface {
	CompleteAppointment(ctx context.Context, appointmentID string) error
	CancelAppointment(ctx context.Context, appointmentID string) error
}

// LifecycleObserver records operation outcomes.
type LifecycleObserver interface {
	ObserveLifecycle(operation, outcome string)
}

// Controller applies complete and cancel to members of a Collection.
//
// MarkCompleted changes local state only after the server confirms. Cancel
// removes the member immediately and puts it back at its old position if the
// server rejects the delete.
type Controller struct {
	coll     *Collection
	client   LifecycleClient
	sink     notify.Sink
	messages notify.Catalog
	observer LifecycleObserver
	logger   *logging.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewController(coll *Collection, client LifecycleClient, sink notify.Sink, messages notify.Catalog, observer LifecycleObserver, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Default()
	}
	if sink == nil {
		sink = notify.Discard
	}
	return &Controller{
		coll:     coll,
		client:   client,
		sink:     sink,
		messages: messages,
		observer: observer,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// MarkCompleted moves a pending member to completed.
func (c *Controller) MarkCompleted(ctx context.Context, id string) error {
	appt, gen, ok := c.coll.lookup(id)
	if !ok {
		return ErrNotFound
	}
	if !appt.IsPending() {
		return ErrNotPending
	}
	if !c.acquire(id) {
		return ErrInFlight
	}
	defer c.release(id)

	ctx, span := tracer.Start(ctx, "appointments.complete")
	span.SetAttributes(attribute.String("barbershop.appointment_id", id))
	defer span.End()

	if err := c.client.CompleteAppointment(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.observe("complete", "error")
		c.logger.Error("appointments: complete failed", "error", err, "appointment_id", id)
		c.sink.Notify(ctx, notify.Failure(notify.TopicAppointmentFailed, c.messages.AppointmentUpdateErr))
		return fmt.Errorf("appointments: complete: %w", err)
	}

	if !c.coll.setStatus(id, scheduling.StatusCompleted, gen) {
		c.logger.Debug("appointments: collection reloaded before completion applied", "appointment_id", id)
	}
	c.observe("complete", "ok")
	c.logger.Info("appointment completed", "appointment_id", id)
	c.sink.Notify(ctx, notify.Success(notify.TopicAppointmentCompleted, c.messages.AppointmentUpdated))
	return nil
}

// Cancel removes a member optimistically, then asks the server to delete it.
func (c *Controller) Cancel(ctx context.Context, id string) error {
	if !c.acquire(id) {
		return ErrInFlight
	}
	defer c.release(id)

	removed, ok := c.coll.remove(id)
	if !ok {
		return ErrNotFound
	}

	ctx, span := tracer.Start(ctx, "appointments.cancel")
	span.SetAttributes(attribute.String("barbershop.appointment_id", id))
	defer span.End()

	if err := c.client.CancelAppointment(ctx, id); err != nil {
		restored := c.coll.restore(removed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("barbershop.restored", restored))
		c.observe("cancel", "error")
		c.logger.Error("appointments: cancel failed", "error", err, "appointment_id", id, "restored", restored)
		c.sink.Notify(ctx, notify.Failure(notify.TopicAppointmentFailed, c.messages.AppointmentCancelErr))
		return fmt.Errorf("appointments: cancel: %w", err)
	}

	c.observe("cancel", "ok")
	c.logger.Info("appointment cancelled", "appointment_id", id)
	c.sink.Notify(ctx, notify.Success(notify.TopicAppointmentCancelled, c.messages.AppointmentCancelled))
	return nil
}

func (c *Controller) acquire(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[id]; busy {
		return false
	}
	c.inflight[id] = struct{}{}
	return true
}

func (c *Controller) release(id string) {
	c.mu.Lock()
	delete(c.inflight, id)
	c.mu.Unlock()
}

func (c *Controller) observe(operation, outcome string) {
	if c.observer != nil {
		c.observer.ObserveLifecycle(operation, outcome)
	}
}

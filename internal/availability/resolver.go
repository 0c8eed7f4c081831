// Package availability resolves a provider's hourly slots for one day.
//
// Only the most recently requested (provider, date) pair may publish its
// result. Each Fetch bumps a generation counter and cancels the previous
// in-flight request; a response that comes back under an older generation is
// discarded with ErrStale.
package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/barbershop-scheduler/internal/notify"
	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

var (
	// ErrStale reports that a newer Fetch superseded this one.
	ErrStale = errors.New("availability: superseded by a newer request")
	// ErrInvalidKey rejects an empty provider or zero date.
	ErrInvalidKey = errors.New("availability: provider and date are required")
)

var tracer = otel.Tracer("barbershop.internal.availability")

// Fetcher is the slice of backend.Client the resolver needs.
type Fetcher interface {
	DayAvailability(ctx context.Context, providerUserID string, date scheduling.CalendarDate) ([]scheduling.TimeSlot, error)
}

// StaleObserver counts dropped responses.
type StaleObserver interface {
	ObserveStale(component string)
}

// Key scopes a slot set.
type Key struct {
	ProviderUserID string
	Date           scheduling.CalendarDate
}

// Snapshot is the resolver's published state.
type Snapshot struct {
	Key     Key
	Slots   []scheduling.TimeSlot
	Loading bool
	Err     error
}

// Resolver holds the slot set for the current key.
type Resolver struct {
	fetcher  Fetcher
	logger   *logging.Logger
	observer StaleObserver
	sink     notify.Sink
	messages notify.Catalog

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	key        Key
	slots      []scheduling.TimeSlot
	loading    bool
	err        error
}

// Option configures a Resolver.
type Option func(*Resolver)

func WithObserver(o StaleObserver) Option {
	return func(r *Resolver) { r.observer = o }
}

// WithSink reports fetch failures to sink using the catalog's texts.
func WithSink(sink notify.Sink, messages notify.Catalog) Option {
	return func(r *Resolver) {
		r.sink = sink
		r.messages = messages
	}
}

func NewResolver(fetcher Fetcher, logger *logging.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Resolver{fetcher: fetcher, logger: logger, sink: notify.Discard, messages: notify.Messages("")}
	for _, opt := range opts {
		opt(r)
	}
	if r.sink == nil {
		r.sink = notify.Discard
	}
	return r
}

// Fetch replaces the current slot set with the server's answer for
// (providerUserID, date). The previous result is cleared as soon as the
// request starts. On backend failure the published set is empty and the error
// is returned and reported. A superseded call returns ErrStale and leaves the
// published state alone.
func (r *Resolver) Fetch(ctx context.Context, providerUserID string, date scheduling.CalendarDate) ([]scheduling.TimeSlot, error) {
	providerUserID = strings.TrimSpace(providerUserID)
	if providerUserID == "" || date.IsZero() {
		return nil, ErrInvalidKey
	}
	key := Key{ProviderUserID: providerUserID, Date: date}

	ctx, span := tracer.Start(ctx, "availability.fetch")
	span.SetAttributes(
		attribute.String("barbershop.provider_id", providerUserID),
		attribute.String("barbershop.date", date.String()),
	)
	defer span.End()

	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.generation++
	gen := r.generation
	r.cancel = cancel
	r.key = key
	r.slots = nil
	r.loading = true
	r.err = nil
	r.mu.Unlock()

	slots, err := r.fetcher.DayAvailability(fetchCtx, providerUserID, date)

	r.mu.Lock()
	if gen != r.generation {
		r.mu.Unlock()
		span.SetAttributes(attribute.Bool("barbershop.stale", true))
		if r.observer != nil {
			r.observer.ObserveStale("availability")
		}
		r.logger.Debug("availability: dropping stale response", "provider_id", providerUserID, "date", date.String(), "generation", gen)
		return nil, ErrStale
	}
	r.cancel = nil
	r.loading = false
	if err != nil {
		r.slots = []scheduling.TimeSlot{}
		r.err = err
		r.mu.Unlock()

		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Error("availability: fetch failed", "error", err, "provider_id", providerUserID, "date", date.String())
		r.sink.Notify(ctx, notify.Failure(notify.TopicAvailabilityFailed, r.messages.AvailabilityFailed))
		return []scheduling.TimeSlot{}, fmt.Errorf("availability: fetch: %w", err)
	}
	r.slots = scheduling.DedupeSlots(slots)
	out := append([]scheduling.TimeSlot(nil), r.slots...)
	r.mu.Unlock()

	r.logger.Debug("availability: resolved", "provider_id", providerUserID, "date", date.String(), "slots", len(out))
	return out, nil
}

// Snapshot returns a copy of the published state.
func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		Key:     r.key,
		Slots:   append([]scheduling.TimeSlot(nil), r.slots...),
		Loading: r.loading,
		Err:     r.err,
	}
}

// Lookup finds hour in the resolved set for key. It reports false while the
// key is still loading or when a different key is published.
func (r *Resolver) Lookup(key Key, hour int) (scheduling.TimeSlot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loading || r.key != key {
		return scheduling.TimeSlot{}, false
	}
	return scheduling.FindSlot(r.slots, hour)
}

// Split returns the published slots partitioned into morning and afternoon.
func (r *Resolver) Split() (morning, afternoon []scheduling.SlotView) {
	r.mu.Lock()
	slots := append([]scheduling.TimeSlot(nil), r.slots...)
	r.mu.Unlock()
	return scheduling.SplitSlots(slots)
}

// Reset cancels any in-flight fetch and clears the published state.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.generation++
	r.key = Key{}
	r.slots = nil
	r.loading = false
	r.err = nil
}

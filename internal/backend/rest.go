package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

const defaultTimeout = 15 * time.Second

var backendTracer = otel.Tracer("barbershop.internal.backend")

// RESTClient talks to the scheduling API over JSON/HTTP.
type RESTClient struct {
	httpClient *http.Client
	baseURL    string
	tokens     TokenSource
	observer   Observer
	logger     *logging.Logger
}

// Option customizes a RESTClient.
type Option func(*RESTClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *RESTClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *RESTClient) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithObserver records request outcomes.
func WithObserver(o Observer) Option {
	return func(c *RESTClient) { c.observer = o }
}

// NewRESTClient constructs a client rooted at baseURL.
func NewRESTClient(baseURL string, tokens TokenSource, logger *logging.Logger, opts ...Option) *RESTClient {
	if logger == nil {
		logger = logging.Default()
	}
	c := &RESTClient{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListProviders handles GET providers.
func (c *RESTClient) ListProviders(ctx context.Context) ([]scheduling.Provider, error) {
	var out []providerDTO
	if err := c.doJSON(ctx, "list_providers", http.MethodGet, "/providers", nil, &out); err != nil {
		return nil, err
	}
	providers := make([]scheduling.Provider, 0, len(out))
	for _, p := range out {
		providers = append(providers, p.toProvider())
	}
	return providers, nil
}

// GetProvider handles GET providers/get/{id}.
func (c *RESTClient) GetProvider(ctx context.Context, id string) (*scheduling.Provider, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("backend: get provider: empty id")
	}
	var out providerDTO
	path := "/providers/get/" + url.PathEscape(id)
	if err := c.doJSON(ctx, "get_provider", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	p := out.toProvider()
	return &p, nil
}

// DayAvailability handles GET providers/{userId}/day-availability?year&month&day.
func (c *RESTClient) DayAvailability(ctx context.Context, providerUserID string, date scheduling.CalendarDate) ([]scheduling.TimeSlot, error) {
	if strings.TrimSpace(providerUserID) == "" {
		return nil, fmt.Errorf("backend: day availability: empty provider user id")
	}
	path := fmt.Sprintf("/providers/%s/day-availability?%s", url.PathEscape(providerUserID), dayQuery(date).Encode())

	var out []availabilityDTO
	if err := c.doJSON(ctx, "day_availability", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	slots := make([]scheduling.TimeSlot, 0, len(out))
	for _, s := range out {
		slots = append(slots, scheduling.TimeSlot{Hour: s.Hour, Available: s.Available})
	}
	return slots, nil
}

// OwnSchedule handles GET providers/me?year&month&day. Records with a date or
// status outside the closed set are skipped with a warning.
func (c *RESTClient) OwnSchedule(ctx context.Context, date scheduling.CalendarDate) ([]scheduling.Appointment, error) {
	var raw []json.RawMessage
	path := "/providers/me?" + dayQuery(date).Encode()
	if err := c.doJSON(ctx, "own_schedule", http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	items := make([]scheduling.Appointment, 0, len(raw))
	for i, r := range raw {
		var dto appointmentDTO
		if err := json.Unmarshal(r, &dto); err != nil {
			c.logger.Warn("backend: skipping malformed appointment", "index", i, "error", err)
			continue
		}
		appt, err := dto.toAppointment()
		if err != nil {
			c.logger.Warn("backend: skipping malformed appointment", "index", i, "error", err)
			continue
		}
		items = append(items, appt)
	}
	return items, nil
}

// CreateAppointment handles POST appointments {provider_id, date}.
func (c *RESTClient) CreateAppointment(ctx context.Context, req CreateAppointmentRequest) (*scheduling.Appointment, error) {
	body := createAppointmentBody{
		ProviderID: req.ProviderID,
		Date:       req.Date.Format(time.RFC3339),
	}
	var out appointmentDTO
	if err := c.doJSON(ctx, "create_appointment", http.MethodPost, "/appointments", body, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		// An empty body still means the booking was created.
		return &scheduling.Appointment{Date: req.Date, Status: scheduling.StatusPending, HourLabel: scheduling.HourLabel(req.Date)}, nil
	}
	appt, err := out.toAppointment()
	if err != nil {
		return nil, fmt.Errorf("backend: create appointment: %w", err)
	}
	return &appt, nil
}

// CompleteAppointment handles PUT appointments {appointment_id}.
func (c *RESTClient) CompleteAppointment(ctx context.Context, appointmentID string) error {
	return c.doJSON(ctx, "complete_appointment", http.MethodPut, "/appointments", appointmentIDBody{AppointmentID: appointmentID}, nil)
}

// CancelAppointment handles DELETE appointments {appointment_id}.
func (c *RESTClient) CancelAppointment(ctx context.Context, appointmentID string) error {
	return c.doJSON(ctx, "cancel_appointment", http.MethodDelete, "/appointments", appointmentIDBody{AppointmentID: appointmentID}, nil)
}

func dayQuery(date scheduling.CalendarDate) url.Values {
	q := url.Values{}
	q.Set("year", strconv.Itoa(date.Year))
	q.Set("month", strconv.Itoa(int(date.Month)))
	q.Set("day", strconv.Itoa(date.Day))
	return q
}

func (c *RESTClient) doJSON(ctx context.Context, operation, method, path string, body interface{}, out interface{}) (err error) {
	ctx, span := backendTracer.Start(ctx, "backend."+operation, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("barbershop.backend.path", path),
		))
	start := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
			var se *StatusError
			if errors.As(err, &se) {
				status = strconv.Itoa(se.StatusCode)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		if c.observer != nil {
			c.observer.ObserveBackend(operation, status, time.Since(start))
		}
		span.End()
	}()

	if c.tokens == nil {
		return ErrUnauthenticated
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("backend: %s: %w", operation, err)
	}

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: %s: marshal request: %w", operation, err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("backend: %s: build request: %w", operation, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	span.SetAttributes(attribute.String("barbershop.request_id", requestID))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend: %s: http request: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("backend: %s: read response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("backend request failed",
			"operation", operation,
			"status", resp.StatusCode,
			"request_id", requestID,
		)
		return &StatusError{Operation: operation, StatusCode: resp.StatusCode, Body: msg}
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("backend: %s: unmarshal response: %w", operation, err)
	}
	c.logger.Debug("backend request completed", "operation", operation, "request_id", requestID)
	return nil
}

var _ Client = (*RESTClient)(nil)

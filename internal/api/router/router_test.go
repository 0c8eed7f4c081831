package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/barbershop-scheduler/internal/appointments"
	"github.com/wolfman30/barbershop-scheduler/internal/availability"
	"github.com/wolfman30/barbershop-scheduler/internal/backend/backendtest"
	"github.com/wolfman30/barbershop-scheduler/internal/booking"
	"github.com/wolfman30/barbershop-scheduler/internal/calendar"
	"github.com/wolfman30/barbershop-scheduler/internal/http/handlers"
	"github.com/wolfman30/barbershop-scheduler/internal/notify"
	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/internal/session"
	"github.com/wolfman30/barbershop-scheduler/internal/views"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

var monday = scheduling.NewDate(2024, time.May, 6)

type testApp struct {
	handler  http.Handler
	fake     *backendtest.Fake
	sessions *session.Manager
}

func newTestApp(t *testing.T) testApp {
	t.Helper()
	logger := logging.Discard()
	msgs := notify.Messages("pt-BR")
	clock := func() time.Time { return time.Date(2024, time.May, 6, 8, 0, 0, 0, time.UTC) }

	fake := &backendtest.Fake{Providers: []scheduling.Provider{{ID: "prov-1", SessionUserID: "user-1", Name: "Carlos"}}}
	fake.SetAvailability("user-1", monday, []scheduling.TimeSlot{
		{Hour: 9, Available: true},
		{Hour: 10, Available: false},
		{Hour: 14, Available: true},
	})
	fake.SetSchedule(monday, []scheduling.Appointment{
		{ID: "a1", Date: time.Date(2024, time.May, 6, 9, 0, 0, 0, time.UTC), Status: scheduling.StatusPending},
		{ID: "a2", Date: time.Date(2024, time.May, 6, 15, 0, 0, 0, time.UTC), Status: scheduling.StatusPending},
	})

	recorder := notify.NewRecorder(0)
	sessions := session.NewManager(logger)

	resolver := availability.NewResolver(fake, logger, availability.WithSink(recorder, msgs))
	detail := views.NewProviderDetail(views.ProviderDetailConfig{
		Providers: fake,
		Days:      calendar.NewDaySelection(clock, time.UTC),
		Slots:     resolver,
		Booking:   booking.NewWorkflow(fake, resolver, recorder, msgs, logger, booking.WithLocation(time.UTC)),
		Messages:  msgs,
		Logger:    logger,
	})
	coll := appointments.NewCollection(fake, logger, appointments.WithLocation(time.UTC))
	schedule := views.NewSchedule(views.ScheduleConfig{
		Days:       calendar.NewDaySelection(clock, time.UTC),
		Collection: coll,
		Lifecycle:  appointments.NewController(coll, fake, recorder, msgs, nil, logger),
		Messages:   msgs,
		Logger:     logger,
	})
	sessions.OnSignOut(detail.Reset)
	sessions.OnSignOut(schedule.Reset)

	h := New(&Config{
		Logger:        logger,
		Session:       handlers.NewSessionHandler(sessions, logger),
		SessionGate:   sessions,
		Providers:     handlers.NewProvidersHandler(views.NewDirectory(fake, nil, logger), detail, logger),
		Schedule:      handlers.NewScheduleHandler(schedule, logger),
		Notifications: handlers.NewNotificationsHandler(recorder),
	})
	return testApp{handler: h, fake: fake, sessions: sessions}
}

func (a testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out), rr.Body.String())
	return out
}

func signIn(t *testing.T, a testApp) {
	t.Helper()
	rr := a.do(t, http.MethodPost, "/session", map[string]any{
		"token": "opaque-token",
		"user":  map[string]string{"id": "client-1", "name": "Ana"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestRouterHealthEndpoint(t *testing.T) {
	a := newTestApp(t)
	rr := a.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode(t, rr)["status"])
}

func TestRouterRequiresSession(t *testing.T) {
	a := newTestApp(t)
	for _, path := range []string{"/providers", "/providers/prov-1", "/schedule", "/notifications"} {
		rr := a.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
	}
	assert.Zero(t, len(a.fake.Calls()))

	signIn(t, a)
	rr := a.do(t, http.MethodGet, "/session", nil)
	assert.Equal(t, "established", decode(t, rr)["state"])

	rr = a.do(t, http.MethodDelete, "/session", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = a.do(t, http.MethodGet, "/providers", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouterSessionRejectsMissingToken(t *testing.T) {
	a := newTestApp(t)
	rr := a.do(t, http.MethodPost, "/session", map[string]any{"token": ""})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouterBookingFlow(t *testing.T) {
	a := newTestApp(t)
	signIn(t, a)

	rr := a.do(t, http.MethodGet, "/providers", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["providers"], 1)

	rr = a.do(t, http.MethodGet, "/providers/prov-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode(t, rr)
	assert.Len(t, view["morning"], 2)
	assert.Len(t, view["afternoon"], 1)

	rr = a.do(t, http.MethodPut, "/providers/prov-1/date", map[string]string{"date": "2024-05-11"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr)["accepted"])

	rr = a.do(t, http.MethodPut, "/providers/prov-1/slot", map[string]int{"hour": 10})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr)["accepted"])

	rr = a.do(t, http.MethodPut, "/providers/prov-1/slot", map[string]int{"hour": 9})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode(t, rr)["accepted"])

	rr = a.do(t, http.MethodPost, "/providers/prov-1/appointments", nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = a.do(t, http.MethodPost, "/providers/prov-1/appointments", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr)["accepted"], "nothing selected after a confirmed booking")
	assert.Equal(t, 1, a.fake.CallCount("CreateAppointment"))

	rr = a.do(t, http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode(t, rr)["notifications"].([]any)
	require.Len(t, list, 1)
	assert.Equal(t, "Agendamento realizado!", list[0].(map[string]any)["title"])
}

func TestRouterBookingFailureIsBadGateway(t *testing.T) {
	a := newTestApp(t)
	signIn(t, a)
	a.fake.FailWith("CreateAppointment", backendtest.ErrUnavailable)

	require.Equal(t, http.StatusOK, a.do(t, http.MethodPut, "/providers/prov-1/slot", map[string]int{"hour": 14}).Code)
	rr := a.do(t, http.MethodPost, "/providers/prov-1/appointments", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	rr = a.do(t, http.MethodGet, "/providers/prov-1", nil)
	view := decode(t, rr)
	assert.Equal(t, "failed", view["booking_state"])
	require.NotNil(t, view["selected"])
	assert.Equal(t, float64(14), view["selected"].(map[string]any)["hour"])
}

func TestRouterUnknownProvider(t *testing.T) {
	a := newTestApp(t)
	signIn(t, a)
	rr := a.do(t, http.MethodGet, "/providers/missing", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouterScheduleLifecycle(t *testing.T) {
	a := newTestApp(t)
	signIn(t, a)

	rr := a.do(t, http.MethodGet, "/schedule", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	view := decode(t, rr)
	require.NotNil(t, view["next"])
	assert.Equal(t, "a1", view["next"].(map[string]any)["id"])

	rr = a.do(t, http.MethodPost, "/schedule/appointments/a1/complete", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, decode(t, rr)["accepted"])

	rr = a.do(t, http.MethodPost, "/schedule/appointments/a1/complete", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr)["accepted"], "already completed")

	a.fake.FailWith("CancelAppointment", backendtest.ErrUnavailable)
	rr = a.do(t, http.MethodDelete, "/schedule/appointments/a2", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	rr = a.do(t, http.MethodGet, "/schedule", nil)
	view = decode(t, rr)
	assert.Len(t, view["afternoon"], 1, "failed cancel is rolled back")

	rr = a.do(t, http.MethodDelete, "/schedule/appointments/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = a.do(t, http.MethodPut, "/schedule/month", map[string]string{"month": "2023-01"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr)["accepted"])
}

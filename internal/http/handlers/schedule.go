package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/internal/views"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

// ScheduleHandler serves the client's own schedule.
type ScheduleHandler struct {
	schedule *views.Schedule
	logger   *logging.Logger
}

func NewScheduleHandler(schedule *views.Schedule, logger *logging.Logger) *ScheduleHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ScheduleHandler{schedule: schedule, logger: logger}
}

// Get handles GET /schedule.
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if err := h.schedule.EnsureLoaded(r.Context()); err != nil {
		jsonError(w, "could not load appointments", statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, h.schedule.Snapshot(r.Context()))
}

// SelectDate handles PUT /schedule/date.
func (h *ScheduleHandler) SelectDate(w http.ResponseWriter, r *http.Request) {
	var req DateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	day, err := scheduling.ParseDate(req.Date)
	if err != nil {
		jsonError(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	accepted, err := h.schedule.SelectDate(r.Context(), day)
	if err != nil {
		jsonError(w, "could not load appointments", statusFor(err))
		return
	}
	h.respond(w, r, accepted, "not a business day")
}

// SelectMonth handles PUT /schedule/month.
func (h *ScheduleHandler) SelectMonth(w http.ResponseWriter, r *http.Request) {
	var req MonthRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	m, err := scheduling.ParseMonth(req.Month)
	if err != nil {
		jsonError(w, "month must be YYYY-MM", http.StatusBadRequest)
		return
	}
	got := h.schedule.SelectMonth(m)
	h.respond(w, r, got == m, "month before the current month")
}

// Complete handles POST /schedule/appointments/{appointmentID}/complete.
func (h *ScheduleHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "appointmentID"))
	h.mutate(w, r, h.schedule.Complete(r.Context(), id))
}

// Cancel handles DELETE /schedule/appointments/{appointmentID}.
func (h *ScheduleHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "appointmentID"))
	h.mutate(w, r, h.schedule.Cancel(r.Context(), id))
}

func (h *ScheduleHandler) mutate(w http.ResponseWriter, r *http.Request, err error) {
	if reason, ok := rejection(err); ok {
		h.respond(w, r, false, reason)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	h.respond(w, r, true, "")
}

func (h *ScheduleHandler) respond(w http.ResponseWriter, r *http.Request, accepted bool, reason string) {
	m := Mutation{Accepted: accepted, View: h.schedule.Snapshot(r.Context())}
	if !accepted {
		m.Reason = reason
	}
	writeJSON(w, http.StatusOK, m)
}

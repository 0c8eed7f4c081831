package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/barbershop-scheduler/internal/scheduling"
	"github.com/wolfman30/barbershop-scheduler/internal/views"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

// ProvidersHandler serves the directory and the provider booking screen.
type ProvidersHandler struct {
	directory *views.Directory
	detail    *views.ProviderDetail
	logger    *logging.Logger
}

func NewProvidersHandler(directory *views.Directory, detail *views.ProviderDetail, logger *logging.Logger) *ProvidersHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ProvidersHandler{directory: directory, detail: detail, logger: logger}
}

// DateRequest selects a day ("2006-01-02").
type DateRequest struct {
	Date string `json:"date"`
}

// MonthRequest moves the visible month ("2006-01").
type MonthRequest struct {
	Month string `json:"month"`
}

// SlotRequest selects an hour.
type SlotRequest struct {
	Hour int `json:"hour"`
}

// List handles GET /providers.
func (h *ProvidersHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.directory.List(r.Context())
	if err != nil {
		jsonError(w, "could not list providers", statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": list})
}

// open resolves the provider in the URL, writing the error response itself.
func (h *ProvidersHandler) open(w http.ResponseWriter, r *http.Request) bool {
	id := strings.TrimSpace(chi.URLParam(r, "providerID"))
	if id == "" {
		jsonError(w, "missing provider id", http.StatusBadRequest)
		return false
	}
	if err := h.detail.Open(r.Context(), id); err != nil {
		if _, ok := h.detail.Provider(); !ok {
			jsonError(w, "could not load provider", statusFor(err))
			return false
		}
		// provider resolved but availability failed; the screen shows no slots
		h.logger.Warn("provider opened without availability", "error", err, "provider_id", id)
	}
	return true
}

// Get handles GET /providers/{providerID}.
func (h *ProvidersHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.open(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, h.detail.Snapshot(r.Context()))
}

// SelectDate handles PUT /providers/{providerID}/date.
func (h *ProvidersHandler) SelectDate(w http.ResponseWriter, r *http.Request) {
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
	if !h.open(w, r) {
		return
	}
	accepted, err := h.detail.SelectDate(r.Context(), day)
	if err != nil {
		jsonError(w, "could not load availability", statusFor(err))
		return
	}
	h.respond(w, r, accepted, "not a business day")
}

// SelectMonth handles PUT /providers/{providerID}/month.
func (h *ProvidersHandler) SelectMonth(w http.ResponseWriter, r *http.Request) {
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
	if !h.open(w, r) {
		return
	}
	got := h.detail.SelectMonth(m)
	h.respond(w, r, got == m, "month before the current month")
}

// SelectSlot handles PUT /providers/{providerID}/slot.
func (h *ProvidersHandler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	var req SlotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if !scheduling.ValidHour(req.Hour) {
		jsonError(w, "hour must be between 0 and 23", http.StatusBadRequest)
		return
	}
	if !h.open(w, r) {
		return
	}
	h.respond(w, r, h.detail.SelectSlot(req.Hour), "hour not available")
}

// Book handles POST /providers/{providerID}/appointments.
func (h *ProvidersHandler) Book(w http.ResponseWriter, r *http.Request) {
	if !h.open(w, r) {
		return
	}
	appt, err := h.detail.Submit(r.Context())
	if reason, ok := rejection(err); ok {
		h.respond(w, r, false, reason)
		return
	}
	if err != nil {
		jsonError(w, "could not create appointment", statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"appointment": appt,
		"view":        h.detail.Snapshot(r.Context()),
	})
}

func (h *ProvidersHandler) respond(w http.ResponseWriter, r *http.Request, accepted bool, reason string) {
	m := Mutation{Accepted: accepted, View: h.detail.Snapshot(r.Context())}
	if !accepted {
		m.Reason = reason
	}
	writeJSON(w, http.StatusOK, m)
}

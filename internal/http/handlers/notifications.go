package handlers

import (
	"net/http"

	"github.com/wolfman30/barbershop-scheduler/internal/notify"
)

// NotificationsHandler lets polling clients drain pending toasts.
type NotificationsHandler struct {
	recorder *notify.Recorder
}

func NewNotificationsHandler(recorder *notify.Recorder) *NotificationsHandler {
	return &NotificationsHandler{recorder: recorder}
}

// Drain handles GET /notifications.
func (h *NotificationsHandler) Drain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"notifications": h.recorder.Drain()})
}

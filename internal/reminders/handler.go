package reminders

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amaraspa/scheduling-platform/pkg/logging"
)

// Handler provides the HTTP endpoints for reminder settings and delivery logs.
type Handler struct {
	settings   *SettingsStore
	store      *Store
	dispatcher *Dispatcher
	logger     *logging.Logger
}

// NewHandler creates a reminders HTTP handler. dispatcher may be nil when the
// API runs without an in-process dispatch loop; the manual trigger endpoint
// then returns 503.
func NewHandler(settings *SettingsStore, store *Store, dispatcher *Dispatcher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		settings:   settings,
		store:      store,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Register adds the public reminder routes to a router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/appointments/{appointmentID}/reminders", h.ListForAppointment)
}

// RegisterAdmin adds the reminder admin routes to a router.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/reminder-settings", h.GetSettings)
	r.Put("/reminder-settings/{type}", h.UpdateSetting)
	r.Post("/reminders/dispatch", h.TriggerDispatch)
}

// ListForAppointment returns the delivery history for one appointment.
// GET /appointments/{appointmentID}/reminders
func (h *Handler) ListForAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, `{"error": "invalid appointment id"}`, http.StatusBadRequest)
		return
	}

	logs, err := h.store.LogsForAppointment(r.Context(), id, 0)
	if err != nil {
		h.logger.Error("failed to list reminder logs", "appointment_id", id, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	if logs == nil {
		logs = []SmsLog{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{"appointment_id": id, "reminders": logs}); err != nil {
		h.logger.Error("failed to encode reminder logs", "appointment_id", id, "error", err)
	}
}

// GetSettings returns the reminder rule list.
// GET /admin/reminder-settings
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.List(r.Context())
	if err != nil {
		h.logger.Error("failed to load reminder settings", "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(settings); err != nil {
		h.logger.Error("failed to encode reminder settings", "error", err)
	}
}

// UpdateSettingRequest is the request body for a partial settings update.
type UpdateSettingRequest struct {
	Enabled     *bool   `json:"enabled,omitempty"`
	HoursBefore *int    `json:"hours_before,omitempty"`
	Template    *string `json:"template,omitempty"`
}

// UpdateSetting applies a partial change to one reminder rule.
// PUT /admin/reminder-settings/{type}
func (h *Handler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	reminderType := chi.URLParam(r, "type")

	var req UpdateSettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if req.HoursBefore != nil && *req.HoursBefore <= 0 {
		http.Error(w, `{"error": "hours_before must be positive"}`, http.StatusBadRequest)
		return
	}

	updated, err := h.settings.Update(r.Context(), reminderType, req.Enabled, req.HoursBefore, req.Template)
	if err != nil {
		h.logger.Warn("reminder setting update rejected", "reminder_type", reminderType, "error", err)
		http.Error(w, `{"error": "unknown reminder type"}`, http.StatusNotFound)
		return
	}

	h.logger.Info("reminder setting updated", "reminder_type", reminderType)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(updated); err != nil {
		h.logger.Error("failed to encode reminder settings", "error", err)
	}
}

// TriggerDispatch runs one reminder pass immediately.
// POST /admin/reminders/dispatch
func (h *Handler) TriggerDispatch(w http.ResponseWriter, r *http.Request) {
	if h.dispatcher == nil {
		http.Error(w, `{"error": "dispatcher not running in this process"}`, http.StatusServiceUnavailable)
		return
	}

	sent, err := h.dispatcher.Dispatch(r.Context())
	if err != nil {
		h.logger.Error("manual reminder dispatch failed", "error", err)
		http.Error(w, `{"error": "dispatch failed"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"sent": sent})
}

package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/amaraspa/scheduling-platform/pkg/logging"
)

// Handler provides the HTTP endpoints for availability and bookings.
type Handler struct {
	calculator *Calculator
	booking    *BookingService
	store      *Store
	catalog    *Catalog
	logger     *logging.Logger
}

// NewHandler creates a scheduling HTTP handler.
func NewHandler(calculator *Calculator, booking *BookingService, store *Store, catalog *Catalog, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		calculator: calculator,
		booking:    booking,
		store:      store,
		catalog:    catalog,
		logger:     logger,
	}
}

// Register adds the public booking routes to a router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/providers/{providerID}/slots", h.GetSlots)
	r.Post("/appointments", h.CreateAppointment)
	r.Get("/appointments/{appointmentID}", h.GetAppointment)
	r.Post("/appointments/{appointmentID}/cancel", h.CancelAppointment)
	r.Post("/appointments/{appointmentID}/complete", h.CompleteAppointment)
}

// RegisterAdmin adds the provider availability admin routes to a router.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Put("/providers/{providerID}/availability", h.PutAvailability)
	r.Put("/providers/{providerID}/overrides/{date}", h.PutOverride)
}

// GetSlots returns open start times for a provider on a date.
// GET /providers/{providerID}/slots?date=2024-03-11&services=facial,manicure
func (h *Handler) GetSlots(w http.ResponseWriter, r *http.Request) {
	providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}

	services := splitServices(r.URL.Query().Get("services"))
	duration := h.catalog.TotalDuration(services)
	if len(services) == 0 {
		duration = h.catalog.DurationOf("")
	}

	slots, err := h.calculator.AvailableSlots(r.Context(), providerID, r.URL.Query().Get("date"), duration)
	if err != nil {
		h.respondError(w, r, err, "failed to compute slots")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"provider_id":      providerID,
		"date":             r.URL.Query().Get("date"),
		"duration_minutes": duration,
		"slots":            slots,
	})
}

// CreateAppointmentRequest is the request body for booking an appointment.
type CreateAppointmentRequest struct {
	ProviderID        uuid.UUID `json:"provider_id"`
	ClientID          uuid.UUID `json:"client_id"`
	ClientName        string    `json:"client_name"`
	ClientPhone       string    `json:"client_phone"`
	Services          []string  `json:"services"`
	Date              string    `json:"date"`
	Time              string    `json:"time"`
	Recurrence        string    `json:"recurrence,omitempty"`
	RecurrenceEndDate string    `json:"recurrence_end_date,omitempty"`
}

// CreateAppointment books an appointment.
// POST /appointments
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	recurrence := RecurrenceRule(req.Recurrence)
	if recurrence == "" {
		recurrence = RecurrenceNone
	}
	if recurrence != RecurrenceNone && recurrence != RecurrenceWeekly {
		writeError(w, http.StatusBadRequest, "unsupported recurrence rule")
		return
	}

	result, err := h.booking.CreateAppointment(r.Context(), CreateInput{
		ProviderID:        req.ProviderID,
		ClientID:          req.ClientID,
		ClientName:        req.ClientName,
		ClientPhone:       req.ClientPhone,
		Services:          req.Services,
		Date:              req.Date,
		Time:              req.Time,
		Recurrence:        recurrence,
		RecurrenceEndDate: req.RecurrenceEndDate,
	})
	if err != nil {
		h.respondError(w, r, err, "failed to create appointment")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// GetAppointment returns one appointment with its service lines.
// GET /appointments/{appointmentID}
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	appt, err := h.store.GetAppointment(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err, "failed to load appointment")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// CancelAppointment cancels an appointment, freeing its slot.
// POST /appointments/{appointmentID}/cancel
func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.booking.Cancel, "cancelled")
}

// CompleteAppointment marks an appointment completed.
// POST /appointments/{appointmentID}/complete
func (h *Handler) CompleteAppointment(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.booking.Complete, "completed")
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id uuid.UUID) error, status string) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	if err := apply(r.Context(), id); err != nil {
		h.respondError(w, r, err, "failed to update appointment")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id.String(), "status": status})
}

// PutAvailabilityRequest is the request body for replacing weekly rules.
type PutAvailabilityRequest struct {
	Rules []AvailabilityRule `json:"rules"`
}

// PutAvailability replaces a provider's weekly availability rules.
// PUT /admin/providers/{providerID}/availability
func (h *Handler) PutAvailability(w http.ResponseWriter, r *http.Request) {
	providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}

	var req PutAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	for _, rule := range req.Rules {
		if rule.DayOfWeek < 1 || rule.DayOfWeek > 7 {
			writeError(w, http.StatusBadRequest, "day_of_week must be 1 (Monday) through 7 (Sunday)")
			return
		}
		start, startErr := minutesOfDay(rule.StartTime)
		end, endErr := minutesOfDay(rule.EndTime)
		if startErr != nil || endErr != nil || start >= end {
			writeError(w, http.StatusBadRequest, "rule window must be HH:MM with start before end")
			return
		}
	}

	if _, err := h.store.GetProvider(r.Context(), providerID); err != nil {
		h.respondError(w, r, err, "failed to load provider")
		return
	}
	for i := range req.Rules {
		req.Rules[i].ProviderID = providerID
	}
	if err := h.store.ReplaceWeeklyRules(r.Context(), providerID, req.Rules); err != nil {
		h.respondError(w, r, err, "failed to save availability")
		return
	}

	h.logger.Info("availability rules replaced", "provider_id", providerID, "rules", len(req.Rules))
	writeJSON(w, http.StatusOK, map[string]any{"provider_id": providerID, "rules": req.Rules})
}

// PutOverrideRequest is the request body for a date override.
type PutOverrideRequest struct {
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
	IsAvailable bool   `json:"is_available"`
}

// PutOverride creates or replaces the availability override for one date.
// PUT /admin/providers/{providerID}/overrides/{date}
func (h *Handler) PutOverride(w http.ResponseWriter, r *http.Request) {
	providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}
	date := chi.URLParam(r, "date")
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	var req PutOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.IsAvailable && (req.StartTime != "" || req.EndTime != "") {
		start, startErr := minutesOfDay(req.StartTime)
		end, endErr := minutesOfDay(req.EndTime)
		if startErr != nil || endErr != nil || start >= end {
			writeError(w, http.StatusBadRequest, "override window must be HH:MM with start before end")
			return
		}
	}

	if _, err := h.store.GetProvider(r.Context(), providerID); err != nil {
		h.respondError(w, r, err, "failed to load provider")
		return
	}

	override := &AvailabilityOverride{
		ProviderID:  providerID,
		Date:        date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		IsAvailable: req.IsAvailable,
	}
	if err := h.store.UpsertOverride(r.Context(), override); err != nil {
		h.respondError(w, r, err, "failed to save override")
		return
	}

	h.logger.Info("availability override saved",
		"provider_id", providerID, "date", date, "is_available", req.IsAvailable)
	writeJSON(w, http.StatusOK, override)
}

// respondError maps domain errors onto HTTP statuses; anything unrecognized
// is logged and returned as a 500 without leaking internals.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrSlotConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrProviderNotFound), errors.Is(err, ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidDate), errors.Is(err, ErrInvalidTime),
		errors.Is(err, ErrInvalidProvider), errors.Is(err, ErrNoServices),
		errors.Is(err, ErrInvalidRecurrence):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(logMsg, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func splitServices(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var services []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			services = append(services, s)
		}
	}
	return services
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

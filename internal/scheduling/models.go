package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus tracks the lifecycle of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// RecurrenceRule describes how an appointment repeats.
type RecurrenceRule string

const (
	RecurrenceNone   RecurrenceRule = "none"
	RecurrenceWeekly RecurrenceRule = "weekly"
)

// Provider is a staff member appointments are booked with.
type Provider struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
}

// AvailabilityRule is a provider's recurring weekly working window.
// DayOfWeek uses Monday=1 .. Sunday=7.
type AvailabilityRule struct {
	ProviderID uuid.UUID `json:"provider_id"`
	DayOfWeek  int       `json:"day_of_week"`
	StartTime  string    `json:"start_time"` // "09:00" in 24-hour format
	EndTime    string    `json:"end_time"`   // "17:00" in 24-hour format
}

// AvailabilityOverride replaces the weekly rule for one exact date.
// When IsAvailable is false the provider is closed that date regardless
// of any rule; StartTime/EndTime are ignored.
type AvailabilityOverride struct {
	ProviderID  uuid.UUID `json:"provider_id"`
	Date        string    `json:"date"` // "2006-01-02"
	StartTime   string    `json:"start_time,omitempty"`
	EndTime     string    `json:"end_time,omitempty"`
	IsAvailable bool      `json:"is_available"`
}

// Appointment is one booked (or historical) visit. A weekly recurring
// booking produces one Appointment row per occurrence, each independently
// cancellable.
type Appointment struct {
	ID                uuid.UUID         `json:"id"`
	ProviderID        uuid.UUID         `json:"provider_id"`
	ClientID          uuid.UUID         `json:"client_id"`
	ClientName        string            `json:"client_name"`
	ClientPhone       string            `json:"client_phone"`
	StartsAt          time.Time         `json:"starts_at"`
	DurationMinutes   int               `json:"duration_minutes"`
	Status            AppointmentStatus `json:"status"`
	Recurrence        RecurrenceRule    `json:"recurrence"`
	RecurrenceEndDate *time.Time        `json:"recurrence_end_date,omitempty"`
	Services          []AppointmentItem `json:"services,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// AppointmentItem is one service line of a compound booking, ordered by
// SortOrder. Names may repeat.
type AppointmentItem struct {
	AppointmentID   uuid.UUID `json:"appointment_id"`
	ServiceName     string    `json:"service_name"`
	DurationMinutes int       `json:"duration_minutes"`
	SortOrder       int       `json:"sort_order"`
}

// End returns the exclusive end instant of the appointment interval.
func (a *Appointment) End() time.Time {
	return a.StartsAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// IsActive reports whether the appointment still occupies its slot.
func (a *Appointment) IsActive() bool {
	return a.Status != StatusCancelled
}

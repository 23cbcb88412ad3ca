package reminders

import (
	"time"

	"github.com/google/uuid"
)

// Setting configures one reminder rule: how many hours before the
// appointment it fires and which template it renders. Process-wide
// configuration, mutated by toggling Enabled or changing HoursBefore.
type Setting struct {
	Type        string `json:"type"`
	HoursBefore int    `json:"hours_before"`
	Template    string `json:"template"`
	Enabled     bool   `json:"enabled"`
}

// DefaultSettings is the rule set used until an operator edits it.
func DefaultSettings() []Setting {
	return []Setting{
		{
			Type:        "day_before",
			HoursBefore: 24,
			Template:    "Hi {{name}}, this is a reminder of your {{service}} appointment on {{date}} at {{time}}.",
			Enabled:     true,
		},
		{
			Type:        "same_day",
			HoursBefore: 2,
			Template:    "Hi {{name}}, see you at {{time}} today for your {{service}}.",
			Enabled:     true,
		},
	}
}

// LogStatus is the final outcome of one logical reminder.
type LogStatus string

const (
	LogStatusSent   LogStatus = "sent"
	LogStatusFailed LogStatus = "failed"
)

// SmsLog records one reminder send outcome. Append-only; the
// (AppointmentID, HoursBefore) pair is the dedup key the window selector
// relies on.
type SmsLog struct {
	ID            uuid.UUID  `json:"id"`
	ClientID      uuid.UUID  `json:"client_id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Phone         string     `json:"phone"`
	Message       string     `json:"message"`
	ReminderType  string     `json:"reminder_type"`
	HoursBefore   *int       `json:"hours_before,omitempty"`
	Status        LogStatus  `json:"status"`
	FailureReason string     `json:"failure_reason,omitempty"`
	SentAt        time.Time  `json:"sent_at"`
}

// Candidate is an appointment qualifying for a reminder: inside the lead-time
// window, still active, with a phone on file, not opted out, and not yet
// reminded at this lead time.
type Candidate struct {
	AppointmentID uuid.UUID
	ClientID      uuid.UUID
	ClientName    string
	Phone         string
	Services      string
	StartsAt      time.Time
}

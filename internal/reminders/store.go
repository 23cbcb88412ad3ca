package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store selects reminder candidates and appends delivery log rows.
type Store struct {
	db DB

	// hasOptOut mirrors the deployment capability flag: when the opt-out
	// table is absent every client is treated as reachable.
	hasOptOut bool
}

// NewStore creates a reminders store.
func NewStore(db DB, hasOptOut bool) *Store {
	return &Store{db: db, hasOptOut: hasOptOut}
}

// CandidatesInWindow returns active appointments starting inside [from, to)
// that have a phone on file, are not opted out, and have no sms_logs row for
// this lead time. The NOT EXISTS on sms_logs is the dedup mechanism; it is
// only as safe as the previous tick's log write being visible.
func (s *Store) CandidatesInWindow(ctx context.Context, from, to time.Time, hoursBefore, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT a.id, a.client_id, a.client_name, a.client_phone,
			COALESCE((
				SELECT string_agg(s.service_name, ', ' ORDER BY s.sort_order)
				FROM appointment_services s
				WHERE s.appointment_id = a.id), ''),
			a.starts_at
		FROM appointments a
		WHERE a.status NOT IN ('cancelled', 'completed')
		  AND a.starts_at >= $1 AND a.starts_at < $2
		  AND a.client_phone <> ''
		  AND NOT EXISTS (
			SELECT 1 FROM sms_logs l
			WHERE l.appointment_id = a.id AND l.reminder_hours_before = $3)`
	if s.hasOptOut {
		query += `
		  AND NOT EXISTS (
			SELECT 1 FROM sms_opt_outs o
			WHERE o.phone = a.client_phone)`
	}
	query += `
		ORDER BY a.starts_at ASC
		LIMIT $4`

	rows, err := s.db.Query(ctx, query, from, to, hoursBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("reminders: candidates in window: %w", err)
	}
	defer rows.Close()

	var result []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.AppointmentID, &c.ClientID, &c.ClientName, &c.Phone, &c.Services, &c.StartsAt); err != nil {
			return nil, fmt.Errorf("reminders: scan candidate: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// InsertLog appends one delivery log row — one per logical reminder, not per
// retry attempt.
func (s *Store) InsertLog(ctx context.Context, l *SmsLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.SentAt.IsZero() {
		l.SentAt = time.Now().UTC()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO sms_logs (id, client_id, appointment_id, phone, message, reminder_type, reminder_hours_before, status, failure_reason, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		l.ID, l.ClientID, l.AppointmentID, l.Phone, l.Message,
		l.ReminderType, l.HoursBefore, string(l.Status), l.FailureReason, l.SentAt)
	if err != nil {
		return fmt.Errorf("reminders: insert log: %w", err)
	}
	return nil
}

// LogsForAppointment returns the delivery history for one appointment,
// newest first.
func (s *Store) LogsForAppointment(ctx context.Context, appointmentID uuid.UUID, limit int) ([]SmsLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, client_id, appointment_id, phone, message, reminder_type, reminder_hours_before, status, failure_reason, sent_at
		FROM sms_logs
		WHERE appointment_id = $1
		ORDER BY sent_at DESC
		LIMIT $2`, appointmentID, limit)
	if err != nil {
		return nil, fmt.Errorf("reminders: logs for appointment: %w", err)
	}
	defer rows.Close()

	var result []SmsLog
	for rows.Next() {
		var l SmsLog
		var status string
		if err := rows.Scan(&l.ID, &l.ClientID, &l.AppointmentID, &l.Phone, &l.Message,
			&l.ReminderType, &l.HoursBefore, &status, &l.FailureReason, &l.SentAt); err != nil {
			return nil, fmt.Errorf("reminders: scan log: %w", err)
		}
		l.Status = LogStatus(status)
		result = append(result, l)
	}
	return result, rows.Err()
}

package scheduling

import (
	"context"
	"errors"
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
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store provides persistence for providers, availability and appointments.
type Store struct {
	db DB

	// hasOverrides mirrors the deployment capability flag: when the
	// overrides table is absent the lookup degrades to "no override"
	// instead of erroring.
	hasOverrides bool
}

// NewStore creates a scheduling store.
func NewStore(db DB, hasOverrides bool) *Store {
	return &Store{db: db, hasOverrides: hasOverrides}
}

// GetProvider loads a provider by id. Returns ErrProviderNotFound for
// unknown ids.
func (s *Store) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	var p Provider
	err := s.db.QueryRow(ctx, `
		SELECT id, display_name FROM providers WHERE id = $1`, id).
		Scan(&p.ID, &p.DisplayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: get provider: %w", err)
	}
	return &p, nil
}

// ReplaceWeeklyRules atomically replaces all weekly rules for a provider.
func (s *Store) ReplaceWeeklyRules(ctx context.Context, providerID uuid.UUID, rules []AvailabilityRule) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("scheduling: replace rules: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM availability_rules WHERE provider_id = $1`, providerID); err != nil {
		return fmt.Errorf("scheduling: replace rules: clear: %w", err)
	}
	for _, r := range rules {
		if _, err := tx.Exec(ctx, `
			INSERT INTO availability_rules (provider_id, day_of_week, start_time, end_time)
			VALUES ($1, $2, $3, $4)`,
			providerID, r.DayOfWeek, r.StartTime, r.EndTime); err != nil {
			return fmt.Errorf("scheduling: replace rules: insert day %d: %w", r.DayOfWeek, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("scheduling: replace rules: commit: %w", err)
	}
	return nil
}

// WeeklyRuleFor returns the provider's rule for a weekday (Monday=1..Sunday=7),
// or nil when none is configured.
func (s *Store) WeeklyRuleFor(ctx context.Context, providerID uuid.UUID, dayOfWeek int) (*AvailabilityRule, error) {
	var r AvailabilityRule
	err := s.db.QueryRow(ctx, `
		SELECT provider_id, day_of_week, start_time, end_time
		FROM availability_rules
		WHERE provider_id = $1 AND day_of_week = $2`, providerID, dayOfWeek).
		Scan(&r.ProviderID, &r.DayOfWeek, &r.StartTime, &r.EndTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: weekly rule: %w", err)
	}
	return &r, nil
}

// OverrideFor returns the date-specific override, or nil when none exists.
// Date is the clinic-local calendar date in YYYY-MM-DD form.
func (s *Store) OverrideFor(ctx context.Context, providerID uuid.UUID, date string) (*AvailabilityOverride, error) {
	if !s.hasOverrides {
		return nil, nil
	}
	var o AvailabilityOverride
	err := s.db.QueryRow(ctx, `
		SELECT provider_id, override_date, start_time, end_time, is_available
		FROM availability_overrides
		WHERE provider_id = $1 AND override_date = $2`, providerID, date).
		Scan(&o.ProviderID, &o.Date, &o.StartTime, &o.EndTime, &o.IsAvailable)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scheduling: override: %w", err)
	}
	return &o, nil
}

// UpsertOverride creates or replaces the override for one exact date.
func (s *Store) UpsertOverride(ctx context.Context, o *AvailabilityOverride) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO availability_overrides (provider_id, override_date, start_time, end_time, is_available)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (provider_id, override_date)
		DO UPDATE SET start_time = $3, end_time = $4, is_available = $5`,
		o.ProviderID, o.Date, o.StartTime, o.EndTime, o.IsAvailable)
	if err != nil {
		return fmt.Errorf("scheduling: upsert override: %w", err)
	}
	return nil
}

// ActiveAppointmentsBetween returns non-cancelled appointments for a provider
// starting within [from, to).
func (s *Store) ActiveAppointmentsBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, provider_id, client_id, client_name, client_phone, starts_at, duration_minutes, status, recurrence, recurrence_end_date, created_at, updated_at
		FROM appointments
		WHERE provider_id = $1 AND status <> 'cancelled' AND starts_at >= $2 AND starts_at < $3
		ORDER BY starts_at ASC`, providerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("scheduling: appointments between: %w", err)
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// CreateAppointment inserts an appointment and its ordered service rows in
// one transaction. The write is all-or-nothing for the single occurrence.
func (s *Store) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.Recurrence == "" {
		a.Recurrence = RecurrenceNone
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("scheduling: create appointment: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO appointments (id, provider_id, client_id, client_name, client_phone, starts_at, duration_minutes, status, recurrence, recurrence_end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.ProviderID, a.ClientID, a.ClientName, a.ClientPhone,
		a.StartsAt, a.DurationMinutes, string(a.Status), string(a.Recurrence),
		a.RecurrenceEndDate, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("scheduling: create appointment: %w", err)
	}

	for _, item := range a.Services {
		if _, err := tx.Exec(ctx, `
			INSERT INTO appointment_services (appointment_id, service_name, duration_minutes, sort_order)
			VALUES ($1, $2, $3, $4)`,
			a.ID, item.ServiceName, item.DurationMinutes, item.SortOrder); err != nil {
			return fmt.Errorf("scheduling: create appointment service %q: %w", item.ServiceName, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("scheduling: create appointment: commit: %w", err)
	}
	return nil
}

// GetAppointment loads an appointment with its service lines.
func (s *Store) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, provider_id, client_id, client_name, client_phone, starts_at, duration_minutes, status, recurrence, recurrence_end_date, created_at, updated_at
		FROM appointments
		WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("scheduling: get appointment: %w", err)
	}
	defer rows.Close()
	appts, err := scanAppointments(rows)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return nil, ErrAppointmentNotFound
	}
	appt := &appts[0]

	itemRows, err := s.db.Query(ctx, `
		SELECT appointment_id, service_name, duration_minutes, sort_order
		FROM appointment_services
		WHERE appointment_id = $1
		ORDER BY sort_order ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("scheduling: get appointment services: %w", err)
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var item AppointmentItem
		if err := itemRows.Scan(&item.AppointmentID, &item.ServiceName, &item.DurationMinutes, &item.SortOrder); err != nil {
			return nil, fmt.Errorf("scheduling: scan appointment service: %w", err)
		}
		appt.Services = append(appt.Services, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("scheduling: get appointment services: %w", err)
	}
	return appt, nil
}

// UpdateStatus transitions an appointment to the target status. Cancellation
// and completion mutate status only, never the time window.
func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE appointments SET status = $1, updated_at = $2
		WHERE id = $3 AND status IN ('pending', 'confirmed')`,
		string(to), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("scheduling: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func scanAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		var a Appointment
		var status, recurrence string
		err := rows.Scan(
			&a.ID, &a.ProviderID, &a.ClientID, &a.ClientName, &a.ClientPhone,
			&a.StartsAt, &a.DurationMinutes, &status, &recurrence,
			&a.RecurrenceEndDate, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scheduling: scan appointment: %w", err)
		}
		a.Status = AppointmentStatus(status)
		a.Recurrence = RecurrenceRule(recurrence)
		result = append(result, a)
	}
	return result, rows.Err()
}

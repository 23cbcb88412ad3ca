package scheduling

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/amaraspa/scheduling-platform/internal/observability/metrics"
	"github.com/amaraspa/scheduling-platform/pkg/logging"
)

var bookingTracer = otel.Tracer("amaraspa.internal.scheduling")

// BookingStore is the subset of the store the booking service writes through.
type BookingStore interface {
	GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error)
	ActiveAppointmentsBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error)
	CreateAppointment(ctx context.Context, a *Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to AppointmentStatus) error
}

// BookingService validates and creates appointments.
type BookingService struct {
	store   BookingStore
	catalog *Catalog
	loc     *time.Location
	logger  *logging.Logger
	metrics *metrics.SchedulerMetrics

	// Per-provider locks serialize the conflict-check-then-write sequence
	// so two concurrent requests for the same slot cannot both pass the
	// overlap query.
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewBookingService creates a booking service.
func NewBookingService(store BookingStore, catalog *Catalog, loc *time.Location, m *metrics.SchedulerMetrics, logger *logging.Logger) *BookingService {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &BookingService{
		store:   store,
		catalog: catalog,
		loc:     loc,
		logger:  logger,
		metrics: m,
		locks:   make(map[uuid.UUID]*sync.Mutex),
	}
}

// CreateInput describes a requested booking.
type CreateInput struct {
	ProviderID        uuid.UUID
	ClientID          uuid.UUID
	ClientName        string
	ClientPhone       string
	Services          []string
	Date              string // "2006-01-02", clinic-local
	Time              string // "15:04"
	Recurrence        RecurrenceRule
	RecurrenceEndDate string // required when Recurrence is weekly
}

// CreateResult reports what a booking request produced.
type CreateResult struct {
	First *Appointment `json:"appointment"`
	// Created counts persisted occurrences, including the first.
	Created int `json:"created"`
	// SkippedDates lists recurrence occurrences dropped because their slot
	// was already taken.
	SkippedDates []string `json:"skipped_dates,omitempty"`
}

// CreateAppointment validates the requested slot and persists one
// appointment per occurrence. The first occurrence must be conflict-free;
// later weekly occurrences are checked too and skipped (not failed) when
// their slot is taken. Later occurrences are best-effort: a write failure
// does not roll back earlier ones.
func (s *BookingService) CreateAppointment(ctx context.Context, input CreateInput) (*CreateResult, error) {
	ctx, span := bookingTracer.Start(ctx, "scheduling.create_appointment")
	defer span.End()
	span.SetAttributes(
		attribute.String("amaraspa.provider_id", input.ProviderID.String()),
		attribute.Int("amaraspa.service_count", len(input.Services)),
	)

	first, occurrences, err := s.validate(ctx, input)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	duration := s.catalog.TotalDuration(input.Services)
	items := make([]AppointmentItem, 0, len(input.Services))
	for i, name := range input.Services {
		items = append(items, AppointmentItem{
			ServiceName:     name,
			DurationMinutes: s.catalog.DurationOf(name),
			SortOrder:       i,
		})
	}

	lock := s.providerLock(input.ProviderID)
	lock.Lock()
	defer lock.Unlock()

	result := &CreateResult{}
	for i, startsAt := range occurrences {
		conflicted, err := s.hasConflict(ctx, input.ProviderID, startsAt, duration)
		if err != nil {
			if i == 0 {
				span.RecordError(err)
				return nil, err
			}
			s.logger.Error("booking: occurrence conflict check failed, skipping",
				"provider_id", input.ProviderID, "starts_at", startsAt, "error", err)
			result.SkippedDates = append(result.SkippedDates, startsAt.Format(time.DateOnly))
			continue
		}
		if conflicted {
			if i == 0 {
				s.metrics.ObserveConflict()
				return nil, ErrSlotConflict
			}
			s.logger.Info("booking: recurrence occurrence skipped, slot taken",
				"provider_id", input.ProviderID, "starts_at", startsAt)
			result.SkippedDates = append(result.SkippedDates, startsAt.Format(time.DateOnly))
			continue
		}

		appt := &Appointment{
			ProviderID:      input.ProviderID,
			ClientID:        input.ClientID,
			ClientName:      input.ClientName,
			ClientPhone:     input.ClientPhone,
			StartsAt:        startsAt,
			DurationMinutes: duration,
			Status:          StatusConfirmed,
			Recurrence:      input.Recurrence,
			Services:        append([]AppointmentItem(nil), items...),
		}
		if input.Recurrence == RecurrenceWeekly {
			end := first.AddDate(0, 0, 7*(len(occurrences)-1))
			appt.RecurrenceEndDate = &end
		}
		if err := s.store.CreateAppointment(ctx, appt); err != nil {
			if i == 0 {
				span.RecordError(err)
				return nil, err
			}
			s.logger.Error("booking: failed to persist occurrence",
				"provider_id", input.ProviderID, "starts_at", startsAt, "error", err)
			result.SkippedDates = append(result.SkippedDates, startsAt.Format(time.DateOnly))
			continue
		}
		if result.First == nil {
			result.First = appt
		}
		result.Created++
	}

	s.metrics.ObserveBookingCreated(string(input.Recurrence), result.Created)
	s.logger.Info("booking: appointment created",
		"appointment_id", result.First.ID,
		"provider_id", input.ProviderID,
		"occurrences", result.Created,
		"duration_minutes", duration,
	)
	return result, nil
}

// Cancel marks an appointment cancelled, freeing its slot.
func (s *BookingService) Cancel(ctx context.Context, id uuid.UUID) error {
	if err := s.store.UpdateStatus(ctx, id, StatusCancelled); err != nil {
		return err
	}
	s.logger.Info("booking: appointment cancelled", "appointment_id", id)
	return nil
}

// Complete marks an appointment completed.
func (s *BookingService) Complete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.UpdateStatus(ctx, id, StatusCompleted); err != nil {
		return err
	}
	s.logger.Info("booking: appointment completed", "appointment_id", id)
	return nil
}

// validate checks the input shape and expands recurrence into the concrete
// occurrence start instants. All checks run before any write.
func (s *BookingService) validate(ctx context.Context, input CreateInput) (time.Time, []time.Time, error) {
	if input.ProviderID == uuid.Nil {
		return time.Time{}, nil, ErrInvalidProvider
	}
	if len(input.Services) == 0 {
		return time.Time{}, nil, ErrNoServices
	}
	day, err := time.ParseInLocation(time.DateOnly, input.Date, s.loc)
	if err != nil {
		return time.Time{}, nil, ErrInvalidDate
	}
	startMin, err := minutesOfDay(input.Time)
	if err != nil {
		return time.Time{}, nil, err
	}
	first := day.Add(time.Duration(startMin) * time.Minute)

	if _, err := s.store.GetProvider(ctx, input.ProviderID); err != nil {
		return time.Time{}, nil, err
	}

	occurrences := []time.Time{first}
	if input.Recurrence == RecurrenceWeekly {
		endDay, err := time.ParseInLocation(time.DateOnly, input.RecurrenceEndDate, s.loc)
		if err != nil || endDay.Before(day) {
			return time.Time{}, nil, ErrInvalidRecurrence
		}
		for next := first.AddDate(0, 0, 7); !next.After(endDay.Add(time.Duration(startMin) * time.Minute)); next = next.AddDate(0, 0, 7) {
			occurrences = append(occurrences, next)
		}
	}
	return first, occurrences, nil
}

// hasConflict applies the half-open overlap test against the provider's
// non-cancelled appointments on the same clinic-local calendar date.
func (s *BookingService) hasConflict(ctx context.Context, providerID uuid.UUID, startsAt time.Time, durationMinutes int) (bool, error) {
	local := startsAt.In(s.loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	existing, err := s.store.ActiveAppointmentsBetween(ctx, providerID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return false, err
	}
	end := startsAt.Add(time.Duration(durationMinutes) * time.Minute)
	for i := range existing {
		e := &existing[i]
		if startsAt.Before(e.End()) && e.StartsAt.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

func (s *BookingService) providerLock(id uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

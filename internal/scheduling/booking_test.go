package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBookingService(store *fakeSchedStore) *BookingService {
	return NewBookingService(store, NewCatalog("", 60, nil), time.UTC, nil, nil)
}

func simpleInput(providerID uuid.UUID) CreateInput {
	return CreateInput{
		ProviderID:  providerID,
		ClientID:    uuid.New(),
		ClientName:  "Amina",
		ClientPhone: "0911234567",
		Services:    []string{"Facial"},
		Date:        testDate,
		Time:        "10:00",
		Recurrence:  RecurrenceNone,
	}
}

func TestCreateAppointment(t *testing.T) {
	store := newFakeStore()
	svc := newTestBookingService(store)

	result, err := svc.CreateAppointment(context.Background(), simpleInput(store.provider.ID))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Empty(t, result.SkippedDates)
	require.NotNil(t, result.First)
	assert.Equal(t, StatusConfirmed, result.First.Status)
	assert.Equal(t, 60, result.First.DurationMinutes)
	assert.Equal(t, time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC), result.First.StartsAt)
	require.Len(t, result.First.Services, 1)
	assert.Equal(t, "Facial", result.First.Services[0].ServiceName)
}

func TestCreateAppointmentMultiServiceDuration(t *testing.T) {
	store := newFakeStore()
	svc := newTestBookingService(store)

	input := simpleInput(store.provider.ID)
	input.Services = []string{"Facial", "Deep Tissue"}

	result, err := svc.CreateAppointment(context.Background(), input)
	require.NoError(t, err)

	// 60 + 90 booked as one contiguous block.
	assert.Equal(t, 150, result.First.DurationMinutes)
	require.Len(t, result.First.Services, 2)
	assert.Equal(t, 0, result.First.Services[0].SortOrder)
	assert.Equal(t, 1, result.First.Services[1].SortOrder)
}

func TestCreateAppointmentSlotConflict(t *testing.T) {
	store := newFakeStore()
	store.bookedAt(store.provider.ID, time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC), 60)
	svc := newTestBookingService(store)

	_, err := svc.CreateAppointment(context.Background(), simpleInput(store.provider.ID))
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestCreateAppointmentPartialOverlapConflicts(t *testing.T) {
	store := newFakeStore()
	store.bookedAt(store.provider.ID, time.Date(2024, 3, 11, 10, 30, 0, 0, time.UTC), 60)
	svc := newTestBookingService(store)

	_, err := svc.CreateAppointment(context.Background(), simpleInput(store.provider.ID))
	assert.ErrorIs(t, err, ErrSlotConflict)
}

func TestCreateAppointmentBackToBackAllowed(t *testing.T) {
	store := newFakeStore()
	store.bookedAt(store.provider.ID, time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC), 60)
	svc := newTestBookingService(store)

	result, err := svc.CreateAppointment(context.Background(), simpleInput(store.provider.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
}

func TestCreateAppointmentCancelledSlotReusable(t *testing.T) {
	store := newFakeStore()
	store.existing = append(store.existing, Appointment{
		ID:              uuid.New(),
		ProviderID:      store.provider.ID,
		StartsAt:        time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          StatusCancelled,
	})
	svc := newTestBookingService(store)

	result, err := svc.CreateAppointment(context.Background(), simpleInput(store.provider.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
}

func TestCreateAppointmentWeeklyRecurrence(t *testing.T) {
	store := newFakeStore()
	svc := newTestBookingService(store)

	input := simpleInput(store.provider.ID)
	input.Date = "2024-01-01"
	input.Recurrence = RecurrenceWeekly
	input.RecurrenceEndDate = "2024-01-22"

	result, err := svc.CreateAppointment(context.Background(), input)
	require.NoError(t, err)

	// Jan 1, 8, 15 and 22.
	assert.Equal(t, 4, result.Created)
	assert.Empty(t, result.SkippedDates)
	require.NotNil(t, result.First)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), result.First.StartsAt)
	require.NotNil(t, result.First.RecurrenceEndDate)
	assert.Equal(t, time.Date(2024, 1, 22, 10, 0, 0, 0, time.UTC), *result.First.RecurrenceEndDate)
}

func TestCreateAppointmentWeeklySkipsTakenOccurrence(t *testing.T) {
	store := newFakeStore()
	store.bookedAt(store.provider.ID, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), 60)
	svc := newTestBookingService(store)

	input := simpleInput(store.provider.ID)
	input.Date = "2024-01-01"
	input.Recurrence = RecurrenceWeekly
	input.RecurrenceEndDate = "2024-01-22"

	result, err := svc.CreateAppointment(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Created)
	assert.Equal(t, []string{"2024-01-15"}, result.SkippedDates)
}

func TestCreateAppointmentWeeklyFirstOccurrenceConflictFails(t *testing.T) {
	store := newFakeStore()
	store.bookedAt(store.provider.ID, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), 60)
	svc := newTestBookingService(store)

	input := simpleInput(store.provider.ID)
	input.Date = "2024-01-01"
	input.Recurrence = RecurrenceWeekly
	input.RecurrenceEndDate = "2024-01-22"

	_, err := svc.CreateAppointment(context.Background(), input)
	assert.ErrorIs(t, err, ErrSlotConflict)
	// Nothing was written.
	assert.Len(t, store.existing, 1)
}

func TestCreateAppointmentWeeklyEndDateRequired(t *testing.T) {
	store := newFakeStore()
	svc := newTestBookingService(store)

	input := simpleInput(store.provider.ID)
	input.Recurrence = RecurrenceWeekly

	_, err := svc.CreateAppointment(context.Background(), input)
	assert.ErrorIs(t, err, ErrInvalidRecurrence)

	input.RecurrenceEndDate = "2024-03-01" // before the first occurrence
	_, err = svc.CreateAppointment(context.Background(), input)
	assert.ErrorIs(t, err, ErrInvalidRecurrence)
}

func TestCreateAppointmentValidation(t *testing.T) {
	store := newFakeStore()
	svc := newTestBookingService(store)
	ctx := context.Background()

	input := simpleInput(store.provider.ID)
	input.Services = nil
	_, err := svc.CreateAppointment(ctx, input)
	assert.ErrorIs(t, err, ErrNoServices)

	input = simpleInput(store.provider.ID)
	input.Date = "not-a-date"
	_, err = svc.CreateAppointment(ctx, input)
	assert.ErrorIs(t, err, ErrInvalidDate)

	input = simpleInput(store.provider.ID)
	input.Time = "25:00"
	_, err = svc.CreateAppointment(ctx, input)
	assert.ErrorIs(t, err, ErrInvalidTime)

	input = simpleInput(uuid.New())
	_, err = svc.CreateAppointment(ctx, input)
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestCancelAndComplete(t *testing.T) {
	store := newFakeStore()
	svc := newTestBookingService(store)
	ctx := context.Background()

	result, err := svc.CreateAppointment(ctx, simpleInput(store.provider.ID))
	require.NoError(t, err)

	require.NoError(t, svc.Cancel(ctx, result.First.ID))
	assert.Equal(t, StatusCancelled, store.statuses[result.First.ID])

	// A cancelled appointment cannot transition again.
	assert.ErrorIs(t, svc.Complete(ctx, result.First.ID), ErrAppointmentNotFound)

	assert.ErrorIs(t, svc.Cancel(ctx, uuid.New()), ErrAppointmentNotFound)
}

func TestConcurrentBookingsSameSlot(t *testing.T) {
	store := newFakeStore()
	svc := newTestBookingService(store)

	const attempts = 8
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := svc.CreateAppointment(context.Background(), simpleInput(store.provider.ID))
			errs <- err
		}()
	}

	succeeded := 0
	for i := 0; i < attempts; i++ {
		if err := <-errs; err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrSlotConflict)
		}
	}
	assert.Equal(t, 1, succeeded)
}

package scheduling

import "errors"

var (
	// ErrInvalidDate is returned when a date is not in YYYY-MM-DD form
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")

	// ErrInvalidTime is returned when a time of day is not in HH:MM form
	ErrInvalidTime = errors.New("invalid time, expected HH:MM")

	// ErrInvalidProvider is returned when the provider id is missing or malformed
	ErrInvalidProvider = errors.New("provider id is required")

	// ErrProviderNotFound is returned when the provider does not exist
	ErrProviderNotFound = errors.New("provider not found")

	// ErrAppointmentNotFound is returned when an appointment does not exist
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrNoServices is returned when a booking names no services
	ErrNoServices = errors.New("at least one service is required")

	// ErrSlotConflict is returned when the requested time overlaps an existing booking
	ErrSlotConflict = errors.New("the requested time conflicts with an existing appointment")

	// ErrInvalidRecurrence is returned when a weekly recurrence has no usable end date
	ErrInvalidRecurrence = errors.New("weekly recurrence requires an end date on or after the first occurrence")
)

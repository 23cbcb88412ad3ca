package scheduling

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/amaraspa/scheduling-platform/pkg/logging"
)

// AvailabilityStore is the subset of the store the calculator reads from.
type AvailabilityStore interface {
	GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error)
	WeeklyRuleFor(ctx context.Context, providerID uuid.UUID, dayOfWeek int) (*AvailabilityRule, error)
	OverrideFor(ctx context.Context, providerID uuid.UUID, date string) (*AvailabilityOverride, error)
	ActiveAppointmentsBetween(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error)
}

// Calculator produces valid appointment start times for a provider and date.
type Calculator struct {
	store       AvailabilityStore
	loc         *time.Location
	granularity int    // slot step in minutes
	dayStart    string // default window when no weekly rule exists
	dayEnd      string
	logger      *logging.Logger
}

// NewCalculator creates an availability calculator.
func NewCalculator(store AvailabilityStore, loc *time.Location, granularityMinutes int, dayStart, dayEnd string, logger *logging.Logger) *Calculator {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	if granularityMinutes <= 0 {
		granularityMinutes = 15
	}
	if dayStart == "" {
		dayStart = "09:00"
	}
	if dayEnd == "" {
		dayEnd = "17:00"
	}
	return &Calculator{
		store:       store,
		loc:         loc,
		granularity: granularityMinutes,
		dayStart:    dayStart,
		dayEnd:      dayEnd,
		logger:      logger,
	}
}

// AvailableSlots returns the ordered "HH:MM" start times on the given date at
// which a booking of the requested duration fits the provider's working
// window without overlapping any non-cancelled appointment.
func (c *Calculator) AvailableSlots(ctx context.Context, providerID uuid.UUID, date string, durationMinutes int) ([]string, error) {
	if providerID == uuid.Nil {
		return nil, ErrInvalidProvider
	}
	day, err := time.ParseInLocation(time.DateOnly, date, c.loc)
	if err != nil {
		return nil, ErrInvalidDate
	}
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidTime)
	}
	if _, err := c.store.GetProvider(ctx, providerID); err != nil {
		return nil, err
	}

	windowStart, windowEnd, closed, err := c.workingWindow(ctx, providerID, day, date)
	if err != nil {
		return nil, err
	}
	if closed {
		return []string{}, nil
	}

	occupied, err := c.occupiedIntervals(ctx, providerID, day)
	if err != nil {
		return nil, err
	}

	slots := []string{}
	for t := windowStart; t+durationMinutes <= windowEnd; t += c.granularity {
		if overlapsAny(t, t+durationMinutes, occupied) {
			continue
		}
		slots = append(slots, formatMinutes(t))
	}
	return slots, nil
}

// workingWindow resolves the provider's [start, end) window in minutes since
// midnight, applying the weekly rule, the default business-hours fallback,
// and any date override. closed=true means the day is fully unavailable.
func (c *Calculator) workingWindow(ctx context.Context, providerID uuid.UUID, day time.Time, date string) (start, end int, closed bool, err error) {
	startStr, endStr := c.dayStart, c.dayEnd

	rule, err := c.store.WeeklyRuleFor(ctx, providerID, dayOfWeek(day))
	if err != nil {
		return 0, 0, false, err
	}
	if rule != nil {
		startStr, endStr = rule.StartTime, rule.EndTime
	}

	override, err := c.store.OverrideFor(ctx, providerID, date)
	if err != nil {
		return 0, 0, false, err
	}
	if override != nil {
		if !override.IsAvailable {
			return 0, 0, true, nil
		}
		if override.StartTime != "" {
			startStr = override.StartTime
		}
		if override.EndTime != "" {
			endStr = override.EndTime
		}
	}

	start, startErr := minutesOfDay(startStr)
	end, endErr := minutesOfDay(endStr)
	if startErr != nil || endErr != nil {
		// A malformed stored window degrades to the default rather than
		// failing the whole request.
		c.logger.Warn("availability: malformed working window, using default",
			"provider_id", providerID, "start", startStr, "end", endStr)
		start, _ = minutesOfDay(c.dayStart)
		end, _ = minutesOfDay(c.dayEnd)
	}
	return start, end, false, nil
}

// occupiedIntervals maps the provider's non-cancelled appointments on the
// given clinic-local day into [start, end) minute intervals.
func (c *Calculator) occupiedIntervals(ctx context.Context, providerID uuid.UUID, day time.Time) ([][2]int, error) {
	from := day
	to := day.AddDate(0, 0, 1)
	appointments, err := c.store.ActiveAppointmentsBetween(ctx, providerID, from, to)
	if err != nil {
		return nil, err
	}
	intervals := make([][2]int, 0, len(appointments))
	for _, a := range appointments {
		startMin := int(a.StartsAt.In(c.loc).Sub(day).Minutes())
		intervals = append(intervals, [2]int{startMin, startMin + a.DurationMinutes})
	}
	return intervals, nil
}

// overlapsAny applies the half-open interval test: [start,end) overlaps
// [b0,b1) iff start < b1 && b0 < end. Back-to-back bookings do not overlap.
func overlapsAny(start, end int, busy [][2]int) bool {
	for _, b := range busy {
		if start < b[1] && b[0] < end {
			return true
		}
	}
	return false
}

// dayOfWeek folds Go's Sunday=0 into the Monday=1..Sunday=7 convention.
func dayOfWeek(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// minutesOfDay parses "HH:MM" into minutes since midnight.
func minutesOfDay(hhmm string) (int, error) {
	parts := strings.SplitN(strings.TrimSpace(hhmm), ":", 2)
	if len(parts) != 2 {
		return 0, ErrInvalidTime
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, ErrInvalidTime
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, ErrInvalidTime
	}
	return hour*60 + minute, nil
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

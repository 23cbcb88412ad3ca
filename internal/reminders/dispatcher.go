package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/amaraspa/scheduling-platform/internal/observability/metrics"
	"github.com/amaraspa/scheduling-platform/internal/sms"
	"github.com/amaraspa/scheduling-platform/pkg/logging"
)

// windowTolerance is the ± band around the exact lead time. Sized to the
// expected scheduler tick interval so each appointment falls inside exactly
// one tick's window per rule.
const windowTolerance = 30 * time.Minute

type settingsSource interface {
	List(ctx context.Context) ([]Setting, error)
}

type candidateStore interface {
	CandidatesInWindow(ctx context.Context, from, to time.Time, hoursBefore, limit int) ([]Candidate, error)
	InsertLog(ctx context.Context, l *SmsLog) error
}

type messageSender interface {
	Send(ctx context.Context, phone, body string) sms.Outcome
}

// Dispatcher turns upcoming appointments into SMS reminders. One Dispatch
// call is one scheduler tick: settings are processed sequentially, and within
// a setting candidates are processed sequentially, so a slow send delays but
// never corrupts the rest of the pass. Delivery is best-effort-once — the
// sms_logs dedup row written here is what keeps the next tick from
// re-notifying.
type Dispatcher struct {
	settings   settingsSource
	store      candidateStore
	sender     messageSender
	loc        *time.Location
	logger     *logging.Logger
	metrics    *metrics.ReminderMetrics
	batchLimit int
	interval   time.Duration
	now        func() time.Time
}

// NewDispatcher creates a reminder dispatcher.
func NewDispatcher(settings settingsSource, store candidateStore, sender messageSender, loc *time.Location, m *metrics.ReminderMetrics, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{
		settings:   settings,
		store:      store,
		sender:     sender,
		loc:        loc,
		logger:     logger,
		metrics:    m,
		batchLimit: 100,
		interval:   15 * time.Minute,
		now:        time.Now,
	}
}

func (d *Dispatcher) WithBatchLimit(n int) *Dispatcher {
	if n > 0 {
		d.batchLimit = n
	}
	return d
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// WithClock overrides the time source for tests.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	if now != nil {
		d.now = now
	}
	return d
}

// Run invokes Dispatch on the configured interval until the context is done.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	d.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

func (d *Dispatcher) tick(ctx context.Context) {
	sent, err := d.Dispatch(ctx)
	if err != nil {
		d.logger.Error("reminders: dispatch failed", "error", err)
		return
	}
	if sent > 0 {
		d.logger.Info("reminders: dispatch complete", "sent", sent)
	}
}

// Dispatch runs one reminder pass and returns how many reminders were sent.
// Send failures are recorded in the delivery log, never surfaced to the
// caller; a log-write failure is reported but does not abort the pass.
func (d *Dispatcher) Dispatch(ctx context.Context) (int, error) {
	started := d.now()
	defer func() {
		d.metrics.ObserveDispatchDuration(d.now().Sub(started).Seconds())
	}()

	settings, err := d.settings.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("reminders: list settings: %w", err)
	}

	now := started.UTC()
	sent := 0
	for _, setting := range settings {
		if !setting.Enabled || setting.HoursBefore <= 0 {
			continue
		}
		lead := time.Duration(setting.HoursBefore) * time.Hour
		from := now.Add(lead - windowTolerance)
		to := now.Add(lead + windowTolerance)

		candidates, err := d.store.CandidatesInWindow(ctx, from, to, setting.HoursBefore, d.batchLimit)
		if err != nil {
			d.logger.Error("reminders: candidate query failed",
				"reminder_type", setting.Type, "error", err)
			continue
		}
		for i := range candidates {
			if d.remind(ctx, &setting, &candidates[i]) {
				sent++
			}
		}
	}
	return sent, nil
}

// remind renders, sends and logs one reminder. Returns true when the send
// succeeded.
func (d *Dispatcher) remind(ctx context.Context, setting *Setting, c *Candidate) bool {
	local := c.StartsAt.In(d.loc)
	message := RenderTemplate(setting.Template, map[string]string{
		"name":    c.ClientName,
		"service": c.Services,
		"date":    local.Format("Monday, January 2"),
		"time":    local.Format("15:04"),
	})

	outcome := d.sender.Send(ctx, c.Phone, message)

	hours := setting.HoursBefore
	apptID := c.AppointmentID
	log := &SmsLog{
		ClientID:      c.ClientID,
		AppointmentID: &apptID,
		Phone:         c.Phone,
		Message:       message,
		ReminderType:  setting.Type,
		HoursBefore:   &hours,
		Status:        LogStatusSent,
	}
	if !outcome.Sent {
		log.Status = LogStatusFailed
		log.FailureReason = outcome.Reason
	}

	if err := d.store.InsertLog(ctx, log); err != nil {
		// The send already happened; losing the log row risks a duplicate
		// next tick but must not abort the rest of the pass.
		d.logger.Error("reminders: failed to record delivery log",
			"appointment_id", c.AppointmentID, "reminder_type", setting.Type, "error", err)
	}

	d.metrics.ObserveReminder(string(log.Status))
	if outcome.Sent {
		d.logger.Info("reminders: reminder sent",
			"appointment_id", c.AppointmentID,
			"reminder_type", setting.Type,
			"attempts", outcome.Attempts)
		return true
	}
	d.logger.Warn("reminders: reminder failed",
		"appointment_id", c.AppointmentID,
		"reminder_type", setting.Type,
		"reason", outcome.Reason)
	return false
}

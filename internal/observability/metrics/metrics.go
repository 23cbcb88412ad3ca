package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulerMetrics exposes counters for the booking flow.
type SchedulerMetrics struct {
	bookingsTotal  *prometheus.CounterVec
	conflictsTotal prometheus.Counter
}

func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amaraspa",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Total appointment occurrences created",
		}, []string{"recurrence"}),
		conflictsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "amaraspa",
			Subsystem: "scheduling",
			Name:      "booking_conflicts_total",
			Help:      "Total bookings rejected because the slot was taken",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.conflictsTotal)
	return m
}

func (m *SchedulerMetrics) ObserveBookingCreated(recurrence string, occurrences int) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(recurrence).Add(float64(occurrences))
}

func (m *SchedulerMetrics) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflictsTotal.Inc()
}

// ReminderMetrics exposes counters/histograms for reminder dispatch.
type ReminderMetrics struct {
	remindersTotal   *prometheus.CounterVec
	dispatchDuration prometheus.Histogram
}

func NewReminderMetrics(reg prometheus.Registerer) *ReminderMetrics {
	m := &ReminderMetrics{
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "amaraspa",
			Subsystem: "reminders",
			Name:      "sent_total",
			Help:      "Total reminder send outcomes",
		}, []string{"status"}),
		dispatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "amaraspa",
			Subsystem: "reminders",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of one reminder dispatch pass",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.remindersTotal, m.dispatchDuration)
	return m
}

func (m *ReminderMetrics) ObserveReminder(status string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(status).Inc()
}

func (m *ReminderMetrics) ObserveDispatchDuration(seconds float64) {
	if m == nil {
		return
	}
	m.dispatchDuration.Observe(seconds)
}

package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

func TestCandidatesInWindow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock, false)
	from := time.Date(2024, 3, 11, 7, 30, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	apptID := uuid.New()

	mock.ExpectQuery("SELECT a.id, a.client_id").
		WithArgs(from, to, 24, 50).
		WillReturnRows(pgxmock.NewRows([]string{"id", "client_id", "client_name", "client_phone", "services", "starts_at"}).
			AddRow(apptID, uuid.New(), "Amina", "0911234567", "Facial, Massage", from.Add(30*time.Minute)))

	candidates, err := store.CandidatesInWindow(context.Background(), from, to, 24, 50)
	if err != nil {
		t.Fatalf("candidates in window: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].AppointmentID != apptID {
		t.Fatalf("unexpected appointment id %s", candidates[0].AppointmentID)
	}
	if candidates[0].Services != "Facial, Massage" {
		t.Fatalf("unexpected services %q", candidates[0].Services)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCandidatesInWindowOptOutClause(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock, true)
	from := time.Now().UTC()
	to := from.Add(time.Hour)

	mock.ExpectQuery("sms_opt_outs").
		WithArgs(from, to, 2, 100).
		WillReturnRows(pgxmock.NewRows([]string{"id", "client_id", "client_name", "client_phone", "services", "starts_at"}))

	if _, err := store.CandidatesInWindow(context.Background(), from, to, 2, 0); err != nil {
		t.Fatalf("candidates in window: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestInsertLogFillsDefaults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock, false)
	apptID := uuid.New()
	hours := 24
	log := &SmsLog{
		ClientID:      uuid.New(),
		AppointmentID: &apptID,
		Phone:         "0911234567",
		Message:       "Hi Amina",
		ReminderType:  "day_before",
		HoursBefore:   &hours,
		Status:        LogStatusSent,
	}

	mock.ExpectExec("INSERT INTO sms_logs").
		WithArgs(pgxmock.AnyArg(), log.ClientID, &apptID, "0911234567", "Hi Amina",
			"day_before", &hours, "sent", "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.InsertLog(context.Background(), log); err != nil {
		t.Fatalf("insert log: %v", err)
	}
	if log.ID == uuid.Nil {
		t.Fatal("expected generated log id")
	}
	if log.SentAt.IsZero() {
		t.Fatal("expected sent_at to be set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLogsForAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	store := NewStore(mock, false)
	apptID := uuid.New()
	hours := 24

	mock.ExpectQuery("SELECT id, client_id, appointment_id").
		WithArgs(apptID, 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "client_id", "appointment_id", "phone", "message", "reminder_type", "reminder_hours_before", "status", "failure_reason", "sent_at"}).
			AddRow(uuid.New(), uuid.New(), &apptID, "0911234567", "Hi", "day_before", &hours, "failed", "gateway timeout", time.Now()))

	logs, err := store.LogsForAppointment(context.Background(), apptID, 0)
	if err != nil {
		t.Fatalf("logs for appointment: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	if logs[0].Status != LogStatusFailed {
		t.Fatalf("unexpected status %q", logs[0].Status)
	}
	if logs[0].FailureReason != "gateway timeout" {
		t.Fatalf("unexpected reason %q", logs[0].FailureReason)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

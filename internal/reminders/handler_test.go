package reminders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandlerServer(t *testing.T, settings *SettingsStore, store *Store, dispatcher *Dispatcher) *httptest.Server {
	t.Helper()
	h := NewHandler(settings, store, dispatcher, nil)
	r := chi.NewRouter()
	h.Register(r)
	h.RegisterAdmin(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHandlerGetSettings(t *testing.T) {
	srv := newHandlerServer(t, newTestSettingsStore(t), nil, nil)

	resp, err := http.Get(srv.URL + "/reminder-settings")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var settings []Setting
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&settings))
	assert.Len(t, settings, 2)
}

func TestHandlerUpdateSetting(t *testing.T) {
	srv := newHandlerServer(t, newTestSettingsStore(t), nil, nil)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/reminder-settings/day_before",
		bytes.NewReader([]byte(`{"enabled": false, "hours_before": 48}`)))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var settings []Setting
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&settings))
	for _, s := range settings {
		if s.Type == "day_before" {
			assert.False(t, s.Enabled)
			assert.Equal(t, 48, s.HoursBefore)
		}
	}
}

func TestHandlerUpdateSettingUnknownType(t *testing.T) {
	srv := newHandlerServer(t, newTestSettingsStore(t), nil, nil)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/reminder-settings/never",
		bytes.NewReader([]byte(`{"enabled": true}`)))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlerUpdateSettingRejectsNonPositiveHours(t *testing.T) {
	srv := newHandlerServer(t, newTestSettingsStore(t), nil, nil)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/reminder-settings/day_before",
		bytes.NewReader([]byte(`{"hours_before": 0}`)))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerListForAppointment(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	srv := newHandlerServer(t, nil, NewStore(mock, false), nil)
	apptID := uuid.New()
	hours := 24

	mock.ExpectQuery("SELECT id, client_id, appointment_id").
		WithArgs(apptID, 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "client_id", "appointment_id", "phone", "message", "reminder_type", "reminder_hours_before", "status", "failure_reason", "sent_at"}).
			AddRow(uuid.New(), uuid.New(), &apptID, "0911234567", "Hi", "day_before", &hours, "sent", "", time.Now()))

	resp, err := http.Get(fmt.Sprintf("%s/appointments/%s/reminders", srv.URL, apptID))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Reminders []SmsLog `json:"reminders"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Reminders, 1)
	assert.Equal(t, LogStatusSent, body.Reminders[0].Status)
}

func TestHandlerListForAppointmentBadID(t *testing.T) {
	srv := newHandlerServer(t, nil, nil, nil)

	resp, err := http.Get(srv.URL + "/appointments/nope/reminders")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlerTriggerDispatch(t *testing.T) {
	settings := &fakeSettings{settings: []Setting{
		{Type: "day_before", HoursBefore: 24, Template: "Hi {{name}}", Enabled: true},
	}}
	store := &fakeCandidateStore{candidates: []Candidate{candidateAt(testNow.Add(24 * time.Hour))}}
	dispatcher := newTestDispatcher(settings, store, &fakeSender{})

	srv := newHandlerServer(t, nil, nil, dispatcher)

	resp, err := http.Post(srv.URL+"/reminders/dispatch", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body["sent"])
}

func TestHandlerTriggerDispatchWithoutDispatcher(t *testing.T) {
	srv := newHandlerServer(t, nil, nil, nil)

	resp, err := http.Post(srv.URL+"/reminders/dispatch", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

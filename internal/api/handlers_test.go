package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/appointment"
	"github.com/ChristianRende22/ClinicaDental-sub000/internal/metrics"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T) (http.Handler, *metrics.Collector) {
	t.Helper()

	repo := appointment.NewMemoryRepository()
	repo.AddPatient(appointment.Patient{ID: "P1", Name: "Ana Lopez"})
	repo.AddDoctor(appointment.Doctor{ID: "D1", Name: "Dr. Ruiz"})

	now := func() time.Time { return time.Date(2030, 1, 5, 10, 0, 0, 0, time.UTC) }
	m := metrics.NewCollector("clinic", nil)

	router := NewRouter(RouterConfig{
		Registry: appointment.NewRegistry(repo, repo, appointment.WithClock(now)),
		Slots:    appointment.NewSlotBook(repo, repo),
		Postgres: stubPinger{},
		Metrics:  m,
		Env:      "test",
	})
	return router, m
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

const c1 = `{"id":"C1","patient_id":"P1","doctor_id":"D1","date":"2030-01-10","start_time":"09:00","end_time":"10:00","cost":150}`

func TestCreateAppointment(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/appointments", c1)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "C1", resp.ID)
	assert.Equal(t, "scheduled", resp.Status)
	assert.Equal(t, "150.00", resp.Cost)
	assert.Equal(t, "09:00", resp.StartTime.String())
	assert.Equal(t, 1, resp.Revision)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCreateAppointment_ErrorMapping(t *testing.T) {
	h, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/appointments", c1).Code)

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"double booking", `{"id":"C2","patient_id":"P1","doctor_id":"D1","date":"2030-01-10","start_time":"09:30","end_time":"10:30","cost":"80"}`, http.StatusConflict, "double_booking"},
		{"duplicate id", c1, http.StatusConflict, "duplicate_id"},
		{"past date", `{"id":"C3","patient_id":"P1","doctor_id":"D1","date":"2030-01-01","start_time":"09:00","end_time":"10:00","cost":"80"}`, http.StatusBadRequest, "past_date"},
		{"bad interval", `{"id":"C3","patient_id":"P1","doctor_id":"D1","date":"2030-01-10","start_time":"12:00","end_time":"11:00","cost":"80"}`, http.StatusBadRequest, "invalid_interval"},
		{"bad cost", `{"id":"C3","patient_id":"P1","doctor_id":"D1","date":"2030-01-10","start_time":"12:00","end_time":"13:00","cost":"free"}`, http.StatusBadRequest, "invalid_cost"},
		{"missing cost", `{"id":"C3","patient_id":"P1","doctor_id":"D1","date":"2030-01-10","start_time":"12:00","end_time":"13:00"}`, http.StatusBadRequest, "missing_field"},
		{"unknown doctor", `{"id":"C3","patient_id":"P1","doctor_id":"D9","date":"2030-01-10","start_time":"12:00","end_time":"13:00","cost":1}`, http.StatusNotFound, "doctor_not_found"},
		{"bad json", `{"id":`, http.StatusBadRequest, "invalid_request_body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/appointments", tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeError(t, rec).Error)
		})
	}

	// Back-to-back booking is fine.
	rec := do(t, h, http.MethodPost, "/appointments",
		`{"id":"C4","patient_id":"P1","doctor_id":"D1","date":"2030-01-10","start_time":{"hour":10,"minute":0},"end_time":"11:00","cost":"80"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestAppointmentLifecycleEndpoints(t *testing.T) {
	h, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/appointments", c1).Code)

	rec := do(t, h, http.MethodGet, "/appointments/C1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail AppointmentDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Dr. Ruiz", detail.Doctor.Name)
	assert.Equal(t, "Ana Lopez", detail.Patient.Name)
	assert.Nil(t, detail.Treatment)

	rec = do(t, h, http.MethodPatch, "/appointments/C1", `{"start_time":"11:00","end_time":"12:00","cost":"99.5"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "11:00", updated.StartTime.String())
	assert.Equal(t, "99.50", updated.Cost)

	rec = do(t, h, http.MethodPatch, "/appointments/C1", `{"status":"done"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_status", decodeError(t, rec).Error)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/appointments/C1/confirm", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/appointments/C1/cancel", "").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/appointments/C1/cancel", "").Code)

	rec = do(t, h, http.MethodPost, "/appointments/C1/confirm", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decodeError(t, rec).Error)

	rec = do(t, h, http.MethodGet, "/appointments/nope", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "appointment_not_found", decodeError(t, rec).Error)
}

func TestListAppointments(t *testing.T) {
	h, _ := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/appointments", c1).Code)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/appointments",
		`{"id":"C2","patient_id":"P1","doctor_id":"D1","date":"2030-01-11","start_time":"09:00","end_time":"10:00","cost":"80"}`).Code)

	for _, tc := range []struct {
		query string
		want  int
	}{
		{"", 2},
		{"?doctor_id=D1", 2},
		{"?doctor_id=D1&date=2030-01-10", 1},
		{"?patient_id=P1", 2},
		{"?patient_id=P2", 0},
	} {
		rec := do(t, h, http.MethodGet, "/appointments"+tc.query, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var list []AppointmentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
		assert.Len(t, list, tc.want, tc.query)
	}

	rec := do(t, h, http.MethodGet, "/appointments?date=10-01-2030", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSlotEndpoints(t *testing.T) {
	h, _ := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/slots", `{"id":"S1","doctor_id":"D1","start_time":"08:00","end_time":"12:00"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/slots", `{"id":"S2","doctor_id":"D1","start_time":"11:00","end_time":"13:00"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "double_booking", decodeError(t, rec).Error)

	rec = do(t, h, http.MethodPut, "/slots/S1/availability", `{"available":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var slot SlotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &slot))
	assert.False(t, slot.Available)

	rec = do(t, h, http.MethodPut, "/slots/S1/availability", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/slots?doctor_id=D1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []SlotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/slots/S1", "").Code)
	rec = do(t, h, http.MethodDelete, "/slots/S1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "slot_not_found", decodeError(t, rec).Error)
}

func TestHealthAndMetrics(t *testing.T) {
	h, _ := newTestServer(t)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health/live", "").Code)

	rec := do(t, h, http.MethodGet, "/health/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var ready ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ready))
	assert.Equal(t, "ok", ready.Status)
	assert.NotContains(t, ready.Dependencies, "redis")

	do(t, h, http.MethodPost, "/appointments", c1)
	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `clinic_scheduling_operations_total{operation="create",outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `clinic_http_requests_total{method="POST"`)
}

func TestReadiness_Degraded(t *testing.T) {
	health := NewHealthHandler(stubPinger{}, stubPinger{err: errors.New("down")}, "test", "")
	rec := httptest.NewRecorder()
	health.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)

	health = NewHealthHandler(stubPinger{err: errors.New("down")}, nil, "test", "")
	rec = httptest.NewRecorder()
	health.Readiness(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestClassify(t *testing.T) {
	status, code := classify(&appointment.PersistenceError{Op: "save", Err: errors.New("io")})
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "persistence_unavailable", code)

	status, code = classify(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", code)
}

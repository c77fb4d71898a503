package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/appointment"
	"github.com/ChristianRende22/ClinicaDental-sub000/internal/metrics"
)

type Handlers struct {
	registry *appointment.Registry
	slots    *appointment.SlotBook
	metrics  *metrics.Collector
	log      *zap.Logger
}

// fail writes the mapped error response and records the outcome. Only
// unexpected failures are logged.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := classify(err)
	h.metrics.ObserveScheduling(op, code)

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("op", op),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
	}
	writeError(w, status, code, err.Error())
}

func (h *Handlers) ok(op string) {
	h.metrics.ObserveScheduling(op, "ok")
}

// Appointments

func (h *Handlers) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	appt, err := h.registry.Create(r.Context(), req.candidate())
	if err != nil {
		h.fail(w, r, "create", err)
		return
	}
	h.ok("create")
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handlers) listAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doctorID := strings.TrimSpace(q.Get("doctor_id"))
	patientID := strings.TrimSpace(q.Get("patient_id"))

	var day time.Time
	if raw := strings.TrimSpace(q.Get("date")); raw != "" {
		d, err := time.Parse(appointment.DateLayout, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "malformed_field", "date must be YYYY-MM-DD")
			return
		}
		day = d
	}

	var list []appointment.Appointment
	switch {
	case doctorID != "":
		list = h.registry.ListByDoctor(doctorID, day)
	case patientID != "":
		list = h.registry.ListByPatient(patientID)
	default:
		list = h.registry.ListAll()
	}

	out := make([]AppointmentResponse, 0, len(list))
	for i := range list {
		a := &list[i]
		if patientID != "" && a.PatientRef != patientID {
			continue
		}
		if !day.IsZero() && a.Date.Format(appointment.DateLayout) != day.Format(appointment.DateLayout) {
			continue
		}
		out = append(out, toAppointmentResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	detail, err := h.registry.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailResponse(detail))
}

func (h *Handlers) updateAppointment(w http.ResponseWriter, r *http.Request) {
	var req UpdateAppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	appt, err := h.registry.Modify(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		h.fail(w, r, "modify", err)
		return
	}
	h.ok("modify")
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handlers) confirmAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.registry.ConfirmAttendance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "confirm", err)
		return
	}
	h.ok("confirm")
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

func (h *Handlers) cancelAppointment(w http.ResponseWriter, r *http.Request) {
	appt, err := h.registry.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "cancel", err)
		return
	}
	h.ok("cancel")
	writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// Slots

func (h *Handlers) createSlot(w http.ResponseWriter, r *http.Request) {
	var req CreateSlotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	slot, err := h.slots.Provision(r.Context(), appointment.SlotCandidate{
		ID:        req.ID,
		DoctorRef: req.DoctorID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Available: req.Available,
	})
	if err != nil {
		h.fail(w, r, "provision_slot", err)
		return
	}
	h.ok("provision_slot")
	writeJSON(w, http.StatusCreated, toSlotResponse(slot))
}

func (h *Handlers) listSlots(w http.ResponseWriter, r *http.Request) {
	var list []appointment.Slot
	if doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id")); doctorID != "" {
		list = h.slots.ListByDoctor(doctorID)
	} else {
		list = h.slots.ListAll()
	}

	out := make([]SlotResponse, 0, len(list))
	for i := range list {
		out = append(out, toSlotResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) deleteSlot(w http.ResponseWriter, r *http.Request) {
	if err := h.slots.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "delete_slot", err)
		return
	}
	h.ok("delete_slot")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) setSlotAvailability(w http.ResponseWriter, r *http.Request) {
	var req AvailabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.Available == nil {
		writeError(w, http.StatusBadRequest, "missing_field", "available is required")
		return
	}

	slot, err := h.slots.SetAvailability(r.Context(), chi.URLParam(r, "id"), *req.Available)
	if err != nil {
		h.fail(w, r, "set_availability", err)
		return
	}
	h.ok("set_availability")
	writeJSON(w, http.StatusOK, toSlotResponse(slot))
}

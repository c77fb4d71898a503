package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/appointment"
	"github.com/ChristianRende22/ClinicaDental-sub000/internal/timeofday"
)

// Amount accepts a JSON string ("150.00") or number (150) and keeps the
// literal text so the core decides whether it is numeric.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cost must be a string or number")
	}
	*a = Amount(n.String())
	return nil
}

type CreateAppointmentRequest struct {
	ID          string           `json:"id"`
	PatientID   string           `json:"patient_id"`
	DoctorID    string           `json:"doctor_id"`
	TreatmentID string           `json:"treatment_id,omitempty"`
	Date        string           `json:"date"`
	StartTime   *timeofday.Clock `json:"start_time"`
	EndTime     *timeofday.Clock `json:"end_time"`
	Cost        Amount           `json:"cost"`
}

func (r CreateAppointmentRequest) candidate() appointment.Candidate {
	return appointment.Candidate{
		ID:           r.ID,
		PatientRef:   r.PatientID,
		DoctorRef:    r.DoctorID,
		TreatmentRef: r.TreatmentID,
		Date:         r.Date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Cost:         string(r.Cost),
	}
}

type UpdateAppointmentRequest struct {
	PatientID   *string          `json:"patient_id"`
	DoctorID    *string          `json:"doctor_id"`
	TreatmentID *string          `json:"treatment_id"`
	Date        *string          `json:"date"`
	StartTime   *timeofday.Clock `json:"start_time"`
	EndTime     *timeofday.Clock `json:"end_time"`
	Cost        *Amount          `json:"cost"`
	Status      *string          `json:"status"`
}

func (r UpdateAppointmentRequest) patch() appointment.Patch {
	p := appointment.Patch{
		PatientRef:   r.PatientID,
		DoctorRef:    r.DoctorID,
		TreatmentRef: r.TreatmentID,
		Date:         r.Date,
		StartTime:    r.StartTime,
		EndTime:      r.EndTime,
		Status:       r.Status,
	}
	if r.Cost != nil {
		cost := string(*r.Cost)
		p.Cost = &cost
	}
	return p
}

type AppointmentResponse struct {
	ID          string          `json:"id"`
	PatientID   string          `json:"patient_id"`
	DoctorID    string          `json:"doctor_id"`
	TreatmentID string          `json:"treatment_id,omitempty"`
	Date        string          `json:"date"`
	StartTime   timeofday.Clock `json:"start_time"`
	EndTime     timeofday.Clock `json:"end_time"`
	Cost        string          `json:"cost"`
	Status      string          `json:"status"`
	Revision    int             `json:"revision"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		PatientID:   a.PatientRef,
		DoctorID:    a.DoctorRef,
		TreatmentID: a.TreatmentRef,
		Date:        a.Date.Format(appointment.DateLayout),
		StartTime:   a.Start,
		EndTime:     a.End,
		Cost:        a.Cost.StringFixed(2),
		Status:      string(a.Status),
		Revision:    a.Revision,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

type PatientResponse struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
}

type DoctorResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Specialty *string `json:"specialty,omitempty"`
}

type TreatmentResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Cost        string `json:"cost"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	Patient   PatientResponse    `json:"patient"`
	Doctor    DoctorResponse     `json:"doctor"`
	Treatment *TreatmentResponse `json:"treatment,omitempty"`
}

func toDetailResponse(d *appointment.AppointmentDetail) AppointmentDetailResponse {
	resp := AppointmentDetailResponse{
		AppointmentResponse: toAppointmentResponse(&d.Appointment),
		Patient:             PatientResponse{ID: d.Patient.ID, Name: d.Patient.Name, Email: d.Patient.Email},
		Doctor:              DoctorResponse{ID: d.Doctor.ID, Name: d.Doctor.Name, Specialty: d.Doctor.Specialty},
	}
	if d.Treatment != nil {
		resp.Treatment = &TreatmentResponse{
			ID:          d.Treatment.ID,
			Description: d.Treatment.Description,
			Cost:        d.Treatment.Cost.StringFixed(2),
		}
	}
	return resp
}

type CreateSlotRequest struct {
	ID        string           `json:"id"`
	DoctorID  string           `json:"doctor_id"`
	StartTime *timeofday.Clock `json:"start_time"`
	EndTime   *timeofday.Clock `json:"end_time"`
	Available *bool            `json:"available"`
}

type AvailabilityRequest struct {
	Available *bool `json:"available"`
}

type SlotResponse struct {
	ID        string          `json:"id"`
	DoctorID  string          `json:"doctor_id"`
	StartTime timeofday.Clock `json:"start_time"`
	EndTime   timeofday.Clock `json:"end_time"`
	Available bool            `json:"available"`
}

func toSlotResponse(s *appointment.Slot) SlotResponse {
	return SlotResponse{
		ID:        s.ID,
		DoctorID:  s.DoctorRef,
		StartTime: s.Start,
		EndTime:   s.End,
		Available: s.Available,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

package appointment

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/timeofday"
)

var maxCost = decimal.New(1, 8)

// Validator checks candidates and edits against the booking rules. It never
// mutates its input.
type Validator struct {
	refs ReferenceProvider
	now  func() time.Time
}

func NewValidator(refs ReferenceProvider, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{refs: refs, now: now}
}

// fields is the common shape validated for both create and modify.
type fields struct {
	PatientRef   string
	DoctorRef    string
	TreatmentRef string
	Date         string
	StartTime    *timeofday.Clock
	EndTime      *timeofday.Clock
	Cost         string
}

// ValidateCreate runs every check and returns the appointment to commit.
// exists reports whether an id is already taken.
func (v *Validator) ValidateCreate(ctx context.Context, c Candidate, exists func(id string) bool) (Appointment, error) {
	if strings.TrimSpace(c.ID) == "" {
		return Appointment{}, invalid(ErrMissingField, "id")
	}

	a, err := v.validate(ctx, fields{
		PatientRef:   c.PatientRef,
		DoctorRef:    c.DoctorRef,
		TreatmentRef: c.TreatmentRef,
		Date:         c.Date,
		StartTime:    c.StartTime,
		EndTime:      c.EndTime,
		Cost:         c.Cost,
	})
	if err != nil {
		return Appointment{}, err
	}

	id := strings.TrimSpace(c.ID)
	if exists != nil && exists(id) {
		return Appointment{}, invalid(ErrDuplicateID, "id")
	}

	a.ID = id
	a.Status = StatusScheduled
	return a, nil
}

func (v *Validator) validate(ctx context.Context, f fields) (Appointment, error) {
	// 1. presence and resolvability
	switch {
	case strings.TrimSpace(f.Cost) == "":
		return Appointment{}, invalid(ErrMissingField, "cost")
	case strings.TrimSpace(f.PatientRef) == "":
		return Appointment{}, invalid(ErrMissingField, "patient_id")
	case strings.TrimSpace(f.DoctorRef) == "":
		return Appointment{}, invalid(ErrMissingField, "doctor_id")
	case strings.TrimSpace(f.Date) == "":
		return Appointment{}, invalid(ErrMissingField, "date")
	case f.StartTime == nil:
		return Appointment{}, invalid(ErrMissingField, "start_time")
	case f.EndTime == nil:
		return Appointment{}, invalid(ErrMissingField, "end_time")
	}

	date, err := parseDate(strings.TrimSpace(f.Date))
	if err != nil {
		return Appointment{}, invalid(ErrMalformedField, "date")
	}
	if !f.StartTime.Valid() {
		return Appointment{}, invalid(ErrMalformedField, "start_time")
	}
	if !f.EndTime.Valid() {
		return Appointment{}, invalid(ErrMalformedField, "end_time")
	}

	patientRef := strings.TrimSpace(f.PatientRef)
	doctorRef := strings.TrimSpace(f.DoctorRef)
	treatmentRef := strings.TrimSpace(f.TreatmentRef)

	if _, err := v.refs.GetPatient(ctx, patientRef); err != nil {
		return Appointment{}, err
	}
	if _, err := v.refs.GetDoctor(ctx, doctorRef); err != nil {
		return Appointment{}, err
	}
	if treatmentRef != "" {
		if _, err := v.refs.GetTreatment(ctx, treatmentRef); err != nil {
			return Appointment{}, err
		}
	}

	// 2-3. temporal checks against the injected clock
	now := v.now()
	today := dateOf(now)
	if date.Before(today) {
		return Appointment{}, invalid(ErrPastDate, "date")
	}
	if date.Equal(today) && timeofday.ToMinutes(*f.StartTime) <= timeofday.ToMinutes(timeofday.FromTime(now)) {
		return Appointment{}, invalid(ErrPastTime, "start_time")
	}

	// 4. interval
	if timeofday.ToMinutes(*f.StartTime) >= timeofday.ToMinutes(*f.EndTime) {
		return Appointment{}, invalid(ErrInvalidInterval, "end_time")
	}

	// 5. cost: positive, at most two decimals, fits NUMERIC(10,2)
	cost, err := decimal.NewFromString(strings.TrimSpace(f.Cost))
	if err != nil || !cost.IsPositive() || !cost.Equal(cost.Round(2)) || cost.GreaterThanOrEqual(maxCost) {
		return Appointment{}, invalid(ErrInvalidCost, "cost")
	}

	return Appointment{
		PatientRef:   patientRef,
		DoctorRef:    doctorRef,
		TreatmentRef: treatmentRef,
		Date:         date,
		Start:        *f.StartTime,
		End:          *f.EndTime,
		Cost:         cost,
	}, nil
}

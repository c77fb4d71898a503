package appointment

import (
	"context"
	"strings"
)

// State transitions:
//
//	scheduled → confirmed → cancelled
//	scheduled → cancelled
//	confirmed → confirmed (repeat confirmation)
//	cancelled is terminal; cancelling it again is a no-op
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled: {StatusScheduled, StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusScheduled, StatusConfirmed, StatusCancelled},
	StatusCancelled: {},
}

func (a *Appointment) CanTransitionTo(next AppointmentStatus) bool {
	for _, s := range allowedTransitions[a.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// ConfirmAttendance moves a scheduled or confirmed appointment to confirmed.
func (a *Appointment) ConfirmAttendance() error {
	if !a.CanTransitionTo(StatusConfirmed) {
		return &StateError{Kind: ErrInvalidTransition, Current: a.Status, Requested: StatusConfirmed}
	}
	a.Status = StatusConfirmed
	return nil
}

// Cancel reports whether the status changed. Cancelling twice is allowed.
func (a *Appointment) Cancel() bool {
	if a.Status == StatusCancelled {
		return false
	}
	a.Status = StatusCancelled
	return true
}

// applyPatch merges p into a copy of current and re-validates the result.
// The returned appointment carries unchanged id and revision.
func applyPatch(ctx context.Context, v *Validator, current Appointment, p Patch) (Appointment, error) {
	if current.Status == StatusCancelled {
		return Appointment{}, &StateError{Kind: ErrInvalidTransition, Current: current.Status, Requested: current.Status}
	}

	merged := current
	if p.Status != nil {
		next := AppointmentStatus(strings.ToLower(strings.TrimSpace(*p.Status)))
		if !next.Valid() {
			return Appointment{}, &StateError{Kind: ErrInvalidStatus, Current: current.Status, Requested: next}
		}
		if !current.CanTransitionTo(next) {
			return Appointment{}, &StateError{Kind: ErrInvalidTransition, Current: current.Status, Requested: next}
		}
		merged.Status = next
	}

	if p.PatientRef != nil {
		merged.PatientRef = *p.PatientRef
	}
	if p.DoctorRef != nil {
		merged.DoctorRef = *p.DoctorRef
	}
	if p.TreatmentRef != nil {
		merged.TreatmentRef = *p.TreatmentRef
	}
	if p.StartTime != nil {
		merged.Start = *p.StartTime
	}
	if p.EndTime != nil {
		merged.End = *p.EndTime
	}

	// Date and cost go through the validator's parsers when patched.
	date := current.Date.Format(DateLayout)
	if p.Date != nil {
		date = *p.Date
	}
	cost := current.Cost.String()
	if p.Cost != nil {
		cost = *p.Cost
	}

	start, end := merged.Start, merged.End
	out, err := v.validate(ctx, fields{
		PatientRef:   merged.PatientRef,
		DoctorRef:    merged.DoctorRef,
		TreatmentRef: merged.TreatmentRef,
		Date:         date,
		StartTime:    &start,
		EndTime:      &end,
		Cost:         cost,
	})
	if err != nil {
		return Appointment{}, err
	}

	out.ID = current.ID
	out.Status = merged.Status
	out.Revision = current.Revision
	out.CreatedAt = current.CreatedAt
	out.UpdatedAt = current.UpdatedAt
	return out, nil
}

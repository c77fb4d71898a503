package appointment

import (
	"time"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/timeofday"
)

// Booking is an appointment or slot projected onto the fields that matter
// for double-booking. A zero Date means the booking is scoped by doctor
// only, as slots are.
type Booking struct {
	ID        string
	DoctorRef string
	Date      time.Time
	Start     timeofday.Clock
	End       timeofday.Clock
}

// FindConflict scans existing in order and returns a *ConflictError for the
// first booking of the same doctor (and date, when candidate is dated) whose
// interval overlaps candidate. A booking never conflicts with itself.
func FindConflict(candidate Booking, existing []Booking) error {
	for _, b := range existing {
		if b.ID == candidate.ID || b.DoctorRef != candidate.DoctorRef {
			continue
		}
		if !candidate.Date.IsZero() && !b.Date.Equal(candidate.Date) {
			continue
		}
		if timeofday.Overlaps(candidate.Start, candidate.End, b.Start, b.End) {
			return &ConflictError{ConflictingID: b.ID, DoctorRef: candidate.DoctorRef}
		}
	}
	return nil
}

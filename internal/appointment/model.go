package appointment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/timeofday"
)

// DateLayout is the wire and storage layout of appointment dates.
const DateLayout = "2006-01-02"

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

type Patient struct {
	ID    string
	Name  string
	Email *string
}

type Doctor struct {
	ID        string
	Name      string
	Specialty *string
}

type Treatment struct {
	ID          string
	Description string
	Cost        decimal.Decimal
}

type Appointment struct {
	ID           string
	PatientRef   string
	DoctorRef    string
	TreatmentRef string // empty means consultation only
	Date         time.Time
	Start        timeofday.Clock
	End          timeofday.Clock
	Cost         decimal.Decimal
	Status       AppointmentStatus
	Revision     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a Appointment) booking() Booking {
	return Booking{
		ID:        a.ID,
		DoctorRef: a.DoctorRef,
		Date:      a.Date,
		Start:     a.Start,
		End:       a.End,
	}
}

// Slot is a doctor-side block of time, independent of any patient.
type Slot struct {
	ID        string
	DoctorRef string
	Start     timeofday.Clock
	End       timeofday.Clock
	Available bool
}

func (s Slot) booking() Booking {
	return Booking{
		ID:        s.ID,
		DoctorRef: s.DoctorRef,
		Start:     s.Start,
		End:       s.End,
	}
}

// Candidate is the caller-built shape accepted by Create. Nil times and
// empty strings count as missing.
type Candidate struct {
	ID           string
	PatientRef   string
	DoctorRef    string
	TreatmentRef string
	Date         string
	StartTime    *timeofday.Clock
	EndTime      *timeofday.Clock
	Cost         string
	Status       string
}

// Patch carries the fields a Modify call changes. Nil leaves a field as is;
// a non-nil empty TreatmentRef clears the treatment.
type Patch struct {
	PatientRef   *string
	DoctorRef    *string
	TreatmentRef *string
	Date         *string
	StartTime    *timeofday.Clock
	EndTime      *timeofday.Clock
	Cost         *string
	Status       *string
}

type SlotCandidate struct {
	ID        string
	DoctorRef string
	StartTime *timeofday.Clock
	EndTime   *timeofday.Clock
	Available *bool // defaults to true
}

type AppointmentDetail struct {
	Appointment
	Patient   *Patient
	Doctor    *Doctor
	Treatment *Treatment
}

// dateOf strips the clock from t, keeping its calendar date.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, err
	}
	return dateOf(d), nil
}

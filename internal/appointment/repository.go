package appointment

import (
	"context"
	"time"
)

// ReferenceProvider resolves patient, doctor and treatment records. Lookups
// of unknown ids return a *NotFoundError.
type ReferenceProvider interface {
	GetPatient(ctx context.Context, id string) (*Patient, error)
	GetDoctor(ctx context.Context, id string) (*Doctor, error)
	GetTreatment(ctx context.Context, id string) (*Treatment, error)
}

// Gateway is the durable store behind the Registry and the SlotBook.
type Gateway interface {
	SaveAppointment(ctx context.Context, a Appointment) error
	// DeleteAppointment exists for administrative tooling; cancellation is a
	// status change and never deletes.
	DeleteAppointment(ctx context.Context, id string) error
	LoadAllAppointments(ctx context.Context) ([]Appointment, error)

	// SaveSlot inserts a new slot; an existing id is a DuplicateIdError.
	SaveSlot(ctx context.Context, s Slot) error
	SetSlotAvailability(ctx context.Context, id string, available bool) error
	DeleteSlot(ctx context.Context, id string) error
	LoadAllSlots(ctx context.Context) ([]Slot, error)
}

// DoctorScheduleLoader is implemented by gateways shared between processes.
// With a Locker configured, the Registry and the SlotBook use it to pick up
// bookings written by other replicas before checking for conflicts.
type DoctorScheduleLoader interface {
	LoadDoctorDay(ctx context.Context, doctorRef string, date time.Time) ([]Appointment, error)
	LoadDoctorSlots(ctx context.Context, doctorRef string) ([]Slot, error)
}

// Locker serializes writers for one doctor across processes.
type Locker interface {
	WithDoctorLock(ctx context.Context, doctorRef string, fn func(ctx context.Context) error) error
}

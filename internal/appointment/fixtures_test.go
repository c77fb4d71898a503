package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/timeofday"
)

// fixedNow is 2030-01-05 10:00 UTC.
var fixedNow = time.Date(2030, 1, 5, 10, 0, 0, 0, time.UTC)

func clockNow() time.Time { return fixedNow }

func clk(s string) *timeofday.Clock {
	c := timeofday.MustParse(s)
	return &c
}

func strPtr(s string) *string { return &s }

func seededRepo(t *testing.T) *MemoryRepository {
	t.Helper()
	repo := NewMemoryRepository()
	repo.AddPatient(Patient{ID: "P1", Name: "Ana Lopez"})
	repo.AddPatient(Patient{ID: "P2", Name: "Luis Martinez"})
	repo.AddDoctor(Doctor{ID: "D1", Name: "Dr. Ruiz"})
	repo.AddDoctor(Doctor{ID: "D2", Name: "Dr. Campos"})
	repo.AddTreatment(Treatment{ID: "T1", Description: "Cleaning", Cost: decimal.NewFromInt(40)})
	return repo
}

func candidate(id, doctor, date, start, end string) Candidate {
	return Candidate{
		ID:         id,
		PatientRef: "P1",
		DoctorRef:  doctor,
		Date:       date,
		StartTime:  clk(start),
		EndTime:    clk(end),
		Cost:       "50",
	}
}

// failingGateway fails the configured writes and delegates everything else.
type failingGateway struct {
	*MemoryRepository
	saveAppointmentErr error
	saveSlotErr        error
	deleteSlotErr      error
}

func (g *failingGateway) SaveAppointment(ctx context.Context, a Appointment) error {
	if g.saveAppointmentErr != nil {
		return g.saveAppointmentErr
	}
	return g.MemoryRepository.SaveAppointment(ctx, a)
}

func (g *failingGateway) SaveSlot(ctx context.Context, s Slot) error {
	if g.saveSlotErr != nil {
		return g.saveSlotErr
	}
	return g.MemoryRepository.SaveSlot(ctx, s)
}

func (g *failingGateway) SetSlotAvailability(ctx context.Context, id string, available bool) error {
	if g.saveSlotErr != nil {
		return g.saveSlotErr
	}
	return g.MemoryRepository.SetSlotAvailability(ctx, id, available)
}

func (g *failingGateway) DeleteSlot(ctx context.Context, id string) error {
	if g.deleteSlotErr != nil {
		return g.deleteSlotErr
	}
	return g.MemoryRepository.DeleteSlot(ctx, id)
}

var errDiskFull = errors.New("disk full")

// mutexLocker is an in-process Locker standing in for the Redis one.
type mutexLocker struct {
	mu    sync.Mutex
	calls []string
}

func (l *mutexLocker) WithDoctorLock(ctx context.Context, doctorRef string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, doctorRef)
	return fn(ctx)
}

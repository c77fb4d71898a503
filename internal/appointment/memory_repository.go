package appointment

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-process Gateway and ReferenceProvider. It keeps
// insertion order so reloads are stable.
type MemoryRepository struct {
	mu sync.RWMutex

	patients   map[string]Patient
	doctors    map[string]Doctor
	treatments map[string]Treatment

	appointments map[string]Appointment
	apptOrder    []string
	slots        map[string]Slot
	slotOrder    []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		patients:     make(map[string]Patient),
		doctors:      make(map[string]Doctor),
		treatments:   make(map[string]Treatment),
		appointments: make(map[string]Appointment),
		slots:        make(map[string]Slot),
	}
}

func (m *MemoryRepository) AddPatient(p Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.ID] = p
}

func (m *MemoryRepository) AddDoctor(d Doctor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doctors[d.ID] = d
}

func (m *MemoryRepository) AddTreatment(t Treatment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.treatments[t.ID] = t
}

func (m *MemoryRepository) GetPatient(_ context.Context, id string) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, notFound("patient", id)
	}
	return &p, nil
}

func (m *MemoryRepository) GetDoctor(_ context.Context, id string) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, notFound("doctor", id)
	}
	return &d, nil
}

func (m *MemoryRepository) GetTreatment(_ context.Context, id string) (*Treatment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.treatments[id]
	if !ok {
		return nil, notFound("treatment", id)
	}
	return &t, nil
}

func (m *MemoryRepository) SaveAppointment(_ context.Context, a Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, exists := m.appointments[a.ID]
	switch {
	case !exists && a.Revision > 1:
		return ErrStaleRevision
	case exists && a.Revision <= 1:
		return invalid(ErrDuplicateID, "id")
	case exists && cur.Revision != a.Revision-1:
		return ErrStaleRevision
	}

	if !exists {
		m.apptOrder = append(m.apptOrder, a.ID)
	}
	m.appointments[a.ID] = a
	return nil
}

func (m *MemoryRepository) DeleteAppointment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.appointments[id]; !ok {
		return notFound("appointment", id)
	}
	delete(m.appointments, id)
	m.apptOrder = without(m.apptOrder, id)
	return nil
}

func (m *MemoryRepository) LoadAllAppointments(_ context.Context) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Appointment, 0, len(m.apptOrder))
	for _, id := range m.apptOrder {
		out = append(out, m.appointments[id])
	}
	return out, nil
}

func (m *MemoryRepository) LoadDoctorDay(_ context.Context, doctorRef string, date time.Time) ([]Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	day := dateOf(date)
	var out []Appointment
	for _, id := range m.apptOrder {
		if a := m.appointments[id]; a.DoctorRef == doctorRef && a.Date.Equal(day) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *MemoryRepository) SaveSlot(_ context.Context, s Slot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.slots[s.ID]; ok {
		return invalid(ErrDuplicateID, "id")
	}
	m.slotOrder = append(m.slotOrder, s.ID)
	m.slots[s.ID] = s
	return nil
}

func (m *MemoryRepository) SetSlotAvailability(_ context.Context, id string, available bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[id]
	if !ok {
		return notFound("slot", id)
	}
	s.Available = available
	m.slots[id] = s
	return nil
}

func (m *MemoryRepository) DeleteSlot(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.slots[id]; !ok {
		return notFound("slot", id)
	}
	delete(m.slots, id)
	m.slotOrder = without(m.slotOrder, id)
	return nil
}

func (m *MemoryRepository) LoadAllSlots(_ context.Context) ([]Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Slot, 0, len(m.slotOrder))
	for _, id := range m.slotOrder {
		out = append(out, m.slots[id])
	}
	return out, nil
}

func (m *MemoryRepository) LoadDoctorSlots(_ context.Context, doctorRef string) ([]Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Slot
	for _, id := range m.slotOrder {
		if s := m.slots[id]; s.DoctorRef == doctorRef {
			out = append(out, s)
		}
	}
	return out, nil
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

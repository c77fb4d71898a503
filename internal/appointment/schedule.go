package appointment

import (
	"context"
	"strings"
	"sync"
)

// SlotBook provisions doctor time slots. For any doctor no two slots
// overlap; slots carry no date, so the check is by doctor alone.
type SlotBook struct {
	refs    ReferenceProvider
	gateway Gateway
	opts    options

	mu    sync.RWMutex
	byID  map[string]Slot
	order []string
}

func NewSlotBook(refs ReferenceProvider, gateway Gateway, opts ...Option) *SlotBook {
	return &SlotBook{
		refs:    refs,
		gateway: gateway,
		opts:    buildOptions(opts),
		byID:    make(map[string]Slot),
	}
}

func (b *SlotBook) Load(ctx context.Context) error {
	all, err := b.gateway.LoadAllSlots(ctx)
	if err != nil {
		return persistenceFailure("load slots", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.byID = make(map[string]Slot, len(all))
	b.order = b.order[:0]
	for _, s := range all {
		b.putLocked(s)
	}
	return nil
}

func (b *SlotBook) Provision(ctx context.Context, c SlotCandidate) (*Slot, error) {
	var created Slot

	err := b.withDoctor(ctx, c.DoctorRef, func(ctx context.Context) error {
		b.mu.Lock()
		defer b.mu.Unlock()

		s, err := b.validateLocked(ctx, c)
		if err != nil {
			return err
		}
		if err := b.refreshDoctorLocked(ctx, s.DoctorRef); err != nil {
			return err
		}

		existing := make([]Booking, 0, len(b.order))
		for _, id := range b.order {
			existing = append(existing, b.byID[id].booking())
		}
		if err := FindConflict(s.booking(), existing); err != nil {
			return err
		}

		if err := b.gateway.SaveSlot(ctx, s); err != nil {
			return persistenceFailure("save slot", err)
		}
		b.putLocked(s)
		created = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (b *SlotBook) validateLocked(ctx context.Context, c SlotCandidate) (Slot, error) {
	id := strings.TrimSpace(c.ID)
	doctorRef := strings.TrimSpace(c.DoctorRef)

	switch {
	case id == "":
		return Slot{}, invalid(ErrMissingField, "id")
	case doctorRef == "":
		return Slot{}, invalid(ErrMissingField, "doctor_id")
	case c.StartTime == nil:
		return Slot{}, invalid(ErrMissingField, "start_time")
	case c.EndTime == nil:
		return Slot{}, invalid(ErrMissingField, "end_time")
	case !c.StartTime.Valid():
		return Slot{}, invalid(ErrMalformedField, "start_time")
	case !c.EndTime.Valid():
		return Slot{}, invalid(ErrMalformedField, "end_time")
	}

	if _, err := b.refs.GetDoctor(ctx, doctorRef); err != nil {
		return Slot{}, err
	}
	if *c.StartTime >= *c.EndTime {
		return Slot{}, invalid(ErrInvalidInterval, "end_time")
	}
	if _, ok := b.byID[id]; ok {
		return Slot{}, invalid(ErrDuplicateID, "id")
	}

	available := true
	if c.Available != nil {
		available = *c.Available
	}
	return Slot{
		ID:        id,
		DoctorRef: doctorRef,
		Start:     *c.StartTime,
		End:       *c.EndTime,
		Available: available,
	}, nil
}

func (b *SlotBook) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.byID[id]; !ok {
		return notFound("slot", id)
	}
	if err := b.gateway.DeleteSlot(ctx, id); err != nil {
		return persistenceFailure("delete slot", err)
	}
	b.removeLocked(id)
	return nil
}

// SetAvailability is the administrative toggle for a slot's available flag.
func (b *SlotBook) SetAvailability(ctx context.Context, id string, available bool) (*Slot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.byID[id]
	if !ok {
		return nil, notFound("slot", id)
	}
	if s.Available == available {
		return &s, nil
	}

	if err := b.gateway.SetSlotAvailability(ctx, id, available); err != nil {
		return nil, persistenceFailure("set slot availability", err)
	}
	s.Available = available
	b.putLocked(s)
	return &s, nil
}

func (b *SlotBook) FindByID(id string) (*Slot, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.byID[id]
	if !ok {
		return nil, notFound("slot", id)
	}
	return &s, nil
}

func (b *SlotBook) ListAll() []Slot {
	return b.filter(func(Slot) bool { return true })
}

func (b *SlotBook) ListByDoctor(doctorRef string) []Slot {
	return b.filter(func(s Slot) bool { return s.DoctorRef == doctorRef })
}

// refreshDoctorLocked replaces the doctor's slots with the durable set.
func (b *SlotBook) refreshDoctorLocked(ctx context.Context, doctorRef string) error {
	if b.opts.locker == nil {
		return nil
	}
	loader, ok := b.gateway.(DoctorScheduleLoader)
	if !ok {
		return nil
	}

	rows, err := loader.LoadDoctorSlots(ctx, doctorRef)
	if err != nil {
		return persistenceFailure("load doctor slots", err)
	}
	for _, id := range append([]string(nil), b.order...) {
		if b.byID[id].DoctorRef == doctorRef {
			b.removeLocked(id)
		}
	}
	for _, s := range rows {
		b.putLocked(s)
	}
	return nil
}

func (b *SlotBook) withDoctor(ctx context.Context, doctorRef string, fn func(ctx context.Context) error) error {
	doctorRef = strings.TrimSpace(doctorRef)
	if b.opts.locker == nil || doctorRef == "" {
		return fn(ctx)
	}
	return b.opts.locker.WithDoctorLock(ctx, doctorRef, fn)
}

func (b *SlotBook) putLocked(s Slot) {
	if _, ok := b.byID[s.ID]; !ok {
		b.order = append(b.order, s.ID)
	}
	b.byID[s.ID] = s
}

func (b *SlotBook) removeLocked(id string) {
	delete(b.byID, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			return
		}
	}
}

func (b *SlotBook) filter(keep func(Slot) bool) []Slot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Slot, 0, len(b.order))
	for _, id := range b.order {
		if s := b.byID[id]; keep(s) {
			out = append(out, s)
		}
	}
	return out
}

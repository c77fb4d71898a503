package appointment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type options struct {
	locker Locker
	now    func() time.Time
}

type Option func(*options)

// WithLocker adds a per-doctor critical section shared with other
// processes. Conflict checks then reload the doctor's bookings from the
// gateway when it implements DoctorScheduleLoader.
func WithLocker(l Locker) Option {
	return func(o *options) { o.locker = l }
}

// WithClock overrides time.Now for temporal validation and timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Registry is the in-process source of truth for appointments. Writes are
// serialized by mu; the index only changes after the gateway accepted the
// write.
type Registry struct {
	refs      ReferenceProvider
	gateway   Gateway
	validator *Validator
	opts      options

	mu    sync.RWMutex
	byID  map[string]Appointment
	order []string
}

func NewRegistry(refs ReferenceProvider, gateway Gateway, opts ...Option) *Registry {
	o := buildOptions(opts)
	return &Registry{
		refs:      refs,
		gateway:   gateway,
		validator: NewValidator(refs, o.now),
		opts:      o,
		byID:      make(map[string]Appointment),
	}
}

// Load replaces the index with everything the gateway holds.
func (r *Registry) Load(ctx context.Context) error {
	all, err := r.gateway.LoadAllAppointments(ctx)
	if err != nil {
		return persistenceFailure("load appointments", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID = make(map[string]Appointment, len(all))
	r.order = r.order[:0]
	for _, a := range all {
		r.putLocked(a)
	}
	return nil
}

// Create validates c, rejects double bookings, persists and indexes the new
// appointment in status scheduled.
func (r *Registry) Create(ctx context.Context, c Candidate) (*Appointment, error) {
	var created Appointment

	err := r.withDoctor(ctx, c.DoctorRef, func(ctx context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()

		a, err := r.validator.ValidateCreate(ctx, c, r.hasLocked)
		if err != nil {
			return err
		}
		if err := r.checkConflictLocked(ctx, a); err != nil {
			return err
		}

		now := r.opts.now()
		a.Revision = 1
		a.CreatedAt = now
		a.UpdatedAt = now

		if err := r.gateway.SaveAppointment(ctx, a); err != nil {
			return persistenceFailure("save appointment", err)
		}
		r.putLocked(a)
		created = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// FindByID returns a copy of the indexed appointment.
func (r *Registry) FindByID(id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, notFound("appointment", id)
	}
	return &a, nil
}

// ListAll returns every appointment in insertion order.
func (r *Registry) ListAll() []Appointment {
	return r.filter(func(Appointment) bool { return true })
}

// ListByDoctor returns the doctor's appointments; a zero date matches every
// day.
func (r *Registry) ListByDoctor(doctorRef string, date time.Time) []Appointment {
	day := time.Time{}
	if !date.IsZero() {
		day = dateOf(date)
	}
	return r.filter(func(a Appointment) bool {
		return a.DoctorRef == doctorRef && (day.IsZero() || a.Date.Equal(day))
	})
}

func (r *Registry) ListByPatient(patientRef string) []Appointment {
	return r.filter(func(a Appointment) bool { return a.PatientRef == patientRef })
}

// Detail resolves the appointment's reference records.
func (r *Registry) Detail(ctx context.Context, id string) (*AppointmentDetail, error) {
	a, err := r.FindByID(id)
	if err != nil {
		return nil, err
	}

	detail := &AppointmentDetail{Appointment: *a}
	if detail.Patient, err = r.refs.GetPatient(ctx, a.PatientRef); err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if detail.Doctor, err = r.refs.GetDoctor(ctx, a.DoctorRef); err != nil {
		return nil, fmt.Errorf("load doctor: %w", err)
	}
	if a.TreatmentRef != "" {
		if detail.Treatment, err = r.refs.GetTreatment(ctx, a.TreatmentRef); err != nil {
			return nil, fmt.Errorf("load treatment: %w", err)
		}
	}
	return detail, nil
}

// Modify applies p to the appointment, re-validates the merged result and
// re-checks the doctor's schedule before committing.
func (r *Registry) Modify(ctx context.Context, id string, p Patch) (*Appointment, error) {
	lockDoctor := ""
	if p.DoctorRef != nil {
		lockDoctor = *p.DoctorRef
	} else if current, err := r.FindByID(id); err == nil {
		lockDoctor = current.DoctorRef
	}

	var updated Appointment
	err := r.withDoctor(ctx, lockDoctor, func(ctx context.Context) error {
		r.mu.Lock()
		defer r.mu.Unlock()

		current, ok := r.byID[id]
		if !ok {
			return notFound("appointment", id)
		}

		next, err := applyPatch(ctx, r.validator, current, p)
		if err != nil {
			return err
		}
		if next.Status != StatusCancelled {
			if err := r.checkConflictLocked(ctx, next); err != nil {
				return err
			}
		}

		return r.commitLocked(ctx, current, next, &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Cancel moves the appointment to cancelled. Cancelling an already
// cancelled appointment succeeds without writing.
func (r *Registry) Cancel(ctx context.Context, id string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, notFound("appointment", id)
	}

	next := current
	if !next.Cancel() {
		return &next, nil
	}

	var updated Appointment
	if err := r.commitLocked(ctx, current, next, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ConfirmAttendance marks the appointment confirmed. Cancelled appointments
// cannot be confirmed.
func (r *Registry) ConfirmAttendance(ctx context.Context, id string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, notFound("appointment", id)
	}

	next := current
	if err := next.ConfirmAttendance(); err != nil {
		return nil, err
	}
	if current.Status == StatusConfirmed {
		return &next, nil
	}

	var updated Appointment
	if err := r.commitLocked(ctx, current, next, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *Registry) commitLocked(ctx context.Context, current, next Appointment, out *Appointment) error {
	next.Revision = current.Revision + 1
	next.UpdatedAt = r.opts.now()

	if err := r.gateway.SaveAppointment(ctx, next); err != nil {
		return persistenceFailure("save appointment", err)
	}
	r.putLocked(next)
	*out = next
	return nil
}

func (r *Registry) checkConflictLocked(ctx context.Context, a Appointment) error {
	if err := r.refreshDoctorDayLocked(ctx, a.DoctorRef, a.Date); err != nil {
		return err
	}

	existing := make([]Booking, 0, len(r.order))
	for _, id := range r.order {
		b := r.byID[id]
		if b.Status == StatusCancelled {
			continue
		}
		existing = append(existing, b.booking())
	}
	return FindConflict(a.booking(), existing)
}

// refreshDoctorDayLocked merges bookings other replicas committed for the
// doctor's day. It only runs when a shared Locker is configured.
func (r *Registry) refreshDoctorDayLocked(ctx context.Context, doctorRef string, date time.Time) error {
	if r.opts.locker == nil {
		return nil
	}
	loader, ok := r.gateway.(DoctorScheduleLoader)
	if !ok {
		return nil
	}

	rows, err := loader.LoadDoctorDay(ctx, doctorRef, date)
	if err != nil {
		return persistenceFailure("load doctor day", err)
	}
	for _, a := range rows {
		if cur, ok := r.byID[a.ID]; ok && cur.Revision >= a.Revision {
			continue
		}
		r.putLocked(a)
	}
	return nil
}

func (r *Registry) withDoctor(ctx context.Context, doctorRef string, fn func(ctx context.Context) error) error {
	doctorRef = strings.TrimSpace(doctorRef)
	if r.opts.locker == nil || doctorRef == "" {
		return fn(ctx)
	}
	return r.opts.locker.WithDoctorLock(ctx, doctorRef, fn)
}

func (r *Registry) hasLocked(id string) bool {
	_, ok := r.byID[id]
	return ok
}

func (r *Registry) putLocked(a Appointment) {
	if _, ok := r.byID[a.ID]; !ok {
		r.order = append(r.order, a.ID)
	}
	r.byID[a.ID] = a
}

func (r *Registry) filter(keep func(Appointment) bool) []Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Appointment, 0, len(r.order))
	for _, id := range r.order {
		if a := r.byID[id]; keep(a) {
			out = append(out, a)
		}
	}
	return out
}

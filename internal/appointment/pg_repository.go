package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/timeofday"
)

const (
	EventAppointmentCreated = "APPOINTMENT_CREATED"
	EventAppointmentUpdated = "APPOINTMENT_UPDATED"
)

const pgUniqueViolation = "23505"

// dbtx is the part of *pgxpool.Pool the repository uses.
type dbtx interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgRepository implements Gateway, ReferenceProvider and
// DoctorScheduleLoader on PostgreSQL.
type PgRepository struct {
	db dbtx
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{db: pool}
}

func newPgRepositoryWithDB(db dbtx) *PgRepository {
	return &PgRepository{db: db}
}

// Helpers

// TIME columns travel as HH:MM text; see clockColumn.
func parseClock(field, v string) (timeofday.Clock, error) {
	c, err := timeofday.Parse(v)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, v, err)
	}
	return c, nil
}

func clockColumn(col string) string {
	return "to_char(" + col + ", 'HH24:MI')"
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanPatient(row pgx.Row, id string) (*Patient, error) {
	var p Patient
	if err := row.Scan(&p.ID, &p.Name, &p.Email); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("patient", id)
		}
		return nil, &PersistenceError{Op: "get patient", Err: err}
	}
	return &p, nil
}

func scanDoctor(row pgx.Row, id string) (*Doctor, error) {
	var d Doctor
	if err := row.Scan(&d.ID, &d.Name, &d.Specialty); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("doctor", id)
		}
		return nil, &PersistenceError{Op: "get doctor", Err: err}
	}
	return &d, nil
}

func scanTreatment(row pgx.Row, id string) (*Treatment, error) {
	var (
		t    Treatment
		cost string
	)
	if err := row.Scan(&t.ID, &t.Description, &cost); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound("treatment", id)
		}
		return nil, &PersistenceError{Op: "get treatment", Err: err}
	}
	c, err := decimal.NewFromString(cost)
	if err != nil {
		return nil, fmt.Errorf("treatment %s cost %q: %w", id, cost, err)
	}
	t.Cost = c
	return &t, nil
}

func scanAppointment(row pgx.Row) (Appointment, error) {
	var (
		a           Appointment
		treatmentID *string
		start, end  string
		cost        string
		status      string
	)
	err := row.Scan(
		&a.ID,
		&a.PatientRef,
		&a.DoctorRef,
		&treatmentID,
		&a.Date,
		&start,
		&end,
		&cost,
		&status,
		&a.Revision,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return Appointment{}, err
	}

	if treatmentID != nil {
		a.TreatmentRef = *treatmentID
	}
	a.Status = AppointmentStatus(status)
	a.Date = dateOf(a.Date)
	if a.Start, err = parseClock("start_time", start); err != nil {
		return Appointment{}, err
	}
	if a.End, err = parseClock("end_time", end); err != nil {
		return Appointment{}, err
	}
	if a.Cost, err = decimal.NewFromString(cost); err != nil {
		return Appointment{}, fmt.Errorf("appointment %s cost %q: %w", a.ID, cost, err)
	}
	return a, nil
}

func scanSlot(row pgx.Row) (Slot, error) {
	var (
		s          Slot
		start, end string
	)
	err := row.Scan(&s.ID, &s.DoctorRef, &start, &end, &s.Available)
	if err != nil {
		return Slot{}, err
	}
	if s.Start, err = parseClock("start_time", start); err != nil {
		return Slot{}, err
	}
	if s.End, err = parseClock("end_time", end); err != nil {
		return Slot{}, err
	}
	return s, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

var (
	appointmentColumns = "id, patient_id, doctor_id, treatment_id, date, " +
		clockColumn("start_time") + ", " + clockColumn("end_time") +
		", cost::text, status, revision, created_at, updated_at"
	slotColumns = "id, doctor_id, " + clockColumn("start_time") + ", " + clockColumn("end_time") + ", available"
)

// Reference lookups

func (r *PgRepository) GetPatient(ctx context.Context, id string) (*Patient, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, email
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row, id)
}

func (r *PgRepository) GetDoctor(ctx context.Context, id string) (*Doctor, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, name, specialty
		FROM doctors
		WHERE id = $1
	`, id)
	return scanDoctor(row, id)
}

func (r *PgRepository) GetTreatment(ctx context.Context, id string) (*Treatment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, description, cost::text
		FROM treatments
		WHERE id = $1
	`, id)
	return scanTreatment(row, id)
}

// Appointments

// SaveAppointment inserts revision 1 and otherwise updates only when the
// stored revision is the one immediately before a.Revision. An event log row
// is written in the same transaction.
func (r *PgRepository) SaveAppointment(ctx context.Context, a Appointment) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	eventType := EventAppointmentUpdated
	if a.Revision <= 1 {
		eventType = EventAppointmentCreated
		_, err = tx.Exec(ctx, `
			INSERT INTO appointments (id, patient_id, doctor_id, treatment_id, date, start_time, end_time, cost, status, revision, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6::time, $7::time, $8::numeric, $9, $10, $11, $12)
		`, a.ID, a.PatientRef, a.DoctorRef, nullableText(a.TreatmentRef), a.Date, a.Start.String(), a.End.String(),
			a.Cost.String(), string(a.Status), a.Revision, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return invalid(ErrDuplicateID, "id")
			}
			return fmt.Errorf("insert appointment: %w", err)
		}
	} else {
		tag, err := tx.Exec(ctx, `
			UPDATE appointments
			SET patient_id = $2,
			    doctor_id = $3,
			    treatment_id = $4,
			    date = $5,
			    start_time = $6::time,
			    end_time = $7::time,
			    cost = $8::numeric,
			    status = $9,
			    revision = $10,
			    updated_at = $11
			WHERE id = $1
			  AND revision = $12
		`, a.ID, a.PatientRef, a.DoctorRef, nullableText(a.TreatmentRef), a.Date, a.Start.String(), a.End.String(),
			a.Cost.String(), string(a.Status), a.Revision, a.UpdatedAt, a.Revision-1)
		if err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrStaleRevision
		}
	}

	if err := insertEvent(ctx, tx, a, eventType); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit appointment: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, a Appointment, eventType string) error {
	payload, err := json.Marshal(map[string]any{
		"status":    a.Status,
		"revision":  a.Revision,
		"doctor_id": a.DoctorRef,
		"date":      a.Date.Format(DateLayout),
		"start":     a.Start.String(),
		"end":       a.End.String(),
	})
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, eventType, a.ID, payload, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("appointment", id)
	}
	return nil
}

func (r *PgRepository) LoadAllAppointments(ctx context.Context) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}
	return collect(rows, scanAppointment)
}

func (r *PgRepository) LoadDoctorDay(ctx context.Context, doctorRef string, date time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND date = $2
		ORDER BY created_at, id
	`, doctorRef, dateOf(date))
	if err != nil {
		return nil, fmt.Errorf("load doctor day: %w", err)
	}
	return collect(rows, scanAppointment)
}

// Slots

func (r *PgRepository) SaveSlot(ctx context.Context, s Slot) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO schedule_slots (id, doctor_id, start_time, end_time, available)
		VALUES ($1, $2, $3::time, $4::time, $5)
	`, s.ID, s.DoctorRef, s.Start.String(), s.End.String(), s.Available)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return invalid(ErrDuplicateID, "id")
		}
		return fmt.Errorf("insert slot: %w", err)
	}
	return nil
}

func (r *PgRepository) SetSlotAvailability(ctx context.Context, id string, available bool) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE schedule_slots
		SET available = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, available)
	if err != nil {
		return fmt.Errorf("update slot availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("slot", id)
	}
	return nil
}

func (r *PgRepository) DeleteSlot(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM schedule_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("slot", id)
	}
	return nil
}

func (r *PgRepository) LoadAllSlots(ctx context.Context) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM schedule_slots
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("load slots: %w", err)
	}
	return collect(rows, scanSlot)
}

func (r *PgRepository) LoadDoctorSlots(ctx context.Context, doctorRef string) ([]Slot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM schedule_slots
		WHERE doctor_id = $1
		ORDER BY created_at, id
	`, doctorRef)
	if err != nil {
		return nil, fmt.Errorf("load doctor slots: %w", err)
	}
	return collect(rows, scanSlot)
}

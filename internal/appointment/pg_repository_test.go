package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/timeofday"
)

func newMockRepo(t *testing.T) (*PgRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newPgRepositoryWithDB(mock), mock
}

func sampleAppointment(rev int) Appointment {
	created := time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)
	return Appointment{
		ID:           "A1",
		PatientRef:   "P1",
		DoctorRef:    "D1",
		TreatmentRef: "T1",
		Date:         time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC),
		Start:        timeofday.MustParse("09:00"),
		End:          timeofday.MustParse("10:00"),
		Cost:         decimal.RequireFromString("150.50"),
		Status:       StatusScheduled,
		Revision:     rev,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestPgRepository_SaveAppointmentInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment(1)
	treatment := "T1"

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs("A1", "P1", "D1", &treatment, a.Date, "09:00", "10:00", "150.5", "scheduled", 1, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(EventAppointmentCreated, "A1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveAppointment(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_SaveAppointmentDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO appointments").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})
	mock.ExpectRollback()

	err := repo.SaveAppointment(context.Background(), sampleAppointment(1))
	require.ErrorIs(t, err, ErrDuplicateID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_SaveAppointmentUpdate(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment(3)
	a.Status = StatusConfirmed

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE appointments").
		WithArgs("A1", "P1", "D1", pgxmock.AnyArg(), a.Date, "09:00", "10:00", "150.5", "confirmed", 3, pgxmock.AnyArg(), 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO event_logs").
		WithArgs(EventAppointmentUpdated, "A1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveAppointment(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_SaveAppointmentStaleRevision(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE appointments").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repo.SaveAppointment(context.Background(), sampleAppointment(2))
	require.ErrorIs(t, err, ErrStaleRevision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_SaveAppointmentBeginFails(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

	err := repo.SaveAppointment(context.Background(), sampleAppointment(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_LoadDoctorDay(t *testing.T) {
	repo, mock := newMockRepo(t)
	a := sampleAppointment(2)
	treatment := "T1"

	rows := pgxmock.NewRows([]string{
		"id", "patient_id", "doctor_id", "treatment_id", "date", "start_time", "end_time",
		"cost", "status", "revision", "created_at", "updated_at",
	}).AddRow("A1", "P1", "D1", &treatment, a.Date, "09:00", "10:00", "150.50", "scheduled", 2, a.CreatedAt, a.UpdatedAt)

	mock.ExpectQuery("SELECT (.+) FROM appointments").
		WithArgs("D1", a.Date).
		WillReturnRows(rows)

	got, err := repo.LoadDoctorDay(context.Background(), "D1", a.Date.Add(15*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "T1", got[0].TreatmentRef)
	assert.Equal(t, timeofday.MustParse("09:00"), got[0].Start)
	assert.Equal(t, timeofday.MustParse("10:00"), got[0].End)
	assert.True(t, got[0].Cost.Equal(a.Cost))
	assert.Equal(t, StatusScheduled, got[0].Status)
	assert.Equal(t, 2, got[0].Revision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_LoadAllSlots(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := pgxmock.NewRows([]string{"id", "doctor_id", "start_time", "end_time", "available"}).
		AddRow("S1", "D1", "08:00", "12:00", true).
		AddRow("S2", "D1", "14:00", "18:00", false)
	mock.ExpectQuery("SELECT (.+) FROM schedule_slots").WillReturnRows(rows)

	got, err := repo.LoadAllSlots(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Slot{ID: "S1", DoctorRef: "D1", Start: timeofday.MustParse("08:00"), End: timeofday.MustParse("12:00"), Available: true}, got[0])
	assert.False(t, got[1].Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_DeleteMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM appointments").WithArgs("A9").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM schedule_slots").WithArgs("S9").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.DeleteAppointment(context.Background(), "A9"), ErrNotFound)
	assert.ErrorIs(t, repo.DeleteSlot(context.Background(), "S9"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_References(t *testing.T) {
	repo, mock := newMockRepo(t)
	specialty := "orthodontics"

	mock.ExpectQuery("SELECT (.+) FROM doctors").WithArgs("D1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "specialty"}).AddRow("D1", "Dr. Ruiz", &specialty))
	mock.ExpectQuery("SELECT (.+) FROM treatments").WithArgs("T1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "description", "cost"}).AddRow("T1", "Cleaning", "40.00"))
	mock.ExpectQuery("SELECT (.+) FROM patients").WithArgs("P9").
		WillReturnError(pgx.ErrNoRows)

	d, err := repo.GetDoctor(context.Background(), "D1")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Ruiz", d.Name)
	require.NotNil(t, d.Specialty)
	assert.Equal(t, "orthodontics", *d.Specialty)

	tr, err := repo.GetTreatment(context.Background(), "T1")
	require.NoError(t, err)
	assert.True(t, tr.Cost.Equal(decimal.NewFromInt(40)))

	_, err = repo.GetPatient(context.Background(), "P9")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "patient", nf.Entity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_SaveSlotInsertOnly(t *testing.T) {
	repo, mock := newMockRepo(t)
	s := Slot{ID: "S1", DoctorRef: "D1", Start: timeofday.MustParse("08:00"), End: timeofday.MustParse("12:00"), Available: true}

	mock.ExpectExec("INSERT INTO schedule_slots").
		WithArgs("S1", "D1", "08:00", "12:00", true).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO schedule_slots").
		WithArgs("S1", "D1", "08:00", "12:00", true).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	require.NoError(t, repo.SaveSlot(context.Background(), s))

	err := repo.SaveSlot(context.Background(), s)
	require.ErrorIs(t, err, ErrDuplicateID)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "id", ve.Field)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_SetSlotAvailability(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE schedule_slots").WithArgs("S1", false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE schedule_slots").WithArgs("S9", true).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.SetSlotAvailability(context.Background(), "S1", false))
	assert.ErrorIs(t, repo.SetSlotAvailability(context.Background(), "S9", true), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPgRepository_ReferenceLookupFailure(t *testing.T) {
	repo, mock := newMockRepo(t)
	down := errors.New("connection reset by peer")

	mock.ExpectQuery("SELECT (.+) FROM patients").WithArgs("P1").WillReturnError(down)
	mock.ExpectQuery("SELECT (.+) FROM doctors").WithArgs("D1").WillReturnError(down)
	mock.ExpectQuery("SELECT (.+) FROM treatments").WithArgs("T1").WillReturnError(down)

	_, err := repo.GetPatient(context.Background(), "P1")
	require.ErrorIs(t, err, ErrPersistence)
	require.ErrorIs(t, err, down)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = repo.GetDoctor(context.Background(), "D1")
	require.ErrorIs(t, err, ErrPersistence)

	_, err = repo.GetTreatment(context.Background(), "T1")
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "get treatment", pe.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

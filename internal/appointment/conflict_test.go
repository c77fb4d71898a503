package appointment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/timeofday"
)

func booking(id, doctor string, date time.Time, start, end string) Booking {
	return Booking{
		ID:        id,
		DoctorRef: doctor,
		Date:      date,
		Start:     timeofday.MustParse(start),
		End:       timeofday.MustParse(end),
	}
}

func TestFindConflict(t *testing.T) {
	day := time.Date(2030, 1, 10, 0, 0, 0, 0, time.UTC)
	other := day.AddDate(0, 0, 1)
	existing := []Booking{
		booking("C1", "D1", day, "09:00", "10:00"),
		booking("C3", "D1", day, "09:45", "11:00"),
	}

	tests := []struct {
		name      string
		candidate Booking
		wantID    string
	}{
		{"overlap names first conflict", booking("C2", "D1", day, "09:30", "10:30"), "C1"},
		{"contained", booking("C2", "D1", day, "09:10", "09:20"), "C1"},
		{"only later booking", booking("C2", "D1", day, "10:00", "10:15"), "C3"},
		{"touching ends", booking("C2", "D1", day, "11:00", "12:00"), ""},
		{"touching start", booking("C2", "D1", day, "08:00", "09:00"), ""},
		{"other doctor", booking("C2", "D2", day, "09:00", "10:00"), ""},
		{"other day", booking("C2", "D1", other, "09:00", "10:00"), ""},
		{"itself", booking("C1", "D1", day, "09:30", "10:30"), "C3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FindConflict(tt.candidate, existing)
			if tt.wantID == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrDoubleBooking)
			var ce *ConflictError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.wantID, ce.ConflictingID)
			assert.Equal(t, tt.candidate.DoctorRef, ce.DoctorRef)
		})
	}
}

func TestFindConflict_UndatedIgnoresDate(t *testing.T) {
	existing := []Booking{booking("S1", "D1", time.Time{}, "08:00", "12:00")}

	err := FindConflict(booking("S2", "D1", time.Time{}, "11:00", "13:00"), existing)
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "S1", ce.ConflictingID)

	assert.NoError(t, FindConflict(booking("S2", "D1", time.Time{}, "12:00", "13:00"), existing))
}

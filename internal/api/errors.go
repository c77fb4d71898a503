package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ChristianRende22/ClinicaDental-sub000/internal/appointment"
	redisclient "github.com/ChristianRende22/ClinicaDental-sub000/internal/redis"
)

var validationCodes = []struct {
	kind error
	code string
}{
	{appointment.ErrMissingField, "missing_field"},
	{appointment.ErrMalformedField, "malformed_field"},
	{appointment.ErrPastDate, "past_date"},
	{appointment.ErrPastTime, "past_time"},
	{appointment.ErrInvalidInterval, "invalid_interval"},
	{appointment.ErrInvalidCost, "invalid_cost"},
}

// classify maps a core error to an HTTP status and a stable error code.
func classify(err error) (int, string) {
	var (
		ve *appointment.ValidationError
		nf *appointment.NotFoundError
	)

	switch {
	case errors.Is(err, appointment.ErrDuplicateID):
		return http.StatusConflict, "duplicate_id"
	case errors.As(err, &ve):
		for _, vc := range validationCodes {
			if errors.Is(ve.Kind, vc.kind) {
				return http.StatusBadRequest, vc.code
			}
		}
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, appointment.ErrDoubleBooking):
		return http.StatusConflict, "double_booking"
	case errors.Is(err, appointment.ErrInvalidStatus):
		return http.StatusConflict, "invalid_status"
	case errors.Is(err, appointment.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.As(err, &nf):
		return http.StatusNotFound, nf.Entity + "_not_found"
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return http.StatusConflict, "doctor_busy"
	case errors.Is(err, appointment.ErrStaleRevision):
		return http.StatusConflict, "stale_revision"
	case errors.Is(err, appointment.ErrPersistence):
		return http.StatusServiceUnavailable, "persistence_unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

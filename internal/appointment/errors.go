package appointment

import (
	"errors"
	"fmt"
)

// Validation kinds.
var (
	ErrMissingField    = errors.New("required field is missing")
	ErrMalformedField  = errors.New("field is malformed")
	ErrPastDate        = errors.New("appointment date is in the past")
	ErrPastTime        = errors.New("appointment start time has already passed")
	ErrInvalidInterval = errors.New("start time must be before end time")
	ErrInvalidCost     = errors.New("cost must be a positive number")
	ErrDuplicateID     = errors.New("id already exists")
)

var (
	ErrDoubleBooking     = errors.New("doctor is already booked for an overlapping time")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrNotFound          = errors.New("not found")
	ErrPersistence       = errors.New("persistence failure")
	ErrStaleRevision     = errors.New("record was changed by another writer")
)

// ValidationError is a caller-input problem. Kind is one of the validation
// kinds above.
type ValidationError struct {
	Kind  error
	Field string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Kind)
}

func (e *ValidationError) Unwrap() error { return e.Kind }

func invalid(kind error, field string) error {
	return &ValidationError{Kind: kind, Field: field}
}

// ConflictError names the existing booking that blocks the operation.
type ConflictError struct {
	ConflictingID string
	DoctorRef     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: doctor %s conflicts with %s", ErrDoubleBooking, e.DoctorRef, e.ConflictingID)
}

func (e *ConflictError) Unwrap() error { return ErrDoubleBooking }

// StateError reports a lifecycle violation. Kind is ErrInvalidTransition or
// ErrInvalidStatus.
type StateError struct {
	Kind      error
	Current   AppointmentStatus
	Requested AppointmentStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", e.Kind, e.Current, e.Requested)
}

func (e *StateError) Unwrap() error { return e.Kind }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// PersistenceError wraps a durable store failure. It matches both
// ErrPersistence and the underlying cause.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

// persistenceFailure leaves typed core errors from the gateway untouched and
// wraps everything else.
func persistenceFailure(op string, err error) error {
	var (
		pe *PersistenceError
		ve *ValidationError
		nf *NotFoundError
	)
	if errors.As(err, &pe) || errors.As(err, &ve) || errors.As(err, &nf) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

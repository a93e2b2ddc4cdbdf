package repositories

import "errors"

var (
	// ErrNotFound is returned when the requested row or document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional write lost against a concurrent writer.
	ErrConflict = errors.New("write conflict")
	// ErrInsufficientStock is returned when a reservation exceeds the available quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrLockTimeout is returned when a transaction lock could not be acquired in time.
	ErrLockTimeout = errors.New("lock wait timeout")
	// ErrUnknownStatus is returned when a stored transaction carries a status the engine does not know.
	ErrUnknownStatus = errors.New("unknown transaction status")
)

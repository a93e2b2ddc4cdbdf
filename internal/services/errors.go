package services

import (
	"errors"

	"github.com/sbilibin2017/gw-escrow-market/internal/models"
	"github.com/sbilibin2017/gw-escrow-market/internal/repositories"
)

var (
	// ErrInvalidRequest is returned for malformed input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrOutOfStock is returned when the item has fewer units than requested.
	ErrOutOfStock = errors.New("out of stock")
	// ErrNotAuthorized is returned when the caller is not the party the operation requires.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrInvalidTransition is returned when the operation is not allowed from the current status.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrPaymentFailed is returned when the payment gateway declines or times out.
	ErrPaymentFailed = errors.New("payment failed")
	// ErrInvalidCode is returned when the submitted pickup code does not match.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrNotFound is returned for unknown transactions and items.
	ErrNotFound = errors.New("not found")
	// ErrLockTimeout is returned when the transaction is busy with another operation.
	ErrLockTimeout = errors.New("transaction is busy, retry later")
)

// translate maps store errors to service errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repositories.ErrInsufficientStock):
		return ErrOutOfStock
	case errors.Is(err, repositories.ErrConflict), errors.Is(err, models.ErrInvalidTransition):
		return ErrInvalidTransition
	case errors.Is(err, repositories.ErrLockTimeout):
		return ErrLockTimeout
	}
	return err
}

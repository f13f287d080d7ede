package engine

import (
	"errors"
	"fmt"

	"laundry-booking-backend/internal/pricing"
)

var (
	ErrNotFound = errors.New("not found")

	ErrInvalidDuration     = pricing.ErrInvalidDuration
	ErrMachineNotFound     = fmt.Errorf("machine %w", ErrNotFound)
	ErrSessionNotFound     = fmt.Errorf("session %w", ErrNotFound)
	ErrUnavailable         = errors.New("machine is under maintenance")
	ErrAlreadyReserved     = errors.New("machine is already reserved")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidState        = errors.New("session is not in progress")
	ErrForbidden           = errors.New("session belongs to another user")
	ErrInvalidInput        = errors.New("invalid input")
)

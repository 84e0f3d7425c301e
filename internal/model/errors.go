package model

import (
	"errors"
	"fmt"
)

// Error classes. Specific errors wrap one of these so callers can branch on the class.
var (
	ErrValidation    = errors.New("validation error")
	ErrStateConflict = errors.New("state conflict")
	ErrNotFound      = errors.New("not found")
	ErrPersistence   = errors.New("persistence failure")
	ErrForbidden     = errors.New("forbidden")
)

// Lookup errors
var (
	ErrLobbyNotFound     = fmt.Errorf("%w: lobby", ErrNotFound)
	ErrMatchNotFound     = fmt.Errorf("%w: match", ErrNotFound)
	ErrUserNotRegistered = fmt.Errorf("%w: connection has not registered", ErrValidation)
)

// Membership errors
var (
	ErrAlreadyQueued  = errors.New("user is already queued")
	ErrAlreadyInLobby = errors.New("user is already in an active lobby")
	ErrNotInLobby     = fmt.Errorf("%w: user is not on the lobby roster", ErrStateConflict)
	ErrLobbyFull      = fmt.Errorf("%w: lobby roster is full", ErrStateConflict)
)

// Negotiation errors
var (
	ErrWrongPhase        = fmt.Errorf("%w: action not allowed in current phase", ErrStateConflict)
	ErrNotYourTurn       = fmt.Errorf("%w: not your turn", ErrStateConflict)
	ErrInvalidSelection  = fmt.Errorf("%w: invalid selection", ErrStateConflict)
	ErrDraftInactive     = fmt.Errorf("%w: draft is not active", ErrStateConflict)
	ErrInvalidMap        = fmt.Errorf("%w: invalid map", ErrStateConflict)
	ErrBanPhaseInactive  = fmt.Errorf("%w: map ban is not active", ErrStateConflict)
	ErrAllocationPending = fmt.Errorf("%w: allocation request already pending", ErrStateConflict)
)

// Allocator errors
var (
	ErrAllocatorTimeout  = errors.New("allocator did not acknowledge in time")
	ErrAllocatorFailure  = errors.New("allocator reported failure")
	ErrUnknownAllocation = fmt.Errorf("%w: allocation request", ErrNotFound)
)

// Archive errors
var (
	ErrMatchExists = errors.New("match already archived")
)

// Validationf builds a validation error with detail
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// PersistenceError marks a storage failure so callers can classify it
func PersistenceError(err error) error {
	if err == nil || errors.Is(err, ErrPersistence) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

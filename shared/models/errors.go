package models

import "errors"

var (
	// ErrInvalidTransition is returned when a state machine is asked to
	// move out of a state that does not permit the requested transition.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrUnauthorized is returned when the caller is neither the landlord
	// nor the tenant on the record being mutated.
	ErrUnauthorized = errors.New("caller is not a party to this record")
	// ErrAlreadySigned is returned when a signature arrives for a lease
	// that is already fully signed.
	ErrAlreadySigned = errors.New("lease is already fully signed")
)

package pipeline

import (
	"errors"
	"fmt"

	"github.com/rentflow/rentflow/shared/models"
)

var (
	// ErrAlreadyApplied is returned when an application already exists
	// for the (property, tenant) pair.
	ErrAlreadyApplied = errors.New("an application already exists for this property")
	// ErrStatusConflict is returned when a conditional status update
	// lost to a concurrent writer.
	ErrStatusConflict = errors.New("record was modified concurrently")
	// ErrViewingExists is returned when an active viewing already exists
	// for the (property, tenant) pair.
	ErrViewingExists = errors.New("an active viewing already exists for this property")
)

// BlockedError reports that the application access gate refused the
// operation, carrying the gate's reason.
type BlockedError struct {
	Reason models.AccessReason
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("application access blocked: %s", e.Reason)
}

// ValidationError reports a screening-profile section failure.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("screening profile incomplete: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

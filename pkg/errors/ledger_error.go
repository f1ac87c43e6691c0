package custom_error

import (
	"errors"
	"fmt"
)

type InvalidQuantityError struct {
	Quantity int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be a positive integer, got %d", e.Quantity)
}

type InsufficientStockError struct {
	Requested int
	Available int
	Shortfall int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d, shortfall %d", e.Requested, e.Available, e.Shortfall)
}

type LotNotFoundError struct {
	BarangayID    int
	VaccineDoseID int
}

func (e *LotNotFoundError) Error() string {
	return fmt.Sprintf("no inventory lot for barangay %d and vaccine %d", e.BarangayID, e.VaccineDoseID)
}

// WriteConflictError means a row changed between read and write. Callers may
// retry right away after re-reading.
type WriteConflictError struct {
	LotID  int
	Reason string
}

func (e *WriteConflictError) Error() string {
	if e.Reason != "" {
		return "write conflict: " + e.Reason
	}
	return fmt.Sprintf("write conflict on inventory lot %d", e.LotID)
}

// StorageError wraps infrastructure failures. OutcomeUnknown is set when the
// operation may or may not have been committed (timeouts, cancellation).
type StorageError struct {
	Op             string
	Err            error
	OutcomeUnknown bool
}

func (e *StorageError) Error() string {
	if e.OutcomeUnknown {
		return fmt.Sprintf("%s: outcome unknown: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func IsWriteConflict(err error) bool {
	var conflict *WriteConflictError
	return errors.As(err, &conflict)
}

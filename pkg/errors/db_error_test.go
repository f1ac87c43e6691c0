package custom_error

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapDBError(t *testing.T) {
	tests := []struct {
		code         string
		wantConflict bool
		check        func(t *testing.T, err error)
	}{
		{"23505", false, func(t *testing.T, err error) {
			var unique *UniqueViolationError
			assert.ErrorAs(t, err, &unique)
		}},
		{"23503", false, func(t *testing.T, err error) {
			var fk *ForeignKeyViolationError
			assert.ErrorAs(t, err, &fk)
			assert.Contains(t, err.Error(), "still in use")
		}},
		{"40001", true, nil},
		{"40P01", true, nil},
		{"42P01", false, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "uncategorized error occurred with code 42P01")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := WrapDBError("boom", tt.code)

			assert.Equal(t, tt.wantConflict, IsWriteConflict(err))
			if tt.check != nil {
				tt.check(t, err)
			}
		})
	}
}

func TestStorageErrorUnwrapsAndFlagsUnknownOutcome(t *testing.T) {
	cause := errors.New("i/o timeout")
	err := fmt.Errorf("session completion: %w", &StorageError{Op: "deduct", Err: cause, OutcomeUnknown: true})

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "outcome unknown")

	var storage *StorageError
	if assert.ErrorAs(t, err, &storage) {
		assert.True(t, storage.OutcomeUnknown)
	}
}

func TestInsufficientStockMessage(t *testing.T) {
	err := &InsufficientStockError{Requested: 10, Available: 5, Shortfall: 5}

	assert.Equal(t, "insufficient stock: requested 10, available 5, shortfall 5", err.Error())
}

package ledger

import (
	"errors"
	"net/http"

	custom_error "vaxsync/pkg/errors"

	"github.com/gin-gonic/gin"
)

// ErrorResponse maps ledger failures onto an HTTP status and error body.
func ErrorResponse(err error) (int, gin.H) {
	var (
		invalid      *custom_error.InvalidQuantityError
		insufficient *custom_error.InsufficientStockError
		notFound     *custom_error.LotNotFoundError
		conflict     *custom_error.WriteConflictError
		storage      *custom_error.StorageError
	)

	switch {
	case errors.As(err, &invalid):
		return http.StatusBadRequest, gin.H{"error": "Invalid quantity", "details": invalid.Error()}
	case errors.As(err, &insufficient):
		return http.StatusConflict, gin.H{
			"error": "Insufficient stock",
			"details": gin.H{
				"requested": insufficient.Requested,
				"available": insufficient.Available,
				"shortfall": insufficient.Shortfall,
			},
		}
	case errors.As(err, &notFound):
		return http.StatusNotFound, gin.H{"error": "Inventory lot not found", "details": notFound.Error()}
	case errors.As(err, &conflict):
		return http.StatusConflict, gin.H{"error": "Inventory changed concurrently, please retry"}
	case errors.As(err, &storage) && storage.OutcomeUnknown:
		return http.StatusServiceUnavailable, gin.H{"error": "Outcome unknown, inventory is being reconciled"}
	default:
		return http.StatusInternalServerError, gin.H{"error": "Inventory storage error"}
	}
}

// IsOutcomeUnknown reports whether err leaves the stored state undetermined.
func IsOutcomeUnknown(err error) bool {
	var storage *custom_error.StorageError
	return errors.As(err, &storage) && storage.OutcomeUnknown
}

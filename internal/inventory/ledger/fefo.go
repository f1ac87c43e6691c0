package ledger

import (
	"sort"

	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/models"
)

// SortFEFO orders lots first-expired-first-out. Lots without an expiry date go
// last and ties fall back to the lot id, so the order is deterministic.
func SortFEFO(lots []models.InventoryLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i].ExpiryDate, lots[j].ExpiryDate
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return lots[i].ID < lots[j].ID
	})
}

// PlanDeduction decides how much to take from each lot to cover quantity.
// It does not mutate lots. When the lots cannot cover the request nothing is
// planned and an *custom_error.InsufficientStockError is returned.
func PlanDeduction(lots []models.InventoryLot, quantity int) ([]models.LotDeduction, error) {
	if quantity <= 0 {
		return nil, &custom_error.InvalidQuantityError{Quantity: quantity}
	}

	candidates := make([]models.InventoryLot, 0, len(lots))
	available := 0
	for _, lot := range lots {
		if lot.QuantityOnHand > 0 {
			candidates = append(candidates, lot)
			available += lot.QuantityOnHand
		}
	}

	if available < quantity {
		return nil, &custom_error.InsufficientStockError{
			Requested: quantity,
			Available: available,
			Shortfall: quantity - available,
		}
	}

	SortFEFO(candidates)

	plan := make([]models.LotDeduction, 0, len(candidates))
	remaining := quantity
	for _, lot := range candidates {
		if remaining == 0 {
			break
		}
		amount := min(remaining, lot.QuantityOnHand)
		plan = append(plan, models.LotDeduction{LotID: lot.ID, Amount: amount})
		remaining -= amount
	}

	return plan, nil
}

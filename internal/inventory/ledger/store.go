package ledger

import (
	"context"
	"vaxsync/pkg/models"
)

// Store runs ledger work inside a transaction. Implementations must make all
// writes of one WithinTx call visible atomically or not at all.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the view of the lot table available inside a transaction.
//
// SetQuantityOnHand and SetQuantityReserved are compare-and-swap writes: they
// succeed only while the stored row still carries lot.Version and otherwise
// return a *custom_error.WriteConflictError. Both increment the version.
type Tx interface {
	LotsForKey(ctx context.Context, key models.LotKey) ([]models.InventoryLot, error)
	SetQuantityOnHand(ctx context.Context, lot models.InventoryLot, quantity int) error
	SetQuantityReserved(ctx context.Context, lot models.InventoryLot, quantity int) error
	// OpenSessionDemand sums the target of Scheduled and In progress sessions
	// per referenced lot id. Lots without open sessions are absent.
	OpenSessionDemand(ctx context.Context, lotIDs []int) (map[int]int, error)
}

package ledger

import (
	"context"
	"sync/atomic"
	"testing"

	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/metadata"
	"vaxsync/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testKey = models.LotKey{BarangayID: 3, VaccineDoseID: 8}

func newTestLedger(store Store, opts ...Option) *Ledger {
	opts = append([]Option{WithRetryBackoff(0)}, opts...)
	return NewLedger(store, zap.NewNop(), opts...)
}

func addLot(store *MemoryStore, key models.LotKey, onHand int) models.InventoryLot {
	return store.AddLot(models.InventoryLot{
		BarangayID:     key.BarangayID,
		VaccineDoseID:  key.VaccineDoseID,
		QuantityOnHand: onHand,
		BatchNumber:    "B-001",
	})
}

func totalOnHand(t *testing.T, store *MemoryStore, ids ...int) int {
	t.Helper()
	total := 0
	for _, id := range ids {
		lot, ok := store.Lot(id)
		require.True(t, ok)
		total += lot.QuantityOnHand
	}
	return total
}

func TestDeductDecreasesOnHandByExactlyRequested(t *testing.T) {
	tests := []struct {
		name     string
		lots     []int
		quantity int
	}{
		{"single lot partial", []int{100}, 30},
		{"single lot full", []int{40}, 40},
		{"spans lots", []int{5, 5, 5}, 12},
		{"skips empty lot", []int{0, 7}, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore()
			ids := make([]int, 0, len(tt.lots))
			before := 0
			for _, onHand := range tt.lots {
				ids = append(ids, addLot(store, testKey, onHand).ID)
				before += onHand
			}

			records, err := newTestLedger(store).Deduct(context.Background(), testKey, tt.quantity)

			require.NoError(t, err)
			deducted := 0
			for _, record := range records {
				assert.Positive(t, record.Amount)
				deducted += record.Amount
			}
			assert.Equal(t, tt.quantity, deducted)
			assert.Equal(t, before-tt.quantity, totalOnHand(t, store, ids...))
		})
	}
}

func TestDeductInsufficientStockLeavesLotsUntouched(t *testing.T) {
	store := NewMemoryStore()
	first := addLot(store, testKey, 3)
	second := addLot(store, testKey, 2)

	records, err := newTestLedger(store).Deduct(context.Background(), testKey, 6)

	assert.Nil(t, records)
	var insufficient *custom_error.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 1, insufficient.Shortfall)

	for _, lot := range []models.InventoryLot{first, second} {
		reread, _ := store.Lot(lot.ID)
		assert.Equal(t, lot.QuantityOnHand, reread.QuantityOnHand)
		assert.Equal(t, lot.Version, reread.Version)
	}
}

func TestDeductMoreThanSingleLotHolds(t *testing.T) {
	store := NewMemoryStore()
	lot := addLot(store, testKey, 5)

	_, err := newTestLedger(store).Deduct(context.Background(), testKey, 10)

	var insufficient *custom_error.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Shortfall)
	reread, _ := store.Lot(lot.ID)
	assert.Equal(t, 5, reread.QuantityOnHand)
}

func TestDeductRejectsInvalidQuantityAndUnknownKey(t *testing.T) {
	store := NewMemoryStore()
	addLot(store, testKey, 5)
	l := newTestLedger(store)

	_, err := l.Deduct(context.Background(), testKey, 0)
	var invalid *custom_error.InvalidQuantityError
	assert.ErrorAs(t, err, &invalid)

	_, err = l.Deduct(context.Background(), models.LotKey{BarangayID: 99, VaccineDoseID: 8}, 1)
	var notFound *custom_error.LotNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 99, notFound.BarangayID)
}

func TestDeductDoesNotTouchReserved(t *testing.T) {
	store := NewMemoryStore()
	lot := store.AddLot(models.InventoryLot{
		BarangayID:       testKey.BarangayID,
		VaccineDoseID:    testKey.VaccineDoseID,
		QuantityOnHand:   50,
		QuantityReserved: 20,
	})

	_, err := newTestLedger(store).Deduct(context.Background(), testKey, 10)

	require.NoError(t, err)
	reread, _ := store.Lot(lot.ID)
	assert.Equal(t, 40, reread.QuantityOnHand)
	assert.Equal(t, 20, reread.QuantityReserved)
}

func TestConcurrentDeductsDoNotLoseUpdates(t *testing.T) {
	store := NewMemoryStore()
	lot := addLot(store, testKey, 100)
	l := newTestLedger(store)

	var g errgroup.Group
	g.Go(func() error {
		_, err := l.Deduct(context.Background(), testKey, 30)
		return err
	})
	g.Go(func() error {
		_, err := l.Deduct(context.Background(), testKey, 45)
		return err
	})

	require.NoError(t, g.Wait())
	reread, _ := store.Lot(lot.ID)
	assert.Equal(t, 25, reread.QuantityOnHand)
}

func TestManyConcurrentDeductsAcrossLots(t *testing.T) {
	const workers = 20
	store := NewMemoryStore()
	first := addLot(store, testKey, 15)
	second := addLot(store, testKey, 15)
	// Every worker commits exactly once, so a worker can lose at most
	// workers-1 races.
	l := newTestLedger(store, WithMaxAttempts(workers))

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := l.Deduct(context.Background(), testKey, 1)
			return err
		})
	}

	require.NoError(t, g.Wait())
	assert.Equal(t, 30-workers, totalOnHand(t, store, first.ID, second.ID))
}

func TestDeductRetriesAfterWriteConflict(t *testing.T) {
	store := NewMemoryStore()
	lot := addLot(store, testKey, 10)

	var commits atomic.Int32
	store.beforeCommit = func() {
		if commits.Add(1) == 1 {
			// Another writer slips in between read and commit.
			require.NoError(t, store.commit(&memoryTx{
				store:  store,
				writes: map[int]*stagedWrite{lot.ID: {expectedVersion: lot.Version, onHand: intPtr(8)}},
			}))
		}
	}

	records, err := newTestLedger(store).Deduct(context.Background(), testKey, 5)

	require.NoError(t, err)
	assert.Equal(t, []models.LotDeduction{{LotID: lot.ID, Amount: 5}}, records)
	reread, _ := store.Lot(lot.ID)
	assert.Equal(t, 3, reread.QuantityOnHand)
	assert.EqualValues(t, 2, commits.Load())
}

func TestDeductGivesUpAfterMaxAttempts(t *testing.T) {
	store := NewMemoryStore()
	lot := addLot(store, testKey, 10)

	store.beforeCommit = func() {
		current, _ := store.Lot(lot.ID)
		_ = store.commit(&memoryTx{
			store:  store,
			writes: map[int]*stagedWrite{lot.ID: {expectedVersion: current.Version}},
		})
	}

	_, err := newTestLedger(store, WithMaxAttempts(3)).Deduct(context.Background(), testKey, 5)

	assert.True(t, custom_error.IsWriteConflict(err))
	reread, _ := store.Lot(lot.ID)
	assert.Equal(t, 10, reread.QuantityOnHand)
	assert.Equal(t, lot.Version+3, reread.Version)
}

func TestDeductWithCancelledContextHasUnknownOutcome(t *testing.T) {
	store := NewMemoryStore()
	addLot(store, testKey, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestLedger(store).Deduct(ctx, testKey, 5)

	var storage *custom_error.StorageError
	require.ErrorAs(t, err, &storage)
	assert.True(t, storage.OutcomeUnknown)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRecalculateReservedScenario(t *testing.T) {
	store := NewMemoryStore()
	lot := addLot(store, testKey, 100)
	l := newTestLedger(store)

	first := store.AddSession(models.VaccinationSession{BarangayID: testKey.BarangayID, LotID: lot.ID, Target: 10})
	store.AddSession(models.VaccinationSession{BarangayID: testKey.BarangayID, LotID: lot.ID, Target: 15, Status: metadata.StatusInProgress})
	store.AddSession(models.VaccinationSession{BarangayID: testKey.BarangayID, LotID: lot.ID, Target: 5})
	store.AddSession(models.VaccinationSession{BarangayID: testKey.BarangayID, LotID: lot.ID, Target: 50, Status: metadata.StatusCancelled})

	reservation, err := l.RecalculateReserved(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, 30, reservation.QuantityReserved)

	require.NoError(t, store.SetSessionStatus(first.ID, metadata.StatusCompleted))

	reservation, err = l.RecalculateReserved(context.Background(), testKey)
	require.NoError(t, err)
	assert.Equal(t, 20, reservation.QuantityReserved)
	assert.Equal(t, []models.LotReservation{{LotID: lot.ID, QuantityReserved: 20}}, reservation.Lots)

	reread, _ := store.Lot(lot.ID)
	assert.Equal(t, 20, reread.QuantityReserved)
	assert.Equal(t, 100, reread.QuantityOnHand)
}

func TestRecalculateReservedIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	lot := addLot(store, testKey, 40)
	store.AddSession(models.VaccinationSession{LotID: lot.ID, Target: 12})
	l := newTestLedger(store)

	first, err := l.RecalculateReserved(context.Background(), testKey)
	require.NoError(t, err)
	afterFirst, _ := store.Lot(lot.ID)

	second, err := l.RecalculateReserved(context.Background(), testKey)
	require.NoError(t, err)
	afterSecond, _ := store.Lot(lot.ID)

	assert.Equal(t, first, second)
	assert.Equal(t, afterFirst.Version, afterSecond.Version, "unchanged value must not be rewritten")
}

func TestRecalculateReservedWithoutOpenSessionsResetsToZero(t *testing.T) {
	store := NewMemoryStore()
	lot := store.AddLot(models.InventoryLot{
		BarangayID:       testKey.BarangayID,
		VaccineDoseID:    testKey.VaccineDoseID,
		QuantityOnHand:   10,
		QuantityReserved: 25,
	})
	store.AddSession(models.VaccinationSession{LotID: lot.ID, Target: 25, Status: metadata.StatusCompleted})

	reservation, err := newTestLedger(store).RecalculateReserved(context.Background(), testKey)

	require.NoError(t, err)
	assert.Equal(t, 0, reservation.QuantityReserved)
	reread, _ := store.Lot(lot.ID)
	assert.Equal(t, 0, reread.QuantityReserved)
}

func TestRecalculateReservedSumsAcrossLots(t *testing.T) {
	store := NewMemoryStore()
	first := addLot(store, testKey, 10)
	second := addLot(store, testKey, 10)
	other := addLot(store, models.LotKey{BarangayID: 4, VaccineDoseID: 8}, 10)
	store.AddSession(models.VaccinationSession{LotID: first.ID, Target: 4})
	store.AddSession(models.VaccinationSession{LotID: second.ID, Target: 6})
	store.AddSession(models.VaccinationSession{LotID: other.ID, Target: 9})

	reservation, err := newTestLedger(store).RecalculateReserved(context.Background(), testKey)

	require.NoError(t, err)
	assert.Equal(t, 10, reservation.QuantityReserved)
	untouched, _ := store.Lot(other.ID)
	assert.Equal(t, 0, untouched.QuantityReserved)
}

func TestRecalculateReservedUnknownKey(t *testing.T) {
	_, err := newTestLedger(NewMemoryStore()).RecalculateReserved(context.Background(), testKey)

	var notFound *custom_error.LotNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestRestoreReturnsDeductedDoses(t *testing.T) {
	store := NewMemoryStore()
	first := store.AddLot(models.InventoryLot{BarangayID: 3, VaccineDoseID: 8, QuantityOnHand: 4, ExpiryDate: date(2025, 1, 1)})
	second := store.AddLot(models.InventoryLot{BarangayID: 3, VaccineDoseID: 8, QuantityOnHand: 10, ExpiryDate: date(2026, 1, 1)})
	l := newTestLedger(store)

	records, err := l.Deduct(context.Background(), testKey, 6)
	require.NoError(t, err)
	assert.Equal(t, []models.LotDeduction{{LotID: first.ID, Amount: 4}, {LotID: second.ID, Amount: 2}}, records)

	require.NoError(t, l.Restore(context.Background(), testKey, records))

	assert.Equal(t, 14, totalOnHand(t, store, first.ID, second.ID))
	reread, _ := store.Lot(first.ID)
	assert.Equal(t, 4, reread.QuantityOnHand)
}

func TestRestoreRejectsForeignLot(t *testing.T) {
	store := NewMemoryStore()
	addLot(store, testKey, 4)
	other := addLot(store, models.LotKey{BarangayID: 5, VaccineDoseID: 8}, 4)

	err := newTestLedger(store).Restore(context.Background(), testKey, []models.LotDeduction{{LotID: other.ID, Amount: 1}})

	var notFound *custom_error.LotNotFoundError
	assert.ErrorAs(t, err, &notFound)
	reread, _ := store.Lot(other.ID)
	assert.Equal(t, 4, reread.QuantityOnHand)
}

func TestMalformedRowsAreRejected(t *testing.T) {
	store := NewMemoryStore()
	store.AddLot(models.InventoryLot{BarangayID: 3, VaccineDoseID: 8, QuantityOnHand: -1})

	_, err := newTestLedger(store).Deduct(context.Background(), testKey, 1)

	var storage *custom_error.StorageError
	require.ErrorAs(t, err, &storage)
	assert.False(t, storage.OutcomeUnknown)
}

func intPtr(v int) *int {
	return &v
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/models"

	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts  = 5
	DefaultRetryBackoff = 10 * time.Millisecond
)

// InventoryLedger is what the HTTP and session layers need from the ledger.
type InventoryLedger interface {
	Deduct(ctx context.Context, key models.LotKey, quantity int) ([]models.LotDeduction, error)
	Restore(ctx context.Context, key models.LotKey, records []models.LotDeduction) error
	RecalculateReserved(ctx context.Context, key models.LotKey) (*models.Reservation, error)
}

type Ledger struct {
	store       Store
	logger      *zap.Logger
	maxAttempts int
	backoff     time.Duration
}

type Option func(*Ledger)

func WithMaxAttempts(attempts int) Option {
	return func(l *Ledger) {
		if attempts > 0 {
			l.maxAttempts = attempts
		}
	}
}

func WithRetryBackoff(backoff time.Duration) Option {
	return func(l *Ledger) {
		if backoff >= 0 {
			l.backoff = backoff
		}
	}
}

func NewLedger(store Store, logger *zap.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:       store,
		logger:      logger,
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Deduct takes quantity doses from the lots of key, earliest expiry first.
// Either every planned lot is decremented or none is.
func (l *Ledger) Deduct(ctx context.Context, key models.LotKey, quantity int) ([]models.LotDeduction, error) {
	if quantity <= 0 {
		return nil, &custom_error.InvalidQuantityError{Quantity: quantity}
	}

	var applied []models.LotDeduction
	err := l.withRetry(ctx, "deduct", key, func(tx Tx) error {
		lots, err := loadLots(ctx, tx, key)
		if err != nil {
			return err
		}

		plan, err := PlanDeduction(lots, quantity)
		if err != nil {
			return err
		}

		byID := indexLots(lots)
		for _, record := range plan {
			lot := byID[record.LotID]
			if err := tx.SetQuantityOnHand(ctx, lot, lot.QuantityOnHand-record.Amount); err != nil {
				return err
			}
		}

		applied = plan
		return nil
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("Deducted inventory",
		zap.Stringer("key", key),
		zap.Int("quantity", quantity),
		zap.Int("lots", len(applied)),
	)

	return applied, nil
}

// Restore gives back doses taken by an earlier Deduct. It is the compensation
// step for callers whose follow-up write failed after a deduction.
func (l *Ledger) Restore(ctx context.Context, key models.LotKey, records []models.LotDeduction) error {
	perLot := make(map[int]int, len(records))
	for _, record := range records {
		if record.Amount <= 0 {
			return &custom_error.InvalidQuantityError{Quantity: record.Amount}
		}
		perLot[record.LotID] += record.Amount
	}
	if len(perLot) == 0 {
		return nil
	}

	err := l.withRetry(ctx, "restore", key, func(tx Tx) error {
		lots, err := loadLots(ctx, tx, key)
		if err != nil {
			return err
		}

		byID := indexLots(lots)
		for lotID, amount := range perLot {
			lot, ok := byID[lotID]
			if !ok {
				return &custom_error.LotNotFoundError{BarangayID: key.BarangayID, VaccineDoseID: key.VaccineDoseID}
			}
			if err := tx.SetQuantityOnHand(ctx, lot, lot.QuantityOnHand+amount); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.logger.Info("Restored inventory", zap.Stringer("key", key), zap.Int("lots", len(perLot)))
	return nil
}

// RecalculateReserved replaces the reserved counter of every lot of key with
// the total target of the open sessions referencing it.
func (l *Ledger) RecalculateReserved(ctx context.Context, key models.LotKey) (*models.Reservation, error) {
	var reservation *models.Reservation
	err := l.withRetry(ctx, "recalculate_reserved", key, func(tx Tx) error {
		lots, err := loadLots(ctx, tx, key)
		if err != nil {
			return err
		}

		ids := make([]int, len(lots))
		for i, lot := range lots {
			ids[i] = lot.ID
		}

		demand, err := tx.OpenSessionDemand(ctx, ids)
		if err != nil {
			return err
		}

		result := &models.Reservation{
			Key:  key,
			Lots: make([]models.LotReservation, 0, len(lots)),
		}
		for _, lot := range lots {
			reserved := demand[lot.ID]
			if reserved != lot.QuantityReserved {
				if err := tx.SetQuantityReserved(ctx, lot, reserved); err != nil {
					return err
				}
			}
			result.QuantityReserved += reserved
			result.Lots = append(result.Lots, models.LotReservation{LotID: lot.ID, QuantityReserved: reserved})
		}

		reservation = result
		return nil
	})
	if err != nil {
		return nil, err
	}

	return reservation, nil
}

func (l *Ledger) withRetry(ctx context.Context, op string, key models.LotKey, fn func(tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		err = l.store.WithinTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !custom_error.IsWriteConflict(err) {
			return classify(ctx, op, err)
		}

		l.logger.Debug("Write conflict on inventory lot",
			zap.String("op", op),
			zap.Stringer("key", key),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt < l.maxAttempts {
			if sleepErr := l.sleep(ctx, attempt); sleepErr != nil {
				return &custom_error.StorageError{Op: op, Err: sleepErr}
			}
		}
	}

	l.logger.Warn("Giving up after repeated write conflicts",
		zap.String("op", op),
		zap.Stringer("key", key),
		zap.Int("attempts", l.maxAttempts),
	)
	return err
}

func (l *Ledger) sleep(ctx context.Context, attempt int) error {
	if l.backoff <= 0 {
		return ctx.Err()
	}

	delay := time.Duration(attempt)*l.backoff + rand.N(l.backoff)
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// classify keeps domain errors as they are and turns everything else into a
// StorageError. A failure while the context is done may have happened after
// the commit reached the database, so its outcome is unknown.
func classify(ctx context.Context, op string, err error) error {
	var (
		invalid      *custom_error.InvalidQuantityError
		insufficient *custom_error.InsufficientStockError
		notFound     *custom_error.LotNotFoundError
		storage      *custom_error.StorageError
	)

	switch {
	case errors.As(err, &invalid), errors.As(err, &insufficient), errors.As(err, &notFound):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), ctx.Err() != nil:
		return &custom_error.StorageError{Op: op, Err: err, OutcomeUnknown: true}
	case errors.As(err, &storage):
		return err
	default:
		return &custom_error.StorageError{Op: op, Err: err}
	}
}

func loadLots(ctx context.Context, tx Tx, key models.LotKey) ([]models.InventoryLot, error) {
	lots, err := tx.LotsForKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(lots) == 0 {
		return nil, &custom_error.LotNotFoundError{BarangayID: key.BarangayID, VaccineDoseID: key.VaccineDoseID}
	}

	for i := range lots {
		if err := lots[i].Validate(); err != nil {
			return nil, &custom_error.StorageError{Op: "load lots", Err: fmt.Errorf("malformed row: %w", err)}
		}
	}

	return lots, nil
}

func indexLots(lots []models.InventoryLot) map[int]models.InventoryLot {
	byID := make(map[int]models.InventoryLot, len(lots))
	for _, lot := range lots {
		byID[lot.ID] = lot
	}
	return byID
}

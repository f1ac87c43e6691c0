package ledger

import (
	"context"
	"errors"
	"fmt"

	"vaxsync/internal/repository"
	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/metadata"
	"vaxsync/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
)

var lotColumns = []interface{}{
	"id",
	"barangay_id",
	"vaccine_dose_id",
	"quantity_on_hand",
	"quantity_reserved",
	"batch_number",
	"expiry_date",
	"source",
	"version",
	"created_at",
	"updated_at",
}

type PostgresStore struct {
	repository *repository.Repository
}

func NewPostgresStore(r *repository.Repository) *PostgresStore {
	return &PostgresStore{repository: r}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return repository.WithTransaction(ctx, s.repository.GoquDBWrapper, func(tx *goqu.TxDatabase) error {
		return fn(&postgresTx{tx: tx})
	})
}

type postgresTx struct {
	tx *goqu.TxDatabase
}

func (t *postgresTx) LotsForKey(ctx context.Context, key models.LotKey) ([]models.InventoryLot, error) {
	var lots []models.InventoryLot
	query := t.tx.
		From("inventory_lots").
		Select(lotColumns...).
		Where(goqu.Ex{
			"barangay_id":     key.BarangayID,
			"vaccine_dose_id": key.VaccineDoseID,
		}).
		Order(goqu.I("id").Asc())

	if err := query.Executor().ScanStructsContext(ctx, &lots); err != nil {
		return nil, wrapStorageError("select inventory lots", err)
	}

	return lots, nil
}

func (t *postgresTx) SetQuantityOnHand(ctx context.Context, lot models.InventoryLot, quantity int) error {
	return t.compareAndSwap(ctx, lot, goqu.Record{"quantity_on_hand": quantity})
}

func (t *postgresTx) SetQuantityReserved(ctx context.Context, lot models.InventoryLot, quantity int) error {
	return t.compareAndSwap(ctx, lot, goqu.Record{"quantity_reserved": quantity})
}

func (t *postgresTx) OpenSessionDemand(ctx context.Context, lotIDs []int) (map[int]int, error) {
	demand := make(map[int]int, len(lotIDs))
	if len(lotIDs) == 0 {
		return demand, nil
	}

	openStatuses := make([]string, len(metadata.OpenStatuses))
	for i, status := range metadata.OpenStatuses {
		openStatuses[i] = status.String()
	}

	var rows []struct {
		LotID  int `db:"lot_id"`
		Demand int `db:"demand"`
	}
	query := t.tx.
		From("vaccination_sessions").
		Select(
			goqu.I("vaccine_id").As("lot_id"),
			goqu.COALESCE(goqu.SUM("target"), 0).As("demand"),
		).
		Where(goqu.Ex{
			"vaccine_id": lotIDs,
			"status":     openStatuses,
		}).
		GroupBy("vaccine_id")

	if err := query.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, wrapStorageError("sum open session demand", err)
	}

	for _, row := range rows {
		demand[row.LotID] = row.Demand
	}

	return demand, nil
}

func (t *postgresTx) compareAndSwap(ctx context.Context, lot models.InventoryLot, values goqu.Record) error {
	values["version"] = goqu.L("version + 1")
	values["updated_at"] = goqu.L("NOW()")

	result, err := t.tx.Update("inventory_lots").
		Set(values).
		Where(goqu.Ex{
			"id":      lot.ID,
			"version": lot.Version,
		}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		return wrapStorageError(fmt.Sprintf("update inventory lot %d", lot.ID), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return wrapStorageError(fmt.Sprintf("check rows affected for lot %d", lot.ID), err)
	}
	if rowsAffected == 0 {
		return &custom_error.WriteConflictError{LotID: lot.ID}
	}

	return nil
}

func wrapStorageError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		wrapped := custom_error.WrapDBError(pqErr.Message, string(pqErr.Code))
		if custom_error.IsWriteConflict(wrapped) {
			return wrapped
		}
		return &custom_error.StorageError{Op: op, Err: wrapped}
	}
	return &custom_error.StorageError{Op: op, Err: err}
}

package lots

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vaxsync/internal/repository"
	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
)

type LotRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *LotRepository {
	return &LotRepository{repository: r}
}

func (r *LotRepository) PersistLot(ctx context.Context, lot *models.InventoryLot) error {
	query := r.repository.GoquDBWrapper.Insert("inventory_lots").
		Rows(goqu.Record{
			"barangay_id":      lot.BarangayID,
			"vaccine_dose_id":  lot.VaccineDoseID,
			"quantity_on_hand": lot.QuantityOnHand,
			"batch_number":     lot.BatchNumber,
			"expiry_date":      lot.ExpiryDate,
			"source":           lot.Source,
		}).
		Returning("id", "quantity_reserved", "version", "created_at", "updated_at")

	var persisted struct {
		ID               int       `db:"id"`
		QuantityReserved int       `db:"quantity_reserved"`
		Version          int       `db:"version"`
		CreatedAt        time.Time `db:"created_at"`
		UpdatedAt        time.Time `db:"updated_at"`
	}
	if _, err := query.Executor().ScanStructContext(ctx, &persisted); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return custom_error.WrapDBError("Barangay or vaccine does not exist", string(pqErr.Code))
		}
		return fmt.Errorf("failed to insert inventory lot: %w", err)
	}

	lot.ID = persisted.ID
	lot.QuantityReserved = persisted.QuantityReserved
	lot.Version = persisted.Version
	lot.CreatedAt = persisted.CreatedAt
	lot.UpdatedAt = persisted.UpdatedAt

	return nil
}

func (r *LotRepository) GetLots(ctx context.Context, conditions repository.QueryBuilder) ([]models.InventoryLot, error) {
	query := r.repository.GoquDBWrapper.
		From(goqu.T("inventory_lots").As("l")).
		Select(
			"l.id",
			"l.barangay_id",
			"l.vaccine_dose_id",
			"l.quantity_on_hand",
			"l.quantity_reserved",
			"l.batch_number",
			"l.expiry_date",
			"l.source",
			"l.version",
			"l.created_at",
			"l.updated_at",
		).
		Order(goqu.I("l.barangay_id").Asc(), goqu.I("l.vaccine_dose_id").Asc(), goqu.I("l.expiry_date").Asc().NullsLast(), goqu.I("l.id").Asc())

	if conditions != nil && conditions.HasConditions() {
		query = query.Where(conditions.BuildConditions(map[string]string{
			"barangay_id": "l.barangay_id",
			"vaccine_id":  "l.vaccine_dose_id",
		}))
	}

	lots := []models.InventoryLot{}
	if err := query.Executor().ScanStructsContext(ctx, &lots); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return lots, nil
}

package barangays

import (
	"context"
	"errors"
	"fmt"

	"vaxsync/internal/repository"
	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
)

type BarangayRepository struct {
	Repository *repository.Repository
}

func NewBarangayRepository(r *repository.Repository) *BarangayRepository {
	return &BarangayRepository{Repository: r}
}

func (r *BarangayRepository) GetBarangays(ctx context.Context) ([]models.Barangay, error) {
	barangays := []models.Barangay{}
	query := r.Repository.GoquDBWrapper.
		Select("id", "name", "municipality", "details").
		From("barangays").
		Order(goqu.I("name").Asc())
	if err := query.Executor().ScanStructsContext(ctx, &barangays); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	return barangays, nil
}

func (r *BarangayRepository) PersistBarangay(ctx context.Context, barangay *models.Barangay) error {
	query := r.Repository.GoquDBWrapper.Insert("barangays").
		Rows(goqu.Record{
			"name":         barangay.Name,
			"municipality": barangay.Municipality,
			"details":      barangay.Details,
		}).
		Returning("id")

	if _, err := query.Executor().ScanValContext(ctx, &barangay.ID); err != nil {
		return wrapInsertError("barangay", err)
	}

	return nil
}

func (r *BarangayRepository) GetVaccineDoses(ctx context.Context) ([]models.VaccineDose, error) {
	doses := []models.VaccineDose{}
	query := r.Repository.GoquDBWrapper.
		Select("id", "vaccine_name", "dose_code", "doses_per_vial").
		From("vaccine_doses").
		Order(goqu.I("vaccine_name").Asc(), goqu.I("dose_code").Asc())
	if err := query.Executor().ScanStructsContext(ctx, &doses); err != nil {
		return nil, fmt.Errorf("unable to execute SQL: %w", err)
	}

	return doses, nil
}

func (r *BarangayRepository) PersistVaccineDose(ctx context.Context, dose *models.VaccineDose) error {
	query := r.Repository.GoquDBWrapper.Insert("vaccine_doses").
		Rows(goqu.Record{
			"vaccine_name":   dose.VaccineName,
			"dose_code":      dose.DoseCode,
			"doses_per_vial": dose.DosesPerVial,
		}).
		Returning("id")

	if _, err := query.Executor().ScanValContext(ctx, &dose.ID); err != nil {
		return wrapInsertError("vaccine dose", err)
	}

	return nil
}

func wrapInsertError(resource string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return custom_error.WrapDBError(fmt.Sprintf("Duplicate %s", resource), string(pqErr.Code))
	}
	return fmt.Errorf("failed to insert %s record: %w", resource, err)
}

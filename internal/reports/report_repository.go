package reports

import (
	"context"
	"fmt"
	"time"

	"vaxsync/internal/repository"
	"vaxsync/pkg/metadata"

	"github.com/doug-martin/goqu/v9"
)

type InventoryTotals struct {
	BarangayID       int        `db:"barangay_id"`
	BarangayName     string     `db:"barangay_name"`
	VaccineDoseID    int        `db:"vaccine_dose_id"`
	VaccineName      string     `db:"vaccine_name"`
	DoseCode         string     `db:"dose_code"`
	QuantityOnHand   int        `db:"quantity_on_hand"`
	QuantityReserved int        `db:"quantity_reserved"`
	LotCount         int        `db:"lot_count"`
	EarliestExpiry   *time.Time `db:"earliest_expiry"`
}

type CompletedSession struct {
	SessionDate   time.Time `db:"session_date"`
	VaccineDoseID int       `db:"vaccine_dose_id"`
	VaccineName   string    `db:"vaccine_name"`
	DoseCode      string    `db:"dose_code"`
	Target        int       `db:"target"`
	Administered  int       `db:"administered"`
}

type ReportRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *ReportRepository {
	return &ReportRepository{repository: r}
}

func (r *ReportRepository) GetInventoryTotals(ctx context.Context, barangayID *int) ([]InventoryTotals, error) {
	query := r.repository.GoquDBWrapper.
		From(goqu.T("inventory_lots").As("l")).
		Join(goqu.T("barangays").As("b"), goqu.On(goqu.Ex{"l.barangay_id": goqu.I("b.id")})).
		Join(goqu.T("vaccine_doses").As("v"), goqu.On(goqu.Ex{"l.vaccine_dose_id": goqu.I("v.id")})).
		Select(
			goqu.I("l.barangay_id").As("barangay_id"),
			goqu.I("b.name").As("barangay_name"),
			goqu.I("l.vaccine_dose_id").As("vaccine_dose_id"),
			goqu.I("v.vaccine_name").As("vaccine_name"),
			goqu.I("v.dose_code").As("dose_code"),
			goqu.COALESCE(goqu.SUM("l.quantity_on_hand"), 0).As("quantity_on_hand"),
			goqu.COALESCE(goqu.SUM("l.quantity_reserved"), 0).As("quantity_reserved"),
			goqu.COUNT("l.id").As("lot_count"),
			goqu.L("MIN(CASE WHEN l.quantity_on_hand > 0 THEN l.expiry_date END)").As("earliest_expiry"),
		).
		GroupBy("l.barangay_id", "b.name", "l.vaccine_dose_id", "v.vaccine_name", "v.dose_code").
		Order(goqu.I("b.name").Asc(), goqu.I("v.vaccine_name").Asc(), goqu.I("v.dose_code").Asc())

	if barangayID != nil {
		query = query.Where(goqu.Ex{"l.barangay_id": *barangayID})
	}

	totals := []InventoryTotals{}
	if err := query.Executor().ScanStructsContext(ctx, &totals); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return totals, nil
}

// GetCompletedSessions returns completed sessions with from <= session_date < to.
func (r *ReportRepository) GetCompletedSessions(ctx context.Context, from, to time.Time) ([]CompletedSession, error) {
	query := r.repository.GoquDBWrapper.
		From(goqu.T("vaccination_sessions").As("s")).
		Join(goqu.T("inventory_lots").As("l"), goqu.On(goqu.Ex{"s.vaccine_id": goqu.I("l.id")})).
		Join(goqu.T("vaccine_doses").As("v"), goqu.On(goqu.Ex{"l.vaccine_dose_id": goqu.I("v.id")})).
		Select(
			goqu.I("s.session_date").As("session_date"),
			goqu.I("l.vaccine_dose_id").As("vaccine_dose_id"),
			goqu.I("v.vaccine_name").As("vaccine_name"),
			goqu.I("v.dose_code").As("dose_code"),
			goqu.I("s.target").As("target"),
			goqu.I("s.administered").As("administered"),
		).
		Where(
			goqu.I("s.status").Eq(metadata.StatusCompleted.String()),
			goqu.I("s.session_date").Gte(from),
			goqu.I("s.session_date").Lt(to),
		).
		Order(goqu.I("s.session_date").Asc())

	sessions := []CompletedSession{}
	if err := query.Executor().ScanStructsContext(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return sessions, nil
}

package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"vaxsync/internal/repository"
	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/metadata"
	"vaxsync/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
)

type SessionRepository struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) *SessionRepository {
	return &SessionRepository{repository: r}
}

func (r *SessionRepository) GetLot(ctx context.Context, lotID int) (*models.InventoryLot, error) {
	var lot models.InventoryLot
	found, err := r.repository.GoquDBWrapper.
		From("inventory_lots").
		Select("id", "barangay_id", "vaccine_dose_id", "quantity_on_hand", "quantity_reserved",
			"batch_number", "expiry_date", "source", "version", "created_at", "updated_at").
		Where(goqu.Ex{"id": lotID}).
		Executor().
		ScanStructContext(ctx, &lot)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, &custom_error.NotFoundError{Resource: "inventory lot", ID: lotID}
	}

	return &lot, nil
}

func (r *SessionRepository) PersistSession(ctx context.Context, session *models.VaccinationSession) error {
	query := r.repository.GoquDBWrapper.Insert("vaccination_sessions").
		Rows(goqu.Record{
			"barangay_id":  session.BarangayID,
			"vaccine_id":   session.LotID,
			"target":       session.Target,
			"administered": session.Administered,
			"status":       session.Status.String(),
			"session_date": session.SessionDate,
			"notes":        session.Notes,
			"created_by":   session.CreatedBy,
		}).
		Returning("id", "created_at", "updated_at")

	var persisted struct {
		ID        int       `db:"id"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	if _, err := query.Executor().ScanStructContext(ctx, &persisted); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			return custom_error.WrapDBError("Barangay or lot does not exist", string(pqErr.Code))
		}
		return fmt.Errorf("failed to insert vaccination session: %w", err)
	}

	session.ID = persisted.ID
	session.CreatedAt = persisted.CreatedAt
	session.UpdatedAt = persisted.UpdatedAt

	return nil
}

func (r *SessionRepository) GetSession(ctx context.Context, id int) (*models.SessionWithKey, error) {
	var session models.SessionWithKey
	found, err := r.sessionQuery().
		Where(goqu.Ex{"s.id": id}).
		Executor().
		ScanStructContext(ctx, &session)
	if err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}
	if !found {
		return nil, &custom_error.NotFoundError{Resource: "vaccination session", ID: id}
	}

	return &session, nil
}

func (r *SessionRepository) GetSessions(ctx context.Context, conditions repository.QueryBuilder) ([]models.SessionWithKey, error) {
	query := r.sessionQuery().Order(goqu.I("s.session_date").Desc(), goqu.I("s.id").Desc())
	if conditions != nil && conditions.HasConditions() {
		query = query.Where(conditions.BuildConditions(map[string]string{
			"barangay_id": "s.barangay_id",
			"status":      "s.status",
			"lot_id":      "s.vaccine_id",
		}))
	}

	sessions := []models.SessionWithKey{}
	if err := query.Executor().ScanStructsContext(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return sessions, nil
}

// UpdateStatus only succeeds while the stored status still equals from, so two
// concurrent transitions of one session cannot both win.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id int, from, to metadata.SessionStatus, administered int) error {
	result, err := r.repository.GoquDBWrapper.
		Update("vaccination_sessions").
		Set(goqu.Record{
			"status":       to.String(),
			"administered": administered,
			"updated_at":   goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": id, "status": from.String()}).
		Executor().
		ExecContext(ctx)

	return checkGuardedUpdate(result, err, id)
}

func (r *SessionRepository) UpdateAdministered(ctx context.Context, id int, administered int) error {
	openStatuses := make([]string, len(metadata.OpenStatuses))
	for i, status := range metadata.OpenStatuses {
		openStatuses[i] = status.String()
	}

	result, err := r.repository.GoquDBWrapper.
		Update("vaccination_sessions").
		Set(goqu.Record{
			"administered": administered,
			"updated_at":   goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": id, "status": openStatuses}).
		Executor().
		ExecContext(ctx)

	return checkGuardedUpdate(result, err, id)
}

func (r *SessionRepository) sessionQuery() *goqu.SelectDataset {
	return r.repository.GoquDBWrapper.
		From(goqu.T("vaccination_sessions").As("s")).
		Join(goqu.T("inventory_lots").As("l"), goqu.On(goqu.Ex{"s.vaccine_id": goqu.I("l.id")})).
		Select(
			goqu.I("s.id").As("id"),
			goqu.I("s.barangay_id").As("barangay_id"),
			goqu.I("s.vaccine_id").As("vaccine_id"),
			goqu.I("s.target").As("target"),
			goqu.I("s.administered").As("administered"),
			goqu.I("s.status").As("status"),
			goqu.I("s.session_date").As("session_date"),
			goqu.I("s.notes").As("notes"),
			goqu.I("s.created_by").As("created_by"),
			goqu.I("s.created_at").As("created_at"),
			goqu.I("s.updated_at").As("updated_at"),
			goqu.I("l.vaccine_dose_id").As("vaccine_dose_id"),
		)
}

func checkGuardedUpdate(result sql.Result, err error, id int) error {
	if err != nil {
		return fmt.Errorf("failed to update vaccination session %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not retrieve rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &custom_error.StaleSessionError{ID: id}
	}

	return nil
}

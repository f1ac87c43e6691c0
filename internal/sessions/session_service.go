package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	inventorylog "vaxsync/internal/inventory/inventory_log"
	"vaxsync/internal/inventory/ledger"
	"vaxsync/internal/repository"
	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/metadata"
	"vaxsync/pkg/models"

	"go.uber.org/zap"
)

const sessionDateLayout = "2006-01-02"

type SessionStore interface {
	GetLot(ctx context.Context, lotID int) (*models.InventoryLot, error)
	PersistSession(ctx context.Context, session *models.VaccinationSession) error
	GetSession(ctx context.Context, id int) (*models.SessionWithKey, error)
	GetSessions(ctx context.Context, conditions repository.QueryBuilder) ([]models.SessionWithKey, error)
	UpdateStatus(ctx context.Context, id int, from, to metadata.SessionStatus, administered int) error
	UpdateAdministered(ctx context.Context, id int, administered int) error
}

type ScheduleRequest struct {
	BarangayID  int     `json:"barangay_id" binding:"required"`
	LotID       int     `json:"vaccine_id" binding:"required"`
	Target      int     `json:"target"`
	SessionDate string  `json:"session_date" binding:"required"`
	Notes       *string `json:"notes"`
}

type StatusRequest struct {
	Status       string `json:"status" binding:"required"`
	Administered *int   `json:"administered"`
}

type AdministeredRequest struct {
	Administered *int `json:"administered" binding:"required"`
}

type SessionFilter struct {
	BarangayID *int
	LotID      *int
	Status     *metadata.SessionStatus
}

// Transition is the outcome of a status change.
type Transition struct {
	Session         *models.SessionWithKey `json:"session"`
	PreviousStatus  string                 `json:"previousStatus"`
	DeductedRecords []models.LotDeduction  `json:"deductedRecords,omitempty"`
}

type SessionService struct {
	repository   SessionStore
	ledger       ledger.InventoryLedger
	inventoryLog *inventorylog.InventoryLog
	logger       *zap.Logger
}

func NewSessionService(r SessionStore, l ledger.InventoryLedger, il *inventorylog.InventoryLog, logger *zap.Logger) *SessionService {
	return &SessionService{
		repository:   r,
		ledger:       l,
		inventoryLog: il,
		logger:       logger,
	}
}

func (s *SessionService) Schedule(ctx context.Context, req ScheduleRequest, userID *int) (*models.SessionWithKey, error) {
	if req.Target <= 0 {
		return nil, &custom_error.ValidationError{Field: "target", Message: "must be a positive integer"}
	}
	sessionDate, err := time.Parse(sessionDateLayout, req.SessionDate)
	if err != nil {
		return nil, &custom_error.ValidationError{Field: "session_date", Message: "expected format YYYY-MM-DD"}
	}

	lot, err := s.repository.GetLot(ctx, req.LotID)
	if err != nil {
		return nil, err
	}
	if lot.BarangayID != req.BarangayID {
		return nil, &custom_error.ValidationError{
			Field:   "vaccine_id",
			Message: fmt.Sprintf("lot %d is not held by barangay %d", lot.ID, req.BarangayID),
		}
	}

	session := &models.SessionWithKey{
		VaccinationSession: models.VaccinationSession{
			BarangayID:  req.BarangayID,
			LotID:       lot.ID,
			Target:      req.Target,
			Status:      metadata.StatusScheduled,
			SessionDate: sessionDate,
			Notes:       req.Notes,
			CreatedBy:   userID,
		},
		VaccineDoseID: lot.VaccineDoseID,
	}
	if err := s.repository.PersistSession(ctx, &session.VaccinationSession); err != nil {
		return nil, err
	}

	s.logger.Info("Scheduled vaccination session",
		zap.Int("session_id", session.ID),
		zap.Stringer("key", session.Key()),
		zap.Int("target", session.Target),
	)
	s.inventoryLog.CreateSessionLogEntry(ctx, "create", userID, &session.VaccinationSession, "")
	s.refreshReserved(ctx, session.Key())

	return session, nil
}

// UpdateStatus moves a session through its state machine. Completing a session
// deducts the administered doses first; if the status write then fails the
// deduction is restored.
func (s *SessionService) UpdateStatus(ctx context.Context, id int, req StatusRequest, userID *int) (*Transition, error) {
	next, err := metadata.NewSessionStatus(req.Status)
	if err != nil {
		return nil, &custom_error.ValidationError{Field: "status", Message: err.Error()}
	}
	if req.Administered != nil && *req.Administered < 0 {
		return nil, &custom_error.ValidationError{Field: "administered", Message: "must be zero or greater"}
	}

	session, err := s.repository.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := session.Status
	if !previous.CanTransitionTo(next) {
		return nil, &custom_error.InvalidTransitionError{From: previous.String(), To: next.String()}
	}

	administered := session.Administered
	if req.Administered != nil {
		administered = *req.Administered
	}

	key := session.Key()
	var records []models.LotDeduction
	if next == metadata.StatusCompleted && administered > 0 {
		records, err = s.ledger.Deduct(ctx, key, administered)
		if err != nil {
			if ledger.IsOutcomeUnknown(err) {
				go ledger.Reconcile(context.WithoutCancel(ctx), s.ledger, key, s.logger)
			}
			return nil, err
		}
	}

	if err := s.repository.UpdateStatus(ctx, id, previous, next, administered); err != nil {
		if len(records) == 0 {
			return nil, err
		}
		if stored, err := s.settleFailedWrite(ctx, session, next, administered, records, userID, err); !stored {
			return nil, err
		}
	}

	session.Status = next
	session.Administered = administered

	if len(records) > 0 {
		s.inventoryLog.CreateDeductionLogEntry(ctx, "deduct", userID, &models.Deduction{Key: key, Records: records}, &session.ID)
	}
	s.inventoryLog.CreateSessionLogEntry(ctx, "status_change", userID, &session.VaccinationSession, previous.String())
	s.logger.Info("Vaccination session status changed",
		zap.Int("session_id", id),
		zap.String("from", previous.String()),
		zap.String("to", next.String()),
		zap.Int("administered", administered),
	)
	s.refreshReserved(ctx, key)

	return &Transition{Session: session, PreviousStatus: previous.String(), DeductedRecords: records}, nil
}

func (s *SessionService) RecordAdministered(ctx context.Context, id int, administered int, userID *int) (*models.SessionWithKey, error) {
	if administered < 0 {
		return nil, &custom_error.ValidationError{Field: "administered", Message: "must be zero or greater"}
	}

	session, err := s.repository.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status.IsTerminal() {
		return nil, &custom_error.InvalidTransitionError{From: session.Status.String(), To: session.Status.String()}
	}

	if err := s.repository.UpdateAdministered(ctx, id, administered); err != nil {
		return nil, err
	}
	session.Administered = administered

	s.inventoryLog.CreateSessionLogEntry(ctx, "administered", userID, &session.VaccinationSession, session.Status.String())

	return session, nil
}

func (s *SessionService) List(ctx context.Context, filter SessionFilter) ([]models.SessionWithKey, error) {
	conditions := repository.NewQueryBuilder()
	if filter.BarangayID != nil {
		conditions.AddCondition("barangay_id", *filter.BarangayID)
	}
	if filter.LotID != nil {
		conditions.AddCondition("lot_id", *filter.LotID)
	}
	if filter.Status != nil {
		conditions.AddCondition("status", filter.Status.String())
	}

	return s.repository.GetSessions(ctx, conditions)
}

// settleFailedWrite decides the fate of a deduction whose status write
// returned an error. A stale session was never written, so the doses go back.
// Any other failure may still have committed; the stored session decides, and
// when it cannot be read the deduction is kept and reported as unknown.
func (s *SessionService) settleFailedWrite(ctx context.Context, session *models.SessionWithKey, next metadata.SessionStatus, administered int, records []models.LotDeduction, userID *int, writeErr error) (bool, error) {
	var stale *custom_error.StaleSessionError
	if errors.As(writeErr, &stale) {
		s.compensate(ctx, session, records, userID)
		return false, writeErr
	}

	key := session.Key()
	stored, err := s.repository.GetSession(context.WithoutCancel(ctx), session.ID)
	if err != nil {
		s.logger.Error("Session status write outcome unknown, deducted doses kept",
			zap.Int("session_id", session.ID),
			zap.Stringer("key", key),
			zap.Any("records", records),
			zap.NamedError("write_error", writeErr),
			zap.Error(err),
		)
		go ledger.Reconcile(context.WithoutCancel(ctx), s.ledger, key, s.logger)
		return false, &custom_error.StorageError{Op: "update_session_status", Err: writeErr, OutcomeUnknown: true}
	}

	if stored.Status == next && stored.Administered == administered {
		s.logger.Warn("Session status write reported an error but was stored",
			zap.Int("session_id", session.ID),
			zap.String("status", next.String()),
			zap.NamedError("write_error", writeErr),
		)
		return true, nil
	}

	s.compensate(ctx, session, records, userID)
	return false, &custom_error.StorageError{Op: "update_session_status", Err: writeErr}
}

func (s *SessionService) compensate(ctx context.Context, session *models.SessionWithKey, records []models.LotDeduction, userID *int) {
	key := session.Key()
	if err := s.ledger.Restore(context.WithoutCancel(ctx), key, records); err != nil {
		s.logger.Error("Could not restore deducted doses, inventory needs manual correction",
			zap.Int("session_id", session.ID),
			zap.Stringer("key", key),
			zap.Any("records", records),
			zap.Error(err),
		)
		return
	}

	s.inventoryLog.CreateDeductionLogEntry(ctx, "restore", userID, &models.Deduction{Key: key, Records: records}, &session.ID)
	s.logger.Warn("Restored doses after failed session update",
		zap.Int("session_id", session.ID),
		zap.Stringer("key", key),
	)
}

// refreshReserved failures are logged only: the session change is already
// stored and the next recalculation of the key heals the counter.
func (s *SessionService) refreshReserved(ctx context.Context, key models.LotKey) {
	if _, err := s.ledger.RecalculateReserved(ctx, key); err != nil {
		s.logger.Warn("Could not recalculate reserved doses",
			zap.Stringer("key", key),
			zap.Error(err),
		)
		if ledger.IsOutcomeUnknown(err) {
			go ledger.Reconcile(context.WithoutCancel(ctx), s.ledger, key, s.logger)
		}
	}
}

package inventorylog

import (
	"context"
	"vaxsync/pkg/auditlog"
	"vaxsync/pkg/models"
)

type InventoryLog struct {
	a *auditlog.Auditlog
}

func NewInventoryLog(a *auditlog.Auditlog) *InventoryLog {
	return &InventoryLog{a: a}
}

func (s *InventoryLog) CreateLotLogEntry(ctx context.Context, userID *int, lot *models.InventoryLot) {
	s.a.Log(
		ctx,
		"create",
		userID,
		map[string]interface{}{
			"barangay_id":      lot.BarangayID,
			"vaccine_id":       lot.VaccineDoseID,
			"quantity_on_hand": lot.QuantityOnHand,
			"batch_number":     lot.BatchNumber,
			"msg":              "Vaccine lot registered",
		},
		lot,
	)
}

// CreateDeductionLogEntry writes one entry for the whole deduction and one per
// touched lot so a lot's history shows every change of its on-hand quantity.
func (s *InventoryLog) CreateDeductionLogEntry(ctx context.Context, action string, userID *int, deduction *models.Deduction, sessionID *int) {
	messages := map[string]string{
		"deduct":  "Doses deducted from inventory",
		"restore": "Doses returned to inventory",
	}
	msg, ok := messages[action]
	if !ok {
		return
	}

	s.a.Log(
		ctx,
		action,
		userID,
		map[string]interface{}{
			"barangay_id": deduction.Key.BarangayID,
			"vaccine_id":  deduction.Key.VaccineDoseID,
			"quantity":    deduction.Total(),
			"records":     deduction.Records,
			"session_id":  sessionID,
			"msg":         msg,
		},
		deduction,
	)

	for _, record := range deduction.Records {
		s.a.Log(
			ctx,
			action,
			userID,
			map[string]interface{}{
				"amount":     record.Amount,
				"session_id": sessionID,
				"msg":        msg,
			},
			&models.InventoryLot{ID: record.LotID},
		)
	}
}

func (s *InventoryLog) CreateReservationLogEntry(ctx context.Context, userID *int, reservation *models.Reservation) {
	s.a.Log(
		ctx,
		"recalculate",
		userID,
		map[string]interface{}{
			"barangay_id":       reservation.Key.BarangayID,
			"vaccine_id":        reservation.Key.VaccineDoseID,
			"quantity_reserved": reservation.QuantityReserved,
			"lots":              reservation.Lots,
			"msg":               "Reserved doses recalculated from open sessions",
		},
		reservation,
	)
}

func (s *InventoryLog) CreateSessionLogEntry(ctx context.Context, action string, userID *int, session *models.VaccinationSession, previous string) {
	logMessages := map[string]string{
		"create":        "Vaccination session scheduled",
		"status_change": "Vaccination session status changed",
		"administered":  "Administered doses recorded",
	}

	msg, ok := logMessages[action]
	if !ok {
		return
	}

	s.a.Log(
		ctx,
		action,
		userID,
		map[string]interface{}{
			"barangay_id":     session.BarangayID,
			"lot_id":          session.LotID,
			"target":          session.Target,
			"administered":    session.Administered,
			"status":          session.Status,
			"previous_status": previous,
			"msg":             msg,
		},
		session,
	)
}

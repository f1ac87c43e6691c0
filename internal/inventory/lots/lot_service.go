package lots

import (
	"context"
	"time"

	inventorylog "vaxsync/internal/inventory/inventory_log"
	"vaxsync/internal/repository"
	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/metadata"
	"vaxsync/pkg/models"

	"go.uber.org/zap"
)

const expiryDateLayout = "2006-01-02"

type LotStore interface {
	PersistLot(ctx context.Context, lot *models.InventoryLot) error
	GetLots(ctx context.Context, conditions repository.QueryBuilder) ([]models.InventoryLot, error)
}

type RegisterLotRequest struct {
	BarangayID     int     `json:"barangay_id" binding:"required"`
	VaccineID      int     `json:"vaccine_id" binding:"required"`
	QuantityOnHand *int    `json:"quantity_on_hand" binding:"required"`
	BatchNumber    string  `json:"batch_number"`
	ExpiryDate     *string `json:"expiry_date"`
	Source         string  `json:"source"`
}

type LotService struct {
	repository   LotStore
	inventoryLog *inventorylog.InventoryLog
	logger       *zap.Logger
}

func NewLotService(r LotStore, il *inventorylog.InventoryLog, logger *zap.Logger) *LotService {
	return &LotService{
		repository:   r,
		inventoryLog: il,
		logger:       logger,
	}
}

func (s *LotService) RegisterLot(ctx context.Context, req RegisterLotRequest, userID *int) (*models.InventoryLot, error) {
	if req.QuantityOnHand == nil || *req.QuantityOnHand < 0 {
		return nil, &custom_error.ValidationError{Field: "quantity_on_hand", Message: "must be zero or greater"}
	}

	source, err := metadata.NewStockSource(req.Source)
	if err != nil {
		return nil, &custom_error.ValidationError{Field: "source", Message: err.Error()}
	}

	lot := &models.InventoryLot{
		BarangayID:     req.BarangayID,
		VaccineDoseID:  req.VaccineID,
		QuantityOnHand: *req.QuantityOnHand,
		BatchNumber:    req.BatchNumber,
		Source:         source.String(),
	}

	if req.ExpiryDate != nil && *req.ExpiryDate != "" {
		expiry, err := time.Parse(expiryDateLayout, *req.ExpiryDate)
		if err != nil {
			return nil, &custom_error.ValidationError{Field: "expiry_date", Message: "expected format YYYY-MM-DD"}
		}
		lot.ExpiryDate = &expiry
	}

	if err := s.repository.PersistLot(ctx, lot); err != nil {
		return nil, err
	}

	s.logger.Info("Registered inventory lot",
		zap.Int("lot_id", lot.ID),
		zap.Stringer("key", lot.Key()),
		zap.Int("quantity_on_hand", lot.QuantityOnHand),
	)
	s.inventoryLog.CreateLotLogEntry(ctx, userID, lot)

	return lot, nil
}

func (s *LotService) GetLots(ctx context.Context, barangayID, vaccineID *int) ([]models.InventoryLot, error) {
	conditions := repository.NewQueryBuilder()
	if barangayID != nil {
		conditions.AddCondition("barangay_id", *barangayID)
	}
	if vaccineID != nil {
		conditions.AddCondition("vaccine_id", *vaccineID)
	}

	return s.repository.GetLots(ctx, conditions)
}

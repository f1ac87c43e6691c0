package ledger

import (
	"context"
	"net/http"
	"time"

	inventorylog "vaxsync/internal/inventory/inventory_log"
	"vaxsync/pkg/models"
	"vaxsync/pkg/roles"
	"vaxsync/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const reconcileTimeout = 30 * time.Second

type LedgerHandler struct {
	ledger       InventoryLedger
	inventoryLog *inventorylog.InventoryLog
	logger       *zap.Logger
}

func NewLedgerHandler(l InventoryLedger, il *inventorylog.InventoryLog, logger *zap.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger:       l,
		inventoryLog: il,
		logger:       logger,
	}
}

func (h *LedgerHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/inventory/deduct", security.Authorize(roles.HealthWorker), h.Deduct)
	router.POST("/inventory/recalculate-reserved", security.Authorize(roles.HealthWorker), h.RecalculateReserved)
}

type DeductRequest struct {
	BarangayID int  `json:"barangay_id" binding:"required"`
	VaccineID  int  `json:"vaccine_id" binding:"required"`
	Quantity   *int `json:"quantity" binding:"required"`
}

type RecalculateRequest struct {
	BarangayID int `json:"barangay_id" binding:"required"`
	VaccineID  int `json:"vaccine_id" binding:"required"`
}

func (h *LedgerHandler) Deduct(c *gin.Context) {
	var req DeductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	key := models.LotKey{BarangayID: req.BarangayID, VaccineDoseID: req.VaccineID}
	records, err := h.ledger.Deduct(c.Request.Context(), key, *req.Quantity)
	if err != nil {
		h.fail(c, "deduct", key, err)
		return
	}

	h.inventoryLog.CreateDeductionLogEntry(
		c.Request.Context(),
		"deduct",
		security.CurrentUserID(c),
		&models.Deduction{Key: key, Records: records},
		nil,
	)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"deductedRecords": records},
	})
}

func (h *LedgerHandler) RecalculateReserved(c *gin.Context) {
	var req RecalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	key := models.LotKey{BarangayID: req.BarangayID, VaccineDoseID: req.VaccineID}
	reservation, err := h.ledger.RecalculateReserved(c.Request.Context(), key)
	if err != nil {
		h.fail(c, "recalculate_reserved", key, err)
		return
	}

	h.inventoryLog.CreateReservationLogEntry(c.Request.Context(), security.CurrentUserID(c), reservation)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    reservation,
	})
}

func (h *LedgerHandler) fail(c *gin.Context, op string, key models.LotKey, err error) {
	status, body := ErrorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Ledger operation failed", zap.String("op", op), zap.Stringer("key", key), zap.Error(err))
	} else {
		h.logger.Info("Ledger operation rejected", zap.String("op", op), zap.Stringer("key", key), zap.Error(err))
	}

	if IsOutcomeUnknown(err) {
		go Reconcile(context.WithoutCancel(c.Request.Context()), h.ledger, key, h.logger)
	}

	c.AbortWithStatusJSON(status, body)
}

// Reconcile re-derives the reserved counters of key after an operation whose
// outcome could not be determined.
func Reconcile(ctx context.Context, l InventoryLedger, key models.LotKey, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(ctx, reconcileTimeout)
	defer cancel()

	reservation, err := l.RecalculateReserved(ctx, key)
	if err != nil {
		logger.Error("Reconciliation failed", zap.Stringer("key", key), zap.Error(err))
		return
	}
	logger.Info("Reconciled inventory reservation", zap.Stringer("key", key), zap.Int("quantity_reserved", reservation.QuantityReserved))
}

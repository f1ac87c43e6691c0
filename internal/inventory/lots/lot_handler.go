package lots

import (
	"errors"
	"net/http"
	"strconv"

	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/roles"
	"vaxsync/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LotHandler struct {
	service *LotService
	logger  *zap.Logger
}

func NewLotHandler(s *LotService, logger *zap.Logger) *LotHandler {
	return &LotHandler{service: s, logger: logger}
}

func (h *LotHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/inventory/lots", security.Authorize(roles.Coordinator), h.RegisterLot)
	router.GET("/inventory/lots", security.Authorize(roles.HealthWorker), h.GetLots)
}

func (h *LotHandler) RegisterLot(c *gin.Context) {
	var req RegisterLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	lot, err := h.service.RegisterLot(c.Request.Context(), req, security.CurrentUserID(c))
	if err != nil {
		var (
			validation *custom_error.ValidationError
			fk         *custom_error.ForeignKeyViolationError
		)
		switch {
		case errors.As(err, &validation):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid lot", "details": validation.Error()})
		case errors.As(err, &fk):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Barangay or vaccine not found", "details": fk.Error()})
		default:
			h.logger.Error("Could not register inventory lot", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not register inventory lot"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": lot})
}

func (h *LotHandler) GetLots(c *gin.Context) {
	barangayID, err := optionalIntQuery(c, "barangay_id")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid barangay_id", "details": err.Error()})
		return
	}
	vaccineID, err := optionalIntQuery(c, "vaccine_id")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid vaccine_id", "details": err.Error()})
		return
	}

	lots, err := h.service.GetLots(c.Request.Context(), barangayID, vaccineID)
	if err != nil {
		h.logger.Error("Could not list inventory lots", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not list inventory lots", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": lots})
}

func optionalIntQuery(c *gin.Context, name string) (*int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return nil, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

package barangays

import (
	"context"
	"errors"
	"net/http"

	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/models"
	"vaxsync/pkg/roles"
	"vaxsync/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReferenceRepository interface {
	GetBarangays(ctx context.Context) ([]models.Barangay, error)
	PersistBarangay(ctx context.Context, barangay *models.Barangay) error
	GetVaccineDoses(ctx context.Context) ([]models.VaccineDose, error)
	PersistVaccineDose(ctx context.Context, dose *models.VaccineDose) error
}

type BarangayHandler struct {
	repository ReferenceRepository
	logger     *zap.Logger
}

func NewBarangayHandler(r ReferenceRepository, logger *zap.Logger) *BarangayHandler {
	return &BarangayHandler{repository: r, logger: logger}
}

func (h *BarangayHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/barangays", security.Authorize(roles.HealthWorker), h.GetBarangays)
	router.POST("/barangays", security.Authorize(roles.Coordinator), h.CreateBarangay)
	router.GET("/vaccines", security.Authorize(roles.HealthWorker), h.GetVaccineDoses)
	router.POST("/vaccines", security.Authorize(roles.Coordinator), h.CreateVaccineDose)
}

type CreateBarangayRequest struct {
	Name         string  `json:"name" binding:"required"`
	Municipality string  `json:"municipality"`
	Details      *string `json:"details"`
}

type CreateVaccineDoseRequest struct {
	VaccineName  string `json:"vaccine_name" binding:"required"`
	DoseCode     string `json:"dose_code" binding:"required"`
	DosesPerVial int    `json:"doses_per_vial" binding:"omitempty,min=1"`
}

func (h *BarangayHandler) GetBarangays(c *gin.Context) {
	barangays, err := h.repository.GetBarangays(c.Request.Context())
	if err != nil {
		h.logger.Error("Could not list barangays", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not list barangays", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, barangays)
}

func (h *BarangayHandler) CreateBarangay(c *gin.Context) {
	var req CreateBarangayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	barangay := models.Barangay{Name: req.Name, Municipality: req.Municipality, Details: req.Details}
	if err := h.repository.PersistBarangay(c.Request.Context(), &barangay); err != nil {
		h.abortOnInsertError(c, "barangay", err)
		return
	}

	c.JSON(http.StatusCreated, barangay)
}

func (h *BarangayHandler) GetVaccineDoses(c *gin.Context) {
	doses, err := h.repository.GetVaccineDoses(c.Request.Context())
	if err != nil {
		h.logger.Error("Could not list vaccine doses", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not list vaccines", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, doses)
}

func (h *BarangayHandler) CreateVaccineDose(c *gin.Context) {
	var req CreateVaccineDoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	dose := models.VaccineDose{VaccineName: req.VaccineName, DoseCode: req.DoseCode, DosesPerVial: req.DosesPerVial}
	if dose.DosesPerVial == 0 {
		dose.DosesPerVial = 1
	}
	if err := h.repository.PersistVaccineDose(c.Request.Context(), &dose); err != nil {
		h.abortOnInsertError(c, "vaccine", err)
		return
	}

	c.JSON(http.StatusCreated, dose)
}

func (h *BarangayHandler) abortOnInsertError(c *gin.Context, resource string, err error) {
	var unique *custom_error.UniqueViolationError
	if errors.As(err, &unique) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Could not insert " + resource + ", name not unique", "details": err.Error()})
		return
	}

	h.logger.Error("Could not insert reference data", zap.String("resource", resource), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not insert " + resource})
}

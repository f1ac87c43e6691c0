package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"vaxsync/pkg/models"
	"vaxsync/pkg/roles"
	"vaxsync/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var resourceTypes = map[string]bool{
	"inventory_lot":       true,
	"vaccination_session": true,
	"deduction":           true,
	"reservation":         true,
	"user":                true,
}

type LogReader interface {
	GetResourceLog(ctx context.Context, id int, resourceType string) ([]models.AuditLog, error)
}

type AuditLogHandler struct {
	repository LogReader
	logger     *zap.Logger
}

func NewAuditLogHandler(r LogReader, logger *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{repository: r, logger: logger}
}

func (h *AuditLogHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/audit-logs/:resource_type/:id", security.Authorize(roles.Coordinator), h.GetResourceLog)
}

// GetResourceLog lists entries newest first. Deduction and reservation
// entries are keyed by vaccine dose id.
func (h *AuditLogHandler) GetResourceLog(c *gin.Context) {
	resourceType := c.Param("resource_type")
	if !resourceTypes[resourceType] {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Unknown resource type", "details": resourceType})
		return
	}

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid resource id"})
		return
	}

	logs, err := h.repository.GetResourceLog(c.Request.Context(), id, resourceType)
	if err != nil {
		h.logger.Error("Failed to read audit log",
			zap.String("resource_type", resourceType),
			zap.Int("resource_id", id),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch audit log", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": logs})
}

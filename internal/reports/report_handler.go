package reports

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"vaxsync/internal/integrations/googlesheets"
	"vaxsync/pkg/roles"
	"vaxsync/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReportStore interface {
	GetInventoryTotals(ctx context.Context, barangayID *int) ([]InventoryTotals, error)
	GetCompletedSessions(ctx context.Context, from, to time.Time) ([]CompletedSession, error)
}

type TableWriter interface {
	WriteTable(ctx context.Context, header []interface{}, rows [][]interface{}) (*googlesheets.ExportResult, error)
}

type ReportHandler struct {
	repository ReportStore
	exporter   TableWriter
	logger     *zap.Logger
}

// NewReportHandler takes a nil exporter when no spreadsheet is configured.
func NewReportHandler(r ReportStore, exporter TableWriter, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		repository: r,
		exporter:   exporter,
		logger:     logger,
	}
}

func (h *ReportHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/reports/inventory", security.Authorize(roles.HealthWorker), h.GetInventorySummary)
	router.GET("/reports/administered", security.Authorize(roles.Coordinator), h.GetAdministered)
	router.POST("/reports/inventory/export", security.Authorize(roles.Coordinator), h.ExportInventory)
}

func (h *ReportHandler) GetInventorySummary(c *gin.Context) {
	var barangayID *int
	if raw := c.Query("barangay_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid barangay_id", "details": err.Error()})
			return
		}
		barangayID = &id
	}

	totals, err := h.repository.GetInventoryTotals(c.Request.Context(), barangayID)
	if err != nil {
		h.logger.Error("Could not build inventory summary", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not build inventory summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": BuildInventorySummary(totals)})
}

func (h *ReportHandler) GetAdministered(c *gin.Context) {
	period, err := NewPeriod(c.Query("period"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid period", "details": err.Error()})
		return
	}

	from, err := time.Parse(dateLayout, c.Query("from"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid from date", "details": "expected format YYYY-MM-DD"})
		return
	}
	to, err := time.Parse(dateLayout, c.Query("to"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid to date", "details": "expected format YYYY-MM-DD"})
		return
	}
	if !from.Before(to) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date range", "details": "from must be before to"})
		return
	}

	sessions, err := h.repository.GetCompletedSessions(c.Request.Context(), from, to)
	if err != nil {
		h.logger.Error("Could not load completed sessions", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not build administered report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"period":  period,
			"from":    from.Format(dateLayout),
			"to":      to.Format(dateLayout),
			"buckets": AggregateAdministered(sessions, period),
		},
	})
}

func (h *ReportHandler) ExportInventory(c *gin.Context) {
	if h.exporter == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "Google Sheets export is not configured"})
		return
	}

	totals, err := h.repository.GetInventoryTotals(c.Request.Context(), nil)
	if err != nil {
		h.logger.Error("Could not build inventory summary", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not build inventory summary"})
		return
	}

	result, err := h.exporter.WriteTable(c.Request.Context(), inventorySheetHeader, inventorySheetRows(BuildInventorySummary(totals)))
	if err != nil {
		h.logger.Error("Could not export inventory summary", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Could not export inventory summary", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

package sessions

import (
	"errors"
	"net/http"
	"strconv"

	"vaxsync/internal/inventory/ledger"
	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/metadata"
	"vaxsync/pkg/roles"
	"vaxsync/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type SessionHandler struct {
	service *SessionService
	logger  *zap.Logger
}

func NewSessionHandler(s *SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{service: s, logger: logger}
}

func (h *SessionHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/sessions", security.Authorize(roles.HealthWorker), h.Schedule)
	router.GET("/sessions", security.Authorize(roles.HealthWorker), h.List)
	router.PATCH("/sessions/:id/status", security.Authorize(roles.HealthWorker), h.UpdateStatus)
	router.PATCH("/sessions/:id/administered", security.Authorize(roles.HealthWorker), h.RecordAdministered)
}

func (h *SessionHandler) Schedule(c *gin.Context) {
	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	session, err := h.service.Schedule(c.Request.Context(), req, security.CurrentUserID(c))
	if err != nil {
		h.fail(c, "schedule", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "data": session})
}

func (h *SessionHandler) List(c *gin.Context) {
	var filter SessionFilter

	if raw := c.Query("barangay_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid barangay_id", "details": err.Error()})
			return
		}
		filter.BarangayID = &id
	}
	if raw := c.Query("vaccine_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid vaccine_id", "details": err.Error()})
			return
		}
		filter.LotID = &id
	}
	if raw := c.Query("status"); raw != "" {
		status, err := metadata.NewSessionStatus(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid status", "details": err.Error()})
			return
		}
		filter.Status = &status
	}

	sessions, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, "list", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": sessions})
}

func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	transition, err := h.service.UpdateStatus(c.Request.Context(), id, req, security.CurrentUserID(c))
	if err != nil {
		h.fail(c, "update_status", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": transition})
}

func (h *SessionHandler) RecordAdministered(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req AdministeredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	session, err := h.service.RecordAdministered(c.Request.Context(), id, *req.Administered, security.CurrentUserID(c))
	if err != nil {
		h.fail(c, "record_administered", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": session})
}

func (h *SessionHandler) fail(c *gin.Context, op string, err error) {
	var (
		validation *custom_error.ValidationError
		notFound   *custom_error.NotFoundError
		transition *custom_error.InvalidTransitionError
		fk         *custom_error.ForeignKeyViolationError
		stale      *custom_error.StaleSessionError
	)

	switch {
	case errors.As(err, &validation):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid session", "details": validation.Error()})
	case errors.As(err, &notFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Not found", "details": notFound.Error()})
	case errors.As(err, &fk):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Barangay or lot not found", "details": fk.Error()})
	case errors.As(err, &transition):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Invalid status transition", "details": transition.Error()})
	case errors.As(err, &stale):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Session changed concurrently, reload it and retry", "details": stale.Error()})
	default:
		status, body := ledger.ErrorResponse(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Session operation failed", zap.String("op", op), zap.Error(err))
		}
		c.AbortWithStatusJSON(status, body)
	}
}

func sessionID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid session id"})
		return 0, false
	}
	return id, true
}

package users

import (
	"errors"
	"net/http"
	"strconv"

	"vaxsync/pkg/auditlog"
	custom_error "vaxsync/pkg/errors"
	"vaxsync/pkg/models"
	"vaxsync/pkg/roles"
	"vaxsync/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type UsersHandler struct {
	Repository UserRepository
	auditLog   *auditlog.Auditlog
	logger     *zap.Logger
}

func NewHandler(r UserRepository, a *auditlog.Auditlog, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{
		Repository: r,
		auditLog:   a,
		logger:     logger,
	}
}

func (h *UsersHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/users", security.Authorize(roles.Admin), h.GetUserList)
	router.POST("/users", security.Authorize(roles.Admin), h.RegisterUser)
	router.PATCH("/users/:id/role", security.Authorize(roles.Admin), h.ChangeRole)
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h *UsersHandler) RegisterUser(c *gin.Context) {
	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}

	if !roles.Role(req.Role).IsValid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid role", "details": req.Role})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user, err := h.Repository.PersistUser(c.Request.Context(), req, hashedPassword)
	if err != nil {
		var unique *custom_error.UniqueViolationError
		if errors.As(err, &unique) {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Username already taken"})
			return
		}
		h.logger.Error("Failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user", "details": err.Error()})
		return
	}

	h.auditLog.Log(c.Request.Context(), "create", security.CurrentUserID(c), map[string]interface{}{
		"username": user.Username,
		"role":     user.Role,
		"msg":      "User registered",
	}, user)

	c.JSON(http.StatusCreated, user)
}

func (h *UsersHandler) ChangeRole(c *gin.Context) {
	userID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID", "details": err.Error()})
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "details": err.Error()})
		return
	}
	role := roles.Role(req.Role)
	if !role.IsValid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid role", "details": req.Role})
		return
	}

	current := security.CurrentUserID(c)
	if current != nil && *current == userID && role != roles.Admin {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Admins cannot demote themselves"})
		return
	}

	user, err := h.Repository.GetUser(c.Request.Context(), userID)
	if err != nil {
		h.abortOnLookup(c, err)
		return
	}

	if user.Role == string(role) {
		c.JSON(http.StatusOK, user)
		return
	}

	if err := h.Repository.UpdateRole(c.Request.Context(), userID, string(role)); err != nil {
		h.abortOnLookup(c, err)
		return
	}

	previous := user.Role
	user.Role = string(role)
	h.auditLog.Log(c.Request.Context(), "role_change", current, map[string]interface{}{
		"previous_role": previous,
		"role":          user.Role,
		"msg":           "User role changed",
	}, user)

	c.JSON(http.StatusOK, user)
}

func (h *UsersHandler) GetUserList(c *gin.Context) {
	users, err := h.Repository.GetUsers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not obtain list of users", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *UsersHandler) abortOnLookup(c *gin.Context, err error) {
	var notFound *custom_error.NotFoundError
	if errors.As(err, &notFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Unable to find user", "details": err.Error(), "code": "USER_NOT_FOUND"})
		return
	}
	h.logger.Error("User lookup failed", zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user", "details": err.Error()})
}

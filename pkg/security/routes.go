package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
	"vaxsync/internal/rate_limiter"
	"vaxsync/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	loginAttempts = 10
	loginWindow   = 5 * time.Minute
)

type LoginHandler struct {
	repo        *repository.Repository
	secret      []byte
	rateLimiter *rate_limiter.RateLimiter
	logger      *zap.Logger
}

func NewLoginHandler(r *repository.Repository, secret []byte, limiter *rate_limiter.RateLimiter, logger *zap.Logger) *LoginHandler {
	return &LoginHandler{
		repo:        r,
		secret:      secret,
		rateLimiter: limiter,
		logger:      logger,
	}
}

func (l *LoginHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/auth", l.LoginHandler())
}

func (l *LoginHandler) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := ClientKey(c)

		if !l.rateLimiter.IsAllowed(clientIP) {
			remaining := l.rateLimiter.GetRemainingRequests(clientIP)
			c.Header("X-RateLimit-Limit", strconv.Itoa(loginAttempts))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
			c.Header("X-RateLimit-Reset", time.Now().Add(loginWindow).Format(time.RFC3339))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":     "Too many login attempts, try again later",
				"remaining": remaining,
				"reset_at":  time.Now().Add(loginWindow).Format(time.RFC3339),
			})
			return
		}

		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
			return
		}

		user, err := AuthenticateUser(c.Request.Context(), req.Username, req.Password, l.repo)
		if err != nil {
			l.logger.Info("Failed login attempt", zap.String("username", req.Username), zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
			return
		}

		token, err := GenerateJWT(l.secret, strconv.Itoa(user.ID), user.Role, user.Username)
		if err != nil {
			l.logger.Error("Failed to sign token", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// ClientKey identifies the caller for rate limiting. Clients behind private
// addresses are told apart by user agent as well.
func ClientKey(c *gin.Context) string {
	clientIP := c.GetHeader("X-Forwarded-For")
	if clientIP == "" {
		clientIP = c.GetHeader("X-Real-IP")
	}
	if clientIP == "" {
		clientIP = c.ClientIP()
	}

	if strings.Contains(clientIP, ",") {
		clientIP = strings.TrimSpace(strings.Split(clientIP, ",")[0])
	}

	if isPrivateIP(clientIP) {
		clientIP = clientIP + ":" + c.GetHeader("User-Agent")
	}

	return clientIP
}

func isPrivateIP(ip string) bool {
	privatePrefixes := []string{
		"10.",
		"172.16.",
		"172.17.",
		"172.18.",
		"172.19.",
		"172.20.",
		"172.21.",
		"172.22.",
		"172.23.",
		"172.24.",
		"172.25.",
		"172.26.",
		"172.27.",
		"172.28.",
		"172.29.",
		"172.30.",
		"172.31.",
		"192.168.",
		"127.",
		"169.254.",
		"::1",
		"fc00::",
		"fe80::",
	}

	for _, prefix := range privatePrefixes {
		if strings.HasPrefix(ip, prefix) {
			return true
		}
	}
	return false
}

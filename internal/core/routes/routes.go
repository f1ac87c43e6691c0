package routes

import (
	"time"

	"vaxsync/internal/core/container"
	"vaxsync/internal/middleware"
	"vaxsync/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine with the shared middleware chain.
func NewRouter(logger *zap.Logger, requestTimeout time.Duration) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestLogger(logger.Named("http")),
		middleware.RecoveryMiddleware(logger),
		middleware.TimeoutMiddleware(requestTimeout),
	)
	return router
}

func RegisterPublicRoutes(router *gin.Engine, container *container.Container) {
	container.LoginHandler.RegisterRoutes(router)
}

func RegisterProtectedRoutes(router *gin.Engine, container *container.Container, jwtSecret []byte) {
	protectedRoutes := router.Group("")
	protectedRoutes.Use(security.JWTMiddleware(jwtSecret))

	container.LedgerHandler.RegisterRoutes(protectedRoutes)
	container.LotHandler.RegisterRoutes(protectedRoutes)
	container.BarangayHandler.RegisterRoutes(protectedRoutes)
	container.SessionHandler.RegisterRoutes(protectedRoutes)
	container.ReportHandler.RegisterRoutes(protectedRoutes)
	container.UserHandler.RegisterRoutes(protectedRoutes)
	container.AuditLogHandler.RegisterRoutes(protectedRoutes)
}

func RegisterUtilityRoutes(router *gin.Engine, container *container.Container) {
	router.GET("/health", container.HealthChecker.Handler())
}

package container

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	auditLogRepo "vaxsync/internal/auditlog"
	"vaxsync/internal/barangays"
	"vaxsync/internal/core/config"
	"vaxsync/internal/integrations/googlesheets"
	inventorylog "vaxsync/internal/inventory/inventory_log"
	"vaxsync/internal/inventory/ledger"
	"vaxsync/internal/inventory/lots"
	"vaxsync/internal/middleware"
	"vaxsync/internal/rate_limiter"
	"vaxsync/internal/reports"
	"vaxsync/internal/repository"
	"vaxsync/internal/sessions"
	"vaxsync/internal/users"
	"vaxsync/pkg/auditlog"
	"vaxsync/pkg/security"

	"go.uber.org/zap"
)

const (
	loginAttempts = 10
	loginWindow   = 5 * time.Minute
)

type Container struct {
	Repository      *repository.Repository
	Ledger          *ledger.Ledger
	RateLimiter     *rate_limiter.RateLimiter
	HealthChecker   *middleware.HealthChecker
	LoginHandler    *security.LoginHandler
	LedgerHandler   *ledger.LedgerHandler
	LotHandler      *lots.LotHandler
	BarangayHandler *barangays.BarangayHandler
	SessionHandler  *sessions.SessionHandler
	ReportHandler   *reports.ReportHandler
	UserHandler     *users.UsersHandler
	AuditLogHandler *auditLogRepo.AuditLogHandler
}

// NewLedger builds the ledger over PostgreSQL with the configured retry policy.
func NewLedger(repo *repository.Repository, cfg *config.Config, logger *zap.Logger) *ledger.Ledger {
	return ledger.NewLedger(
		ledger.NewPostgresStore(repo),
		logger.Named("ledger"),
		ledger.WithMaxAttempts(cfg.LedgerMaxAttempts),
		ledger.WithRetryBackoff(cfg.LedgerRetryBackoff),
	)
}

func NewAppContainer(ctx context.Context, db *sql.DB, cfg *config.Config, version string, logger *zap.Logger) (*Container, error) {
	repo := repository.NewRepository(db)
	auditLogRepository := auditLogRepo.NewRepository(repo)
	auditLog := auditlog.NewAuditLog(auditLogRepository, logger.Named("auditlog"))
	inventoryLog := inventorylog.NewInventoryLog(auditLog)
	inventoryLedger := NewLedger(repo, cfg, logger)

	reportHandler, err := newReportHandler(ctx, repo, cfg, logger)
	if err != nil {
		return nil, err
	}

	limiter := rate_limiter.NewRateLimiter(loginAttempts, loginWindow)
	lotService := lots.NewLotService(lots.NewRepository(repo), inventoryLog, logger)
	sessionService := sessions.NewSessionService(sessions.NewRepository(repo), inventoryLedger, inventoryLog, logger)

	return &Container{
		Repository:      repo,
		Ledger:          inventoryLedger,
		RateLimiter:     limiter,
		HealthChecker:   middleware.NewHealthChecker(db, version, logger),
		LoginHandler:    security.NewLoginHandler(repo, []byte(cfg.JWTSecret), limiter, logger),
		LedgerHandler:   ledger.NewLedgerHandler(inventoryLedger, inventoryLog, logger),
		LotHandler:      lots.NewLotHandler(lotService, logger),
		BarangayHandler: barangays.NewBarangayHandler(barangays.NewBarangayRepository(repo), logger),
		SessionHandler:  sessions.NewSessionHandler(sessionService, logger),
		ReportHandler:   reportHandler,
		UserHandler:     users.NewHandler(users.NewRepository(repo), auditLog, logger),
		AuditLogHandler: auditLogRepo.NewAuditLogHandler(auditLogRepository, logger),
	}, nil
}

// newReportHandler wires the Sheets exporter only when it is configured; the
// export endpoint answers 501 otherwise.
func newReportHandler(ctx context.Context, repo *repository.Repository, cfg *config.Config, logger *zap.Logger) (*reports.ReportHandler, error) {
	reportRepository := reports.NewRepository(repo)

	if !cfg.Sheets.Enabled() {
		logger.Info("Google Sheets export disabled")
		return reports.NewReportHandler(reportRepository, nil, logger), nil
	}

	service, err := googlesheets.NewSheetsService(ctx, []byte(cfg.Sheets.CredentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("google sheets: %w", err)
	}
	exporter := googlesheets.NewExporter(service, cfg.Sheets.SpreadsheetID, cfg.Sheets.Range, logger.Named("sheets"))

	return reports.NewReportHandler(reportRepository, exporter, logger), nil
}

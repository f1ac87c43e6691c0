package auditlog

import (
	"context"

	"vaxsync/pkg/models"

	"go.uber.org/zap"
)

type LogPersister interface {
	PersistLog(ctx context.Context, auditLog models.AuditLog, data interface{}) error
}

type Auditlog struct {
	r      LogPersister
	logger *zap.Logger
}

type Auditable interface {
	CreateLogView() models.AuditLog
}

// Log stores an audit entry. Failures are logged and swallowed: the business
// operation being audited has already happened.
func (a *Auditlog) Log(ctx context.Context, action string, userID *int, data interface{}, item Auditable) {
	auditLog := item.CreateLogView()
	auditLog.Action = action
	auditLog.UserID = userID

	err := a.r.PersistLog(context.WithoutCancel(ctx), auditLog, data)
	if err != nil {
		a.logger.Error("Unable to create audit log entry",
			zap.String("resource_type", auditLog.ResourceType),
			zap.Int("resource_id", auditLog.ResourceID),
			zap.String("action", action),
			zap.Error(err),
		)
		return
	}

	a.logger.Debug("Created audit log entry",
		zap.String("resource_type", auditLog.ResourceType),
		zap.Int("resource_id", auditLog.ResourceID),
		zap.String("action", action),
	)
}

func NewAuditLog(r LogPersister, logger *zap.Logger) *Auditlog {
	return &Auditlog{r: r, logger: logger}
}

package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status      string    `json:"status"`
	Database    string    `json:"database"`
	LastChecked time.Time `json:"last_checked"`
	Uptime      string    `json:"uptime"`
	Version     string    `json:"version"`
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthChecker struct {
	db            Pinger
	logger        *zap.Logger
	version       string
	startTime     time.Time
	cacheDuration time.Duration
	pingTimeout   time.Duration

	mu         sync.Mutex
	last       HealthStatus
	lastCode   int
	lastUpdate time.Time
}

func NewHealthChecker(db Pinger, version string, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		db:            db,
		logger:        logger,
		version:       version,
		startTime:     time.Now(),
		cacheDuration: 5 * time.Second,
		pingTimeout:   2 * time.Second,
	}
}

// Handler answers 200 when the database responds and 503 otherwise. Results
// are cached for a few seconds so frequent health checks do not hammer the pool.
func (h *HealthChecker) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.mu.Lock()
		defer h.mu.Unlock()

		if time.Since(h.lastUpdate) < h.cacheDuration && h.lastCode != 0 {
			c.JSON(h.lastCode, h.last)
			return
		}

		status := HealthStatus{
			Status:      statusOK,
			Database:    statusOK,
			LastChecked: time.Now(),
			Uptime:      time.Since(h.startTime).Round(time.Second).String(),
			Version:     h.version,
		}
		code := http.StatusOK

		ctx, cancel := context.WithTimeout(c.Request.Context(), h.pingTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			h.logger.Warn("Health check: database unreachable", zap.Error(err))
			status.Status = statusDegraded
			status.Database = err.Error()
			code = http.StatusServiceUnavailable
		}

		h.last = status
		h.lastCode = code
		h.lastUpdate = time.Now()

		c.JSON(code, status)
	}
}

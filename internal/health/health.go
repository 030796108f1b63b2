package health

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/oemwatch/alertassist/internal/query"
	"github.com/oemwatch/alertassist/internal/session"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check represents a health check result
type Check struct {
	Name      string        `json:"name"`
	Status    Status        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// Checker performs health checks against the data source and session store.
type Checker struct {
	executor query.Executor
	store    *session.Store
	logger   *zap.Logger
}

// New creates a new health checker
func New(executor query.Executor, store *session.Store, logger *zap.Logger) *Checker {
	return &Checker{
		executor: executor,
		store:    store,
		logger:   logger,
	}
}

// CheckAll performs all health checks
func (c *Checker) CheckAll(ctx context.Context) (Status, []Check) {
	checks := []Check{
		c.checkDataSource(ctx),
		c.checkSessions(),
	}

	overallStatus := StatusHealthy
	for _, check := range checks {
		if check.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			break
		} else if check.Status == StatusDegraded && overallStatus == StatusHealthy {
			overallStatus = StatusDegraded
		}
	}

	return overallStatus, checks
}

// checkDataSource verifies the alert data source is loaded and reachable.
// Without data every count/list question ends in a SAFE-mode refusal, so an
// empty source is degraded, not healthy.
func (c *Checker) checkDataSource(ctx context.Context) Check {
	start := time.Now()
	check := Check{
		Name:      "data_source",
		Timestamp: start,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	healthy := c.executor.Healthy(checkCtx)
	check.Duration = time.Since(start)

	if !healthy {
		check.Status = StatusDegraded
		check.Message = "No alert data loaded; answers will be refused"
		c.logger.Warn("Health check degraded: data source",
			zap.Duration("duration", check.Duration),
		)
	} else {
		check.Status = StatusHealthy
		check.Message = "Alert data loaded"
		c.logger.Debug("Health check passed: data source",
			zap.Duration("duration", check.Duration),
		)
	}

	return check
}

// DataLoaded reports whether the alert table has rows to answer from. Used
// by the readiness endpoint to flag a dataless deployment.
func (c *Checker) DataLoaded(ctx context.Context) bool {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return c.executor.Healthy(checkCtx)
}

// checkSessions reports the live session count.
func (c *Checker) checkSessions() Check {
	start := time.Now()
	check := Check{
		Name:      "sessions",
		Timestamp: start,
		Status:    StatusHealthy,
		Message:   fmt.Sprintf("%d live sessions", c.store.Len()),
	}
	check.Duration = time.Since(start)
	return check
}

package services

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus represents the health status of a component
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDegraded  HealthStatus = "degraded"
)

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Name      string                 `json:"name"`
	Status    HealthStatus           `json:"status"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Duration  time.Duration          `json:"duration"`
}

// SystemHealth represents the overall system health
type SystemHealth struct {
	Status     HealthStatus               `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Uptime     time.Duration              `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthChecker interface for health checking
type HealthChecker interface {
	Name() string
	Check(ctx context.Context) ComponentHealth
}

// HealthService manages health checks for the system
type HealthService struct {
	checkers  map[string]HealthChecker
	startTime time.Time
	logger    Logger
}

// NewHealthService creates a new health service
func NewHealthService(logger Logger) *HealthService {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	return &HealthService{
		checkers:  make(map[string]HealthChecker),
		startTime: time.Now(),
		logger:    logger,
	}
}

// RegisterChecker registers a health checker
func (h *HealthService) RegisterChecker(checker HealthChecker) {
	h.checkers[checker.Name()] = checker
	h.logger.Info("Health checker registered", String("component", checker.Name()))
}

// CheckHealth performs health checks on all registered components
func (h *HealthService) CheckHealth(ctx context.Context) SystemHealth {
	components := make(map[string]ComponentHealth)
	overallStatus := HealthStatusHealthy

	for name, checker := range h.checkers {
		componentHealth := h.checkComponentWithTimeout(ctx, checker, 5*time.Second)
		components[name] = componentHealth

		switch componentHealth.Status {
		case HealthStatusUnhealthy:
			overallStatus = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		}
	}

	return SystemHealth{
		Status:     overallStatus,
		Timestamp:  time.Now(),
		Uptime:     time.Since(h.startTime),
		Components: components,
	}
}

// checkComponentWithTimeout checks a component with a timeout
func (h *HealthService) checkComponentWithTimeout(ctx context.Context, checker HealthChecker, timeout time.Duration) ComponentHealth {
	start := time.Now()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultChan := make(chan ComponentHealth, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultChan <- ComponentHealth{
					Name:      checker.Name(),
					Status:    HealthStatusUnhealthy,
					Message:   fmt.Sprintf("Health check panicked: %v", r),
					Timestamp: time.Now(),
					Duration:  time.Since(start),
				}
			}
		}()

		result := checker.Check(timeoutCtx)
		result.Duration = time.Since(start)
		resultChan <- result
	}()

	select {
	case result := <-resultChan:
		return result
	case <-timeoutCtx.Done():
		return ComponentHealth{
			Name:      checker.Name(),
			Status:    HealthStatusUnhealthy,
			Message:   "Health check timed out",
			Timestamp: time.Now(),
			Duration:  timeout,
		}
	}
}

// DatabasePinger is the connectivity probe the database checker needs
type DatabasePinger interface {
	Health(ctx context.Context) error
}

// DatabaseHealthChecker checks database connectivity
type DatabaseHealthChecker struct {
	name string
	db   DatabasePinger
}

// NewDatabaseHealthChecker creates a database health checker
func NewDatabaseHealthChecker(name string, db DatabasePinger) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{
		name: name,
		db:   db,
	}
}

// Name returns the checker name
func (d *DatabaseHealthChecker) Name() string {
	return d.name
}

// Check performs the database health check
func (d *DatabaseHealthChecker) Check(ctx context.Context) ComponentHealth {
	start := time.Now()

	err := d.db.Health(ctx)

	health := ComponentHealth{
		Name:      d.name,
		Timestamp: time.Now(),
		Duration:  time.Since(start),
	}

	if err != nil {
		health.Status = HealthStatusUnhealthy
		health.Message = err.Error()
	} else {
		health.Status = HealthStatusHealthy
		health.Message = "Database connection successful"
	}

	return health
}

// MetricsHealthChecker checks metrics service health
type MetricsHealthChecker struct {
	name    string
	metrics MetricsService
}

// NewMetricsHealthChecker creates a metrics health checker
func NewMetricsHealthChecker(name string, metrics MetricsService) *MetricsHealthChecker {
	return &MetricsHealthChecker{
		name:    name,
		metrics: metrics,
	}
}

// Name returns the checker name
func (m *MetricsHealthChecker) Name() string {
	return m.name
}

// Check performs the metrics health check
func (m *MetricsHealthChecker) Check(ctx context.Context) ComponentHealth {
	start := time.Now()

	health := ComponentHealth{
		Name:      m.name,
		Timestamp: time.Now(),
	}

	m.metrics.IncrementCounter("health_check_counter", map[string]string{"test": "true"})
	allMetrics := m.metrics.GetMetrics()

	health.Status = HealthStatusHealthy
	health.Message = "Metrics operations successful"
	health.Duration = time.Since(start)
	health.Details = map[string]interface{}{
		"sections":   len(allMetrics),
		"has_system": allMetrics["system"] != nil,
	}

	return health
}

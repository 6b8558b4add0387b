package monitoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"
)

// HealthStatus is the state of one component or of the whole service
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// severity orders statuses so the report can take the worst one
func (s HealthStatus) severity() int {
	switch s {
	case HealthStatusHealthy:
		return 0
	case HealthStatusDegraded:
		return 1
	default:
		return 2
	}
}

// HealthCheck is the outcome of one checker
type HealthCheck struct {
	Status     HealthStatus           `json:"status"`
	Message    string                 `json:"message,omitempty"`
	DurationMs int64                  `json:"durationMs"`
	Details    map[string]interface{} `json:"details,omitempty"`
}

// HealthReport is the body of GET /api/health
type HealthReport struct {
	Status      HealthStatus           `json:"status"`
	Service     string                 `json:"service"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Timestamp   time.Time              `json:"timestamp"`
	Uptime      float64                `json:"uptime"`
	Checks      map[string]HealthCheck `json:"checks"`
}

// HealthChecker reports the state of one dependency
type HealthChecker interface {
	Check(ctx context.Context) HealthCheck
}

// HealthManager runs the registered checkers and builds the health report
type HealthManager struct {
	service     string
	version     string
	environment string
	startedAt   time.Time
	timeout     time.Duration

	mu       sync.RWMutex
	checkers map[string]HealthChecker
}

// NewHealthManager creates a health manager; each check gets five seconds
func NewHealthManager(service, version, environment string) *HealthManager {
	return &HealthManager{
		service:     service,
		version:     version,
		environment: environment,
		startedAt:   time.Now(),
		timeout:     5 * time.Second,
		checkers:    make(map[string]HealthChecker),
	}
}

// RegisterChecker adds or replaces the checker reported under name
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.checkers[name] = checker
}

// CheckHealth runs every checker in parallel. The overall status is the worst
// individual status; no checkers means healthy.
func (hm *HealthManager) CheckHealth(ctx context.Context) *HealthReport {
	hm.mu.RLock()
	names := make([]string, 0, len(hm.checkers))
	for name := range hm.checkers {
		names = append(names, name)
	}
	checkers := make([]HealthChecker, len(names))
	sort.Strings(names)
	for i, name := range names {
		checkers[i] = hm.checkers[name]
	}
	hm.mu.RUnlock()

	results := make([]HealthCheck, len(checkers))
	var wg sync.WaitGroup
	for i, checker := range checkers {
		wg.Add(1)
		go func(i int, checker HealthChecker) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, hm.timeout)
			defer cancel()

			start := time.Now()
			results[i] = checker.Check(checkCtx)
			results[i].DurationMs = time.Since(start).Milliseconds()
		}(i, checker)
	}
	wg.Wait()

	report := &HealthReport{
		Status:      HealthStatusHealthy,
		Service:     hm.service,
		Version:     hm.version,
		Environment: hm.environment,
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(hm.startedAt).Seconds(),
		Checks:      make(map[string]HealthCheck, len(names)),
	}
	for i, name := range names {
		report.Checks[name] = results[i]
		if results[i].Status.severity() > report.Status.severity() {
			report.Status = results[i].Status
		}
	}
	return report
}

// HTTPHandler serves the report; unhealthy answers 503
func (hm *HealthManager) HTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := hm.CheckHealth(r.Context())

		status := http.StatusOK
		if report.Status == HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(report)
	}
}

// DatabaseHealthChecker pings PostgreSQL and reports pool usage
type DatabaseHealthChecker struct {
	db *sql.DB
}

// NewDatabaseHealthChecker creates a database checker
func NewDatabaseHealthChecker(db *sql.DB) *DatabaseHealthChecker {
	return &DatabaseHealthChecker{db: db}
}

func (c *DatabaseHealthChecker) Check(ctx context.Context) HealthCheck {
	if err := c.db.PingContext(ctx); err != nil {
		return HealthCheck{
			Status:  HealthStatusUnhealthy,
			Message: fmt.Sprintf("Database connection failed: %v", err),
		}
	}

	stats := c.db.Stats()
	check := HealthCheck{
		Status:  HealthStatusHealthy,
		Message: "Database connection healthy",
		Details: map[string]interface{}{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
		},
	}
	if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
		check.Status = HealthStatusDegraded
		check.Message = "Database connection pool exhausted"
	}
	return check
}

// RealtimeSource exposes the hub and event queue figures the realtime checker reads
type RealtimeSource interface {
	// Connected is the number of registered channels
	Connected() int
	// QueueStats reports queued inbound events, queue capacity and the
	// running total of events rejected because the queue was full
	QueueStats() (depth, capacity int, rejected int64)
}

// RealtimeHealthChecker reports the hub as degraded while the inbound event
// queue is at least 90% full or when events were rejected since the previous check.
type RealtimeHealthChecker struct {
	source RealtimeSource

	mu           sync.Mutex
	lastRejected int64
}

// NewRealtimeHealthChecker creates a realtime checker
func NewRealtimeHealthChecker(source RealtimeSource) *RealtimeHealthChecker {
	return &RealtimeHealthChecker{source: source}
}

func (c *RealtimeHealthChecker) Check(ctx context.Context) HealthCheck {
	depth, capacity, rejected := c.source.QueueStats()

	c.mu.Lock()
	newlyRejected := rejected - c.lastRejected
	c.lastRejected = rejected
	c.mu.Unlock()

	check := HealthCheck{
		Status:  HealthStatusHealthy,
		Message: "Realtime hub running",
		Details: map[string]interface{}{
			"channels":       c.source.Connected(),
			"queue_depth":    depth,
			"queue_capacity": capacity,
			"rejected":       rejected,
		},
	}
	switch {
	case capacity > 0 && float64(depth)/float64(capacity) >= 0.9:
		check.Status = HealthStatusDegraded
		check.Message = "Event queue is backing up"
	case newlyRejected > 0:
		check.Status = HealthStatusDegraded
		check.Message = fmt.Sprintf("%d inbound events rejected since last check", newlyRejected)
	}
	return check
}

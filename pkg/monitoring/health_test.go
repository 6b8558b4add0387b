package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRealtime struct {
	channels int
	depth    int
	capacity int
	rejected int64
}

func (f *fakeRealtime) Connected() int { return f.channels }

func (f *fakeRealtime) QueueStats() (int, int, int64) { return f.depth, f.capacity, f.rejected }

func TestHealthManager_WorstStatusWins(t *testing.T) {
	hm := NewHealthManager("coordination", "test", "test")
	hm.RegisterChecker("realtime", NewRealtimeHealthChecker(&fakeRealtime{channels: 3, depth: 95, capacity: 100}))

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()
	hm.RegisterChecker("database", NewDatabaseHealthChecker(db))

	report := hm.CheckHealth(context.Background())
	assert.Equal(t, HealthStatusDegraded, report.Status)
	require.Len(t, report.Checks, 2)
	assert.Equal(t, HealthStatusHealthy, report.Checks["database"].Status)
	assert.Equal(t, "Event queue is backing up", report.Checks["realtime"].Message)
	assert.Equal(t, 3, report.Checks["realtime"].Details["channels"])
	assert.Equal(t, "test", report.Environment)
}

func TestHealthManager_NoCheckersIsHealthy(t *testing.T) {
	report := NewHealthManager("coordination", "test", "test").CheckHealth(context.Background())
	assert.Equal(t, HealthStatusHealthy, report.Status)
	assert.Empty(t, report.Checks)
}

func TestRealtimeHealthChecker_RejectionsSinceLastCheck(t *testing.T) {
	source := &fakeRealtime{capacity: 100}
	checker := NewRealtimeHealthChecker(source)
	ctx := context.Background()

	assert.Equal(t, HealthStatusHealthy, checker.Check(ctx).Status)

	source.rejected = 4
	check := checker.Check(ctx)
	assert.Equal(t, HealthStatusDegraded, check.Status)
	assert.Equal(t, "4 inbound events rejected since last check", check.Message)

	// no new rejections: recovered
	assert.Equal(t, HealthStatusHealthy, checker.Check(ctx).Status)
}

func TestHealthManager_HTTPHandlerUnhealthy(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing().WillReturnError(assert.AnError)

	hm := NewHealthManager("coordination", "test", "test")
	hm.RegisterChecker("database", NewDatabaseHealthChecker(db))
	hm.RegisterChecker("realtime", NewRealtimeHealthChecker(&fakeRealtime{capacity: 10}))

	rec := httptest.NewRecorder()
	hm.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var report HealthReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, HealthStatusUnhealthy, report.Status)
	assert.Equal(t, HealthStatusUnhealthy, report.Checks["database"].Status)
	assert.Equal(t, HealthStatusHealthy, report.Checks["realtime"].Status)
}

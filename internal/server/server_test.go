package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditrack/coordination/internal/gateway"
	"github.com/meditrack/coordination/pkg/config"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		LogLevel:    "error",
		Server: config.ServerConfig{
			Host:          "127.0.0.1",
			Port:          5000,
			AllowedOrigin: "http://localhost:5173",
		},
		Storage: config.StorageConfig{Driver: config.DriverMemory},
		JWT:     config.JWTConfig{SecretKey: "test-secret", Issuer: "meditrack"},
		Realtime: config.RealtimeConfig{
			Workers:    2,
			QueueSize:  16,
			SendBuffer: 16,
		},
		Tracking:  config.TrackingConfig{DefaultMaxDistance: 10000, SpeedKmh: 40},
		Reminders: config.RemindersConfig{Enabled: false, Interval: time.Minute, DeliveryTimeout: time.Second, Timezone: "UTC"},
		Delivery:  config.DeliveryConfig{Mode: config.DeliveryModeLog},
		Assistant: config.AssistantConfig{Model: "gemini-test", BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		RateLimit: config.RateLimitConfig{Enabled: true, RequestsPerMin: 1000, EventsPerMin: 1000, CleanupInterval: time.Minute},
		Monitoring: config.MonitoringConfig{
			MetricsPath: "/metrics",
		},
	}
}

func setupTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv, err := New(testConfig(), logger.NewNop())
	require.NoError(t, err)
	srv.startBackground()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Stop(ctx)
	})
	return srv, ts
}

func issueToken(t *testing.T, userID string, role types.UserRole) string {
	t.Helper()
	token, err := gateway.NewTokenValidator("test-secret", "meditrack").IssueJWT(
		&types.UserClaims{UserID: userID, Name: userID, Role: role}, time.Hour)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewBufferString(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_PublicEndpoints(t *testing.T) {
	_, ts := setupTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var report struct {
		Status string `json:"status"`
		Checks map[string]struct {
			Status  string                 `json:"status"`
			Details map[string]interface{} `json:"details"`
		} `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, "healthy", report.Status)
	require.Contains(t, report.Checks, "realtime")
	assert.Equal(t, float64(16), report.Checks["realtime"].Details["queue_capacity"])

	resp = doRequest(t, http.MethodGet, ts.URL+"/metrics", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, http.MethodOptions, ts.URL+"/api/vitals", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_UnknownRoute(t *testing.T) {
	_, ts := setupTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/nothing-here", issueToken(t, "patient-1", types.RolePatient), "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body gateway.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "Route not found", body.Message)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut} {
		resp = doRequest(t, method, ts.URL+"/totally/unknown", "", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, method)
	}
}

func TestServer_MethodNotAllowed(t *testing.T) {
	_, ts := setupTestServer(t)

	resp := doRequest(t, http.MethodPut, ts.URL+"/api/vitals", issueToken(t, "patient-1", types.RolePatient), "")
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	var body gateway.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Method not allowed", body.Message)
}

func TestServer_PreflightOnAnyPath(t *testing.T) {
	_, ts := setupTestServer(t)

	for _, path := range []string{"/api/notifications/abc/read", "/api/messages", "/ws"} {
		resp := doRequest(t, http.MethodOptions, ts.URL+path, "", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPut, path)
	}
}

func TestServer_RequiresToken(t *testing.T) {
	_, ts := setupTestServer(t)

	resp := doRequest(t, http.MethodGet, ts.URL+"/api/notifications", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/notifications", "not-a-token", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/notifications", issueToken(t, "patient-1", types.RolePatient), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_TrackingOverHTTP(t *testing.T) {
	_, ts := setupTestServer(t)
	doctor := issueToken(t, "doctor-1", types.RoleDoctor)
	patient := issueToken(t, "patient-1", types.RolePatient)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/tracking/update", patient, `{"latitude":10,"longitude":20}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doRequest(t, http.MethodPost, ts.URL+"/api/tracking/update", doctor, `{"latitude":10,"longitude":20}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/tracking/doctors?latitude=10.01&longitude=20", patient, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var nearby struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&nearby))
	assert.Equal(t, 1, nearby.Count)
}

// A risky vital recorded over HTTP reaches the patient's open channel
func TestServer_HealthAlertReachesChannel(t *testing.T) {
	srv, ts := setupTestServer(t)
	token := issueToken(t, "patient-1", types.RolePatient)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return srv.hub.Connected() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/vitals", token, `{"type":"blood_pressure","value":"150/95","unit":"mmHg"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env types.Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, types.EventPatientHealthAlert, env.Event)

	var alert types.HealthAlert
	require.NoError(t, json.Unmarshal(env.Data, &alert))
	assert.Equal(t, "patient-1", alert.Recipient)
	assert.Contains(t, alert.Message, "High Blood Pressure")

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/notifications", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed struct {
		Notifications []types.Notification `json:"notifications"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed.Notifications, 1)
	assert.Equal(t, types.CategoryEmergency, listed.Notifications[0].Category)
}

func TestServer_DirectMessageOverHTTP(t *testing.T) {
	srv, ts := setupTestServer(t)
	patientToken := issueToken(t, "patient-1", types.RolePatient)
	doctorToken := issueToken(t, "doctor-1", types.RoleDoctor)
	bystanderToken := issueToken(t, "patient-2", types.RolePatient)

	dial := func(token string) *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws?token="+token, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
	doctor := dial(doctorToken)
	bystander := dial(bystanderToken)
	require.Eventually(t, func() bool { return srv.hub.Connected() == 2 }, 2*time.Second, 10*time.Millisecond)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/messages", patientToken, `{"receiverId":"doctor-1","content":"Can we move my appointment?"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	doctor.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env types.Envelope
	require.NoError(t, doctor.ReadJSON(&env))
	assert.Equal(t, types.EventMessageReceive, env.Event)
	var msg types.Message
	require.NoError(t, json.Unmarshal(env.Data, &msg))
	assert.Equal(t, "patient-1", msg.SenderID)

	bystander.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	assert.Error(t, bystander.ReadJSON(&env), "a non-participant must not receive the message")

	resp = doRequest(t, http.MethodGet, ts.URL+"/api/messages/patient-1", doctorToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var thread struct {
		Messages []types.Message `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&thread))
	require.Len(t, thread.Messages, 1)
	assert.Equal(t, msg.ID, thread.Messages[0].ID)
}

func TestServer_AssistantFallsBack(t *testing.T) {
	_, ts := setupTestServer(t)

	resp := doRequest(t, http.MethodPost, ts.URL+"/api/chatbot/message",
		issueToken(t, "patient-1", types.RolePatient), `{"message":"Is ibuprofen safe?"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "I apologize, but I am unable to generate a response at this time. Please try again later or consult a healthcare professional.", body["message"])
}

func TestServer_StopIsIdempotent(t *testing.T) {
	srv, err := New(testConfig(), logger.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Stop(ctx))
}

func TestNew_UnknownDriver(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Driver = "cassandra"

	_, err := New(cfg, logger.NewNop())
	assert.Error(t, err)
}

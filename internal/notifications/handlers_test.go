package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditrack/coordination/internal/gateway"
	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/types"
)

func serveAs(router http.Handler, userID, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	req = req.WithContext(gateway.WithClaims(req.Context(), &types.UserClaims{UserID: userID, Role: types.RolePatient}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestNotificationHandlers(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, logger.NewNop())
	router := mux.NewRouter()
	svc.RegisterRoutes(router.PathPrefix("/api").Subrouter())

	n := svc.Notify(context.Background(), "patient-1", "Incoming Video Call from Dr. Rao", types.CategoryAppointment)
	require.NotNil(t, n)

	w := serveAs(router, "patient-1", http.MethodGet, "/api/notifications")
	require.Equal(t, http.StatusOK, w.Code)

	var listResp struct {
		Success       bool                  `json:"success"`
		Notifications []*types.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	assert.True(t, listResp.Success)
	require.Len(t, listResp.Notifications, 1)
	assert.Equal(t, types.CategoryAppointment, listResp.Notifications[0].Category)

	w = serveAs(router, "patient-2", http.MethodPut, "/api/notifications/"+n.ID+"/read")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serveAs(router, "patient-1", http.MethodPut, "/api/notifications/"+n.ID+"/read")
	require.Equal(t, http.StatusOK, w.Code)

	var readResp struct {
		Success      bool                `json:"success"`
		Notification *types.Notification `json:"notification"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &readResp))
	assert.True(t, readResp.Notification.IsRead)

	w = serveAs(router, "patient-1", http.MethodPut, "/api/notifications/3f1e2d4c-0000-4000-8000-000000000000/read")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNotificationHandlers_EmptyList(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, logger.NewNop())
	router := mux.NewRouter()
	svc.RegisterRoutes(router.PathPrefix("/api").Subrouter())

	w := serveAs(router, "nobody", http.MethodGet, "/api/notifications")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"notifications":[]}`, w.Body.String())
}

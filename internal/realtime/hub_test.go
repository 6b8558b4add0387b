package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meditrack/coordination/pkg/logger"
	"github.com/meditrack/coordination/pkg/monitoring"
	"github.com/meditrack/coordination/pkg/types"
)

func startTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(monitoring.NewMetricsCollector("test"), logger.NewNop())
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

// fakeClient is a channel without a connection; tests read its send queue directly
func fakeClient(hub *Hub, userID string, role types.UserRole, buffer int) *Client {
	claims := &types.UserClaims{UserID: userID, Name: userID, Role: role}
	return &Client{
		id:     "client-" + userID,
		hub:    hub,
		send:   make(chan []byte, buffer),
		claims: claims,
		rooms:  []string{UserRoom(userID), RoleRoom(role)},
	}
}

func nextFrame(t *testing.T, c *Client) (types.Envelope, bool) {
	t.Helper()
	select {
	case frame, ok := <-c.send:
		if !ok {
			return types.Envelope{}, false
		}
		var env types.Envelope
		require.NoError(t, json.Unmarshal(frame, &env))
		return env, true
	case <-time.After(time.Second):
		t.Fatalf("no frame for %s", c.claims.UserID)
		return types.Envelope{}, false
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case frame := <-c.send:
		t.Errorf("%s received unexpected frame %s", c.claims.UserID, frame)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_PublishToRooms(t *testing.T) {
	hub := startTestHub(t)

	doctor := fakeClient(hub, "doctor-1", types.RoleDoctor, 8)
	patient := fakeClient(hub, "patient-1", types.RolePatient, 8)
	other := fakeClient(hub, "patient-2", types.RolePatient, 8)
	for _, c := range []*Client{doctor, patient, other} {
		require.True(t, hub.Register(c))
	}
	assert.Equal(t, 3, hub.Connected())

	hub.Publish(types.EventVideoCallInvite, types.CallInvite{RecipientID: "patient-1", RoomID: "room-1"}, UserRoom("patient-1"))

	env, ok := nextFrame(t, patient)
	require.True(t, ok)
	assert.Equal(t, types.EventVideoCallInvite, env.Event)

	var invite types.CallInvite
	require.NoError(t, json.Unmarshal(env.Data, &invite))
	assert.Equal(t, "room-1", invite.RoomID)

	assertSilent(t, doctor)
	assertSilent(t, other)
}

func TestHub_DeduplicatesAcrossRooms(t *testing.T) {
	hub := startTestHub(t)

	patient := fakeClient(hub, "patient-1", types.RolePatient, 8)
	require.True(t, hub.Register(patient))

	hub.Publish(types.EventEmergencyAlert, types.EmergencyAlert{PatientID: "patient-1"},
		RoleRoom(types.RolePatient), UserRoom("patient-1"))

	_, ok := nextFrame(t, patient)
	require.True(t, ok)
	assertSilent(t, patient)
}

func TestHub_Unicast(t *testing.T) {
	hub := startTestHub(t)

	a := fakeClient(hub, "patient-1", types.RolePatient, 8)
	b := fakeClient(hub, "patient-1", types.RolePatient, 8)
	b.id = "client-second-tab"
	require.True(t, hub.Register(a))
	require.True(t, hub.Register(b))

	hub.Unicast(a, types.EventError, types.ErrorEvent{Message: "Doctor location not available"})

	env, ok := nextFrame(t, a)
	require.True(t, ok)
	assert.Equal(t, types.EventError, env.Event)
	assertSilent(t, b)
}

func TestHub_DropsSlowChannel(t *testing.T) {
	hub := startTestHub(t)

	slow := fakeClient(hub, "patient-1", types.RolePatient, 1)
	fast := fakeClient(hub, "patient-2", types.RolePatient, 8)
	require.True(t, hub.Register(slow))
	require.True(t, hub.Register(fast))

	hub.Publish(types.EventDoctorLocationUpdated, types.LocationUpdated{DoctorID: "doctor-1"}, RoleRoom(types.RolePatient))
	hub.Publish(types.EventDoctorLocationUpdated, types.LocationUpdated{DoctorID: "doctor-1"}, RoleRoom(types.RolePatient))

	require.Eventually(t, func() bool { return hub.Connected() == 1 }, time.Second, 10*time.Millisecond)

	_, ok := nextFrame(t, fast)
	require.True(t, ok)
	_, ok = nextFrame(t, fast)
	require.True(t, ok)

	// the frame queued before the drop is still readable
	_, ok = nextFrame(t, slow)
	require.True(t, ok)
	_, ok = nextFrame(t, slow)
	assert.False(t, ok, "send queue of a dropped channel is closed")
}

func TestHub_UnregisterClosesQueue(t *testing.T) {
	hub := startTestHub(t)

	c := fakeClient(hub, "doctor-1", types.RoleDoctor, 8)
	require.True(t, hub.Register(c))
	hub.Unregister(c)
	hub.Unregister(c)

	_, ok := nextFrame(t, c)
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Connected())
}

func TestHub_RegisterAfterStop(t *testing.T) {
	hub := NewHub(nil, logger.NewNop())
	go hub.Run()
	hub.Stop()
	hub.Stop()

	assert.False(t, hub.Register(fakeClient(hub, "doctor-1", types.RoleDoctor, 1)))
	hub.Publish(types.EventEmergencyAlert, types.EmergencyAlert{}, RoleRoom(types.RoleDoctor))
}

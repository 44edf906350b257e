package telemetry_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/platformkit/ecs/system"
	"github.com/milk9111/platformkit/prefabs"
	"github.com/milk9111/platformkit/telemetry"
)

const level = `
name: wire
platforms:
  - name: shuttle
    size: { width: 2, height: 0.5 }
    speed: 1
    moving_at_start: true
    waypoints:
      - { x: 0, y: 0 }
      - { x: 4, y: 0 }
bodies:
  - name: crate
    transform: { x: 0, y: 0.75 }
`

func newSim(t *testing.T) *system.Simulation {
	t.Helper()
	l, err := prefabs.ParseLevel([]byte(level))
	require.NoError(t, err)
	sim, err := system.NewSimulation(l, nil)
	require.NoError(t, err)
	return sim
}

func dial(t *testing.T, hub *telemetry.Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestCaptureReadsNamedEntities(t *testing.T) {
	sim := newSim(t)
	sim.Step()
	snap := telemetry.Capture(sim, "run", sim.Events())

	require.Equal(t, "wire", snap.Level)
	require.Equal(t, 1, snap.Frame)
	require.Equal(t, []string{"crate", "shuttle"}, snap.Names())

	shuttle := snap.Bodies["shuttle"]
	require.NotNil(t, shuttle.Running)
	require.True(t, *shuttle.Running)
	require.InDelta(t, 1, shuttle.Velocity.X, 1e-9)
	require.Nil(t, snap.Bodies["crate"].Velocity)
}

func TestHubBroadcastsAndQueuesCommands(t *testing.T) {
	hub := telemetry.NewHub(nil)
	conn := dial(t, hub)
	sim := newSim(t)

	for i := 0; i < 30; i++ {
		sim.Step()
	}
	require.NoError(t, hub.Broadcast(telemetry.Capture(sim, "run-1", nil)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got telemetry.Snapshot
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, "run-1", got.Run)
	require.Equal(t, 30, got.Frame)
	require.InDelta(t, 0.5, got.Bodies["shuttle"].Position.X, 1e-6)

	require.NoError(t, conn.WriteJSON(telemetry.Command{Type: "stop", Platform: "shuttle"}))
	select {
	case cmd := <-hub.Commands():
		require.True(t, telemetry.Apply(sim, cmd))
	case <-time.After(2 * time.Second):
		t.Fatal("command not received")
	}
	x, _ := sim.Position("shuttle")
	sim.Step()
	after, _ := sim.Position("shuttle")
	require.Equal(t, x, after)

	require.False(t, telemetry.Apply(sim, telemetry.Command{Type: "launch", Platform: "shuttle"}))
	require.False(t, telemetry.Apply(sim, telemetry.Command{Type: "start", Platform: "ghost"}))
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	hub := telemetry.NewHub(nil)
	conn := dial(t, hub)

	hub.Close()
	require.Zero(t, hub.Clients())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	require.NoError(t, hub.Broadcast(map[string]int{"frame": 1}))
}

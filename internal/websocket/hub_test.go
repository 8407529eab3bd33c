package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regata_go/internal/models"
)

type fakeController struct {
	mu       sync.Mutex
	commands []string
}

func (f *fakeController) Snapshot() models.Snapshot {
	return models.Snapshot{Units: models.UnitMap{"b1": {ID: "b1"}}, Laps: 2}
}

func (f *fakeController) Execute(_ context.Context, command string, params map[string]interface{}) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command)
	if command == "explode" {
		return nil, errors.New("comando desconhecido")
	}
	return map[string]interface{}{"echo": params["speed"]}, nil
}

type envelope struct {
	Type  string                 `json:"type"`
	Data  map[string]interface{} `json:"data"`
	Error string                 `json:"error"`
	Units models.UnitMap         `json:"units"`
	Time  int64                  `json:"time"`
}

func dial(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(NewHandler(hub))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func startHub(t *testing.T, ctrl Controller) *Hub {
	t.Helper()
	hub := NewHub(ctrl)
	go hub.Run()
	t.Cleanup(hub.Shutdown)
	return hub
}

func TestWelcomeCarriesSnapshot(t *testing.T) {
	hub := startHub(t, &fakeController{})
	conn := dial(t, hub)

	env := read(t, conn)
	assert.Equal(t, models.MsgWelcome, env.Type)
	assert.NotEmpty(t, env.Data["clientId"])
	snap, ok := env.Data["snapshot"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), snap["laps"])
}

func TestCommandAckAndError(t *testing.T) {
	ctrl := &fakeController{}
	hub := startHub(t, ctrl)
	conn := dial(t, hub)
	read(t, conn) // welcome

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "set_speed", "id": "req-1", "params": map[string]interface{}{"speed": 2}}))
	env := read(t, conn)
	assert.Equal(t, models.MsgAck, env.Type)
	assert.Equal(t, "req-1", env.Data["id"])
	assert.Equal(t, "set_speed", env.Data["command"])

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "explode", "id": "req-2"}))
	env = read(t, conn)
	assert.Equal(t, models.MsgError, env.Type)
	assert.Equal(t, "req-2", env.Data["id"])
	assert.Contains(t, env.Error, "desconhecido")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{não é json")))
	env = read(t, conn)
	assert.Equal(t, models.MsgError, env.Type)
	assert.Equal(t, "invalid_format", env.Data["code"])
}

func TestPingAnsweredDirectly(t *testing.T) {
	ctrl := &fakeController{}
	hub := startHub(t, ctrl)
	conn := dial(t, hub)
	read(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "ping", "params": map[string]interface{}{"time": 42}}))
	env := read(t, conn)
	assert.Equal(t, models.MsgPong, env.Type)
	assert.Equal(t, int64(42), env.Time)

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	assert.Empty(t, ctrl.commands)
}

func TestBroadcastUnits(t *testing.T) {
	hub := startHub(t, &fakeController{})
	conn := dial(t, hub)
	read(t, conn)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	hub.BroadcastUnits(models.UnitMap{"b7": {ID: "b7", Lat: 12.6}}, true)

	env := read(t, conn)
	assert.Equal(t, models.MsgUnits, env.Type)
	assert.Equal(t, 12.6, env.Units["b7"].Lat)
}

func TestBroadcastReplayThrottlesTimeOnlyUpdates(t *testing.T) {
	hub := NewHub(nil)
	defer hub.cancel()

	playing := models.ReplayState{Playing: true, Active: true, Speed: 1, CurrentTime: 10}
	hub.BroadcastReplay(playing, models.HistorySummary{})
	playing.CurrentTime = 20
	hub.BroadcastReplay(playing, models.HistorySummary{})
	assert.Len(t, hub.broadcast, 1)

	playing.Playing = false
	hub.BroadcastReplay(playing, models.HistorySummary{})
	assert.Len(t, hub.broadcast, 2)
}

func TestOversizedMessageClosesConnection(t *testing.T) {
	ctrl := &fakeController{}
	hub := startHub(t, ctrl)
	conn := dial(t, hub)
	assert.Equal(t, models.MsgWelcome, read(t, conn).Type)

	payload := `{"type":"command","command":"inject_devices","data":"` + strings.Repeat("x", maxMessageSize) + `"}`
	// o servidor pode fechar antes de consumir o payload inteiro
	_ = conn.WriteMessage(websocket.TextMessage, []byte(payload))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "conexão deveria ter sido fechada pelo servidor")
	}
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	assert.Empty(t, ctrl.commands)
}

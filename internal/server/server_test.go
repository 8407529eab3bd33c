package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regata_go/internal/config"
	"regata_go/internal/control"
	"regata_go/internal/models"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "ausente.yaml"))
	require.NoError(t, err)
	cfg.Feed.Disabled = true
	cfg.Discovery.Enabled = false
	cfg.Server.StaticDir = ""
	if mutate != nil {
		mutate(cfg)
	}

	s, err := NewServer(cfg)
	require.NoError(t, err)

	go s.wsHub.Run()
	go s.sync.Run(s.ctx)
	t.Cleanup(func() {
		if s.simulator != nil {
			s.simulator.Stop()
		}
		s.engine.Close()
		s.cancel()
		s.wsHub.Shutdown()
	})
	return s
}

func getJSON(t *testing.T, h http.Handler, path string) (int, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec.Code, out
}

func TestHealthWithFeedDisabled(t *testing.T) {
	s := newTestServer(t, nil)

	code, out := getJSON(t, s.router, "/health")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out["status"])
	services := out["services"].(map[string]interface{})
	assert.Equal(t, "disabled", services["feed"])
	assert.Equal(t, "disabled", services["simulation"])
}

func TestInfoAndAPIMounted(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) { c.Course.Laps = 3 })

	code, out := getJSON(t, s.router, "/info")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, Version, out["version"])
	assert.Equal(t, 3.0, out["laps"])

	code, out = getJSON(t, s.router, "/api/replay")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, out["speed"])

	code, out = getJSON(t, s.router, "/api/discover")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "/ws", out["wsEndpoint"])
}

func TestReplayFramesReachDisplay(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()

	_, err := s.controller.Execute(ctx, control.CmdInjectDevices, map[string]interface{}{
		"devices": map[string]interface{}{
			"boat-1": map[string]interface{}{"lat": 12.6, "lon": 100.8},
		},
	})
	require.NoError(t, err)
	require.Contains(t, s.store.Units(), "boat-1")
	assert.False(t, s.store.FromReplay())

	first, _, ok := s.engine.Buffer().Bounds()
	require.True(t, ok)

	_, err = s.controller.Execute(ctx, control.CmdEnableReplay, nil)
	require.NoError(t, err)
	assert.True(t, s.store.Replay().Active)

	_, err = s.controller.Execute(ctx, control.CmdSeek, map[string]interface{}{"time": float64(first)})
	require.NoError(t, err)
	assert.True(t, s.store.FromReplay())
	assert.Contains(t, s.store.Units(), "boat-1")

	_, err = s.controller.Execute(ctx, control.CmdDisableReplay, nil)
	require.NoError(t, err)
	assert.False(t, s.store.FromReplay())
}

func TestLocalSimulationFeedsSynchronizer(t *testing.T) {
	s := newTestServer(t, func(c *config.Config) {
		c.Simulation.Enabled = true
		c.Simulation.Boats = 2
		c.Simulation.SampleRate = 10 * time.Millisecond
		c.Simulation.Target = "redis" // sem feed, cai na injeção local
	})
	require.NotNil(t, s.simulator)
	require.NoError(t, s.simulator.Start(s.ctx))

	assert.Eventually(t, func() bool {
		return len(s.sync.LiveUnits()) == 2 && s.store.Course() != nil
	}, 2*time.Second, 10*time.Millisecond)

	course := s.store.Course()
	assert.Equal(t, "sim-start-pin", course.StartLine[0].ID)
	assert.NotEmpty(t, course.Sequence)
	assert.Equal(t, models.FinishLineTarget, course.Sequence[len(course.Sequence)-1])
}

package simulation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regata_go/internal/config"
	"regata_go/internal/course"
	"regata_go/internal/geo"
	"regata_go/internal/models"
	"regata_go/internal/redis"
)

func testConfig() config.SimulationConfig {
	return config.SimulationConfig{
		Enabled:    true,
		Boats:      3,
		SampleRate: 100 * time.Millisecond,
		WindDir:    45,
		LegLength:  1000,
		Target:     "local",
	}
}

type recordingSink struct {
	mu        sync.Mutex
	snapshots []map[string]models.RawDeviceReport
	fail      error
}

func (r *recordingSink) PublishDevices(_ context.Context, devices map[string]models.RawDeviceReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.snapshots = append(r.snapshots, devices)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func TestLayoutGeometry(t *testing.T) {
	l := NewLayout(geo.DefaultOrigin, 45, 1000, 2)

	require.Len(t, l.Marks, 8)
	mark1 := l.Marks[2].Pos
	assert.InDelta(t, 1000, geo.Distance(geo.DefaultOrigin, mark1), 1)
	assert.InDelta(t, 45, geo.Bearing(geo.DefaultOrigin, mark1), 0.5)

	// largada perpendicular ao vento
	pin, boat := l.Marks[0].Pos, l.Marks[1].Pos
	assert.InDelta(t, 200, geo.Distance(pin, boat), 1)
	assert.InDelta(t, 135, geo.Bearing(pin, boat), 0.5)

	// 1, 1A, portão, 1, 1A, chegada
	assert.Len(t, l.Route, 6)
}

func TestLayoutBuildsCourse(t *testing.T) {
	l := NewLayout(geo.DefaultOrigin, 0, 800, 1)
	markers := make(map[string]course.Marker, len(l.Marks))
	for _, m := range l.Marks {
		markers[m.ID] = course.Marker{ID: m.ID, Lat: m.Pos.Lat, Lon: m.Pos.Lon, Role: m.Role}
	}

	data := course.Build(markers, 1)
	require.NotNil(t, data)
	assert.Equal(t, "sim-start-pin", data.StartLine[0].ID)
	assert.Equal(t, "sim-finish-boat", data.FinishLine[1].ID)
	assert.Equal(t, []string{"sim-buoy-1", "sim-buoy-1a", models.FinishLineTarget}, data.Sequence)
}

func TestTickMovesBoatsTowardMark(t *testing.T) {
	sink := &recordingSink{}
	now := time.UnixMilli(1700000000000)
	sim := NewSimulator(testConfig(), sink, Options{Seed: 7, Laps: 1, Clock: func() time.Time { return now }})

	first := sim.boats[0].pos
	mark1 := sim.Layout().Route[0]
	for i := 0; i < 20; i++ {
		require.NoError(t, sim.Tick(context.Background()))
	}

	require.Equal(t, 20, sink.count())
	last := sink.snapshots[19]
	assert.Len(t, last, 3+8)

	b := last["sim-boat-1"]
	require.NotNil(t, b.Location)
	assert.Equal(t, "SIM-1", b.TeamID)
	assert.Equal(t, int64(1700000000000), b.PacketTime())
	assert.Greater(t, *b.Location.Speed, 0.0)
	assert.LessOrEqual(t, *b.Location.Speed, maxBoatSpeed+acceleration)

	moved := geo.LatLon{Lat: *b.Location.Lat, Lon: *b.Location.Lon}
	assert.Less(t, geo.Distance(moved, mark1), geo.Distance(first, mark1))

	pin := last["sim-start-pin"]
	assert.Equal(t, "start_pin", pin.Role)
	assert.Equal(t, models.ClassMarker, models.Classify(pin.Role))
}

func TestBoatFinishesRoute(t *testing.T) {
	sim := NewSimulator(testConfig(), &recordingSink{}, Options{Seed: 1, Laps: 1})
	b := sim.boats[0]
	b.target = len(sim.layout.Route) - 1
	b.pos = sim.layout.Route[b.target]

	sim.advance(b, 0.1)
	assert.True(t, b.finished)
	assert.Zero(t, b.speed)
}

func TestStartStopAndErrors(t *testing.T) {
	sink := &recordingSink{fail: errors.New("feed fora")}
	cfg := testConfig()
	cfg.SampleRate = 5 * time.Millisecond
	sim := NewSimulator(cfg, sink, Options{Seed: 3})

	require.NoError(t, sim.Start(context.Background()))
	assert.True(t, sim.IsRunning())

	assert.Eventually(t, func() bool { return sim.Stats().Errors >= 2 }, time.Second, 5*time.Millisecond)

	sim.Stop()
	assert.False(t, sim.IsRunning())
	assert.NotEmpty(t, sim.Stats().Session)
	assert.Equal(t, "sim-"+sim.Session()[:8], sim.RoomID())
}

func TestRedisSinkPublishesRoomAndDevices(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	service := redis.NewService(redis.NewClientFrom(rdb, "sim"), config.FeedConfig{})
	sim := NewSimulator(testConfig(), NewRedisSink(service), Options{Seed: 5})

	ctx := context.Background()
	require.NoError(t, sim.Start(ctx))
	sim.Stop()
	require.NoError(t, sim.Tick(ctx))

	rooms, err := service.LoadRooms(ctx)
	require.NoError(t, err)
	require.Contains(t, rooms, sim.RoomID())
	room := rooms[sim.RoomID()]
	assert.Len(t, room.Devices, 3+8)
	assert.True(t, room.Devices.Contains("sim-boat-2"))

	devices, err := service.LoadDevices(ctx)
	require.NoError(t, err)
	assert.Contains(t, devices, "sim-boat-3")
	assert.Contains(t, devices, "sim-gate-4p")
}

package replay

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regata_go/internal/models"
)

func unitsAt(lat float64) models.UnitMap {
	return models.UnitMap{"boat-1": {ID: "boat-1", Lat: lat, Lon: 100.86}}
}

func TestBufferRejectsNonIncreasing(t *testing.T) {
	b := NewBuffer(10)
	assert.True(t, b.Append(100, unitsAt(1)))
	assert.False(t, b.Append(100, unitsAt(2)))
	assert.False(t, b.Append(50, unitsAt(3)))
	assert.True(t, b.Append(101, unitsAt(4)))
	assert.Equal(t, 2, b.Len())

	first, last, ok := b.Bounds()
	require.True(t, ok)
	assert.Equal(t, int64(100), first)
	assert.Equal(t, int64(101), last)
}

func TestBufferFrameAtReturnsUpcomingFrame(t *testing.T) {
	b := NewBuffer(10)
	b.Append(100, unitsAt(1))
	b.Append(200, unitsAt(2))
	b.Append(300, unitsAt(3))

	f, ok := b.FrameAt(150)
	require.True(t, ok)
	assert.Equal(t, int64(200), f.Timestamp)

	f, ok = b.FrameAt(200)
	require.True(t, ok)
	assert.Equal(t, int64(200), f.Timestamp)

	f, ok = b.FrameAt(0)
	require.True(t, ok)
	assert.Equal(t, int64(100), f.Timestamp)

	_, ok = b.FrameAt(301)
	assert.False(t, ok, "depois do último quadro não há resultado")
}

func TestBufferEvictsOldest(t *testing.T) {
	b := NewBuffer(3)
	for ts := int64(1); ts <= 5; ts++ {
		require.True(t, b.Append(ts, unitsAt(float64(ts))))
	}
	assert.Equal(t, 3, b.Len())

	first, last, _ := b.Bounds()
	assert.Equal(t, int64(3), first)
	assert.Equal(t, int64(5), last)

	f, ok := b.FrameAt(0)
	require.True(t, ok)
	assert.Equal(t, int64(3), f.Timestamp)

	f, ok = b.FrameAt(4)
	require.True(t, ok)
	assert.Equal(t, 4.0, f.Units["boat-1"].Lat)

	// continua rejeitando fora de ordem após dar a volta no anel
	assert.False(t, b.Append(5, unitsAt(9)))
}

func TestBufferFramesAreImmutable(t *testing.T) {
	b := NewBuffer(10)
	units := unitsAt(1)
	b.Append(1, units)
	units["boat-1"] = models.UnitState{ID: "boat-1", Lat: 99}

	f, _ := b.FrameAt(1)
	assert.Equal(t, 1.0, f.Units["boat-1"].Lat)
}

func TestBufferResetAndSummary(t *testing.T) {
	b := NewBuffer(0)
	assert.Equal(t, models.HistorySummary{}, b.Summary())
	b.Append(10, unitsAt(1))
	b.Append(20, unitsAt(2))
	assert.Equal(t, models.HistorySummary{Frames: 2, First: 10, Last: 20}, b.Summary())

	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.True(t, b.Append(5, unitsAt(1)))
}

type recorder struct {
	mu     sync.Mutex
	frames []models.HistoryFrame
	states []models.ReplayState
}

func (r *recorder) attach(e *Engine) {
	e.RegisterFrameHandler(func(f models.HistoryFrame) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.frames = append(r.frames, f)
	})
	e.RegisterStateHandler(func(s models.ReplayState) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.states = append(r.states, s)
	})
}

func (r *recorder) frameTimes() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, 0, len(r.frames))
	for _, f := range r.frames {
		out = append(out, f.Timestamp)
	}
	return out
}

func TestRecordFirstFrameSetsRaceStart(t *testing.T) {
	e := NewEngine(Options{Capacity: 10})
	assert.True(t, e.Record(1000, unitsAt(1)))
	assert.True(t, e.Record(1100, unitsAt(2)))
	assert.False(t, e.Record(1100, unitsAt(3)))

	s := e.State()
	assert.Equal(t, int64(1000), s.RaceStartTime)
	assert.Equal(t, int64(1000), s.CurrentTime)
	assert.Equal(t, 1.0, s.Speed)
	assert.Equal(t, 2, e.Buffer().Len())
}

func TestEnableDisableStopPlayback(t *testing.T) {
	e := NewEngine(Options{TickInterval: time.Hour})
	defer e.Close()

	e.Play()
	assert.True(t, e.State().Playing)
	e.EnableReplay()
	assert.False(t, e.State().Playing)
	assert.True(t, e.Active())

	e.Play()
	e.DisableReplay()
	assert.False(t, e.State().Playing)
	assert.False(t, e.Active())

	e.TogglePlay()
	assert.True(t, e.State().Playing)
	e.TogglePlay()
	assert.False(t, e.State().Playing)
}

func TestSeekWhilePausedPublishesUpcomingFrame(t *testing.T) {
	e := NewEngine(Options{})
	rec := &recorder{}
	rec.attach(e)

	e.Record(100, unitsAt(1))
	e.Record(200, unitsAt(2))
	e.Record(300, unitsAt(3))

	// fora do modo replay a busca só move o cursor
	e.Seek(150)
	assert.Empty(t, rec.frameTimes())
	assert.Equal(t, int64(150), e.State().CurrentTime)

	e.EnableReplay()
	e.Seek(150)
	e.Seek(160) // mesmo quadro, não republica
	e.Seek(250)
	e.Seek(400) // além do fim: exibição congela
	assert.Equal(t, []int64{200, 300}, rec.frameTimes())
}

func TestEnableWhilePausedPublishesCursorFrame(t *testing.T) {
	e := NewEngine(Options{})
	rec := &recorder{}
	rec.attach(e)

	e.Record(100, unitsAt(1))
	e.Record(200, unitsAt(2))
	assert.Empty(t, rec.frameTimes())

	e.EnableReplay()
	assert.Equal(t, int64(100), e.State().CurrentTime)
	assert.Equal(t, []int64{100}, rec.frameTimes())

	// novo quadro com o cursor parado no mesmo lugar não republica
	e.Record(300, unitsAt(3))
	assert.Equal(t, []int64{100}, rec.frameTimes())

	// cursor além do fim: o quadro que chega passa a ser o resolvido
	e.Seek(350)
	e.Record(400, unitsAt(4))
	assert.Equal(t, []int64{100, 400}, rec.frameTimes())

	// fora do modo replay nada é publicado
	e.DisableReplay()
	e.Record(500, unitsAt(5))
	assert.Equal(t, []int64{100, 400}, rec.frameTimes())
}

func TestWhenLiveSkipsWhileReplayActive(t *testing.T) {
	e := NewEngine(Options{})
	calls := 0

	assert.True(t, e.WhenLive(func() { calls++ }))
	e.EnableReplay()
	assert.False(t, e.WhenLive(func() { calls++ }))
	e.DisableReplay()
	assert.True(t, e.WhenLive(func() { calls++ }))
	assert.Equal(t, 2, calls)
}

func TestStepAdvancesBySpeed(t *testing.T) {
	e := NewEngine(Options{})
	rec := &recorder{}
	rec.attach(e)

	e.Record(1000, unitsAt(1))
	e.Record(1500, unitsAt(2))
	e.Record(2000, unitsAt(3))
	e.EnableReplay()
	e.SetSpeed(2)

	stop := make(chan struct{})
	e.step(stop, 200*time.Millisecond)
	assert.Equal(t, int64(1400), e.State().CurrentTime)
	e.step(stop, 100*time.Millisecond)
	assert.Equal(t, int64(1600), e.State().CurrentTime)

	assert.Equal(t, []int64{1000, 1500, 2000}, rec.frameTimes())

	// avanço fracionário acumula
	e.SetSpeed(0.5)
	e.step(stop, 1*time.Millisecond)
	e.step(stop, 1*time.Millisecond)
	assert.Equal(t, int64(1601), e.State().CurrentTime)
}

func TestStepPastEndWithLoopWraps(t *testing.T) {
	e := NewEngine(Options{Loop: true})
	rec := &recorder{}
	rec.attach(e)

	e.Record(1000, unitsAt(1))
	e.Record(1100, unitsAt(2))
	e.EnableReplay()
	e.Seek(1100)

	stop := make(chan struct{})
	e.step(stop, 50*time.Millisecond)
	assert.Equal(t, int64(1000), e.State().CurrentTime)
	assert.Equal(t, []int64{1000, 1100, 1000}, rec.frameTimes())
}

func TestStepPastEndWithoutLoopFreezes(t *testing.T) {
	e := NewEngine(Options{})
	rec := &recorder{}
	rec.attach(e)

	e.Record(1000, unitsAt(1))
	e.EnableReplay()

	stop := make(chan struct{})
	e.step(stop, 50*time.Millisecond)
	e.step(stop, 50*time.Millisecond)
	assert.Equal(t, int64(1100), e.State().CurrentTime)
	assert.Equal(t, []int64{1000}, rec.frameTimes(), "só o quadro publicado ao ativar")
}

func TestStepAfterStopIsIgnored(t *testing.T) {
	e := NewEngine(Options{})
	e.Record(1000, unitsAt(1))

	stop := make(chan struct{})
	close(stop)
	e.step(stop, time.Second)
	assert.Equal(t, int64(1000), e.State().CurrentTime)
}

func TestDriverPublishesWhilePlaying(t *testing.T) {
	e := NewEngine(Options{TickInterval: time.Millisecond})
	defer e.Close()
	rec := &recorder{}
	rec.attach(e)

	e.Record(1000, unitsAt(1))
	e.Record(1001, unitsAt(2))
	e.Record(1002, unitsAt(3))
	e.EnableReplay()
	e.SetSpeed(1)
	e.Play()

	assert.Eventually(t, func() bool {
		return len(rec.frameTimes()) > 0
	}, time.Second, 5*time.Millisecond)

	e.Pause()
	assert.False(t, e.State().Playing)
}

func TestResetRewindsToRaceStart(t *testing.T) {
	e := NewEngine(Options{})
	e.Record(1000, unitsAt(1))
	e.Record(2000, unitsAt(2))
	e.Seek(1800)

	e.Reset()
	assert.Equal(t, 0, e.Buffer().Len())
	assert.Equal(t, int64(1000), e.State().CurrentTime)
	assert.False(t, e.State().Playing)

	// próximo quadro redefine o início
	e.Record(5000, unitsAt(3))
	assert.Equal(t, int64(5000), e.State().RaceStartTime)
}

func TestSetSpeedClampsNegative(t *testing.T) {
	e := NewEngine(Options{})
	e.SetSpeed(-3)
	assert.Equal(t, 0.0, e.State().Speed)
}

package smoothing

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regata_go/internal/geo"
)

func TestSmoothedPositionIsMeanOfRecentWindow(t *testing.T) {
	f := NewFilter()
	rng := rand.New(rand.NewSource(7))

	var raws []geo.LatLon
	for i := 0; i < 12; i++ {
		p := geo.LatLon{Lat: 12.6 + rng.Float64()*0.01, Lon: 100.8 + rng.Float64()*0.01}
		raws = append(raws, p)

		out := f.Smooth(Sample{ID: "THA-1", Lat: p.Lat, Lon: p.Lon, Speed: 8, Heading: 45})

		start := len(raws) - WindowSize
		if start < 0 {
			start = 0
		}
		var sumLat, sumLon float64
		for _, r := range raws[start:] {
			sumLat += r.Lat
			sumLon += r.Lon
		}
		n := float64(len(raws) - start)
		assert.InDelta(t, sumLat/n, out.Lat, 1e-9, "tick %d", i)
		assert.InDelta(t, sumLon/n, out.Lon, 1e-9, "tick %d", i)
	}
}

func TestHeadingLockedWhileStationary(t *testing.T) {
	f := NewFilter()

	out := f.Smooth(Sample{ID: "A", Lat: 1, Lon: 1, Speed: 6, Heading: 120})
	require.Equal(t, 120.0, out.Heading)
	require.False(t, out.IsStationary)

	for i, h := range []float64{3, 250, 90, 359} {
		out = f.Smooth(Sample{ID: "A", Lat: 1, Lon: 1, Speed: 0.2, Heading: h})
		assert.True(t, out.IsStationary, "tick %d", i)
		assert.Equal(t, 120.0, out.Heading, "tick %d", i)
	}

	out = f.Smooth(Sample{ID: "A", Lat: 1, Lon: 1, Speed: 4, Heading: 200})
	assert.Equal(t, 200.0, out.Heading)
	out = f.Smooth(Sample{ID: "A", Lat: 1, Lon: 1, Speed: 0.49, Heading: 10})
	assert.Equal(t, 200.0, out.Heading)
}

func TestStationaryFirstSampleUsesReportedHeading(t *testing.T) {
	f := NewFilter()
	out := f.Smooth(Sample{ID: "A", Lat: 1, Lon: 1, Speed: 0, Heading: -30})
	assert.True(t, out.IsStationary)
	assert.Equal(t, 330.0, out.Heading)
}

func TestZeroHeadingDerivedFromMovement(t *testing.T) {
	f := NewFilter()

	first := f.Smooth(Sample{ID: "A", Lat: 10, Lon: 100, Speed: 5, Heading: 0})
	// uma amostra só: sem histórico, confia no zero
	assert.Equal(t, 0.0, first.Heading)

	out := f.Smooth(Sample{ID: "A", Lat: 10, Lon: 100.001, Speed: 5, Heading: 0})
	assert.InDelta(t, 90, out.Heading, 1e-9)

	// o rumo derivado passa a ser o rumo travado
	out = f.Smooth(Sample{ID: "A", Lat: 10, Lon: 100.001, Speed: 0.1, Heading: 0})
	assert.InDelta(t, 90, out.Heading, 1e-9)
}

func TestHeadingNormalized(t *testing.T) {
	f := NewFilter()
	assert.Equal(t, 10.0, f.Smooth(Sample{ID: "A", Speed: 3, Heading: 370}).Heading)
	assert.Equal(t, 350.0, f.Smooth(Sample{ID: "A", Speed: 3, Heading: -10}).Heading)
}

func TestTrailBoundedAndSnapshotIsCopy(t *testing.T) {
	f := NewFilter()

	var first Result
	for i := 0; i < TrailSize+7; i++ {
		out := f.Smooth(Sample{ID: "A", Lat: float64(i), Lon: 0, Speed: 3, Heading: 10})
		if i == 0 {
			first = out
		}
		assert.LessOrEqual(t, len(out.Trail), TrailSize)
	}

	require.Len(t, first.Trail, 1)
	assert.Equal(t, 0.0, first.Trail[0].Lat)

	last, ok := f.Peek("A")
	require.True(t, ok)
	require.Len(t, last.Trail, TrailSize)
	// o ponto mais antigo foi despejado
	assert.Greater(t, last.Trail[0].Lat, 0.0)

	last.Trail[0].Lat = -99
	again, _ := f.Peek("A")
	assert.NotEqual(t, -99.0, again.Trail[0].Lat)
}

func TestPeekDoesNotPushSample(t *testing.T) {
	f := NewFilter()
	f.Smooth(Sample{ID: "A", Lat: 1, Lon: 1, Speed: 3, Heading: 10})
	f.Smooth(Sample{ID: "A", Lat: 3, Lon: 3, Speed: 3, Heading: 10})

	p1, _ := f.Peek("A")
	p2, _ := f.Peek("A")
	assert.Equal(t, p1, p2)
	assert.Equal(t, 2.0, p1.Lat)
	assert.Len(t, p1.Trail, 2)

	_, ok := f.Peek("B")
	assert.False(t, ok)
}

func TestUnitsAreIndependentAndRemovable(t *testing.T) {
	f := NewFilter()
	f.Smooth(Sample{ID: "A", Lat: 1, Speed: 3, Heading: 10})
	f.Smooth(Sample{ID: "B", Lat: 5, Speed: 3, Heading: 10})
	assert.Equal(t, 2, f.Len())

	out := f.Smooth(Sample{ID: "A", Lat: 3, Speed: 3, Heading: 10})
	assert.Equal(t, 2.0, out.Lat)

	f.Remove("A")
	assert.Equal(t, 1, f.Len())
	out = f.Smooth(Sample{ID: "A", Lat: 9, Speed: 3, Heading: 10})
	assert.Equal(t, 9.0, out.Lat)

	f.Reset()
	assert.Equal(t, 0, f.Len())
}

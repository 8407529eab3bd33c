package course

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regata_go/internal/geo"
	"regata_go/internal/models"
)

func markers(ms ...Marker) map[string]Marker {
	out := make(map[string]Marker, len(ms))
	for _, m := range ms {
		out[m.ID] = m
	}
	return out
}

func TestBuildEmptyReturnsNil(t *testing.T) {
	assert.Nil(t, Build(nil, 2))
	assert.Nil(t, Build(map[string]Marker{}, 2))
}

func TestBuildPlaceholders(t *testing.T) {
	data := Build(markers(Marker{ID: "m1", Lat: 12.7, Lon: 100.9, Role: "buoy_1"}), 2)
	require.NotNil(t, data)

	want := [2]models.CoursePoint{
		{ID: "s1", Label: "Start Left", Lat: geo.DefaultOrigin.Lat, Lon: geo.DefaultOrigin.Lon, Type: models.PointPin, Color: "gray"},
		{ID: "s2", Label: "Start Right", Lat: geo.DefaultOrigin.Lat, Lon: geo.DefaultOrigin.Lon, Type: models.PointBoat, Color: "gray"},
	}
	if diff := cmp.Diff(want, data.StartLine); diff != "" {
		t.Errorf("linha de largada (-want +got):\n%s", diff)
	}
	assert.Equal(t, "f1", data.FinishLine[0].ID)
	assert.Equal(t, "f2", data.FinishLine[1].ID)
	assert.Nil(t, data.SemiFinishLine)
	assert.Empty(t, data.Sequence)
}

func TestBuildWindwardLeewardTwoLaps(t *testing.T) {
	data := Build(markers(
		Marker{ID: "sp", Lat: 12.60, Lon: 100.86, Role: "start_pin"},
		Marker{ID: "sb", Lat: 12.60, Lon: 100.87, Role: "start_buoy_right"},
		Marker{ID: "fp", Lat: 12.61, Lon: 100.86, Role: "finish_buoy_left"},
		Marker{ID: "fb", Lat: 12.61, Lon: 100.87, Role: "finish_boat"},
		Marker{ID: "m1", Lat: 12.65, Lon: 100.86, Role: "buoy_1"},
		Marker{ID: "m1a", Lat: 12.65, Lon: 100.865, Role: "buoy_1a"},
		Marker{ID: "g4s", Lat: 12.62, Lon: 100.86, Role: "gate_4s"},
		Marker{ID: "g4p", Lat: 12.62, Lon: 100.862, Role: "gate_4p"},
	), 2)
	require.NotNil(t, data)

	assert.Equal(t, []string{"m1", "m1a", "g4s", "m1", "m1a", models.FinishLineTarget}, data.Sequence)

	wantStart := [2]models.CoursePoint{
		{ID: "sp", Label: "Start Pin", Lat: 12.60, Lon: 100.86, Type: models.PointPin, Color: "orange"},
		{ID: "sb", Label: "Start Boat", Lat: 12.60, Lon: 100.87, Type: models.PointBoat, Color: "green"},
	}
	if diff := cmp.Diff(wantStart, data.StartLine); diff != "" {
		t.Errorf("linha de largada (-want +got):\n%s", diff)
	}
	assert.Equal(t, "blue", data.FinishLine[0].Color)
	assert.Equal(t, "blue", data.FinishLine[1].Color)

	labels := make([]string, 0, len(data.Marks))
	for _, m := range data.Marks {
		labels = append(labels, m.Label)
	}
	assert.Equal(t, []string{"1", "1A", "4S", "4P"}, labels)
	assert.Equal(t, models.PointGate, data.Marks[2].Type)
	assert.Equal(t, "orange", data.Marks[1].Color)
}

func TestBuildLapsLessThanOne(t *testing.T) {
	data := Build(markers(
		Marker{ID: "a", Role: "buoy_1"},
		Marker{ID: "b", Role: "buoy_1a"},
		Marker{ID: "c", Role: "gate_4p"},
	), 0)
	require.NotNil(t, data)
	assert.Equal(t, []string{"a", "b", models.FinishLineTarget}, data.Sequence)
}

func TestSequenceLength(t *testing.T) {
	for laps := 1; laps <= 5; laps++ {
		seq := Sequence("m1", "m1a", "g", laps)
		require.Len(t, seq, laps*3)
		assert.Equal(t, models.FinishLineTarget, seq[len(seq)-1])
		for i := 0; i < laps-1; i++ {
			assert.Equal(t, "g", seq[i*3+2])
		}
	}
}

func TestBuildClampsLaps(t *testing.T) {
	data := Build(markers(
		Marker{ID: "m1", Lat: 1, Lon: 1, Role: "buoy_1"},
		Marker{ID: "m1a", Lat: 1, Lon: 1, Role: "buoy_1a"},
		Marker{ID: "g", Lat: 1, Lon: 1, Role: "gate_4s"},
	), 1_000_000)
	require.NotNil(t, data)
	assert.Len(t, data.Sequence, MaxLaps*3)
}

func TestBuildGenericGateLabeledAlphabetically(t *testing.T) {
	data := Build(markers(
		Marker{ID: "z-buoy", Lat: 1, Lon: 1, Role: "buoy_3"},
		Marker{ID: "a-buoy", Lat: 2, Lon: 2, Role: "buoy_3"},
		Marker{ID: "solo", Lat: 3, Lon: 3, Role: "buoy_2"},
		Marker{ID: "m1", Role: "buoy_1"},
		Marker{ID: "m1a", Role: "buoy_1a"},
	), 1)
	require.NotNil(t, data)

	want := []models.CoursePoint{
		{ID: "m1", Label: "1", Type: models.PointMark, Color: "yellow"},
		{ID: "m1a", Label: "1A", Type: models.PointMark, Color: "orange"},
		{ID: "solo", Label: "2", Lat: 3, Lon: 3, Type: models.PointMark, Color: "yellow"},
		{ID: "a-buoy", Label: "3A", Lat: 2, Lon: 2, Type: models.PointGate, Color: "green"},
		{ID: "z-buoy", Label: "3B", Lat: 1, Lon: 1, Type: models.PointGate, Color: "green"},
	}
	if diff := cmp.Diff(want, data.Marks); diff != "" {
		t.Errorf("marcas (-want +got):\n%s", diff)
	}
	// sem gate_4s/4p, o portão genérico entra na sequência
	assert.Equal(t, []string{"m1", "m1a", models.FinishLineTarget}, data.Sequence)

	data = Build(markers(
		Marker{ID: "z-buoy", Role: "buoy_3"},
		Marker{ID: "a-buoy", Role: "buoy_3"},
		Marker{ID: "m1", Role: "buoy_1"},
		Marker{ID: "m1a", Role: "buoy_1a"},
	), 2)
	assert.Equal(t, []string{"m1", "m1a", "a-buoy", "m1", "m1a", models.FinishLineTarget}, data.Sequence)
}

func TestBuildSemiFinishRequiresBoth(t *testing.T) {
	data := Build(markers(Marker{ID: "sf1", Lat: 1, Lon: 2, Role: "semi_finish_pin"}), 2)
	require.NotNil(t, data)
	assert.Nil(t, data.SemiFinishLine)

	data = Build(markers(
		Marker{ID: "sf1", Lat: 1, Lon: 2, Role: "semi_finish_left"},
		Marker{ID: "sf2", Lat: 1, Lon: 3, Role: "semi_finish_boat"},
	), 2)
	require.NotNil(t, data.SemiFinishLine)
	assert.Equal(t, "sf1", data.SemiFinishLine[0].ID)
	assert.Equal(t, models.PointBoat, data.SemiFinishLine[1].Type)
}

func TestBuildDuplicateRoleLowestIDWins(t *testing.T) {
	data := Build(markers(
		Marker{ID: "pin-b", Lat: 2, Role: "start_pin"},
		Marker{ID: "pin-a", Lat: 1, Role: "start_pin"},
	), 2)
	require.NotNil(t, data)
	assert.Equal(t, "pin-a", data.StartLine[0].ID)
	assert.Equal(t, 1.0, data.StartLine[0].Lat)
}

func TestBuildIgnoresUnknownRoles(t *testing.T) {
	data := Build(markers(Marker{ID: "x", Role: "committee"}), 2)
	require.NotNil(t, data)
	assert.Empty(t, data.Marks)
}

func TestSideLabel(t *testing.T) {
	assert.Equal(t, "A", sideLabel(0))
	assert.Equal(t, "Z", sideLabel(25))
	assert.Equal(t, "AA", sideLabel(26))
}

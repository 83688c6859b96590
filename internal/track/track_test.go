package track

import (
	"math"
	"testing"

	"backend-routerace/internal/shared/geo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func straightTrack(t *testing.T) *Track {
	t.Helper()
	tr, err := New(
		[]geo.Point{{Lon: 0, Lat: 0}, {Lon: 0, Lat: 1}},
		geo.Point{Lon: 0, Lat: 1},
	)
	require.NoError(t, err)
	return tr
}

func TestNewRejectsShortPolyline(t *testing.T) {
	_, err := New([]geo.Point{{Lon: 0, Lat: 0}}, geo.Point{})
	assert.ErrorIs(t, err, ErrInvalidPolyline)

	_, err = New(nil, geo.Point{})
	assert.ErrorIs(t, err, ErrInvalidPolyline)
}

func TestNewRejectsNonFiniteCoordinates(t *testing.T) {
	_, err := New([]geo.Point{{Lon: math.NaN(), Lat: 0}, {Lon: 0, Lat: 1}}, geo.Point{})
	assert.ErrorIs(t, err, ErrInvalidPolyline)

	_, err = New([]geo.Point{{Lon: 0, Lat: 0}, {Lon: 0, Lat: math.Inf(1)}}, geo.Point{})
	assert.ErrorIs(t, err, ErrInvalidPolyline)

	_, err = New([]geo.Point{{Lon: 0, Lat: 0}, {Lon: 0, Lat: 1}}, geo.Point{Lat: math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidPolyline)
}

func TestNewCopiesPolyline(t *testing.T) {
	line := []geo.Point{{Lon: 0, Lat: 0}, {Lon: 0, Lat: 1}}
	tr, err := New(line, geo.Point{Lon: 0, Lat: 1})
	require.NoError(t, err)

	// mutating the caller's slice must not affect the track
	line[1] = geo.Point{Lon: 50, Lat: 50}
	assert.InDelta(t, 1, tr.CoordinateAt(1).Lat, 1e-9)
}

func TestProgressOfMidpoint(t *testing.T) {
	tr := straightTrack(t)

	pos := tr.ProgressOf(geo.Point{Lon: 0, Lat: 0.5})
	assert.InDelta(t, 0.5, pos.Progress, 1e-4)
	assert.InDelta(t, 0, pos.DistanceFromRouteM, 0.1)
}

func TestProgressOfClamps(t *testing.T) {
	tr := straightTrack(t)

	assert.Zero(t, tr.ProgressOf(geo.Point{Lon: 0, Lat: -1}).Progress)
	assert.InDelta(t, 1, tr.ProgressOf(geo.Point{Lon: 0, Lat: 2}).Progress, 1e-9)
}

func TestCoordinateAt(t *testing.T) {
	tr := straightTrack(t)

	assert.InDelta(t, 0.25, tr.CoordinateAt(0.25).Lat, 1e-4)
	assert.InDelta(t, 0, tr.CoordinateAt(0).Lat, 1e-9)
	assert.InDelta(t, 1, tr.CoordinateAt(1).Lat, 1e-9)
	// out-of-range progress clamps to the endpoints
	assert.InDelta(t, 1, tr.CoordinateAt(2).Lat, 1e-9)
}

func TestZeroLengthTrack(t *testing.T) {
	p := geo.Point{Lon: 126.97, Lat: 37.55}
	tr, err := New([]geo.Point{p, p}, p)
	require.NoError(t, err)

	assert.Zero(t, tr.TotalLengthM())
	assert.InDelta(t, 1, tr.ProgressOf(geo.Point{Lon: 126.98, Lat: 37.55}).Progress, 1e-9)
	assert.Equal(t, p, tr.CoordinateAt(0.5))
}

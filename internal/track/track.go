package track

import (
	"errors"
	"math"

	"backend-routerace/internal/shared/geo"
)

// ErrInvalidPolyline is returned when a route shape has fewer than two points
// or contains non-finite coordinates.
var ErrInvalidPolyline = errors.New("track: invalid polyline")

// Track wraps one participant's assigned route shape. The polyline and the
// total arc length are fixed at construction; assigning a different route
// means building a new Track.
type Track struct {
	line        []geo.Point
	destination geo.Point
	totalM      float64
}

// Position is a fix mapped onto a track.
type Position struct {
	Progress           float64
	DistanceFromRouteM float64
}

// New validates the polyline, copies it, and precomputes the total length.
// The destination is the declared race target, which may sit slightly off the
// polyline's last vertex.
func New(line []geo.Point, destination geo.Point) (*Track, error) {
	if len(line) < 2 {
		return nil, ErrInvalidPolyline
	}
	for _, p := range line {
		if !finite(p.Lon) || !finite(p.Lat) {
			return nil, ErrInvalidPolyline
		}
	}
	if !finite(destination.Lon) || !finite(destination.Lat) {
		return nil, ErrInvalidPolyline
	}

	owned := make([]geo.Point, len(line))
	copy(owned, line)

	return &Track{
		line:        owned,
		destination: destination,
		totalM:      geo.ArcLength(owned),
	}, nil
}

// TotalLengthM returns the cached arc length in meters.
func (t *Track) TotalLengthM() float64 {
	return t.totalM
}

// Destination returns the declared race target.
func (t *Track) Destination() geo.Point {
	return t.destination
}

// ProgressOf projects a fix onto the track and returns its progress fraction
// plus its perpendicular distance from the route. A zero-length track reports
// progress 1 for any input.
func (t *Track) ProgressOf(p geo.Point) Position {
	proj := geo.Project(t.line, p)
	if t.totalM == 0 {
		return Position{Progress: 1, DistanceFromRouteM: proj.DistanceFromLineM}
	}

	progress := proj.DistanceAlongM / t.totalM
	return Position{
		Progress:           math.Max(0, math.Min(1, progress)),
		DistanceFromRouteM: proj.DistanceFromLineM,
	}
}

// CoordinateAt returns the point at the given progress fraction of the track.
func (t *Track) CoordinateAt(progress float64) geo.Point {
	return geo.PointAtDistance(t.line, t.totalM*progress)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package geo

import "math"

const earthRadiusM = 6371000.0

// Point is a WGS84 coordinate, degrees.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Projection is the result of mapping a point onto a polyline.
type Projection struct {
	DistanceAlongM    float64
	DistanceFromLineM float64
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(a, b Point) float64 {
	return HaversineKm(a.Lat, a.Lon, b.Lat, b.Lon) * 1000
}

// HaversineKm returns the great-circle distance between two lat/lng pairs in kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLng := radians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM / 1000 * c
}

// ArcLength returns the cumulative great-circle length of a polyline in meters.
func ArcLength(line []Point) float64 {
	total := 0.0
	for i := 1; i < len(line); i++ {
		total += Haversine(line[i-1], line[i])
	}
	return total
}

// PointAtDistance returns the point reached by traveling the given distance
// along the polyline. Distances outside [0, ArcLength] clamp to the endpoints.
func PointAtDistance(line []Point, meters float64) Point {
	if len(line) == 0 {
		return Point{}
	}
	if meters <= 0 {
		return line[0]
	}

	remaining := meters
	for i := 1; i < len(line); i++ {
		segLen := Haversine(line[i-1], line[i])
		if remaining <= segLen && segLen > 0 {
			t := remaining / segLen
			return lerp(line[i-1], line[i], t)
		}
		remaining -= segLen
	}
	return line[len(line)-1]
}

// tieEpsilonM is the slack within which two segment distances count as equal.
const tieEpsilonM = 1e-6

// Project finds the nearest point on the polyline to p, treating each segment
// as a bounded line segment. When two segments are equidistant the one closer
// to the route's end wins, so progress never jumps backward at a
// self-intersection.
func Project(line []Point, p Point) Projection {
	if len(line) == 0 {
		return Projection{}
	}
	if len(line) == 1 {
		return Projection{DistanceFromLineM: Haversine(line[0], p)}
	}

	best := Projection{DistanceFromLineM: math.Inf(1)}
	cumulative := 0.0
	for i := 1; i < len(line); i++ {
		a, b := line[i-1], line[i]
		segLen := Haversine(a, b)

		t := segmentFraction(a, b, p)
		nearest := lerp(a, b, t)
		d := Haversine(nearest, p)
		along := cumulative + t*segLen

		if d+tieEpsilonM < best.DistanceFromLineM ||
			(math.Abs(d-best.DistanceFromLineM) <= tieEpsilonM && along > best.DistanceAlongM) {
			best = Projection{DistanceAlongM: along, DistanceFromLineM: d}
		}
		cumulative += segLen
	}
	return best
}

// segmentFraction returns the clamped fraction [0,1] along segment a->b of the
// perpendicular foot of p, computed on a local flat-earth plane centered at a.
// Good to well under a meter at the segment lengths transit shapes use.
func segmentFraction(a, b, p Point) float64 {
	cosLat := math.Cos(radians(a.Lat))
	bx := radians(b.Lon-a.Lon) * cosLat
	by := radians(b.Lat - a.Lat)
	px := radians(p.Lon-a.Lon) * cosLat
	py := radians(p.Lat - a.Lat)

	lenSq := bx*bx + by*by
	if lenSq == 0 {
		return 0
	}
	t := (px*bx + py*by) / lenSq
	return math.Max(0, math.Min(1, t))
}

func lerp(a, b Point, t float64) Point {
	return Point{
		Lon: a.Lon + (b.Lon-a.Lon)*t,
		Lat: a.Lat + (b.Lat-a.Lat)*t,
	}
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

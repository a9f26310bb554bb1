// Package earth holds the coordinate primitives shared by the population
// index and the graph.
package earth

import "math"

// EarthRadiusKm is the mean Earth radius used by the haversine distance.
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lng float64 `json:"lng" yaml:"lng"`
	Lat float64 `json:"lat" yaml:"lat"`
}

// DistanceKm returns the great-circle distance between a and b in kilometers.
func DistanceKm(a, b Point) float64 {
	if a == b {
		return 0
	}
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Rect is an axis-aligned lon/lat rectangle. Bounds are inclusive.
type Rect struct {
	Min, Max Point
}

// RectFrom returns the rectangle with corners a and b in any order.
func RectFrom(a, b Point) Rect {
	return Rect{
		Min: Point{Lng: math.Min(a.Lng, b.Lng), Lat: math.Min(a.Lat, b.Lat)},
		Max: Point{Lng: math.Max(a.Lng, b.Lng), Lat: math.Max(a.Lat, b.Lat)},
	}
}

// Contains reports whether p lies inside the closed rectangle.
func (r Rect) Contains(p Point) bool {
	return p.Lng >= r.Min.Lng && p.Lng <= r.Max.Lng &&
		p.Lat >= r.Min.Lat && p.Lat <= r.Max.Lat
}

// Expand grows the rectangle by km on every side.
func (r Rect) Expand(km float64) Rect {
	if km <= 0 {
		return r
	}
	dLat := km / (EarthRadiusKm * math.Pi / 180)
	midLat := (r.Min.Lat + r.Max.Lat) / 2
	cos := math.Cos(midLat * math.Pi / 180)
	dLng := dLat
	if cos > 1e-9 {
		dLng = dLat / cos
	}
	return Rect{
		Min: Point{Lng: r.Min.Lng - dLng, Lat: r.Min.Lat - dLat},
		Max: Point{Lng: r.Max.Lng + dLng, Lat: r.Max.Lat + dLat},
	}
}

// Polygon is a closed ring; the last point need not repeat the first.
// Holes are listed as additional rings and subtract from the outer ring.
type Polygon struct {
	Outer []Point
	Holes [][]Point
}

// Contains reports whether p is inside the polygon (even-odd rule).
func (pg Polygon) Contains(p Point) bool {
	if !ringContains(pg.Outer, p) {
		return false
	}
	for _, h := range pg.Holes {
		if ringContains(h, p) {
			return false
		}
	}
	return true
}

func ringContains(ring []Point, p Point) bool {
	in := false
	n := len(ring)
	if n < 3 {
		return false
	}
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := ring[i], ring[j]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) &&
			p.Lng < (b.Lng-a.Lng)*(p.Lat-a.Lat)/(b.Lat-a.Lat)+a.Lng {
			in = !in
		}
	}
	return in
}

// Union returns the smallest rectangle containing r and p.
func (r Rect) Union(p Point) Rect {
	return Rect{
		Min: Point{Lng: math.Min(r.Min.Lng, p.Lng), Lat: math.Min(r.Min.Lat, p.Lat)},
		Max: Point{Lng: math.Max(r.Max.Lng, p.Lng), Lat: math.Max(r.Max.Lat, p.Lat)},
	}
}

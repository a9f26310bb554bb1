package earth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceKm(t *testing.T) {
	p := Point{Lng: -73.98, Lat: 40.75}
	assert.Equal(t, 0.0, DistanceKm(p, p))

	// one degree of latitude is ~111.19 km
	q := Point{Lng: -73.98, Lat: 41.75}
	assert.InDelta(t, 111.19, DistanceKm(p, q), 0.05)
	assert.InDelta(t, DistanceKm(p, q), DistanceKm(q, p), 1e-12)
}

func TestRect(t *testing.T) {
	r := RectFrom(Point{Lng: 2, Lat: 1}, Point{Lng: 0, Lat: 3})
	assert.Equal(t, Point{Lng: 0, Lat: 1}, r.Min)
	assert.Equal(t, Point{Lng: 2, Lat: 3}, r.Max)
	assert.True(t, r.Contains(Point{Lng: 0, Lat: 1}))
	assert.True(t, r.Contains(Point{Lng: 1, Lat: 2}))
	assert.False(t, r.Contains(Point{Lng: 2.01, Lat: 2}))

	e := r.Expand(10)
	assert.Less(t, e.Min.Lat, r.Min.Lat)
	assert.Greater(t, e.Max.Lng, r.Max.Lng)
}

func TestPolygonContains(t *testing.T) {
	square := Polygon{
		Outer: []Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}},
		Holes: [][]Point{{{1, 1}, {2, 1}, {2, 2}, {1, 2}}},
	}
	assert.True(t, square.Contains(Point{Lng: 3, Lat: 3}))
	assert.False(t, square.Contains(Point{Lng: 1.5, Lat: 1.5}))
	assert.False(t, square.Contains(Point{Lng: 5, Lat: 1}))
	assert.False(t, Polygon{Outer: []Point{{0, 0}, {1, 1}}}.Contains(Point{}))
}

package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qroute/internal/earth"
	"qroute/internal/errs"
)

func TestBuildGridIncludesCorners(t *testing.T) {
	bounds := earth.Rect{
		Min: earth.Point{Lng: -74.02, Lat: 40.70},
		Max: earth.Point{Lng: -74.00, Lat: 40.72},
	}
	g, err := BuildGrid(GridSpec{Bounds: bounds, Precision: 3}, newTestPop(t), DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 9, g.Len())

	first, _ := g.Vertex(0)
	last, _ := g.Vertex(8)
	assert.Equal(t, bounds.Min, first.Point)
	assert.Equal(t, bounds.Max, last.Point)
	// every lattice point is within ~2.5 km of the others
	assert.Equal(t, 36, g.EdgeCount())
	require.NoError(t, g.Check())
}

func TestBuildGridRejectsLowPrecision(t *testing.T) {
	_, err := BuildGrid(GridSpec{Precision: 1}, nil, DefaultOptions())
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestBuildGridBoundary(t *testing.T) {
	pgs, err := ParseBoundary([]byte(`{
		"type": "FeatureCollection",
		"features": [{
			"type": "Feature",
			"geometry": {
				"type": "Polygon",
				"coordinates": [[[-74.03,40.69],[-74.005,40.69],[-74.005,40.73],[-74.03,40.73],[-74.03,40.69]]]
			}
		}]
	}`))
	require.NoError(t, err)
	require.Len(t, pgs, 1)

	bounds := earth.Rect{
		Min: earth.Point{Lng: -74.02, Lat: 40.70},
		Max: earth.Point{Lng: -74.00, Lat: 40.72},
	}
	g, err := BuildGrid(GridSpec{Bounds: bounds, Precision: 3, Boundary: pgs}, nil, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, 6, g.Len())
	for _, v := range g.Vertices() {
		assert.Less(t, v.Lng, -74.005)
	}
}

func TestParseBoundaryMultiPolygon(t *testing.T) {
	pgs, err := ParseBoundary([]byte(`{"type":"MultiPolygon","coordinates":[
		[[[0,0],[1,0],[1,1],[0,1]]],
		[[[2,2],[4,2],[4,4],[2,4]],[[2.5,2.5],[3.5,2.5],[3.5,3.5],[2.5,3.5]]]
	]}`))
	require.NoError(t, err)
	require.Len(t, pgs, 2)
	assert.Len(t, pgs[1].Holes, 1)
	assert.True(t, pgs[0].Contains(earth.Point{Lng: 0.5, Lat: 0.5}))
	assert.False(t, pgs[1].Contains(earth.Point{Lng: 3, Lat: 3}))

	_, err = ParseBoundary([]byte(`{"type":"Point","coordinates":[0,0]}`))
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = ParseBoundary([]byte(`not json`))
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

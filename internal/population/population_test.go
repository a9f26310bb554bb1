package population

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qroute/internal/earth"
	"qroute/internal/errs"
)

const sampleCSV = `GEOID,Longitude,Latitude,TotalPop
1,-73.99,40.75,3000
2,-73.98,40.75,1500
3,-73.90,40.60,
4,-74.20,40.50,800
`

func TestReadCSV(t *testing.T) {
	idx, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 3, idx.Len())
	s := idx.Samples()
	assert.Equal(t, earth.Point{Lng: -73.99, Lat: 40.75}, s[0].Point)
	assert.Equal(t, 3000.0, s[0].Population)
}

func TestReadCSVMissingColumn(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Longitude,Latitude\n1,2\n"))
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestReadCSVMalformed(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("Longitude,Latitude,TotalPop\nx,2,3\n"))
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestNegativePopulationRejected(t *testing.T) {
	_, err := NewIndex([]Sample{{Population: -1}})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestScore(t *testing.T) {
	p := earth.Point{Lng: -73.985, Lat: 40.75}
	a := Sample{Point: earth.Point{Lng: -73.99, Lat: 40.75}, Population: 3000}
	b := Sample{Point: earth.Point{Lng: -73.98, Lat: 40.75}, Population: 1500}
	far := Sample{Point: earth.Point{Lng: -74.20, Lat: 40.50}, Population: 800}
	same := Sample{Point: p, Population: 1e6}
	idx, err := NewIndex([]Sample{a, b, far, same})
	require.NoError(t, err)

	want := a.Population/earth.DistanceKm(p, a.Point) + b.Population/earth.DistanceKm(p, b.Point)
	assert.InDelta(t, want, idx.Score(p, 1.0), 1e-9)
	assert.Equal(t, 0.0, idx.Score(p, 0))

	var empty *Index
	assert.Equal(t, 0.0, empty.Score(p, 1))
}

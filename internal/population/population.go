// Package population holds the weighted population samples used to score
// candidate station sites.
package population

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"qroute/internal/earth"
	"qroute/internal/errs"
)

var log = logrus.WithField("module", "population")

// Column names of the tabular population dataset.
const (
	ColLongitude = "Longitude"
	ColLatitude  = "Latitude"
	ColTotalPop  = "TotalPop"
)

// Sample is one population count at a location. Immutable once loaded.
type Sample struct {
	earth.Point
	Population float64
}

// Index is a read-only set of samples. It is safe for concurrent readers.
type Index struct {
	samples []Sample
	bounds  earth.Rect
}

// NewIndex builds an index over samples. Negative counts are rejected.
func NewIndex(samples []Sample) (*Index, error) {
	idx := &Index{samples: make([]Sample, 0, len(samples))}
	for i, s := range samples {
		if s.Population < 0 {
			return nil, errs.InvalidInput("sample %d has negative population %v", i, s.Population)
		}
		if i == 0 {
			idx.bounds = earth.Rect{Min: s.Point, Max: s.Point}
		} else {
			idx.bounds = idx.bounds.Union(s.Point)
		}
		idx.samples = append(idx.samples, s)
	}
	return idx, nil
}

// Len returns the number of samples.
func (x *Index) Len() int { return len(x.samples) }

// Samples returns a copy of the samples.
func (x *Index) Samples() []Sample {
	return append([]Sample(nil), x.samples...)
}

// Score returns the proximity-weighted population around p: the sum of
// population/distance over samples within radiusKm. Samples at distance zero
// are skipped.
func (x *Index) Score(p earth.Point, radiusKm float64) float64 {
	if x == nil || len(x.samples) == 0 || radiusKm <= 0 {
		return 0
	}
	box := earth.Rect{Min: p, Max: p}.Expand(radiusKm)
	total := 0.0
	for _, s := range x.samples {
		if !box.Contains(s.Point) {
			continue
		}
		d := earth.DistanceKm(p, s.Point)
		if d == 0 || d > radiusKm {
			continue
		}
		total += s.Population / d
	}
	return total
}

// LoadCSV reads a population dataset with Longitude, Latitude and TotalPop columns.
func LoadCSV(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	idx, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Infof("loaded %d population samples from %s", idx.Len(), path)
	return idx, nil
}

// ReadCSV parses a population dataset. Column order is taken from the header;
// extra columns are ignored and rows with an empty count are skipped.
func ReadCSV(r io.Reader) (*Index, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, errs.InvalidInput("read header: %v", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, name := range []string{ColLongitude, ColLatitude, ColTotalPop} {
		if _, ok := col[name]; !ok {
			return nil, errs.InvalidInput("missing column %q", name)
		}
	}
	var samples []Sample
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errs.InvalidInput("line %d: %v", line, err)
		}
		field := func(name string) string {
			i := col[name]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if field(ColTotalPop) == "" {
			continue
		}
		lng, err1 := strconv.ParseFloat(field(ColLongitude), 64)
		lat, err2 := strconv.ParseFloat(field(ColLatitude), 64)
		pop, err3 := strconv.ParseFloat(field(ColTotalPop), 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, errs.InvalidInput("line %d: malformed number", line)
		}
		samples = append(samples, Sample{Point: earth.Point{Lng: lng, Lat: lat}, Population: pop})
	}
	return NewIndex(samples)
}

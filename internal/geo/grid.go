package geo

import (
	"encoding/json"
	"fmt"
	"os"

	"qroute/internal/earth"
	"qroute/internal/errs"
	"qroute/internal/population"
)

// GridSpec describes the base grid of candidate sites.
type GridSpec struct {
	Bounds    earth.Rect
	Precision int
	// Boundary restricts grid points to the service area. Empty keeps all.
	Boundary []earth.Polygon
}

// BuildGrid lays a Precision x Precision lattice over Bounds (corners
// included), keeps the points inside Boundary, scores them against pop and
// inserts them so neighbors within the connect radius are linked.
func BuildGrid(spec GridSpec, pop *population.Index, opts Options) (*Graph, error) {
	if spec.Precision < 2 {
		return nil, errs.InvalidInput("grid precision must be at least 2, got %d", spec.Precision)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	g := New(pop, opts)
	lngs := linspace(spec.Bounds.Min.Lng, spec.Bounds.Max.Lng, spec.Precision)
	lats := linspace(spec.Bounds.Min.Lat, spec.Bounds.Max.Lat, spec.Precision)
	for _, lng := range lngs {
		for _, lat := range lats {
			p := earth.Point{Lng: lng, Lat: lat}
			if !inside(spec.Boundary, p) {
				continue
			}
			if _, err := g.AddVertex(NewVertex(p)); err != nil {
				return nil, err
			}
		}
	}
	log.Infof("base grid: %d vertices, %d edges", g.Len(), g.EdgeCount())
	return g, nil
}

func inside(boundary []earth.Polygon, p earth.Point) bool {
	if len(boundary) == 0 {
		return true
	}
	for _, pg := range boundary {
		if pg.Contains(p) {
			return true
		}
	}
	return false
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + step*float64(i)
	}
	out[n-1] = hi
	return out
}

type geoJSON struct {
	Type     string           `json:"type"`
	Features []geoJSONFeature `json:"features"`
	Geometry *geoJSONGeometry `json:"geometry"`
	Coords   json.RawMessage  `json:"coordinates"`
}

type geoJSONFeature struct {
	Geometry *geoJSONGeometry `json:"geometry"`
}

type geoJSONGeometry struct {
	Type   string          `json:"type"`
	Coords json.RawMessage `json:"coordinates"`
}

// LoadBoundary reads service-area polygons from a GeoJSON file holding a
// FeatureCollection, Feature, Polygon or MultiPolygon.
func LoadBoundary(path string) ([]earth.Polygon, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pgs, err := ParseBoundary(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Infof("loaded %d boundary polygons from %s", len(pgs), path)
	return pgs, nil
}

// ParseBoundary decodes GeoJSON polygons. Non-polygon geometries are skipped.
func ParseBoundary(data []byte) ([]earth.Polygon, error) {
	var doc geoJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errs.InvalidInput("boundary: %v", err)
	}
	var geoms []geoJSONGeometry
	switch doc.Type {
	case "FeatureCollection":
		for _, f := range doc.Features {
			if f.Geometry != nil {
				geoms = append(geoms, *f.Geometry)
			}
		}
	case "Feature":
		if doc.Geometry != nil {
			geoms = append(geoms, *doc.Geometry)
		}
	case "Polygon", "MultiPolygon":
		geoms = append(geoms, geoJSONGeometry{Type: doc.Type, Coords: doc.Coords})
	default:
		return nil, errs.InvalidInput("boundary: unsupported GeoJSON type %q", doc.Type)
	}
	var out []earth.Polygon
	for _, gm := range geoms {
		switch gm.Type {
		case "Polygon":
			var rings [][][2]float64
			if err := json.Unmarshal(gm.Coords, &rings); err != nil {
				return nil, errs.InvalidInput("boundary polygon: %v", err)
			}
			out = append(out, polygonFromRings(rings))
		case "MultiPolygon":
			var polys [][][][2]float64
			if err := json.Unmarshal(gm.Coords, &polys); err != nil {
				return nil, errs.InvalidInput("boundary multipolygon: %v", err)
			}
			for _, rings := range polys {
				out = append(out, polygonFromRings(rings))
			}
		}
	}
	return out, nil
}

func polygonFromRings(rings [][][2]float64) earth.Polygon {
	var pg earth.Polygon
	for i, ring := range rings {
		pts := make([]earth.Point, len(ring))
		for j, c := range ring {
			pts[j] = earth.Point{Lng: c[0], Lat: c[1]}
		}
		if i == 0 {
			pg.Outer = pts
		} else {
			pg.Holes = append(pg.Holes, pts)
		}
	}
	return pg
}

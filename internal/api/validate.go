package api

import (
	"mime"
	"net/http"

	"qroute/internal/earth"
	"qroute/internal/errs"
	"qroute/internal/model"
	"qroute/internal/route"
)

// isJSON reports whether the request declares an application/json body.
// Parameters such as charset are accepted.
func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// routeRequest checks the wire request and converts it for the route
// service. Range checks on coordinates and hops are left to the service.
func routeRequest(req model.PathRequest) (route.Request, error) {
	if req.Hops < 0 {
		return route.Request{}, errs.InvalidInput("hops must be >= 0, got %d", req.Hops)
	}
	start, err := toPoint("start", req.StartPoint)
	if err != nil {
		return route.Request{}, err
	}
	end, err := toPoint("end", req.EndPoint)
	if err != nil {
		return route.Request{}, err
	}
	return route.Request{
		Start: start,
		End:   end,
		Hops:  req.Hops,
		Seed:  req.Seed,
	}, nil
}

// toPoint requires both coordinates to be present.
func toPoint(name string, p *model.PointInput) (*earth.Point, error) {
	if p == nil || p.Lat == nil || p.Lng == nil {
		return nil, errs.InvalidInput("%s coordinates are missing", name)
	}
	return &earth.Point{Lng: *p.Lng, Lat: *p.Lat}, nil
}

func toGeoPoint(p earth.Point) model.GeoPoint {
	return model.GeoPoint{Lat: p.Lat, Lng: p.Lng}
}

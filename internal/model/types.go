package model

import "time"

// Wire types for the path API.

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PointInput is a request coordinate. Nil fields were absent or null.
type PointInput struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// PathRequest is the body of POST /path/generate. Hops and Seed are optional.
type PathRequest struct {
	StartPoint *PointInput `json:"start_point"`
	EndPoint   *PointInput `json:"end_point"`
	Hops       int         `json:"hops,omitempty"`
	Seed       int64       `json:"seed,omitempty"`
}

type PathResponse struct {
	Path     []GeoPoint `json:"path"`
	ID       string     `json:"id,omitempty"`
	Degraded bool       `json:"degraded"`
}

// PathRecord is a stored path generation.
type PathRecord struct {
	ID        string     `json:"id" bson:"_id"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	Start     GeoPoint   `json:"start" bson:"start"`
	End       GeoPoint   `json:"end" bson:"end"`
	Hops      int        `json:"hops" bson:"hops"`
	Path      []GeoPoint `json:"path" bson:"path"`
	Vertices  int        `json:"vertices" bson:"vertices"`
	Variables int        `json:"variables" bson:"variables"`
	Objective float64    `json:"objective" bson:"objective"`
	Status    string     `json:"status" bson:"status"`
	Degraded  bool       `json:"degraded" bson:"degraded"`
	Oracle    string     `json:"oracle" bson:"oracle"`
	Seed      int64      `json:"seed,omitempty" bson:"seed,omitempty"`
	SolveID   string     `json:"solveId,omitempty" bson:"solveId,omitempty"`
	ElapsedMs int64      `json:"elapsedMs" bson:"elapsedMs"`
}

// Path event types.
const (
	EventPathGenerated = "path.generated"
	EventPathFailed    = "path.failed"
)

// PathEvent is published for every generation attempt.
type PathEvent struct {
	Type   string      `json:"type"`
	At     time.Time   `json:"at"`
	Record *PathRecord `json:"record,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// OptimizerConfig reports the effective solver defaults.
type OptimizerConfig struct {
	Algorithm        string  `json:"algorithm"`
	MaxExactVars     int     `json:"maxExactVars"`
	TimeBudgetMs     int64   `json:"timeBudgetMs"`
	MaxIterations    int     `json:"maxIterations"`
	InitialTemp      float64 `json:"initialTemp,omitempty"`
	Cooling          float64 `json:"cooling"`
	DefaultHops      int     `json:"defaultHops"`
	MaxHops          int     `json:"maxHops"`
	PenaltyFloor     float64 `json:"penaltyFloor"`
	ExclusiveVisits  bool    `json:"exclusiveVisits"`
	ConnectEndpoints bool    `json:"connectEndpoints"`
	Cull             bool    `json:"cull"`
	SolveTimeoutMs   int64   `json:"solveTimeoutMs"`
}

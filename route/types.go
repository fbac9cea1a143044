package route

import (
	"math"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/spatial/r3"
)

// Point3 is a continuous habitat coordinate in meters.
// X and Z span the floor plane; Y is elevation.
type Point3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec converts the point to a gonum vector
func (p Point3) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// Planar projects the point onto the floor plane
func (p Point3) Planar() orb.Point {
	return orb.Point{p.X, p.Z}
}

// IsFinite reports whether all coordinates are finite
func (p Point3) IsFinite() bool {
	return isFinite(p.X) && isFinite(p.Y) && isFinite(p.Z)
}

func pointFromVec(v r3.Vec) Point3 {
	return Point3{X: v.X, Y: v.Y, Z: v.Z}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Obstacle is the footprint of a placed module
type Obstacle struct {
	ID       string `json:"id,omitempty"`
	Position Point3 `json:"position"`
	Floor    int    `json:"floor"`
}

// Endpoint is one end of a path query, picked on a given floor.
// ModuleID names the module the point belongs to, if any; that module is
// not treated as an obstacle while searching.
type Endpoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Floor    int     `json:"floor"`
	ModuleID string  `json:"moduleId,omitempty"`
}

// Point returns the endpoint coordinates
func (e Endpoint) Point() Point3 {
	return Point3{X: e.X, Y: e.Y, Z: e.Z}
}

// Layout is an immutable snapshot of the habitat geometry and placed modules
type Layout struct {
	Envelope  Envelope   `json:"envelope"`
	Obstacles []Obstacle `json:"obstacles"`
}

// Clone returns a deep copy of the layout
func (l Layout) Clone() Layout {
	out := Layout{Envelope: l.Envelope}
	if l.Obstacles != nil {
		out.Obstacles = make([]Obstacle, len(l.Obstacles))
		copy(out.Obstacles, l.Obstacles)
	}
	return out
}

// Query is a single path request. Envelope and Obstacles travel with the
// query so every call is self-contained.
type Query struct {
	ID        string     `json:"id,omitempty"`
	Start     Endpoint   `json:"start"`
	End       Endpoint   `json:"end"`
	Envelope  *Envelope  `json:"envelope,omitempty"`
	Obstacles []Obstacle `json:"obstacles,omitempty"`
}

// Layout returns the query's geometry as a layout snapshot.
// The envelope is the zero value when the query carries none.
func (q Query) Layout() Layout {
	l := Layout{Obstacles: q.Obstacles}
	if q.Envelope != nil {
		l.Envelope = *q.Envelope
	}
	return l.Clone()
}

// PathSegment is the clearance verdict for one leg of a path
type PathSegment struct {
	Start          Point3  `json:"start"`
	End            Point3  `json:"end"`
	Length         float64 `json:"length"`
	Passed         bool    `json:"passed"`
	ClearanceWidth float64 `json:"clearanceWidth"`
}

// PathAnalysisResult aggregates per-segment verdicts into a compliance report
type PathAnalysisResult struct {
	Segments         []PathSegment `json:"segments"`
	TotalDistance    float64       `json:"totalDistance"`
	SegmentCount     int           `json:"segmentCount"`
	ClearCount       int           `json:"clearCount"`
	NarrowCount      int           `json:"narrowCount"`
	MinWidthObserved float64       `json:"minWidthObserved"`
	MinWidthRequired float64       `json:"minWidthRequired"`
	OverallPass      bool          `json:"overallPass"`
	Recommendation   string        `json:"recommendation"`
}

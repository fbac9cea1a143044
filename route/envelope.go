package route

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Shape is the habitat hull type
type Shape string

const (
	ShapeCylinder Shape = "cylinder"
	ShapeDome     Shape = "dome"
)

// Envelope is the habitat's geometric boundary
type Envelope struct {
	Shape       Shape   `json:"shape" yaml:"shape"`
	Radius      float64 `json:"radius" yaml:"radius"`
	FloorHeight float64 `json:"floorHeight" yaml:"floorHeight"`
}

// Validate rejects envelopes the engine cannot reason about
func (e Envelope) Validate() error {
	switch e.Shape {
	case ShapeCylinder, ShapeDome:
	case "":
		return fmt.Errorf("%w: envelope shape is required", ErrInvalidQuery)
	default:
		return fmt.Errorf("%w: unknown envelope shape %q", ErrInvalidQuery, e.Shape)
	}
	if !isFinite(e.Radius) || e.Radius <= 0 {
		return fmt.Errorf("%w: envelope radius must be positive, got %v", ErrInvalidQuery, e.Radius)
	}
	if !isFinite(e.FloorHeight) || e.FloorHeight <= 0 {
		return fmt.Errorf("%w: envelope floorHeight must be positive, got %v", ErrInvalidQuery, e.FloorHeight)
	}
	return nil
}

// FloorElevation returns the elevation of a floor's deck
func (e Envelope) FloorElevation(floor int) float64 {
	return float64(floor) * e.FloorHeight
}

// onFloor reports whether elevation y belongs to floor: from slack below its
// deck up to, but not including, the next deck
func (e Envelope) onFloor(y float64, floor int, slack float64) bool {
	deck := e.FloorElevation(floor)
	return y >= deck-slack && y < deck+e.FloorHeight
}

// floorAxis is the planar position of every floor's vertical axis
var floorAxis = orb.Point{0, 0}

// WithinEnvelope reports whether p lies within radius-margin of the floor's
// vertical axis. Cylinders and domes share the same footprint test; vertical
// bounds come from floor selection.
func WithinEnvelope(p Point3, e Envelope, margin float64) bool {
	return planar.Distance(p.Planar(), floorAxis) <= e.Radius-margin
}

// latticeCells estimates how many lattice points fit in the walkable disc
func latticeCells(e Envelope, margin, resolution float64) int {
	r := e.Radius - margin
	if r <= 0 || resolution <= 0 {
		return 0
	}
	return int(math.Ceil(math.Pi * r * r / (resolution * resolution)))
}

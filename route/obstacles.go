package route

import (
	"math"

	"github.com/paulmach/orb"
)

// Footprint returns the planar box an obstacle occupies at the given tolerance
func (o Obstacle) Footprint(tolerance float64) orb.Bound {
	return o.Position.Planar().Bound().Pad(tolerance)
}

// contains tests axis-aligned box containment on all three axes
func (o Obstacle) contains(p Point3, tolerance float64) bool {
	if math.Abs(p.Y-o.Position.Y) > tolerance {
		return false
	}
	return o.Footprint(tolerance).Contains(p.Planar())
}

// IsOccupied reports whether p lies within tolerance of any obstacle on all
// three axes. Obstacles must already be filtered to the query floor.
func IsOccupied(p Point3, obstacles []Obstacle, tolerance float64) bool {
	for i := range obstacles {
		if obstacles[i].contains(p, tolerance) {
			return true
		}
	}
	return false
}

// ObstaclesOnFloor returns the obstacles placed on floor
func ObstaclesOnFloor(obstacles []Obstacle, floor int) []Obstacle {
	out := make([]Obstacle, 0, len(obstacles))
	for _, o := range obstacles {
		if o.Floor == floor {
			out = append(out, o)
		}
	}
	return out
}

// excludeEndpoints drops the modules the query starts or ends in.
// Modules are matched by ID; an endpoint without a module ID falls back to
// exact position equality.
func excludeEndpoints(obstacles []Obstacle, endpoints ...Endpoint) []Obstacle {
	out := make([]Obstacle, 0, len(obstacles))
	for _, o := range obstacles {
		if !ownedByEndpoint(o, endpoints) {
			out = append(out, o)
		}
	}
	return out
}

func ownedByEndpoint(o Obstacle, endpoints []Endpoint) bool {
	for _, e := range endpoints {
		if e.ModuleID != "" {
			if o.ID == e.ModuleID {
				return true
			}
			continue
		}
		if o.Position == e.Point() {
			return true
		}
	}
	return false
}

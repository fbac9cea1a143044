package route

import "math"

// GridNode is a lattice state owned by a search arena
type GridNode struct {
	X, Y, Z float64
	G       float64 // path cost so far
	H       float64 // heuristic estimate to goal
	F       float64 // G + H
	Parent  int     // arena index of the predecessor, -1 for the root
}

// Point returns the node position
func (n GridNode) Point() Point3 {
	return Point3{X: n.X, Y: n.Y, Z: n.Z}
}

// Snap rounds each coordinate to the nearest multiple of resolution
func Snap(p Point3, resolution float64) GridNode {
	return GridNode{
		X:      snapCoord(p.X, resolution),
		Y:      snapCoord(p.Y, resolution),
		Z:      snapCoord(p.Z, resolution),
		Parent: -1,
	}
}

// snapCoord rounds a coordinate to the nearest multiple of the given increment.
// An increment of 0 disables snapping and returns the coordinate unchanged.
func snapCoord(coord, increment float64) float64 {
	if increment <= 0 {
		return coord
	}
	return math.Round(coord/increment) * increment
}

// cell is an integer lattice index on the floor plane
type cell struct {
	ix, iz int
}

func cellOf(p Point3, resolution float64) cell {
	return cell{
		ix: int(math.Round(p.X / resolution)),
		iz: int(math.Round(p.Z / resolution)),
	}
}

func (c cell) point(y, resolution float64) Point3 {
	return Point3{X: float64(c.ix) * resolution, Y: y, Z: float64(c.iz) * resolution}
}

type neighbor struct {
	dx, dz int
	cost   float64 // in lattice steps
}

// neighborOffsets lists the eight planar moves, straight moves first
var neighborOffsets = [...]neighbor{
	{dx: 0, dz: -1, cost: 1},
	{dx: 1, dz: 0, cost: 1},
	{dx: 0, dz: 1, cost: 1},
	{dx: -1, dz: 0, cost: 1},
	{dx: 1, dz: -1, cost: math.Sqrt2},
	{dx: 1, dz: 1, cost: math.Sqrt2},
	{dx: -1, dz: 1, cost: math.Sqrt2},
	{dx: -1, dz: -1, cost: math.Sqrt2},
}

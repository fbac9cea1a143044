package route

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// zeroLength is the segment length below which no perpendicular exists
const zeroLength = 1e-9

// Validator certifies corridor width along a path by sampling offset points
// on both sides of every segment. It is a discrete approximation; there is
// no continuous sweep.
type Validator struct {
	params Params
}

// NewValidator creates a validator. See Params.WithDefaults for which zero
// values are replaced.
func NewValidator(params Params) *Validator {
	return &Validator{params: params.WithDefaults()}
}

// ValidatePath returns one verdict per non-degenerate segment of path.
// Only obstacles on floor are consulted.
func (v *Validator) ValidatePath(path []Point3, floor int, layout Layout) []PathSegment {
	obstacles := ObstaclesOnFloor(layout.Obstacles, floor)
	segments := make([]PathSegment, 0, max(len(path)-1, 0))

	for i := 1; i < len(path); i++ {
		a, b := path[i-1], path[i]
		length := r3.Norm(r3.Sub(b.Vec(), a.Vec()))
		if length < zeroLength {
			continue
		}

		seg := PathSegment{Start: a, End: b, Length: length}
		if v.segmentClear(a, b, v.params.MinPathWidth, layout.Envelope, obstacles) {
			seg.Passed = true
			seg.ClearanceWidth = v.params.MinPathWidth
		} else {
			seg.ClearanceWidth = v.widestClearWidth(a, b, layout.Envelope, obstacles)
		}
		segments = append(segments, seg)
	}
	return segments
}

// segmentClear tests width/2 offsets on both sides at every sample
func (v *Validator) segmentClear(a, b Point3, width float64, env Envelope, obstacles []Obstacle) bool {
	perp, ok := planarPerpendicular(a, b)
	if !ok {
		return true
	}
	offset := r3.Scale(width/2, perp)

	n := v.params.SampleCount
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		sample := r3.Add(a.Vec(), r3.Scale(t, r3.Sub(b.Vec(), a.Vec())))
		for _, side := range [2]r3.Vec{r3.Add(sample, offset), r3.Sub(sample, offset)} {
			p := pointFromVec(side)
			if !WithinEnvelope(p, env, v.params.WallMargin) {
				return false
			}
			if IsOccupied(p, obstacles, v.params.ValidationOccupancyTolerance) {
				return false
			}
		}
	}
	return true
}

// widestClearWidth finds the widest corridor below MinPathWidth, stepping down by
// WidthStep, that the segment still clears. Zero when none does.
func (v *Validator) widestClearWidth(a, b Point3, env Envelope, obstacles []Obstacle) float64 {
	step := v.params.WidthStep
	steps := int(math.Floor(v.params.MinPathWidth/step + 1e-9))
	for k := 1; k < steps; k++ {
		w := v.params.MinPathWidth - float64(k)*step
		if w <= 0 {
			break
		}
		if v.segmentClear(a, b, w, env, obstacles) {
			return w
		}
	}
	return 0
}

// planarPerpendicular returns the unit horizontal normal of segment a→b
func planarPerpendicular(a, b Point3) (r3.Vec, bool) {
	d := r3.Vec{X: b.X - a.X, Z: b.Z - a.Z}
	if r3.Norm(d) < zeroLength {
		return r3.Vec{}, false
	}
	d = r3.Unit(d)
	return r3.Vec{X: -d.Z, Z: d.X}, true
}

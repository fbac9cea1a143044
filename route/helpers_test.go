package route

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func testEnvelope() Envelope {
	return Envelope{Shape: ShapeCylinder, Radius: 5, FloorHeight: 3}
}

func testLayout(obstacles ...Obstacle) Layout {
	return Layout{Envelope: testEnvelope(), Obstacles: obstacles}
}

func testQuery(start, end Endpoint, obstacles ...Obstacle) Query {
	env := testEnvelope()
	return Query{ID: "test-query", Start: start, End: end, Envelope: &env, Obstacles: obstacles}
}

func at(x, z float64) Endpoint {
	return Endpoint{X: x, Z: z}
}

// ringAround returns eight modules boxing in (x, z) at the given spacing
func ringAround(x, z, spacing float64) []Obstacle {
	var out []Obstacle
	for dx := -1; dx <= 1; dx++ {
		for dz := -1; dz <= 1; dz++ {
			if dx == 0 && dz == 0 {
				continue
			}
			out = append(out, Obstacle{
				Position: Point3{X: x + float64(dx)*spacing, Z: z + float64(dz)*spacing},
			})
		}
	}
	return out
}

func straightPath(from, to Point3, step float64) []Point3 {
	var path []Point3
	n := int((to.X-from.X)/step + 0.5)
	for i := 0; i <= n; i++ {
		path = append(path, Point3{X: from.X + float64(i)*step, Y: from.Y, Z: from.Z})
	}
	return path
}

// isLatticeStep reports whether b is one of a's eight planar neighbors
func isLatticeStep(a, b Point3, resolution float64) bool {
	ca, cb := cellOf(a, resolution), cellOf(b, resolution)
	dx, dz := cb.ix-ca.ix, cb.iz-ca.iz
	if dx == 0 && dz == 0 {
		return false
	}
	return dx >= -1 && dx <= 1 && dz >= -1 && dz <= 1 && a.Y == b.Y
}

package route

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/simplify"
)

// Feature kinds written to the "kind" property
const (
	KindPath     = "path"
	KindSegment  = "segment"
	KindObstacle = "obstacle"
	KindStart    = "start"
	KindEnd      = "end"
)

// planarLine projects a path onto the floor plane
func planarLine(path []Point3) orb.LineString {
	ls := make(orb.LineString, len(path))
	for i, p := range path {
		ls[i] = p.Planar()
	}
	return ls
}

// PathLength returns the planar length of a path in meters
func PathLength(path []Point3) float64 {
	if len(path) < 2 {
		return 0
	}
	return planar.Length(planarLine(path))
}

// CompactPath drops collinear lattice waypoints, keeping only the corners.
// The result is meant for drawing; it no longer holds single lattice steps.
func CompactPath(path []Point3) []Point3 {
	if len(path) < 3 {
		return append([]Point3(nil), path...)
	}
	simplified, ok := simplify.DouglasPeucker(0).Simplify(planarLine(path).Clone()).(orb.LineString)
	if !ok {
		return append([]Point3(nil), path...)
	}

	y := path[0].Y
	out := make([]Point3, len(simplified))
	for i, p := range simplified {
		out[i] = Point3{X: p[0], Y: y, Z: p[1]}
	}
	return out
}

// AnalysisToGeoJSON exports an analysis in floor-plane coordinates (x, z):
// the route, each segment with its verdict, the end points, and the
// footprints of the obstacles on the analysis floor at the given tolerance.
func AnalysisToGeoJSON(a *Analysis, layout Layout, tolerance float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if a == nil {
		return fc
	}

	for _, o := range ObstaclesOnFloor(layout.Obstacles, a.Floor) {
		f := geojson.NewFeature(o.Footprint(tolerance).ToPolygon())
		f.Properties["kind"] = KindObstacle
		f.Properties["id"] = o.ID
		f.Properties["floor"] = o.Floor
		fc.Append(f)
	}

	start := geojson.NewFeature(a.Start.Planar())
	start.Properties["kind"] = KindStart
	fc.Append(start)

	end := geojson.NewFeature(a.End.Planar())
	end.Properties["kind"] = KindEnd
	fc.Append(end)

	if !a.HasPath() {
		return fc
	}

	route := geojson.NewFeature(planarLine(a.Path))
	route.Properties["kind"] = KindPath
	route.Properties["queryId"] = a.QueryID
	route.Properties["outcome"] = string(a.Outcome)
	route.Properties["waypoints"] = len(a.Path)
	route.Properties["corners"] = len(CompactPath(a.Path))
	route.Properties["length"] = PathLength(a.Path)
	if a.Report != nil {
		route.Properties["totalDistance"] = a.Report.TotalDistance
		route.Properties["overallPass"] = a.Report.OverallPass
		route.Properties["minWidthRequired"] = a.Report.MinWidthRequired
	}
	fc.Append(route)

	if a.Report == nil {
		return fc
	}
	for i, s := range a.Report.Segments {
		f := geojson.NewFeature(orb.LineString{s.Start.Planar(), s.End.Planar()})
		f.Properties["kind"] = KindSegment
		f.Properties["index"] = i
		f.Properties["passed"] = s.Passed
		f.Properties["length"] = s.Length
		f.Properties["clearanceWidth"] = s.ClearanceWidth
		fc.Append(f)
	}

	return fc
}

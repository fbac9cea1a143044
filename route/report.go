package route

import (
	"fmt"
	"math"
)

// BuildReport aggregates segment verdicts into a compliance report
func BuildReport(segments []PathSegment, minWidthRequired float64) *PathAnalysisResult {
	r := &PathAnalysisResult{
		Segments:         segments,
		SegmentCount:     len(segments),
		MinWidthRequired: minWidthRequired,
	}
	if r.Segments == nil {
		r.Segments = []PathSegment{}
	}

	minWidth := math.Inf(1)
	for _, s := range segments {
		r.TotalDistance += s.Length
		if s.Passed {
			r.ClearCount++
		} else {
			r.NarrowCount++
		}
		minWidth = math.Min(minWidth, s.ClearanceWidth)
	}
	if len(segments) > 0 {
		r.MinWidthObserved = minWidth
	}

	r.OverallPass = r.NarrowCount == 0
	r.Recommendation = recommendation(r)
	return r
}

func recommendation(r *PathAnalysisResult) string {
	if r.OverallPass {
		return fmt.Sprintf("Translation path meets the %.2f m minimum corridor width across all %d segments (%.2f m total).",
			r.MinWidthRequired, r.SegmentCount, r.TotalDistance)
	}
	return fmt.Sprintf("%d of %d segments are narrower than the %.2f m minimum (narrowest %.2f m). Relocate adjacent modules to widen the corridor.",
		r.NarrowCount, r.SegmentCount, r.MinWidthRequired, r.MinWidthObserved)
}

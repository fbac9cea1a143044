package route

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// QueryState is a step of the per-query lifecycle
type QueryState string

const (
	StateRequested     QueryState = "requested"
	StateMapped        QueryState = "mapped"
	StateSearching     QueryState = "searching"
	StateFound         QueryState = "found"
	StateNotFound      QueryState = "not_found"
	StateValidating    QueryState = "validating"
	StateReported      QueryState = "reported"
	StateReportedEmpty QueryState = "reported_empty"
)

// Analysis is the full answer to one query. Path and Report are nil when no
// path was found; Outcome says why.
type Analysis struct {
	QueryID    string              `json:"queryId"`
	State      QueryState          `json:"state"`
	Trace      []QueryState        `json:"trace"`
	Outcome    Outcome             `json:"outcome"`
	Floor      int                 `json:"floor"`
	Start      Point3              `json:"start"`
	End        Point3              `json:"end"`
	Expansions int                 `json:"expansions"`
	Budget     int                 `json:"budget"`
	Path       []Point3            `json:"path"`
	Report     *PathAnalysisResult `json:"report"`
}

// HasPath reports whether the analysis carries a route
func (a *Analysis) HasPath() bool {
	return a != nil && a.Path != nil
}

func (a *Analysis) enter(s QueryState) {
	a.State = s
	a.Trace = append(a.Trace, s)
}

// Analyzer runs the search → validate → report pipeline
type Analyzer struct {
	params    Params
	searcher  *Searcher
	validator *Validator
	metrics   *Metrics
}

// AnalyzerOption configures an Analyzer
type AnalyzerOption func(*Analyzer)

// WithMetrics records every query on m
func WithMetrics(m *Metrics) AnalyzerOption {
	return func(a *Analyzer) {
		a.metrics = m
	}
}

// NewAnalyzer validates params and builds the pipeline
func NewAnalyzer(params Params, opts ...AnalyzerOption) (*Analyzer, error) {
	params = params.WithDefaults()
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("engine params: %w", err)
	}
	a := &Analyzer{
		params:    params,
		searcher:  NewSearcher(params),
		validator: NewValidator(params),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Params returns the effective engine constants
func (a *Analyzer) Params() Params {
	return a.params
}

// Analyze answers q. Malformed input fails with an error wrapping
// ErrInvalidQuery; an unanswerable query returns an Analysis without a path.
func (a *Analyzer) Analyze(ctx context.Context, q Query) (*Analysis, error) {
	began := time.Now()
	layout := q.Layout()

	if err := validateInputs(q.Start, q.End, layout); err != nil {
		a.metrics.observeInvalid()
		return nil, err
	}

	res := &Analysis{QueryID: q.ID, Floor: q.Start.Floor}
	if res.QueryID == "" {
		res.QueryID = uuid.NewString()
	}
	res.enter(StateRequested)

	res.Start = Snap(q.Start.Point(), a.params.GridSize).Point()
	res.End = Snap(q.End.Point(), a.params.GridSize).Point()
	res.enter(StateMapped)

	res.enter(StateSearching)
	sr, err := a.searcher.Search(ctx, q.Start, q.End, layout)
	if err != nil {
		a.metrics.observeInvalid()
		return nil, err
	}
	res.Outcome = sr.Outcome
	res.Expansions = sr.Expansions
	res.Budget = sr.Budget

	if !sr.Found() {
		res.enter(StateNotFound)
		res.enter(StateReportedEmpty)
		log.Printf("[ROUTE] query %s: no path (%s) after %d expansions", res.QueryID, sr.Outcome, sr.Expansions)
		a.metrics.observe(res, time.Since(began))
		return res, nil
	}

	res.enter(StateFound)
	res.Path = sr.Path

	res.enter(StateValidating)
	// the modules the route starts and ends in are not in its way
	checked := layout
	checked.Obstacles = excludeEndpoints(layout.Obstacles, q.Start, q.End)
	segments := a.validator.ValidatePath(sr.Path, q.Start.Floor, checked)
	res.Report = BuildReport(segments, a.params.MinPathWidth)
	res.enter(StateReported)

	log.Printf("[ROUTE] query %s: %d waypoints, %.2f m, %d/%d segments clear, pass=%v",
		res.QueryID, len(res.Path), res.Report.TotalDistance,
		res.Report.ClearCount, res.Report.SegmentCount, res.Report.OverallPass)
	a.metrics.observe(res, time.Since(began))
	return res, nil
}

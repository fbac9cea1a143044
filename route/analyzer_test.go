package route

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer(t *testing.T, opts ...AnalyzerOption) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(DefaultParams(), opts...)
	require.NoError(t, err)
	return a
}

func TestNewAnalyzer_RejectsBadParams(t *testing.T) {
	_, err := NewAnalyzer(Params{GridSize: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine params")
	assert.Contains(t, err.Error(), "gridSize")
}

func TestNewAnalyzer_FillsDefaults(t *testing.T) {
	a := newTestAnalyzer(t)
	assert.Equal(t, DefaultParams(), a.Params())

	zero, err := NewAnalyzer(Params{})
	require.NoError(t, err)
	got := zero.Params()
	assert.Equal(t, DefaultGridSize, got.GridSize)
	assert.Equal(t, DefaultSampleCount, got.SampleCount)
	assert.Zero(t, got.WallMargin)
	assert.Zero(t, got.SearchOccupancyTolerance)
	assert.Zero(t, got.ValidationOccupancyTolerance)
}

func TestAnalyze_OpenFloor(t *testing.T) {
	a := newTestAnalyzer(t)
	q := testQuery(at(0, 0), at(3, 0))

	res, err := a.Analyze(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, "test-query", res.QueryID)
	assert.Equal(t, OutcomeFound, res.Outcome)
	assert.Equal(t, StateReported, res.State)
	assert.Equal(t, []QueryState{StateRequested, StateMapped, StateSearching, StateFound, StateValidating, StateReported}, res.Trace)
	require.True(t, res.HasPath())
	require.NotNil(t, res.Report)
	assert.True(t, res.Report.OverallPass)
	assert.Equal(t, 6, res.Report.SegmentCount)
	assert.InDelta(t, 3.0, res.Report.TotalDistance, 1e-9)
	assert.Equal(t, Point3{X: 3}, res.End)
}

func TestAnalyze_DetourIsValidated(t *testing.T) {
	a := newTestAnalyzer(t)
	q := testQuery(at(0, 0), at(3, 0), Obstacle{ID: "rack", Position: Point3{X: 1.5}})

	res, err := a.Analyze(context.Background(), q)
	require.NoError(t, err)
	require.True(t, res.HasPath())
	assert.Equal(t, len(res.Path)-1, res.Report.SegmentCount)
	assert.InDelta(t, PathLength(res.Path), res.Report.TotalDistance, 1e-9)
}

func TestAnalyze_EndpointModulesPassValidation(t *testing.T) {
	a := newTestAnalyzer(t)
	start := Endpoint{ModuleID: "galley"}
	end := Endpoint{X: 3, ModuleID: "airlock"}
	q := testQuery(start, end,
		Obstacle{ID: "galley", Position: Point3{}},
		Obstacle{ID: "airlock", Position: Point3{X: 3}},
	)

	res, err := a.Analyze(context.Background(), q)
	require.NoError(t, err)
	require.True(t, res.HasPath())
	assert.True(t, res.Report.OverallPass)
	assert.Equal(t, res.Report.SegmentCount, res.Report.ClearCount)

	// the raw layout still blocks the first and last segments
	raw := NewValidator(DefaultParams()).ValidatePath(res.Path, 0, q.Layout())
	require.NotEmpty(t, raw)
	assert.False(t, raw[0].Passed)
	assert.False(t, raw[len(raw)-1].Passed)
}

func TestAnalyze_NoPath(t *testing.T) {
	a := newTestAnalyzer(t)
	q := testQuery(at(0, 0), at(3, 3), ringAround(0, 0, 1)...)

	res, err := a.Analyze(context.Background(), q)
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnreachable, res.Outcome)
	assert.Equal(t, StateReportedEmpty, res.State)
	assert.Equal(t, []QueryState{StateRequested, StateMapped, StateSearching, StateNotFound, StateReportedEmpty}, res.Trace)
	assert.False(t, res.HasPath())
	assert.Nil(t, res.Path)
	assert.Nil(t, res.Report)
}

func TestAnalyze_CrossFloor(t *testing.T) {
	a := newTestAnalyzer(t)
	end := at(1, 0)
	end.Floor, end.Y = 1, 3

	res, err := a.Analyze(context.Background(), testQuery(at(0, 0), end))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCrossFloor, res.Outcome)
	assert.Zero(t, res.Expansions)
	assert.Nil(t, res.Report)
}

func TestAnalyze_AssignsQueryID(t *testing.T) {
	a := newTestAnalyzer(t)
	q := testQuery(at(0, 0), at(1, 0))
	q.ID = ""

	res, err := a.Analyze(context.Background(), q)
	require.NoError(t, err)
	_, err = uuid.Parse(res.QueryID)
	assert.NoError(t, err)
}

func TestAnalyze_InvalidQuery(t *testing.T) {
	a := newTestAnalyzer(t)
	q := Query{ID: "bare", Start: at(0, 0), End: at(1, 0)}

	res, err := a.Analyze(context.Background(), q)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidQuery))
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := newTestAnalyzer(t)
	q := testQuery(at(-3, -1), at(3, 1.5),
		Obstacle{ID: "a", Position: Point3{X: 1, Z: 0.5}},
		Obstacle{ID: "b", Position: Point3{X: -1.5, Z: -2}},
	)

	first, err := a.Analyze(context.Background(), q)
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), q)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("analysis differs between runs (-first +second):\n%s", diff)
	}
}

func TestAnalyze_DoesNotMutateQuery(t *testing.T) {
	a := newTestAnalyzer(t)
	obstacles := []Obstacle{{ID: "a", Position: Point3{X: 1.5}}}
	q := testQuery(at(0, 0), at(3, 0), obstacles...)

	_, err := a.Analyze(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, []Obstacle{{ID: "a", Position: Point3{X: 1.5}}}, q.Obstacles)
}

func TestAnalyze_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	a := newTestAnalyzer(t, WithMetrics(m))

	_, err := a.Analyze(context.Background(), testQuery(at(0, 0), at(3, 0)))
	require.NoError(t, err)
	_, err = a.Analyze(context.Background(), testQuery(at(0, 0), at(3, 3), ringAround(0, 0, 1)...))
	require.NoError(t, err)
	_, err = a.Analyze(context.Background(), Query{Start: at(0, 0), End: at(1, 0)})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues(string(OutcomeFound))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues(string(OutcomeUnreachable))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("invalid")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.narrow))

	count, err := testutil.GatherAndCount(reg, "crewpath_search_expansions")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

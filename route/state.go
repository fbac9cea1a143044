package route

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LayoutTracker holds the current habitat layout and the most recent
// analysis for the service endpoints. The engine never sees the tracker;
// it only receives deep-copied snapshots.
type LayoutTracker struct {
	mu        sync.RWMutex
	layout    Layout
	hasLayout bool
	updatedAt time.Time

	latest       *Analysis
	latestLayout Layout

	// queryMu admits one in-flight query at a time
	queryMu sync.Mutex
}

// NewLayoutTracker creates an empty tracker
func NewLayoutTracker() *LayoutTracker {
	return &LayoutTracker{}
}

// UpdateLayout replaces the current layout
func (lt *LayoutTracker) UpdateLayout(l Layout) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.layout = l.Clone()
	lt.hasLayout = true
	lt.updatedAt = time.Now()
}

// SetEnvelope replaces only the habitat envelope
func (lt *LayoutTracker) SetEnvelope(e Envelope) {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.layout.Envelope = e
	lt.hasLayout = true
	lt.updatedAt = time.Now()
}

// Snapshot returns a deep copy of the current layout
func (lt *LayoutTracker) Snapshot() (Layout, bool) {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.layout.Clone(), lt.hasLayout
}

// UpdatedAt returns when the layout last changed
func (lt *LayoutTracker) UpdatedAt() time.Time {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.updatedAt
}

// HasLayout returns true if a layout has been loaded
func (lt *LayoutTracker) HasLayout() bool {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	return lt.hasLayout
}

// Latest returns the most recent analysis and the layout it was computed on
func (lt *LayoutTracker) Latest() (*Analysis, Layout, bool) {
	lt.mu.RLock()
	defer lt.mu.RUnlock()
	if lt.latest == nil {
		return nil, Layout{}, false
	}
	return lt.latest, lt.latestLayout.Clone(), true
}

// Run resolves q against the current layout, analyzes it, and records the
// result as the latest analysis, replacing the previous one.
func (lt *LayoutTracker) Run(ctx context.Context, a *Analyzer, q Query) (*Analysis, error) {
	lt.queryMu.Lock()
	defer lt.queryMu.Unlock()

	current, _ := lt.Snapshot()
	q = ResolveQuery(q, current)

	res, err := a.Analyze(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("analyzing query: %w", err)
	}

	lt.mu.Lock()
	lt.latest = res
	lt.latestLayout = q.Layout()
	lt.mu.Unlock()

	return res, nil
}

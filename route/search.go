package route

import (
	"container/heap"
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb/planar"
)

// Outcome describes how a search ended
type Outcome string

const (
	OutcomeFound           Outcome = "found"
	OutcomeCrossFloor      Outcome = "cross_floor"
	OutcomeOutOfBounds     Outcome = "out_of_bounds"
	OutcomeUnreachable     Outcome = "unreachable"
	OutcomeBudgetExhausted Outcome = "budget_exhausted"
	OutcomeCancelled       Outcome = "cancelled"
)

// cancelCheckInterval is how many expansions run between context checks
const cancelCheckInterval = 64

// SearchResult is the output of one A* run. Path is nil unless Outcome is
// OutcomeFound.
type SearchResult struct {
	Path       []Point3 `json:"path"`
	Outcome    Outcome  `json:"outcome"`
	Cost       float64  `json:"cost"`
	Expansions int      `json:"expansions"`
	Budget     int      `json:"budget"`
}

// Found reports whether a path was returned
func (r SearchResult) Found() bool {
	return r.Outcome == OutcomeFound
}

// Searcher runs A* over the floor lattice
type Searcher struct {
	params Params
}

// NewSearcher creates a searcher. See Params.WithDefaults for which zero
// values are replaced.
func NewSearcher(params Params) *Searcher {
	return &Searcher{params: params.WithDefaults()}
}

// Search finds a minimum-cost lattice path from start to end.
// Malformed input returns an error; every other failure is reported through
// the result's Outcome with a nil Path.
func (s *Searcher) Search(ctx context.Context, start, end Endpoint, layout Layout) (SearchResult, error) {
	if err := s.params.Validate(); err != nil {
		return SearchResult{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if err := validateInputs(start, end, layout); err != nil {
		return SearchResult{}, err
	}
	slack := s.params.GridSize / 2
	if !layout.Envelope.onFloor(start.Y, start.Floor, slack) {
		return SearchResult{}, fmt.Errorf("%w: start y %v is not on floor %d", ErrInvalidQuery, start.Y, start.Floor)
	}
	if !layout.Envelope.onFloor(end.Y, end.Floor, slack) {
		return SearchResult{}, fmt.Errorf("%w: end y %v is not on floor %d", ErrInvalidQuery, end.Y, end.Floor)
	}

	if start.Floor != end.Floor {
		return SearchResult{Outcome: OutcomeCrossFloor}, nil
	}

	if s.params.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.params.SearchTimeout)
		defer cancel()
	}

	res := s.params.GridSize
	env := layout.Envelope
	obstacles := excludeEndpoints(ObstaclesOnFloor(layout.Obstacles, start.Floor), start, end)

	y := Snap(start.Point(), res).Y
	startCell := cellOf(start.Point(), res)
	goalCell := cellOf(end.Point(), res)
	goal := goalCell.point(y, res)

	if !WithinEnvelope(startCell.point(y, res), env, s.params.WallMargin) || !WithinEnvelope(goal, env, s.params.WallMargin) {
		return SearchResult{Outcome: OutcomeOutOfBounds}, nil
	}

	budget := s.params.iterationBudget(env)
	a := newSearchArena()
	open := &openHeap{}
	seq := 0
	push := func(idx int) {
		item := &openItem{node: idx, f: a.nodes[idx].F, seq: seq}
		seq++
		a.open[idx] = item
		heap.Push(open, item)
	}

	root := a.add(startCell, y, res, -1, 0, planar.Distance(startCell.point(y, res).Planar(), goal.Planar()))
	push(root)

	expansions := 0
	for open.Len() > 0 {
		if expansions >= budget {
			return SearchResult{Outcome: OutcomeBudgetExhausted, Expansions: expansions, Budget: budget}, nil
		}
		if expansions%cancelCheckInterval == 0 && expired(ctx) {
			return SearchResult{Outcome: OutcomeCancelled, Expansions: expansions, Budget: budget}, nil
		}

		item := heap.Pop(open).(*openItem)
		current := item.node
		a.open[current] = nil
		a.closed[current] = true
		expansions++

		if a.cells[current] == goalCell {
			return SearchResult{
				Path:       a.reconstruct(current),
				Outcome:    OutcomeFound,
				Cost:       a.nodes[current].G,
				Expansions: expansions,
				Budget:     budget,
			}, nil
		}

		from := a.cells[current]
		for _, nb := range neighborOffsets {
			c := cell{ix: from.ix + nb.dx, iz: from.iz + nb.dz}
			idx, seen := a.byCell[c]
			if seen && a.closed[idx] {
				continue
			}

			p := c.point(y, res)
			if !WithinEnvelope(p, env, s.params.WallMargin) {
				continue
			}
			if IsOccupied(p, obstacles, s.params.SearchOccupancyTolerance) {
				continue
			}

			g := a.nodes[current].G + nb.cost*res
			if seen {
				n := &a.nodes[idx]
				if g < n.G {
					n.G = g
					n.F = g + n.H
					n.Parent = current
					it := a.open[idx]
					it.f = n.F
					heap.Fix(open, it.index)
				}
				continue
			}

			push(a.add(c, y, res, current, g, planar.Distance(p.Planar(), goal.Planar())))
		}
	}

	return SearchResult{Outcome: OutcomeUnreachable, Expansions: expansions, Budget: budget}, nil
}

// expired reports whether ctx is done, counting a deadline that has passed
// before its timer fired
func expired(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	deadline, ok := ctx.Deadline()
	return ok && !time.Now().Before(deadline)
}

// validateInputs rejects malformed geometry before any search work
func validateInputs(start, end Endpoint, layout Layout) error {
	if err := layout.Envelope.Validate(); err != nil {
		return err
	}
	if !start.Point().IsFinite() {
		return fmt.Errorf("%w: start point is not finite", ErrInvalidQuery)
	}
	if !end.Point().IsFinite() {
		return fmt.Errorf("%w: end point is not finite", ErrInvalidQuery)
	}
	for i, o := range layout.Obstacles {
		if !o.Position.IsFinite() {
			return fmt.Errorf("%w: obstacle[%d] position is not finite", ErrInvalidQuery, i)
		}
	}
	return nil
}

// searchArena owns every node created during one search.
// Predecessors are arena indices, so the parent links form a tree.
type searchArena struct {
	nodes  []GridNode
	cells  []cell
	closed []bool
	open   []*openItem
	byCell map[cell]int
}

func newSearchArena() *searchArena {
	return &searchArena{byCell: make(map[cell]int, 256)}
}

func (a *searchArena) add(c cell, y, res float64, parent int, g, h float64) int {
	p := c.point(y, res)
	idx := len(a.nodes)
	a.nodes = append(a.nodes, GridNode{X: p.X, Y: p.Y, Z: p.Z, G: g, H: h, F: g + h, Parent: parent})
	a.cells = append(a.cells, c)
	a.closed = append(a.closed, false)
	a.open = append(a.open, nil)
	a.byCell[c] = idx
	return idx
}

// reconstruct walks parent links from idx back to the root
func (a *searchArena) reconstruct(idx int) []Point3 {
	var path []Point3
	for i := idx; i >= 0; i = a.nodes[i].Parent {
		path = append(path, a.nodes[i].Point())
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

type openItem struct {
	node  int
	f     float64
	seq   int // insertion order, breaks f ties
	index int // heap position
}

// openHeap implements heap.Interface for the A* open set
type openHeap []*openItem

func (h openHeap) Len() int { return len(h) }

func (h openHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}

func (h openHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *openHeap) Push(x any) {
	item := x.(*openItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[:n-1]
	return item
}

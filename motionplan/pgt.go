package motionplan

import (
	"context"

	"go.viam.com/planengine/cspace"
	"go.viam.com/planengine/utils/grid"
	"go.viam.com/planengine/utils/selector"
)

type pgtCell struct {
	nsel int
	vids []int
	node *selector.Node[int]
}

func (c *pgtCell) weight() float64 {
	return 1 / float64(1+c.nsel+len(c.vids))
}

// pgtSelector partitions a projection of the configuration space into a regular grid and
// favors cells that hold few vertices and have rarely been selected.
type pgtSelector struct {
	tp    *treePlanner
	proj  cspace.Projector
	grid  *grid.Grid
	cells map[int]*pgtCell
	sel   *selector.Selector[int]
}

func newPGTSelector(tp *treePlanner) (vertexSelector, error) {
	proj := tp.problem.Projector
	if proj == nil {
		return nil, cspace.NewPreconditionError("newPGTSelector", "missing projector")
	}
	n := proj.Dim()
	lo, hi, err := projectionBounds(tp.planOpts, proj, n)
	if err != nil {
		return nil, err
	}
	dims := make([]int, n)
	for i := range dims {
		dims[i] = tp.planOpts.PGTGranularity
	}
	g, err := grid.New(dims, lo, hi)
	if err != nil {
		return nil, err
	}
	return &pgtSelector{
		tp:    tp,
		proj:  proj,
		grid:  g,
		cells: map[int]*pgtCell{},
		sel:   selector.New[int](),
	}, nil
}

func (s *pgtSelector) admit(*cspace.Cfg) (bool, error) {
	return true, nil
}

func (s *pgtSelector) added(vid int) error {
	id := s.grid.CellID(s.proj.Project(s.tp.graph.Vertex(vid).Cfg))
	c, ok := s.cells[id]
	if !ok {
		c = &pgtCell{}
		c.node = s.sel.Create(id, 0)
		s.sel.Insert(c.node)
		s.cells[id] = c
	}
	c.vids = append(c.vids, vid)
	s.sel.Update(c.node, c.weight())
	return nil
}

func (s *pgtSelector) selectVertex(context.Context, *cspace.Cfg) (int, error) {
	node := s.sel.SelectRandom(s.tp.randseed)
	if node == nil {
		return -1, errEmptyIndex
	}
	c := s.cells[node.Key()]
	vid := c.vids[s.tp.randseed.Intn(len(c.vids))]
	c.nsel++
	s.sel.Update(c.node, c.weight())
	return vid, nil
}

// projectionBounds returns the bounds of the first n projection axes, taken from the
// projection_min/projection_max options when they are long enough and from the projector
// otherwise.
func projectionBounds(opt *PlannerOptions, proj cspace.Projector, n int) ([]float64, []float64, error) {
	if len(opt.ProjectionMin) >= n {
		return opt.ProjectionMin[:n], opt.ProjectionMax[:n], nil
	}
	if bp, ok := proj.(cspace.BoundedProjector); ok {
		lo, hi := bp.ProjectionBounds()
		if len(lo) >= n && len(hi) >= n {
			return lo[:n], hi[:n], nil
		}
	}
	return nil, nil, cspace.NewPreconditionError("projectionBounds", "projection bounds are unknown")
}

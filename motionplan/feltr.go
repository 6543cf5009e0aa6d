package motionplan

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"

	"go.viam.com/planengine/cspace"
	"go.viam.com/planengine/utils/grid"
	"go.viam.com/planengine/utils/selector"
)

type feltrCell struct {
	nsel int
	vids []int
	node *selector.Node[int]
}

func (c *feltrCell) weight() float64 {
	return 1 / (float64(1+c.nsel) * float64(len(c.vids)))
}

// feltrRegion is one band of the energy partition. Its cells partition the remaining
// projection axes.
type feltrRegion struct {
	nsel      int
	nconfs    int
	energySum float64
	minEnergy float64
	maxEnergy float64
	cells     map[int]*feltrCell
	sel       *selector.Selector[int]
	node      *selector.Node[int]
}

func (r *feltrRegion) avgEnergy() float64 {
	if r.nconfs == 0 {
		return 0
	}
	return r.energySum / float64(r.nconfs)
}

func quadWeight(avg float64) float64 {
	if avg > 0 {
		return 1 / (1 + avg*avg)
	}
	return avg * avg
}

// feltrSelector picks a region of the energy landscape, then a cell inside it, then a vertex
// of the cell. The projection's last axis is the energy; an EnergyProjector without an
// evaluator is given the problem's. Candidates landing within
// feltr_similarity_threshold of a vertex already in their cell are turned away.
type feltrSelector struct {
	tp        *treePlanner
	proj      cspace.Projector
	regions   *grid.Grid
	cells     *grid.Grid
	byID      map[int]*feltrRegion
	order     []*feltrRegion
	sel       *selector.Selector[int]
	threshold float64
	gaussian  bool
}

func newFELTRSelector(tp *treePlanner) (vertexSelector, error) {
	proj := tp.problem.Projector
	if proj == nil {
		return nil, cspace.NewPreconditionError("newFELTRSelector", "missing projector")
	}
	if tp.problem.Energy == nil {
		return nil, cspace.NewPreconditionError("newFELTRSelector", "missing energy evaluator")
	}
	if ep, ok := proj.(cspace.EnergyProjector); ok && ep.Eval == nil {
		ep.Eval = tp.problem.Energy
		proj = ep
	}
	n := proj.Dim()
	if n < 2 {
		return nil, cspace.NewPreconditionError("newFELTRSelector", "projection needs an energy axis and at least one more")
	}
	opt := tp.planOpts

	dims := make([]int, n)
	lo := make([]float64, n)
	hi := make([]float64, n)
	for i := 0; i < n-1; i++ {
		dims[i], lo[i], hi[i] = 1, 0, 1
	}
	dims[n-1], lo[n-1], hi[n-1] = opt.FELTREnergyGranularity, opt.FELTREnergyMin, opt.FELTREnergyMax
	regions, err := grid.New(dims, lo, hi)
	if err != nil {
		return nil, err
	}

	clo, chi, err := projectionBounds(opt, proj, n-1)
	if err != nil {
		return nil, err
	}
	cdims := make([]int, n-1)
	for i := range cdims {
		cdims[i] = opt.FELTRCellGranularity
	}
	cells, err := grid.New(cdims, clo, chi)
	if err != nil {
		return nil, err
	}

	tp.logger.Debugw("energy region strategy", "regions", regions.NrCells(), "cellsPerRegion", cells.NrCells(),
		"weighting", opt.FELTRWeighting)
	return &feltrSelector{
		tp:        tp,
		proj:      proj,
		regions:   regions,
		cells:     cells,
		byID:      map[int]*feltrRegion{},
		sel:       selector.New[int](),
		threshold: opt.FELTRSimilarityThreshold,
		gaussian:  opt.FELTRWeighting == WeightingGaussian,
	}, nil
}

func (s *feltrSelector) locate(p []float64) (int, int) {
	return s.regions.CellID(p), s.cells.CellID(p[:len(p)-1])
}

func (s *feltrSelector) admit(cfg *cspace.Cfg) (bool, error) {
	rid, cid := s.locate(s.proj.Project(cfg))
	r, ok := s.byID[rid]
	if !ok {
		return true, nil
	}
	c, ok := r.cells[cid]
	if !ok {
		return true, nil
	}
	for _, vid := range c.vids {
		if s.tp.problem.Distance.Distance(cfg, s.tp.graph.Vertex(vid).Cfg) < s.threshold {
			s.tp.metrics.Inc(CounterGranularityRejections, 1)
			return false, nil
		}
	}
	return true, nil
}

func (s *feltrSelector) added(vid int) error {
	p := s.proj.Project(s.tp.graph.Vertex(vid).Cfg)
	energy := p[len(p)-1]
	rid, cid := s.locate(p)

	r, ok := s.byID[rid]
	if !ok {
		r = &feltrRegion{
			minEnergy: math.Inf(1),
			maxEnergy: math.Inf(-1),
			cells:     map[int]*feltrCell{},
			sel:       selector.New[int](),
		}
		r.node = s.sel.Create(rid, 1)
		s.sel.Insert(r.node)
		s.byID[rid] = r
		s.order = append(s.order, r)
	}
	r.nconfs++
	r.energySum += energy
	r.minEnergy = math.Min(r.minEnergy, energy)
	r.maxEnergy = math.Max(r.maxEnergy, energy)
	s.sel.Update(r.node, quadWeight(r.avgEnergy()))

	c, ok := r.cells[cid]
	if !ok {
		c = &feltrCell{}
		c.node = r.sel.Create(cid, 0)
		r.sel.Insert(c.node)
		r.cells[cid] = c
	}
	c.vids = append(c.vids, vid)
	r.sel.Update(c.node, c.weight())
	return nil
}

func (s *feltrSelector) selectVertex(context.Context, *cspace.Cfg) (int, error) {
	r := s.selectRegion()
	if r == nil {
		return -1, errEmptyIndex
	}
	node := r.sel.SelectRandom(s.tp.randseed)
	c := r.cells[node.Key()]
	vid := c.vids[s.tp.randseed.Intn(len(c.vids))]
	c.nsel++
	r.sel.Update(c.node, c.weight())
	r.nsel++
	return vid, nil
}

func (s *feltrSelector) selectRegion() *feltrRegion {
	if s.gaussian {
		if r := s.gaussianRegion(); r != nil {
			return r
		}
	}
	node := s.sel.SelectRandom(s.tp.randseed)
	if node == nil {
		return nil
	}
	return s.byID[node.Key()]
}

// gaussianRegion draws an energy from a normal fitted to the region averages, weighted by
// region sizes, and returns the first region whose energy range covers it. When no range
// covers the draw the region with the nearest average wins, earliest region first on ties.
// It returns nil when the fit is degenerate.
func (s *feltrSelector) gaussianRegion() *feltrRegion {
	if len(s.order) < 2 {
		return nil
	}
	avgs := make([]float64, len(s.order))
	sizes := make([]float64, len(s.order))
	for i, r := range s.order {
		avgs[i] = r.avgEnergy()
		sizes[i] = float64(r.nconfs)
	}
	mean, std := stat.MeanStdDev(avgs, sizes)
	if std == 0 || math.IsNaN(std) {
		return nil
	}
	e := cspace.Gaussian(s.tp.randseed, mean, std)

	var best *feltrRegion
	bestDist := math.Inf(1)
	for _, r := range s.order {
		if r.minEnergy <= e && e <= r.maxEnergy {
			return r
		}
		if d := math.Abs(r.avgEnergy() - e); d < bestDist {
			best, bestDist = r, d
		}
	}
	return best
}

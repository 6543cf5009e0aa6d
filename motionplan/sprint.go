package motionplan

import (
	"context"
	"math"

	"go.viam.com/planengine/cspace"
	"go.viam.com/planengine/utils"
	"go.viam.com/planengine/utils/selector"
)

type sprintRegion struct {
	vids []int
	node *selector.Node[int]
}

// sprintSelector reads a region index from the first projection axis. Empty regions are never
// chosen; occupied region i weighs (i+1)^sprint_power, so higher regions dominate as soon as
// they are reached.
type sprintSelector struct {
	tp      *treePlanner
	proj    cspace.Projector
	power   float64
	regions []*sprintRegion
	sel     *selector.Selector[int]
}

func newSprintSelector(tp *treePlanner) (vertexSelector, error) {
	proj := tp.problem.Projector
	if proj == nil {
		return nil, cspace.NewPreconditionError("newSprintSelector", "missing projector")
	}
	n := tp.planOpts.SprintRegions
	if n <= 0 {
		return nil, cspace.NewPreconditionError("newSprintSelector", "sprint_regions must be positive")
	}
	s := &sprintSelector{
		tp:      tp,
		proj:    proj,
		power:   float64(tp.planOpts.SprintPower),
		regions: make([]*sprintRegion, n),
		sel:     selector.New[int](),
	}
	for i := range s.regions {
		r := &sprintRegion{node: s.sel.Create(i, 0)}
		s.sel.Insert(r.node)
		s.regions[i] = r
	}
	return s, nil
}

func (s *sprintSelector) regionIndex(cfg *cspace.Cfg) int {
	p := s.proj.Project(cfg)
	return utils.FloorClampInt(p[0], 0, len(s.regions)-1)
}

func (s *sprintSelector) admit(*cspace.Cfg) (bool, error) {
	return true, nil
}

func (s *sprintSelector) added(vid int) error {
	idx := s.regionIndex(s.tp.graph.Vertex(vid).Cfg)
	r := s.regions[idx]
	if len(r.vids) == 0 {
		s.sel.Update(r.node, math.Pow(float64(idx+1), s.power))
	}
	r.vids = append(r.vids, vid)
	return nil
}

func (s *sprintSelector) selectVertex(context.Context, *cspace.Cfg) (int, error) {
	if s.sel.TotalWeight() <= 0 {
		return -1, errEmptyIndex
	}
	node := s.sel.SelectRandom(s.tp.randseed)
	r := s.regions[node.Key()]
	return r.vids[s.tp.randseed.Intn(len(r.vids))], nil
}

package motionplan

import (
	"math/rand"

	"go.viam.com/planengine/cspace"
	"go.viam.com/planengine/logging"
)

// Planner kinds accepted by NewPlanner.
const (
	PRM    = "prm"
	RRT    = "rrt"
	EST    = "est"
	PGT    = "pgt"
	FELTR  = "feltr"
	Sprint = "sprint"
)

var treeSelectors = map[string]func(*treePlanner) (vertexSelector, error){
	RRT:    newRRTSelector,
	EST:    newESTSelector,
	PGT:    newPGTSelector,
	FELTR:  newFELTRSelector,
	Sprint: newSprintSelector,
}

// NewPlanner returns a planner of the given kind for problem. A nil seed is replaced by a
// source seeded from the rseed option.
func NewPlanner(
	kind string,
	problem *cspace.Problem,
	opt *PlannerOptions,
	seed *rand.Rand,
	logger logging.Logger,
	options ...Option,
) (Planner, error) {
	newSelector, isTree := treeSelectors[kind]
	if !isTree && kind != PRM {
		return nil, NewUnknownPlannerError(kind)
	}
	sbp, err := newSamplingPlanner(problem, opt, seed, logger.Sublogger(kind), options...)
	if err != nil {
		return nil, err
	}
	sbp.kind = kind
	if !isTree {
		return newPRMPlanner(sbp), nil
	}
	tp, err := newTreePlanner(sbp, newSelector)
	if err != nil {
		return nil, err
	}
	return tp, nil
}

package motionplan

import (
	"context"
	"io"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
	"go.opencensus.io/trace"

	"go.viam.com/planengine/cspace"
	"go.viam.com/planengine/logging"
	"go.viam.com/planengine/motionplan/plannergraph"
	"go.viam.com/planengine/utils"
)

// Planner incrementally builds a graph of accepted configurations and searches it for a path
// from the start configuration to a goal configuration. A Planner is not safe for concurrent
// use; Solve may be called repeatedly with fresh budgets.
type Planner interface {
	// Start makes init the root vertex, reusing a vertex already at init, for example one read
	// from a checkpoint. It must be called once, before Solve.
	Start(ctx context.Context, init *cspace.Cfg) error
	// Solve grows the graph until it is solved, the budget runs out or ctx is done. A zero
	// budget uses the timeout option, overridden by the PLANENGINE_PLAN_TIMEOUT environment
	// variable. Running out of budget is not an error.
	Solve(ctx context.Context, budget time.Duration) (bool, error)
	IsSolved() bool
	// GetSolution returns the cheapest path from the start to any goal vertex.
	GetSolution(ctx context.Context) (*Solution, error)
	// AddVertex moves cfg into the graph. It returns false, leaving cfg with the caller, when the
	// planner declines the configuration. Near duplicates are not detected; see FindCfg.
	AddVertex(cfg *cspace.Cfg) (int, bool, error)
	// FindCfg returns the vertex within the configured tolerance of cfg, if any.
	FindCfg(ctx context.Context, cfg *cspace.Cfg) (int, bool)
	Graph() *plannergraph.Graph
	WriteGraph(w io.Writer) error
	ReadGraph(ctx context.Context, r io.Reader) error
	WriteCheckpoint(w io.Writer) error
	ReadCheckpoint(ctx context.Context, r io.Reader) error
	// Close releases every configuration held by the planner.
	Close()
}

// Option customizes the collaborators injected into a planner.
type Option func(*samplingPlanner)

// WithClock sets the clock used to enforce Solve budgets.
func WithClock(clk clock.Clock) Option {
	return func(sbp *samplingPlanner) {
		sbp.clock = clk
	}
}

// WithMetrics sets the sink receiving timings and counters.
func WithMetrics(m Metrics) Option {
	return func(sbp *samplingPlanner) {
		sbp.metrics = m
	}
}

// vertexHooks lets a strategy veto configurations and track the vertices it is told about.
type vertexHooks interface {
	// admit is consulted before cfg becomes a vertex.
	admit(cfg *cspace.Cfg) (bool, error)
	// added is called once vid is part of the graph and the nearest neighbor index.
	added(vid int) error
}

// samplingPlanner holds the state shared by every strategy: the problem capabilities, the
// graph, the nearest neighbor index and the injected collaborators.
type samplingPlanner struct {
	kind     string
	problem  *cspace.Problem
	factory  *cspace.Factory
	planOpts *PlannerOptions
	graph    *plannergraph.Graph
	nn       nearestNeighborIndex
	randseed *rand.Rand
	clock    clock.Clock
	metrics  Metrics
	logger   logging.Logger

	// capabilities of the problem components, resolved once
	source   cspace.SourceBinder
	example  cspace.ExampleProvider
	toTarget bool

	hooks vertexHooks

	// default Solve budget
	timeout time.Duration

	started  bool
	vidInit  int
	vidsGoal []int
}

func newSamplingPlanner(
	problem *cspace.Problem,
	opt *PlannerOptions,
	seed *rand.Rand,
	logger logging.Logger,
	options ...Option,
) (*samplingPlanner, error) {
	if opt == nil {
		return nil, errNoPlannerOptions
	}
	if problem == nil {
		return nil, cspace.NewPreconditionError("newSamplingPlanner", "no problem")
	}
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	if seed == nil {
		//nolint:gosec
		seed = rand.New(rand.NewSource(int64(opt.RandomSeed)))
	}
	if problem.Improver == nil {
		problem.Improver = cspace.NoopImprover{}
	}
	nn, err := newNearestNeighborIndex(opt.NNIndex, problem.Distance, opt.numThreads())
	if err != nil {
		return nil, err
	}

	sbp := &samplingPlanner{
		problem:  problem,
		factory:  problem.Factory,
		planOpts: opt,
		graph:    plannergraph.New(),
		nn:       nn,
		randseed: seed,
		clock:    clock.New(),
		logger:   logger,
		timeout:  utils.GetPlanTimeout(opt.timeoutDuration(), logger),
		vidInit:  -1,
	}
	for _, o := range options {
		o(sbp)
	}
	if sbp.metrics == nil {
		sbp.metrics = NewPlanMeta()
	}

	sbp.source, _ = problem.Acceptor.(cspace.SourceBinder)
	sbp.example, _ = problem.Goal.(cspace.ExampleProvider)
	if ti, ok := problem.Generator.(cspace.TargetInterpolator); ok {
		sbp.toTarget = ti.InterpolatesToTarget()
	}
	return sbp, nil
}

func (sbp *samplingPlanner) Start(ctx context.Context, init *cspace.Cfg) error {
	_, span := trace.StartSpan(ctx, "Start")
	defer span.End()
	if sbp.started {
		return errAlreadyStarted
	}
	if init == nil {
		return cspace.NewPreconditionError("Start", "no initial configuration")
	}
	if init.Dim() != sbp.factory.Dim() {
		return cspace.NewDimensionMismatchError(sbp.factory.Dim(), init.Dim())
	}
	vid, err := sbp.addOrFind(ctx, init)
	if err != nil {
		return err
	}
	if vid < 0 {
		return cspace.NewPreconditionError("Start", "initial configuration was declined")
	}
	sbp.vidInit = vid
	sbp.started = true
	sbp.bindSource(sbp.graph.Vertex(vid).Cfg)
	sbp.logger.Debugw("planner started", "dim", sbp.factory.Dim(), "isGoal", sbp.graph.Vertex(vid).IsGoal)
	return nil
}

// addOrFind returns the vertex holding cfg, adding a copy of cfg when no vertex lies within
// find_cfg_tolerance of it. It returns -1 when the copy is declined.
func (sbp *samplingPlanner) addOrFind(ctx context.Context, cfg *cspace.Cfg) (int, error) {
	if vid, ok := sbp.FindCfg(ctx, cfg); ok {
		return vid, nil
	}
	c := sbp.factory.Copy(cfg)
	vid, ok, err := sbp.AddVertex(c)
	if !ok {
		sbp.factory.Delete(c)
		vid = -1
	}
	return vid, err
}

func (sbp *samplingPlanner) bindSource(cfg *cspace.Cfg) {
	if sbp.source != nil {
		sbp.source.BindSource(cfg)
	}
}

func (sbp *samplingPlanner) IsSolved() bool {
	if sbp.vidInit < 0 {
		return false
	}
	for i := len(sbp.vidsGoal) - 1; i >= 0; i-- {
		if sbp.graph.ArePathConnected(sbp.vidInit, sbp.vidsGoal[i]) {
			return true
		}
	}
	return false
}

func (sbp *samplingPlanner) AddVertex(cfg *cspace.Cfg) (int, bool, error) {
	if sbp.hooks != nil {
		ok, err := sbp.hooks.admit(cfg)
		if err != nil || !ok {
			return -1, false, err
		}
	}
	isGoal, err := sbp.problem.Goal.IsAcceptable(cfg)
	if err != nil {
		return -1, false, err
	}

	v := plannergraph.NewVertex(cfg)
	v.IsGoal = isGoal
	vid := sbp.graph.AddVertex(v)
	sbp.nn.insert(vid, cfg)
	if isGoal {
		sbp.vidsGoal = append(sbp.vidsGoal, vid)
	}
	sbp.metrics.Inc(CounterVerticesAdded, 1)

	if sbp.hooks != nil {
		if err := sbp.hooks.added(vid); err != nil {
			return vid, true, err
		}
	}
	return vid, true, nil
}

// addEdge inserts an edge between existing vertices.
func (sbp *samplingPlanner) addEdge(e *plannergraph.Edge) error {
	if _, err := sbp.graph.AddEdge(e); err != nil {
		return err
	}
	sbp.metrics.Inc(CounterEdgesAdded, 1)
	return nil
}

func (sbp *samplingPlanner) FindCfg(ctx context.Context, cfg *cspace.Cfg) (int, bool) {
	if sbp.nn.size() == 0 {
		return -1, false
	}
	nn, err := sbp.nn.nearest(ctx, cfg)
	if err != nil || nn.dist > sbp.planOpts.FindCfgTolerance {
		return -1, false
	}
	return nn.vid, true
}

func (sbp *samplingPlanner) GetSolution(ctx context.Context) (*Solution, error) {
	_, span := trace.StartSpan(ctx, "GetSolution")
	defer span.End()
	start := sbp.clock.Now()
	defer func() {
		sbp.metrics.AddTiming("GetSolution", sbp.clock.Since(start))
	}()

	if !sbp.started {
		return nil, errNotStarted
	}
	res, ok := sbp.graph.ShortestPath(sbp.vidInit, func(v int) bool {
		return sbp.graph.Vertex(v).IsGoal
	}, nil)
	if !ok {
		return nil, NewPlannerFailedError()
	}
	return sbp.solutionFromPath(res.Path, res.Cost), nil
}

// solutionFromPath copies the configurations along path, expanding the intermediates of every
// edge in the direction of travel.
func (sbp *samplingPlanner) solutionFromPath(path []int, cost float64) *Solution {
	sol := &Solution{VertexIDs: path, Cost: cost}
	for i := 0; i+1 < len(path); i++ {
		from, to := path[i], path[i+1]
		sol.Cfgs = append(sol.Cfgs, sbp.factory.Copy(sbp.graph.Vertex(from).Cfg))
		e, _ := sbp.graph.FindEdge(from, to)
		if e.From == from {
			for _, c := range e.Intermediates {
				sol.Cfgs = append(sol.Cfgs, sbp.factory.Copy(c))
			}
		} else {
			for j := len(e.Intermediates) - 1; j >= 0; j-- {
				sol.Cfgs = append(sol.Cfgs, sbp.factory.Copy(e.Intermediates[j]))
			}
		}
	}
	if len(path) > 0 {
		sol.Cfgs = append(sol.Cfgs, sbp.factory.Copy(sbp.graph.Vertex(path[len(path)-1]).Cfg))
	}
	return sol
}

func (sbp *samplingPlanner) Graph() *plannergraph.Graph {
	return sbp.graph
}

func (sbp *samplingPlanner) Close() {
	sbp.graph.Release(sbp.factory)
}

// budget bounds a single Solve call by wall time and iteration count.
type budget struct {
	clk      clock.Clock
	deadline time.Time
	iters    int
	maxIters int
}

func (sbp *samplingPlanner) newBudget(d time.Duration) *budget {
	if d <= 0 {
		d = sbp.timeout
	}
	return &budget{clk: sbp.clock, deadline: sbp.clock.Now().Add(d), maxIters: sbp.planOpts.PlanIter}
}

func (b *budget) remaining() time.Duration {
	return b.deadline.Sub(b.clk.Now())
}

func (b *budget) expired() bool {
	if b.maxIters > 0 && b.iters >= b.maxIters {
		return true
	}
	return !b.clk.Now().Before(b.deadline)
}

func (b *budget) tick() {
	b.iters++
}

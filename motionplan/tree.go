package motionplan

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opencensus.io/trace"

	"go.viam.com/planengine/cspace"
	"go.viam.com/planengine/motionplan/plannergraph"
	"go.viam.com/planengine/utils"
)

// ExtendStatus reports how far a tree extension got.
type ExtendStatus int

// Outcomes of ExtendToward.
const (
	// ExtendFailed means no vertex was added.
	ExtendFailed ExtendStatus = iota
	// ExtendOK means at least one vertex was added before the extension stopped.
	ExtendOK
	// ExtendReachedTarget means the last vertex added is close enough to the target.
	ExtendReachedTarget
	// ExtendReachedGoal means the tree now connects the start to a goal vertex.
	ExtendReachedGoal
)

func (s ExtendStatus) String() string {
	switch s {
	case ExtendFailed:
		return "failed"
	case ExtendOK:
		return "ok"
	case ExtendReachedTarget:
		return "reached target"
	case ExtendReachedGoal:
		return "reached goal"
	default:
		return fmt.Sprintf("ExtendStatus(%d)", int(s))
	}
}

// vertexSelector picks the tree vertex to extend toward a target.
type vertexSelector interface {
	selectVertex(ctx context.Context, target *cspace.Cfg) (int, error)
}

// treePlanner grows a single tree from the start configuration. Strategies differ only in how
// they pick the vertex to extend.
type treePlanner struct {
	*samplingPlanner
	selector vertexSelector
	target   *cspace.Cfg
}

func newTreePlanner(sbp *samplingPlanner, newSelector func(*treePlanner) (vertexSelector, error)) (*treePlanner, error) {
	tp := &treePlanner{samplingPlanner: sbp, target: sbp.factory.New()}
	sel, err := newSelector(tp)
	if err != nil {
		sbp.factory.Delete(tp.target)
		return nil, err
	}
	tp.selector = sel
	if hooks, ok := sel.(vertexHooks); ok {
		sbp.hooks = hooks
	}
	return tp, nil
}

func (tp *treePlanner) Solve(ctx context.Context, d time.Duration) (bool, error) {
	ctx, span := trace.StartSpan(ctx, "treePlanner.Solve")
	defer span.End()
	start := tp.clock.Now()
	defer func() {
		tp.metrics.AddTiming("Solve", tp.clock.Since(start))
	}()
	if !tp.started {
		return false, errNotStarted
	}
	defer utils.SlowLogger(ctx, "still solving", "planner", tp.kind, tp.logger)()

	b := tp.newBudget(d)
	for !tp.IsSolved() && !b.expired() {
		if err := ctx.Err(); err != nil {
			return tp.IsSolved(), err
		}
		b.tick()
		ok, err := tp.SampleTargetCfg(ctx, b, tp.target)
		if err != nil {
			return tp.IsSolved(), err
		}
		if !ok {
			break
		}
		vid, err := tp.selector.selectVertex(ctx, tp.target)
		if err != nil {
			return tp.IsSolved(), err
		}
		if vid < 0 {
			continue
		}
		if _, err := tp.ExtendToward(ctx, vid, tp.target); err != nil {
			return tp.IsSolved(), err
		}
	}
	tp.logger.CDebugw(ctx, "tree solve finished",
		"iterations", b.iters, "vertices", tp.graph.NrVertices(), "solved", tp.IsSolved())
	return tp.IsSolved(), nil
}

// SampleTargetCfg fills target with an example goal configuration, with probability goal_bias,
// or with a sampled and improved configuration. When sample_valid_target is set sampling
// repeats until the acceptor agrees. It returns false if the budget ran out first.
func (tp *treePlanner) SampleTargetCfg(ctx context.Context, b *budget, target *cspace.Cfg) (bool, error) {
	if tp.example != nil && tp.randseed.Float64() <= tp.planOpts.GoalBias {
		if ex := tp.example.AcceptableExample(); ex != nil {
			tp.factory.CopyInto(target, ex)
			return true, nil
		}
	}
	for {
		if tp.problem.Sampler.Sample(tp.randseed, target) {
			tp.problem.Improver.Improve(target)
			if !tp.planOpts.SampleValidTarget {
				return true, nil
			}
			ok, err := tp.problem.Acceptor.IsAcceptable(target)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		} else if !tp.planOpts.SampleValidTarget {
			return true, nil
		}
		if ctx.Err() != nil || (b != nil && b.remaining() <= 0) {
			return false, ctx.Err()
		}
	}
}

// ExtendToward grows the tree from vertex vid toward target, one generated configuration per
// step, until a configuration is rejected, target is reached, the tree is solved or
// extend_max_steps is exhausted.
func (tp *treePlanner) ExtendToward(ctx context.Context, vid int, target *cspace.Cfg) (ExtendStatus, error) {
	start := tp.clock.Now()
	defer func() {
		tp.metrics.AddTiming("ExtendToward", tp.clock.Since(start))
	}()

	dist := tp.problem.Distance.Distance
	curr := vid
	d := dist(tp.graph.Vertex(curr).Cfg, target)
	for step := 0; step < tp.planOpts.ExtendMaxSteps; step++ {
		parent := tp.graph.Vertex(curr).Cfg
		tp.bindSource(parent)

		t := tp.planOpts.OneStepDistance
		if tp.toTarget {
			t = 1
			if d > 0 {
				t = math.Min(1, tp.planOpts.OneStepDistance/d)
			}
		}
		cfg := tp.factory.New()
		if err := tp.problem.Generator.Generate(tp.randseed, parent, target, cfg, t); err != nil {
			tp.factory.Delete(cfg)
			return ExtendFailed, err
		}
		ok, err := tp.problem.Acceptor.IsAcceptable(cfg)
		if err != nil {
			tp.factory.Delete(cfg)
			return ExtendFailed, err
		}
		var next int
		if ok {
			next, ok, err = tp.AddVertex(cfg)
			if err != nil {
				if !ok {
					tp.factory.Delete(cfg)
				}
				return ExtendFailed, err
			}
		}
		if !ok {
			tp.factory.Delete(cfg)
			return tp.stopped(step), nil
		}

		fwd, rev := tp.problem.EdgeCost.Costs(parent, cfg)
		if err := tp.addEdge(&plannergraph.Edge{From: curr, To: next, Costs: [2]float64{fwd, rev}}); err != nil {
			return ExtendFailed, err
		}
		if tp.IsSolved() {
			tp.metrics.Inc(CounterExtendReachedGoal, 1)
			return ExtendReachedGoal, nil
		}
		d = dist(cfg, target)
		if d <= tp.planOpts.ExtendReachedTargetDist {
			tp.metrics.Inc(CounterExtendReachedTarget, 1)
			return ExtendReachedTarget, nil
		}
		curr = next
	}
	tp.metrics.Inc(CounterExtendOK, 1)
	return ExtendOK, nil
}

func (tp *treePlanner) stopped(step int) ExtendStatus {
	if step == 0 {
		tp.metrics.Inc(CounterExtendFailed, 1)
		return ExtendFailed
	}
	tp.metrics.Inc(CounterExtendOK, 1)
	return ExtendOK
}

func (tp *treePlanner) Close() {
	tp.factory.Delete(tp.target)
	tp.samplingPlanner.Close()
}

package motionplan

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"go.viam.com/planengine/cspace"
	"go.viam.com/planengine/cspace/point2d"
	"go.viam.com/planengine/logging"
	"go.viam.com/planengine/motionplan/plannergraph"
)

func emptyScene() *point2d.Scene {
	return point2d.NewScene(r2.Point{X: -10, Y: -10}, r2.Point{X: 10, Y: 10})
}

func TestRoadmapSuccess(t *testing.T) {
	problem := pointProblem(t, emptyScene(), r2.Point{X: 3, Y: 4}, 1e-6)
	problem.Acceptor = cspace.AlwaysAcceptor{}
	opt := testOptions(t, map[string]interface{}{
		"prm_batch_size": 10,
		"prm_neighbors":  15,
		"plan_iter":      200,
	})
	p, pm := newTestPlanner(t, PRM, problem, opt)
	startAt(t, p, problem.Factory, 0, 0)
	// the example goal configuration joins the roadmap at start
	test.That(t, p.Graph().NrVertices(), test.ShouldEqual, 2)

	ctx := context.Background()
	for i := 0; i < 5 && !p.IsSolved(); i++ {
		_, err := p.Solve(ctx, 0)
		test.That(t, err, test.ShouldBeNil)
	}
	test.That(t, p.IsSolved(), test.ShouldBeTrue)

	sol, err := p.GetSolution(ctx)
	test.That(t, err, test.ShouldBeNil)
	defer sol.Release(problem.Factory)
	test.That(t, sol.Cost, test.ShouldAlmostEqual, 5.0, 1e-6)
	test.That(t, sol.VertexIDs, test.ShouldResemble, []int{0, 1})
	// start, the interpolated configurations of the edge, goal
	test.That(t, len(sol.Cfgs), test.ShouldBeGreaterThan, 2)
	test.That(t, sol.Cfgs[0].Values(), test.ShouldResemble, []float64{0, 0})
	test.That(t, sol.Cfgs[len(sol.Cfgs)-1].Values(), test.ShouldResemble, []float64{3, 4})
	test.That(t, pm.Count(CounterEdgesAdded), test.ShouldBeGreaterThanOrEqualTo, int64(1))
}

func TestRoadmapAroundObstacle(t *testing.T) {
	obstacle := point2d.NewObstacle(r2.Point{X: 0, Y: 6}, r2.Point{X: 8, Y: 8})
	scene := point2d.NewScene(r2.Point{X: -10, Y: -10}, r2.Point{X: 10, Y: 10}, obstacle)
	problem := pointProblem(t, scene, r2.Point{X: 9, Y: 9}, 1e-6)
	opt := testOptions(t, map[string]interface{}{"prm_batch_size": 50, "plan_iter": 2000, "one_step_distance": 0.2})

	p, pm := newTestPlanner(t, PRM, problem, opt)
	startAt(t, p, problem.Factory, -9, 9)
	solved, err := p.Solve(context.Background(), 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, solved, test.ShouldBeTrue)

	sol, err := p.GetSolution(context.Background())
	test.That(t, err, test.ShouldBeNil)
	defer sol.Release(problem.Factory)
	for _, cfg := range sol.Cfgs {
		test.That(t, scene.Free(point2d.Point(cfg)), test.ShouldBeTrue)
	}
	for i := 1; i < len(sol.Cfgs); i++ {
		test.That(t, problem.Distance.Distance(sol.Cfgs[i-1], sol.Cfgs[i]), test.ShouldBeLessThanOrEqualTo, 0.2+1e-9)
	}
	// edges joining vertices of one component are only attempted when cycles are allowed
	test.That(t, pm.Count(CounterCycleSkips), test.ShouldBeGreaterThan, int64(0))
}

// steeringGenerator moves step toward target without interpolating toward it.
type steeringGenerator struct {
	metric cspace.Distance
}

func (g steeringGenerator) Generate(_ *rand.Rand, parent, target, out *cspace.Cfg, step float64) error {
	if target == nil {
		return cspace.NewPreconditionError("Generate", "missing target")
	}
	frac := math.Min(1, step/g.metric.Distance(parent, target))
	for i := 0; i < parent.Dim(); i++ {
		out.Set(i, parent.At(i)+frac*(target.At(i)-parent.At(i)))
	}
	return nil
}

func TestRoadmapConnectSteersFreeGenerator(t *testing.T) {
	problem := pointProblem(t, emptyScene(), r2.Point{X: 9, Y: 9}, 1e-6)
	problem.Acceptor = cspace.AlwaysAcceptor{}
	problem.Generator = steeringGenerator{metric: problem.Distance}
	p, _ := newTestPlanner(t, PRM, problem, NewBasicPlannerOptions())
	pp := p.(*prmPlanner)
	test.That(t, pp.toTarget, test.ShouldBeFalse)

	c1 := mustCfg(t, problem.Factory, 0, 0)
	c2 := mustCfg(t, problem.Factory, 1, 0)
	var inter []*cspace.Cfg
	ok, err := pp.connect(c1, c2, &inter)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(inter), test.ShouldBeBetweenOrEqual, 9, 10)
	last := inter[len(inter)-1]
	test.That(t, problem.Distance.Distance(last, c2), test.ShouldBeLessThanOrEqualTo, 0.1)
	test.That(t, last.At(1), test.ShouldEqual, 0.0)
	for _, c := range append(inter, c1, c2) {
		problem.Factory.Delete(c)
	}
}

func TestExtendTowardFailure(t *testing.T) {
	problem := pointProblem(t, emptyScene(), r2.Point{X: 5, Y: 5}, 1e-6)
	problem.Acceptor = cspace.AcceptorFunc(func(*cspace.Cfg) bool { return false })
	p, pm := newTestPlanner(t, RRT, problem, NewBasicPlannerOptions())
	startAt(t, p, problem.Factory, 0, 0)

	tp := p.(*treePlanner)
	target, _ := problem.Factory.FromValues(1, 1)
	defer problem.Factory.Delete(target)
	status, err := tp.ExtendToward(context.Background(), 0, target)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, status, test.ShouldEqual, ExtendFailed)
	test.That(t, p.Graph().NrVertices(), test.ShouldEqual, 1)
	test.That(t, p.Graph().NrEdges(), test.ShouldEqual, 0)
	test.That(t, pm.Count(CounterExtendFailed), test.ShouldEqual, int64(1))
}

func TestExtendTowardOutcomes(t *testing.T) {
	ctx := context.Background()
	problem := pointProblem(t, emptyScene(), r2.Point{X: 9, Y: 9}, 1e-6)
	opt := NewBasicPlannerOptions()
	opt.OneStepDistance = 0.5
	opt.ExtendMaxSteps = 4

	t.Run("max steps", func(t *testing.T) {
		p, pm := newTestPlanner(t, RRT, problem, opt)
		startAt(t, p, problem.Factory, 0, 0)
		target, _ := problem.Factory.FromValues(5, 0)
		defer problem.Factory.Delete(target)
		status, err := p.(*treePlanner).ExtendToward(ctx, 0, target)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, ExtendOK)
		test.That(t, p.Graph().NrVertices(), test.ShouldEqual, 5)
		test.That(t, p.Graph().Vertex(4).Cfg.At(0), test.ShouldAlmostEqual, 2.0)
		test.That(t, pm.Count(CounterExtendOK), test.ShouldEqual, int64(1))
	})

	t.Run("reached target", func(t *testing.T) {
		p, _ := newTestPlanner(t, RRT, problem, opt)
		startAt(t, p, problem.Factory, 0, 0)
		target, _ := problem.Factory.FromValues(1.2, 0)
		defer problem.Factory.Delete(target)
		status, err := p.(*treePlanner).ExtendToward(ctx, 0, target)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, ExtendReachedTarget)
		test.That(t, p.Graph().NrVertices(), test.ShouldEqual, 4)
	})

	t.Run("reached goal", func(t *testing.T) {
		p, _ := newTestPlanner(t, RRT, problem, opt)
		startAt(t, p, problem.Factory, 8, 9)
		target, _ := problem.Factory.FromValues(9, 9)
		defer problem.Factory.Delete(target)
		status, err := p.(*treePlanner).ExtendToward(ctx, 0, target)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, ExtendReachedGoal)
		test.That(t, p.IsSolved(), test.ShouldBeTrue)
	})

	t.Run("rejected after progress", func(t *testing.T) {
		blocked := pointProblem(t, emptyScene(), r2.Point{X: 9, Y: 9}, 1e-6)
		blocked.Acceptor = cspace.AcceptorFunc(func(c *cspace.Cfg) bool { return c.At(0) < 1.2 })
		p, _ := newTestPlanner(t, RRT, blocked, opt)
		startAt(t, p, blocked.Factory, 0, 0)
		target, _ := blocked.Factory.FromValues(5, 0)
		defer blocked.Factory.Delete(target)
		status, err := p.(*treePlanner).ExtendToward(ctx, 0, target)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, status, test.ShouldEqual, ExtendOK)
		test.That(t, p.Graph().NrVertices(), test.ShouldEqual, 3)
	})
}

func TestStartAndSolvePreconditions(t *testing.T) {
	ctx := context.Background()
	problem := pointProblem(t, emptyScene(), r2.Point{X: 5, Y: 5}, 1e-6)
	for _, kind := range []string{PRM, RRT} {
		t.Run(kind, func(t *testing.T) {
			p, _ := newTestPlanner(t, kind, problem, NewBasicPlannerOptions())
			_, err := p.Solve(ctx, 0)
			test.That(t, cspace.IsPreconditionError(err), test.ShouldBeTrue)
			_, err = p.GetSolution(ctx)
			test.That(t, cspace.IsPreconditionError(err), test.ShouldBeTrue)

			wrongDim, _ := cspace.NewFactory(3)
			err = p.Start(ctx, wrongDim.New())
			test.That(t, cspace.IsPreconditionError(err), test.ShouldBeTrue)

			startAt(t, p, problem.Factory, 0, 0)
			init, _ := problem.Factory.FromValues(1, 1)
			defer problem.Factory.Delete(init)
			test.That(t, cspace.IsPreconditionError(p.Start(ctx, init)), test.ShouldBeTrue)
		})
	}
}

func TestGetSolutionUnsolved(t *testing.T) {
	problem := pointProblem(t, emptyScene(), r2.Point{X: 5, Y: 5}, 1e-6)
	p, _ := newTestPlanner(t, RRT, problem, NewBasicPlannerOptions())
	startAt(t, p, problem.Factory, 0, 0)
	_, err := p.GetSolution(context.Background())
	test.That(t, err, test.ShouldBeError, NewPlannerFailedError())
}

func TestStartAtGoal(t *testing.T) {
	problem := pointProblem(t, emptyScene(), r2.Point{X: 5, Y: 5}, 1e-6)
	p, _ := newTestPlanner(t, RRT, problem, NewBasicPlannerOptions())
	startAt(t, p, problem.Factory, 5, 5)
	test.That(t, p.IsSolved(), test.ShouldBeTrue)

	sol, err := p.GetSolution(context.Background())
	test.That(t, err, test.ShouldBeNil)
	defer sol.Release(problem.Factory)
	test.That(t, sol.Cost, test.ShouldEqual, 0.0)
	test.That(t, sol.VertexIDs, test.ShouldResemble, []int{0})
	test.That(t, len(sol.Cfgs), test.ShouldEqual, 1)
}

// tickingAcceptor moves a mock clock forward on every test.
type tickingAcceptor struct {
	mock *clock.Mock
}

func (a tickingAcceptor) IsAcceptable(*cspace.Cfg) (bool, error) {
	a.mock.Add(time.Second)
	return true, nil
}

func TestSolveBudget(t *testing.T) {
	mock := clock.NewMock()
	// the goal lies outside the sampled workspace and is never reached
	problem := pointProblem(t, point2d.NewScene(r2.Point{X: -1, Y: -1}, r2.Point{X: 1, Y: 1}), r2.Point{X: 50, Y: 50}, 1e-6)
	problem.Acceptor = tickingAcceptor{mock: mock}
	opt := NewBasicPlannerOptions()
	opt.GoalBias = 0

	//nolint:gosec
	p, err := NewPlanner(RRT, problem, opt, rand.New(rand.NewSource(1)), logging.NewTestLogger(t), WithClock(mock))
	test.That(t, err, test.ShouldBeNil)
	defer p.Close()
	startAt(t, p, problem.Factory, 0, 0)

	start := mock.Now()
	solved, err := p.Solve(context.Background(), 30*time.Second)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, solved, test.ShouldBeFalse)
	elapsed := mock.Now().Sub(start)
	test.That(t, elapsed, test.ShouldBeGreaterThanOrEqualTo, 30*time.Second)
	// a single extension may run past the deadline by at most extend_max_steps tests
	test.That(t, elapsed, test.ShouldBeLessThan, 30*time.Second+time.Duration(opt.ExtendMaxSteps+2)*time.Second)
}

func TestSolveCanceled(t *testing.T) {
	problem := pointProblem(t, emptyScene(), r2.Point{X: 5, Y: 5}, 1e-6)
	p, _ := newTestPlanner(t, RRT, problem, NewBasicPlannerOptions())
	startAt(t, p, problem.Factory, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	solved, err := p.Solve(ctx, 0)
	test.That(t, err, test.ShouldBeError, context.Canceled)
	test.That(t, solved, test.ShouldBeFalse)
}

func TestFindCfg(t *testing.T) {
	ctx := context.Background()
	problem := pointProblem(t, emptyScene(), r2.Point{X: 5, Y: 5}, 1e-6)
	f := problem.Factory
	p, _ := newTestPlanner(t, RRT, problem, NewBasicPlannerOptions())

	probe, _ := f.FromValues(1, 2)
	defer f.Delete(probe)
	_, found := p.FindCfg(ctx, probe)
	test.That(t, found, test.ShouldBeFalse)

	vid, ok, err := p.AddVertex(f.Copy(probe))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)

	again, found := p.FindCfg(ctx, probe)
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, again, test.ShouldEqual, vid)

	near, _ := f.FromValues(1, 2+math.Ldexp(1, -40))
	defer f.Delete(near)
	again, found = p.FindCfg(ctx, near)
	test.That(t, found, test.ShouldBeTrue)
	test.That(t, again, test.ShouldEqual, vid)

	far, _ := f.FromValues(1, 2.001)
	defer f.Delete(far)
	_, found = p.FindCfg(ctx, far)
	test.That(t, found, test.ShouldBeFalse)

	// AddVertex itself never deduplicates
	dup, ok, err := p.AddVertex(f.Copy(probe))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, dup, test.ShouldNotEqual, vid)
	test.That(t, p.Graph().NrVertices(), test.ShouldEqual, 2)
}

func TestSolutionFollowsTravelDirection(t *testing.T) {
	problem := pointProblem(t, emptyScene(), r2.Point{X: 2, Y: 0}, 1e-6)
	f := problem.Factory
	p, _ := newTestPlanner(t, RRT, problem, NewBasicPlannerOptions())
	startAt(t, p, f, 0, 0)
	goal, _, err := p.AddVertex(mustCfg(t, f, 2, 0))
	test.That(t, err, test.ShouldBeNil)

	// stored from the goal back to the start
	e := &plannergraph.Edge{
		From:          goal,
		To:            0,
		Costs:         [2]float64{7, 3},
		Intermediates: []*cspace.Cfg{mustCfg(t, f, 1.5, 0), mustCfg(t, f, 0.5, 0)},
	}
	_, err = p.Graph().AddEdge(e)
	test.That(t, err, test.ShouldBeNil)

	sol, err := p.GetSolution(context.Background())
	test.That(t, err, test.ShouldBeNil)
	defer sol.Release(f)
	test.That(t, sol.Cost, test.ShouldEqual, 3.0)
	xs := make([]float64, 0, len(sol.Cfgs))
	for _, c := range sol.Cfgs {
		xs = append(xs, c.At(0))
	}
	test.That(t, xs, test.ShouldResemble, []float64{0, 0.5, 1.5, 2})
}

func mustCfg(t *testing.T, f *cspace.Factory, vals ...float64) *cspace.Cfg {
	t.Helper()
	c, err := f.FromValues(vals...)
	test.That(t, err, test.ShouldBeNil)
	return c
}

func TestNewPlanner(t *testing.T) {
	logger := logging.NewTestLogger(t)
	problem := pointProblem(t, emptyScene(), r2.Point{X: 5, Y: 5}, 1e-6)

	_, err := NewPlanner("bogus", problem, NewBasicPlannerOptions(), nil, logger)
	test.That(t, err, test.ShouldBeError, NewUnknownPlannerError("bogus"))

	_, err = NewPlanner(RRT, problem, nil, nil, logger)
	test.That(t, err, test.ShouldBeError, errNoPlannerOptions)

	incomplete := *problem
	incomplete.EdgeCost = nil
	_, err = NewPlanner(RRT, &incomplete, NewBasicPlannerOptions(), nil, logger)
	test.That(t, cspace.IsPreconditionError(err), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "edge cost evaluator")

	noProjector := *problem
	noProjector.Projector = nil
	for _, kind := range []string{PGT, FELTR, Sprint} {
		_, err = NewPlanner(kind, &noProjector, NewBasicPlannerOptions(), nil, logger)
		test.That(t, cspace.IsPreconditionError(err), test.ShouldBeTrue)
	}

	// sprint needs its regions up front
	_, err = NewPlanner(Sprint, problem, NewBasicPlannerOptions(), nil, logger)
	test.That(t, cspace.IsPreconditionError(err), test.ShouldBeTrue)

	for _, kind := range []string{PRM, RRT, EST, PGT} {
		p, err := NewPlanner(kind, problem, NewBasicPlannerOptions(), nil, logger)
		test.That(t, err, test.ShouldBeNil)
		p.Close()
	}
}

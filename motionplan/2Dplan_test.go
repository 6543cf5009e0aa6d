package motionplan

import (
	"context"
	"math/rand"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"go.viam.com/planengine/cspace"
	"go.viam.com/planengine/cspace/point2d"
	"go.viam.com/planengine/logging"
)

// pointProblem plans for a point robot in scene toward goal, accepting any configuration
// within tol of it as a goal.
func pointProblem(t *testing.T, scene *point2d.Scene, goal r2.Point, tol float64) *cspace.Problem {
	t.Helper()
	f, err := cspace.NewFactory(2)
	test.That(t, err, test.ShouldBeNil)
	target, err := f.FromValues(goal.X, goal.Y)
	test.That(t, err, test.ShouldBeNil)
	metric := cspace.NewLpDistance(2)
	return &cspace.Problem{
		Factory:   f,
		Sampler:   scene,
		Acceptor:  scene,
		Goal:      cspace.NewDistanceAcceptor(target, tol, metric),
		Distance:  metric,
		Generator: cspace.LinearInterpolation{Metric: metric},
		EdgeCost:  cspace.DistanceCost{Metric: metric},
		Projector: scene,
	}
}

func testOptions(t *testing.T, extra map[string]interface{}) *PlannerOptions {
	t.Helper()
	opt, err := NewPlannerOptionsFromExtra(extra)
	test.That(t, err, test.ShouldBeNil)
	return opt
}

// newTestPlanner returns a seeded planner driven by a mock clock, so only plan_iter bounds
// its Solve calls.
func newTestPlanner(t *testing.T, kind string, problem *cspace.Problem, opt *PlannerOptions) (Planner, *PlanMeta) {
	t.Helper()
	pm := NewPlanMeta()
	//nolint:gosec
	p, err := NewPlanner(kind, problem, opt, rand.New(rand.NewSource(1)), logging.NewTestLogger(t),
		WithClock(clock.NewMock()), WithMetrics(pm))
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(p.Close)
	return p, pm
}

func startAt(t *testing.T, p Planner, f *cspace.Factory, x, y float64) {
	t.Helper()
	init, err := f.FromValues(x, y)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Start(context.Background(), init), test.ShouldBeNil)
	f.Delete(init)
}

func Test2DPlan(t *testing.T) {
	// Test Map:
	//      - bounds are from (-10, -10) to (10, 10)
	//      - obstacle from (-4, 2) to (4, 10)
	// ------------------------
	// | *      |    |      + |
	// |        |    |        |
	// |        |    |        |
	// |        |    |        |
	// |        ------        |
	// |          *           |
	// |                      |
	// |                      |
	// |                      |
	// ------------------------
	obstacle := point2d.NewObstacle(r2.Point{X: 0, Y: 6}, r2.Point{X: 8, Y: 8})
	scene := point2d.NewScene(r2.Point{X: -10, Y: -10}, r2.Point{X: 10, Y: 10}, obstacle)
	problem := pointProblem(t, scene, r2.Point{X: 9, Y: 9}, 1e-6)
	opt := testOptions(t, map[string]interface{}{"plan_iter": 5000, "goal_bias": 0.1})

	p, pm := newTestPlanner(t, RRT, problem, opt)
	startAt(t, p, problem.Factory, -9, 9)

	solved, err := p.Solve(context.Background(), 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, solved, test.ShouldBeTrue)
	test.That(t, p.IsSolved(), test.ShouldBeTrue)

	sol, err := p.GetSolution(context.Background())
	test.That(t, err, test.ShouldBeNil)
	defer sol.Release(problem.Factory)
	test.That(t, sol.VertexIDs[0], test.ShouldEqual, 0)
	test.That(t, len(sol.Cfgs), test.ShouldEqual, len(sol.VertexIDs))

	first, last := point2d.Point(sol.Cfgs[0]), point2d.Point(sol.Cfgs[len(sol.Cfgs)-1])
	test.That(t, first, test.ShouldResemble, r2.Point{X: -9, Y: 9})
	test.That(t, last.Sub(r2.Point{X: 9, Y: 9}).Norm(), test.ShouldBeLessThanOrEqualTo, 1e-6)

	total := 0.0
	for i, cfg := range sol.Cfgs {
		test.That(t, scene.Free(point2d.Point(cfg)), test.ShouldBeTrue)
		test.That(t, obstacle.ContainsPoint(point2d.Point(cfg)), test.ShouldBeFalse)
		if i > 0 {
			step := problem.Distance.Distance(sol.Cfgs[i-1], cfg)
			test.That(t, step, test.ShouldBeLessThanOrEqualTo, opt.OneStepDistance+1e-9)
			total += step
		}
	}
	test.That(t, sol.Cost, test.ShouldAlmostEqual, total, 1e-9)
	// the detour below the obstacle is longer than the straight line
	test.That(t, sol.Cost, test.ShouldBeGreaterThan, 18.0)
	test.That(t, pm.Count(CounterExtendReachedGoal), test.ShouldEqual, int64(1))
	test.That(t, pm.Count(CounterVerticesAdded), test.ShouldEqual, int64(p.Graph().NrVertices()))
}
